package source

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"github.com/outagewatch/outagewatch/internal/metrics"
	"github.com/outagewatch/outagewatch/internal/model"
)

// StatusIncident is one incident row extracted from a structured status
// API. The link is the upstream-assigned stable identifier.
type StatusIncident struct {
	Impact    string
	Status    string
	Link      string
	CreatedAt time.Time // zero when the upstream omits it
}

// StatuspageFetcher extracts incidents from status APIs in the Statuspage
// shape: {"incidents": [{"impact", "status", "shortlink", "created_at"}]}.
type StatuspageFetcher struct {
	client *Client
}

// NewStatuspageFetcher creates a statuspage fetcher.
func NewStatuspageFetcher(client *Client) *StatuspageFetcher {
	return &StatuspageFetcher{client: client}
}

type statuspageDocument struct {
	Incidents []struct {
		Impact    string `json:"impact"`
		Status    string `json:"status"`
		Shortlink string `json:"shortlink"`
		CreatedAt string `json:"created_at"`
	} `json:"incidents"`
}

// Fetch retrieves and extracts one URL's incidents. Incidents without a
// link are skipped individually; upstream failures and malformed bodies
// degrade to an empty result.
func (f *StatuspageFetcher) Fetch(ctx context.Context, entity, rawURL string) []StatusIncident {
	body, err := f.client.Fetch(ctx, rawURL)
	if err != nil {
		log.Printf("statuspage fetch failed for %s: %s: %v", entity, rawURL, err)
		metrics.FetchFailures.WithLabelValues(string(model.KindStatuspage)).Inc()
		return nil
	}

	var doc statuspageDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		log.Printf("statuspage parse failed for %s: %s: %v", entity, rawURL, err)
		metrics.FetchFailures.WithLabelValues(string(model.KindStatuspage)).Inc()
		return nil
	}

	out := make([]StatusIncident, 0, len(doc.Incidents))
	for _, in := range doc.Incidents {
		link := strings.TrimSpace(in.Shortlink)
		if link == "" {
			continue
		}
		inc := StatusIncident{
			Impact: strings.ToLower(strings.TrimSpace(in.Impact)),
			Status: in.Status,
			Link:   link,
		}
		if in.CreatedAt != "" {
			if t, err := parseTimeFlexible(in.CreatedAt); err == nil {
				inc.CreatedAt = t
			}
		}
		out = append(out, inc)
	}
	return out
}
