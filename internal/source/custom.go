package source

import (
	"context"
	"encoding/json"
	"log"
	"strings"

	"github.com/outagewatch/outagewatch/internal/metrics"
	"github.com/outagewatch/outagewatch/internal/model"
)

// CustomFetcher extracts incidents from vendor-specific structured APIs.
// There is no single shape to rely on, so it accepts the common document
// layouts and picks the first matching field name per tuple.
type CustomFetcher struct {
	client *Client
}

// NewCustomFetcher creates a custom-API fetcher.
func NewCustomFetcher(client *Client) *CustomFetcher {
	return &CustomFetcher{client: client}
}

// Fetch retrieves and extracts one URL's incidents. Rows missing a link
// are skipped individually; everything else degrades to an empty result.
func (f *CustomFetcher) Fetch(ctx context.Context, entity, rawURL string) []StatusIncident {
	body, err := f.client.Fetch(ctx, rawURL)
	if err != nil {
		log.Printf("custom fetch failed for %s: %s: %v", entity, rawURL, err)
		metrics.FetchFailures.WithLabelValues(string(model.KindCustom)).Inc()
		return nil
	}

	rows := flattenRows(body)
	if len(rows) == 0 {
		log.Printf("custom source returned no incident rows for %s: %s", entity, rawURL)
		return nil
	}

	out := make([]StatusIncident, 0, len(rows))
	for _, m := range rows {
		link := pickStr(m, "shortlink", "link", "url", "permalink")
		if link == "" {
			continue
		}

		inc := StatusIncident{
			Impact: strings.ToLower(pickStr(m, "severity", "impact", "level")),
			Status: pickStr(m, "status", "state"),
			Link:   link,
		}
		if ts := pickStr(m, "created_at", "started_at", "timestamp", "published_at"); ts != "" {
			if t, err := parseTimeFlexible(ts); err == nil {
				inc.CreatedAt = t
			}
		}
		out = append(out, inc)
	}
	return out
}

// flattenRows accepts the common incident-list layouts: a top-level
// array, or a list under "incidents", "data", "items" or "results.docs".
func flattenRows(raw []byte) []map[string]any {
	var rows []map[string]any

	var obj map[string]any
	if json.Unmarshal(raw, &obj) == nil && len(obj) > 0 {
		for _, key := range []string{"incidents", "data", "items"} {
			if arr, ok := obj[key].([]any); ok {
				for _, it := range arr {
					if m, ok := it.(map[string]any); ok {
						rows = append(rows, m)
					}
				}
			}
		}
		if res, ok := obj["results"].(map[string]any); ok {
			if docs, ok := res["docs"].([]any); ok {
				for _, it := range docs {
					if m, ok := it.(map[string]any); ok {
						rows = append(rows, m)
					}
				}
			}
		}
	}

	if len(rows) == 0 {
		var arr []any
		if json.Unmarshal(raw, &arr) == nil {
			for _, it := range arr {
				if m, ok := it.(map[string]any); ok {
					rows = append(rows, m)
				}
			}
		}
	}
	return rows
}
