package source

import (
	"context"
	"encoding/xml"
	"log"
	"strings"

	"github.com/outagewatch/outagewatch/internal/metrics"
	"github.com/outagewatch/outagewatch/internal/model"
	"golang.org/x/net/html"
)

// FeedFetcher extracts items from RSS 2.0 and Atom feeds. Feed fetches go
// through the polite path (robots.txt + crawl delay).
type FeedFetcher struct {
	client *Client
}

// NewFeedFetcher creates a feed fetcher.
func NewFeedFetcher(client *Client) *FeedFetcher {
	return &FeedFetcher{client: client}
}

type rssDocument struct {
	XMLName xml.Name `xml:"rss"`
	Channel struct {
		Items []struct {
			Title       string `xml:"title"`
			Link        string `xml:"link"`
			Description string `xml:"description"`
			PubDate     string `xml:"pubDate"`
		} `xml:"item"`
	} `xml:"channel"`
}

type atomDocument struct {
	XMLName xml.Name `xml:"feed"`
	Entries []struct {
		Title string `xml:"title"`
		Links []struct {
			Href string `xml:"href,attr"`
			Rel  string `xml:"rel,attr"`
		} `xml:"link"`
		Summary   string `xml:"summary"`
		Published string `xml:"published"`
		Updated   string `xml:"updated"`
	} `xml:"entry"`
}

// Fetch retrieves and parses one feed URL into candidates. Items missing
// a link, a title or a parseable published time are skipped one by one;
// fetch and parse failures degrade to an empty result.
func (f *FeedFetcher) Fetch(ctx context.Context, kind model.SourceKind, entity, rawURL string) []model.Candidate {
	body, err := f.client.FetchPolite(ctx, rawURL)
	if err != nil {
		log.Printf("feed fetch failed for %s: %s: %v", entity, rawURL, err)
		metrics.FetchFailures.WithLabelValues(string(kind)).Inc()
		return nil
	}

	items := parseFeed(body)
	if items == nil {
		log.Printf("feed parse failed for %s: %s", entity, rawURL)
		metrics.FetchFailures.WithLabelValues(string(kind)).Inc()
		return nil
	}

	out := make([]model.Candidate, 0, len(items))
	for _, it := range items {
		link := strings.TrimSpace(it.link)
		title := strings.TrimSpace(stripHTML(it.title))
		if link == "" || title == "" {
			continue
		}
		published, err := parsePubDate(it.published)
		if err != nil {
			continue
		}
		out = append(out, model.Candidate{
			Link:        link,
			Title:       title,
			Description: strings.TrimSpace(stripHTML(it.description)),
			Published:   published,
		})
	}
	return out
}

type rawItem struct {
	link, title, description, published string
}

// parseFeed tries RSS first, then Atom. Returns nil when the body parses
// as neither.
func parseFeed(body []byte) []rawItem {
	var rss rssDocument
	if err := xml.Unmarshal(body, &rss); err == nil {
		items := make([]rawItem, 0, len(rss.Channel.Items))
		for _, it := range rss.Channel.Items {
			items = append(items, rawItem{
				link:        it.Link,
				title:       it.Title,
				description: it.Description,
				published:   it.PubDate,
			})
		}
		return items
	}

	var atom atomDocument
	if err := xml.Unmarshal(body, &atom); err == nil {
		items := make([]rawItem, 0, len(atom.Entries))
		for _, e := range atom.Entries {
			link := ""
			for _, l := range e.Links {
				if l.Rel == "" || l.Rel == "alternate" {
					link = l.Href
					break
				}
			}
			published := e.Published
			if published == "" {
				published = e.Updated
			}
			items = append(items, rawItem{
				link:        link,
				title:       e.Title,
				description: e.Summary,
				published:   published,
			})
		}
		return items
	}

	return nil
}

// stripHTML reduces embedded markup in feed titles/descriptions to their
// visible text so noise-term matching sees what a reader would.
func stripHTML(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}

	doc, err := html.Parse(strings.NewReader(s))
	if err != nil {
		return s
	}

	var buf strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe":
				return
			}
		}
		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				if buf.Len() > 0 {
					buf.WriteString(" ")
				}
				buf.WriteString(text)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return buf.String()
}
