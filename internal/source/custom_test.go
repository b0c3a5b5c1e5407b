package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveBody(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCustomFetch_TopLevelArray(t *testing.T) {
	server := serveBody(t, `[
	  {"url": "https://acme.test/inc/1", "severity": "Major", "state": "open", "started_at": "2026-08-10T09:00:00Z"},
	  {"severity": "critical"}
	]`)

	got := NewCustomFetcher(testClient(1)).Fetch(context.Background(), "Acme", server.URL)
	if len(got) != 1 {
		t.Fatalf("Expected 1 incident (linkless row skipped), got %d", len(got))
	}
	if got[0].Link != "https://acme.test/inc/1" {
		t.Errorf("Unexpected link: %s", got[0].Link)
	}
	if got[0].Impact != "major" {
		t.Errorf("Expected severity lowercased into impact, got %q", got[0].Impact)
	}
	if got[0].Status != "open" {
		t.Errorf("Unexpected status: %q", got[0].Status)
	}
}

func TestCustomFetch_WrappedLists(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"incidents", `{"incidents": [{"link": "https://a.test/1", "impact": "minor"}]}`},
		{"data", `{"data": [{"permalink": "https://a.test/1", "level": "minor"}]}`},
		{"items", `{"items": [{"shortlink": "https://a.test/1", "severity": "minor"}]}`},
		{"results.docs", `{"results": {"docs": [{"url": "https://a.test/1", "severity": "minor"}]}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := serveBody(t, tt.body)
			got := NewCustomFetcher(testClient(1)).Fetch(context.Background(), "Acme", server.URL)
			if len(got) != 1 {
				t.Fatalf("Expected 1 incident, got %d", len(got))
			}
			if got[0].Link != "https://a.test/1" {
				t.Errorf("Unexpected link: %s", got[0].Link)
			}
			if got[0].Impact != "minor" {
				t.Errorf("Unexpected impact: %q", got[0].Impact)
			}
		})
	}
}

func TestCustomFetch_NoRows(t *testing.T) {
	server := serveBody(t, `{"message": "all good"}`)
	if got := NewCustomFetcher(testClient(1)).Fetch(context.Background(), "Acme", server.URL); got != nil {
		t.Errorf("Expected nil for a document with no incident rows, got %v", got)
	}
}

func TestCustomFetch_EpochTimestamp(t *testing.T) {
	server := serveBody(t, `[{"link": "https://a.test/1", "severity": "major", "timestamp": "1786698000"}]`)
	got := NewCustomFetcher(testClient(1)).Fetch(context.Background(), "Acme", server.URL)
	if len(got) != 1 {
		t.Fatalf("Expected 1 incident, got %d", len(got))
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("Expected epoch timestamp parsed")
	}
}
