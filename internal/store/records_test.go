package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/outagewatch/outagewatch/internal/model"
)

func TestMonthKey(t *testing.T) {
	tests := []struct {
		in   time.Time
		want string
	}{
		{time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC), "outages-2026-08.json"},
		{time.Date(2026, time.December, 1, 0, 0, 0, 0, time.UTC), "outages-2026-12.json"},
		{time.Date(2026, time.January, 31, 23, 59, 59, 0, time.UTC), "outages-2026-01.json"},
	}
	for _, tt := range tests {
		if got := MonthKey(tt.in); got != tt.want {
			t.Errorf("MonthKey(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMonthKey_UTCBoundary(t *testing.T) {
	loc := time.FixedZone("UTC-10", -10*3600)
	// Local clock still shows July 31; UTC is already August 1.
	local := time.Date(2026, time.July, 31, 18, 0, 0, 0, loc)

	if got := MonthKey(local); got != "outages-2026-08.json" {
		t.Errorf("MonthKey = %q, want UTC month", got)
	}
}

func testRecords(t *testing.T, at time.Time) (*Records, *FSStore) {
	t.Helper()
	fs := NewFSStore(t.TempDir())
	r := NewRecords(fs, "outages-template.json", "outage-sources.json")
	r.now = func() time.Time { return at }
	return r, fs
}

func TestBootstrap_SeedsFromTemplate(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, time.August, 1, 0, 5, 0, 0, time.UTC)
	r, fs := testRecords(t, at)

	template := `[{"name": "Acme", "link": []}]`
	if err := fs.Put(ctx, "outages-template.json", []byte(template)); err != nil {
		t.Fatalf("Put template: %v", err)
	}

	if err := r.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	data, err := fs.Get(ctx, "outages-2026-08.json")
	if err != nil {
		t.Fatalf("Get record: %v", err)
	}
	if string(data) != template {
		t.Errorf("Expected template bytes copied verbatim, got %s", data)
	}
}

func TestBootstrap_NeverOverwrites(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	r, fs := testRecords(t, at)

	existing := `[{"name": "Acme", "link": ["https://a.test/1"]}]`
	if err := fs.Put(ctx, "outages-2026-08.json", []byte(existing)); err != nil {
		t.Fatalf("Put record: %v", err)
	}

	// No template present: Bootstrap must not even need it.
	if err := r.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}

	data, err := fs.Get(ctx, "outages-2026-08.json")
	if err != nil {
		t.Fatalf("Get record: %v", err)
	}
	if string(data) != existing {
		t.Errorf("Expected existing record untouched, got %s", data)
	}
}

func TestBootstrap_MissingTemplateFatal(t *testing.T) {
	r, _ := testRecords(t, time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC))
	if err := r.Bootstrap(context.Background()); err == nil {
		t.Fatal("Expected error when template is missing")
	}
}

func TestLoadMonth_MissingFatal(t *testing.T) {
	r, _ := testRecords(t, time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC))
	_, _, err := r.LoadMonth(context.Background())
	if err == nil {
		t.Fatal("Expected error when monthly record is missing")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound in chain, got %v", err)
	}
}

func TestSaveAndLoadMonth(t *testing.T) {
	ctx := context.Background()
	r, _ := testRecords(t, time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC))

	entries := []model.RecordEntry{
		{Name: "Acme", Link: []string{"https://a.test/1"}},
		{Name: "Globex", Link: []string{}},
	}
	if err := r.SaveMonth(ctx, "outages-2026-08.json", entries); err != nil {
		t.Fatalf("SaveMonth: %v", err)
	}

	got, key, err := r.LoadMonth(ctx)
	if err != nil {
		t.Fatalf("LoadMonth: %v", err)
	}
	if key != "outages-2026-08.json" {
		t.Errorf("Unexpected key: %s", key)
	}
	if len(got) != 2 || got[0].Name != "Acme" || got[0].Link[0] != "https://a.test/1" {
		t.Errorf("Unexpected entries: %+v", got)
	}
}

func TestFSStore_GetMissing(t *testing.T) {
	fs := NewFSStore(t.TempDir())
	_, err := fs.Get(context.Background(), "nope.json")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}
