package filter

import (
	"testing"
	"time"

	"github.com/outagewatch/outagewatch/internal/model"
)

func testFilter() *Filter {
	f := New(model.FilterConfig{
		Severities:     []string{"major", "critical"},
		WideSeverities: []string{"minor", "major", "critical"},
		NoiseTerms:     []string{"resolved", "restored", "maintenance"},
	})
	f.now = func() time.Time {
		return time.Date(2026, time.August, 15, 12, 0, 0, 0, time.UTC)
	}
	return f
}

func TestSeverityEligible(t *testing.T) {
	f := testFilter()

	tests := []struct {
		severity string
		wide     bool
		want     bool
	}{
		{"major", false, true},
		{"critical", false, true},
		{"CRITICAL", false, true},
		{" major ", false, true},
		{"minor", false, false},
		{"none", false, false},
		{"", false, false},
		{"minor", true, true},
		{"major", true, true},
		{"none", true, false},
	}
	for _, tt := range tests {
		if got := f.SeverityEligible(tt.severity, tt.wide); got != tt.want {
			t.Errorf("SeverityEligible(%q, wide=%v) = %v, want %v", tt.severity, tt.wide, got, tt.want)
		}
	}
}

func TestSeverityEligible_WideFallsBackToStrict(t *testing.T) {
	f := New(model.FilterConfig{Severities: []string{"major"}})

	if f.SeverityEligible("minor", true) {
		t.Error("Expected wide set to fall back to strict when unconfigured")
	}
	if !f.SeverityEligible("major", true) {
		t.Error("Expected strict severity to pass through fallback")
	}
}

func TestCandidateEligible_MonthWindow(t *testing.T) {
	f := testFilter()

	inMonth := model.Candidate{
		Link:      "https://news.test/a",
		Title:     "Outage at Acme",
		Published: time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC),
	}
	if !f.CandidateEligible(inMonth) {
		t.Error("Expected item published at month start to be eligible")
	}

	lastMonth := inMonth
	lastMonth.Published = time.Date(2026, time.July, 31, 23, 59, 59, 0, time.UTC)
	if f.CandidateEligible(lastMonth) {
		t.Error("Expected last-month item to be rejected")
	}
}

func TestCandidateEligible_NoiseTerms(t *testing.T) {
	f := testFilter()
	published := time.Date(2026, time.August, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		title, desc string
		want        bool
	}{
		{"Acme outage ongoing", "major disruption", true},
		{"Service Restored", "all systems operational", false},
		{"Acme incident", "issue has been resolved", false},
		{"Scheduled Maintenance window", "", false},
		{"RESOLVED: database incident", "", false},
	}
	for _, tt := range tests {
		c := model.Candidate{Link: "https://x.test", Title: tt.title, Description: tt.desc, Published: published}
		if got := f.CandidateEligible(c); got != tt.want {
			t.Errorf("CandidateEligible(%q / %q) = %v, want %v", tt.title, tt.desc, got, tt.want)
		}
	}
}

func TestMonthStart_UTC(t *testing.T) {
	loc := time.FixedZone("UTC+14", 14*3600)
	// Local time is already September; UTC is still August.
	local := time.Date(2026, time.September, 1, 2, 0, 0, 0, loc)

	got := monthStart(local)
	want := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("monthStart = %v, want %v", got, want)
	}
}
