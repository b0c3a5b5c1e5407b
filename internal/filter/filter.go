// Package filter applies per-kind eligibility rules to raw fetch output.
package filter

import (
	"strings"
	"time"

	"github.com/outagewatch/outagewatch/internal/model"
)

// Filter holds the configured eligibility rules. All rule sets come from
// configuration at construction; nothing here is hard-coded policy.
type Filter struct {
	severities     map[string]bool
	wideSeverities map[string]bool
	noiseTerms     []string
	now            func() time.Time
}

// New creates a filter from configuration.
func New(cfg model.FilterConfig) *Filter {
	f := &Filter{
		severities:     make(map[string]bool, len(cfg.Severities)),
		wideSeverities: make(map[string]bool, len(cfg.WideSeverities)),
		noiseTerms:     make([]string, 0, len(cfg.NoiseTerms)),
		now:            time.Now,
	}
	for _, s := range cfg.Severities {
		f.severities[strings.ToLower(s)] = true
	}
	for _, s := range cfg.WideSeverities {
		f.wideSeverities[strings.ToLower(s)] = true
	}
	for _, term := range cfg.NoiseTerms {
		if t := strings.ToLower(strings.TrimSpace(term)); t != "" {
			f.noiseTerms = append(f.noiseTerms, t)
		}
	}
	// Lower-signal channels fall back to the strict set when no widened
	// set is configured.
	if len(f.wideSeverities) == 0 {
		f.wideSeverities = f.severities
	}
	return f
}

// SeverityEligible reports whether a structured incident's severity meets
// the threshold. wide selects the widened set used for the custom kind.
func (f *Filter) SeverityEligible(severity string, wide bool) bool {
	set := f.severities
	if wide {
		set = f.wideSeverities
	}
	return set[strings.ToLower(strings.TrimSpace(severity))]
}

// CandidateEligible reports whether a feed candidate survives the
// month-window and noise-term rules. Severity thresholds keep low-signal
// noise out of a capacity-limited record; the month window and noise list
// exist because feeds mix live incidents with historical and marketing
// content and carry no liveness flag.
func (f *Filter) CandidateEligible(c model.Candidate) bool {
	if c.Published.Before(monthStart(f.now())) {
		return false
	}

	haystack := strings.ToLower(c.Title + " " + c.Description)
	for _, term := range f.noiseTerms {
		if strings.Contains(haystack, term) {
			return false
		}
	}
	return true
}

// monthStart returns the first instant of t's UTC calendar month.
func monthStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
