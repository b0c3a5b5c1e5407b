package model

import (
	"strconv"
	"testing"
	"time"
)

func TestDefaultNoiseTerms_YearStamps(t *testing.T) {
	terms := make(map[string]bool)
	for _, term := range DefaultNoiseTerms() {
		terms[term] = true
	}

	year := time.Now().UTC().Year()
	for _, past := range []int{year - 1, year - 2} {
		if !terms[strconv.Itoa(past)] {
			t.Errorf("Expected noise terms to include past year %d", past)
		}
	}
	if terms[strconv.Itoa(year)] {
		t.Errorf("Expected noise terms to exclude the current year %d", year)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Limits.LinkCapacity != DefaultLinkCapacity {
		t.Errorf("Unexpected link capacity: %d", cfg.Limits.LinkCapacity)
	}
	if cfg.Limits.CategoryRunCap != DefaultCategoryRunCap {
		t.Errorf("Unexpected category run cap: %d", cfg.Limits.CategoryRunCap)
	}
	if cfg.Seen.TTL != 90*24*time.Hour {
		t.Errorf("Unexpected seen TTL: %v", cfg.Seen.TTL)
	}
	if len(cfg.Filter.Severities) == 0 || len(cfg.Filter.NoiseTerms) == 0 {
		t.Error("Expected default filter rules populated")
	}
}
