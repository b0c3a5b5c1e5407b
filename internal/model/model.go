package model

import "time"

// SourceKind identifies the upstream source variant for an entity.
type SourceKind string

const (
	// KindStatuspage is a structured incident API in the Statuspage shape:
	// a JSON document with an "incidents" list carrying impact + shortlink.
	KindStatuspage SourceKind = "api_statuspage"

	// KindCustom is a vendor-specific structured API with a looser shape.
	KindCustom SourceKind = "api_custom"

	// Syndication feed kinds. Same wire format, different filter/selection
	// policy and trigger cadence.
	KindStatusFeed   SourceKind = "rss_status"
	KindCategoryFeed SourceKind = "rss_category"
	KindNewsFeed     SourceKind = "rss_news"
)

// RecordEntry is one entity's slot in the monthly record document.
// Link is an ordered, duplicate-free list bounded by the configured capacity.
type RecordEntry struct {
	Name string   `json:"name"`
	Link []string `json:"link"`
}

// Candidate is an incident reference extracted from a feed item. It lives
// for the duration of one run and is discarded afterwards.
type Candidate struct {
	Link        string
	Title       string
	Description string
	Published   time.Time
}
