// Package record owns the in-memory monthly record during a run. It is
// the single authority for the capacity and duplicate invariants: no
// other component writes into link lists.
package record

import (
	"log"

	"github.com/outagewatch/outagewatch/internal/metrics"
	"github.com/outagewatch/outagewatch/internal/model"
)

// Record wraps the month's entries with a name index and a changed flag.
// It is an explicit per-run value, confined to a single goroutine; it is
// not safe for concurrent use.
type Record struct {
	entries  []model.RecordEntry
	index    map[string]int
	capacity int
	changed  bool
}

// New builds a Record over the loaded entries. Capacity <= 0 falls back
// to the default. Nil link lists from older documents are normalized.
func New(entries []model.RecordEntry, capacity int) *Record {
	if capacity <= 0 {
		capacity = model.DefaultLinkCapacity
	}

	index := make(map[string]int, len(entries))
	for i := range entries {
		if entries[i].Link == nil {
			entries[i].Link = []string{}
		}
		index[entries[i].Name] = i
	}

	return &Record{
		entries:  entries,
		index:    index,
		capacity: capacity,
	}
}

// AppendLink admits a link into the named entity's list. Returns true only
// when the record actually changed. Unknown entity names are a no-op and
// a warning: they indicate drift between the sources document and the
// monthly record. A full list stops accepting links until the next
// month's reset; nothing is evicted.
func (r *Record) AppendLink(name, link string) bool {
	idx, ok := r.index[name]
	if !ok {
		log.Printf("entity not found in monthly record: %q", name)
		metrics.UnknownEntities.WithLabelValues(name).Inc()
		return false
	}

	entry := &r.entries[idx]
	if len(entry.Link) >= r.capacity {
		return false
	}
	for _, existing := range entry.Link {
		if existing == link {
			return false
		}
	}

	entry.Link = append(entry.Link, link)
	r.changed = true
	return true
}

// Changed reports whether any AppendLink call admitted a link.
func (r *Record) Changed() bool {
	return r.changed
}

// Entries returns the record's entries for persistence.
func (r *Record) Entries() []model.RecordEntry {
	return r.entries
}
