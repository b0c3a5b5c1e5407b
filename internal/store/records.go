package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/outagewatch/outagewatch/internal/model"
)

// MonthKey derives the monthly record's object key for the given instant.
// UTC year and zero-padded month only; the local timezone never leaks in.
func MonthKey(t time.Time) string {
	u := t.UTC()
	return fmt.Sprintf("outages-%04d-%02d.json", u.Year(), int(u.Month()))
}

// Records wraps an ObjectStore with the record/template/sources document
// operations the pipeline needs.
type Records struct {
	store       ObjectStore
	templateKey string
	sourcesKey  string
	now         func() time.Time
}

// NewRecords creates a Records wrapper.
func NewRecords(store ObjectStore, templateKey, sourcesKey string) *Records {
	return &Records{
		store:       store,
		templateKey: templateKey,
		sourcesKey:  sourcesKey,
		now:         time.Now,
	}
}

// Bootstrap ensures the current month's record exists, copying template
// bytes verbatim when absent. Never overwrites an existing record, so it
// is idempotent under repeated invocation within the same month. A missing
// template is fatal.
func (r *Records) Bootstrap(ctx context.Context) error {
	key := MonthKey(r.now())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("head %s: %w", key, err)
	}
	if exists {
		return nil
	}

	tmpl, err := r.store.Get(ctx, r.templateKey)
	if err != nil {
		return fmt.Errorf("missing %s: %w", r.templateKey, err)
	}

	if err := r.store.Put(ctx, key, tmpl); err != nil {
		return fmt.Errorf("seed %s: %w", key, err)
	}
	log.Printf("bootstrapped %s from %s", key, r.templateKey)
	return nil
}

// LoadSources fetches the sources document's raw bytes. Missing document
// is fatal for the run.
func (r *Records) LoadSources(ctx context.Context) ([]byte, error) {
	data, err := r.store.Get(ctx, r.sourcesKey)
	if err != nil {
		return nil, fmt.Errorf("missing %s: %w", r.sourcesKey, err)
	}
	return data, nil
}

// LoadMonth fetches and decodes the current month's record, returning the
// entries and the key they were loaded from. A missing record is fatal:
// the bootstrap phase has not run yet and there is nothing to merge into.
func (r *Records) LoadMonth(ctx context.Context) ([]model.RecordEntry, string, error) {
	key := MonthKey(r.now())

	data, err := r.store.Get(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("missing %s (monthly record not created yet): %w", key, err)
	}

	var entries []model.RecordEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", key, err)
	}
	return entries, key, nil
}

// SaveMonth persists the record entries under the given key.
func (r *Records) SaveMonth(ctx context.Context, key string, entries []model.RecordEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := r.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
