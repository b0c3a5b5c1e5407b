// Package pipeline coordinates one ingestion run: load the sources
// document and the monthly record, walk entities in document order,
// dispatch each source to its fetcher and filter, merge admitted links
// and persist the record once iff it changed.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/outagewatch/outagewatch/internal/config"
	"github.com/outagewatch/outagewatch/internal/filter"
	"github.com/outagewatch/outagewatch/internal/metrics"
	"github.com/outagewatch/outagewatch/internal/model"
	"github.com/outagewatch/outagewatch/internal/record"
	"github.com/outagewatch/outagewatch/internal/seen"
	"github.com/outagewatch/outagewatch/internal/selector"
	"github.com/outagewatch/outagewatch/internal/source"
	"github.com/outagewatch/outagewatch/internal/store"
	"github.com/outagewatch/outagewatch/internal/worker"
)

// Phase selects the config subset a run covers. Each scheduling cadence
// maps to one phase; the invariants are identical across all of them.
type Phase string

const (
	// PhaseVendors covers vendor entities' structured APIs and status
	// feeds (hourly cadence).
	PhaseVendors Phase = "vendors"
	// PhaseCategories covers category entities (multi-hourly cadence).
	PhaseCategories Phase = "categories"
	// PhaseNews covers vendor news feeds only (daily cadence).
	PhaseNews Phase = "news"
	// PhaseAll covers everything in one pass.
	PhaseAll Phase = "all"
)

// ErrLeaseHeld is returned when another run holds the lease.
var ErrLeaseHeld = fmt.Errorf("another run holds the lease")

// ParsePhase validates a phase name from the command line.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhaseVendors, PhaseCategories, PhaseNews, PhaseAll:
		return Phase(s), nil
	}
	return "", fmt.Errorf("unknown phase %q (want vendors, categories, news or all)", s)
}

// Coordinator wires the fetchers, filter, selector and stores into runs.
type Coordinator struct {
	cfg        *model.Config
	records    *store.Records
	seenStore  seen.Store
	filter     *filter.Filter
	selector   *selector.Selector
	statuspage *source.StatuspageFetcher
	custom     *source.CustomFetcher
	feeds      *source.FeedFetcher

	now func() time.Time
}

// New creates a run coordinator over the given stores and fetch client.
func New(cfg *model.Config, records *store.Records, seenStore seen.Store, client *source.Client) *Coordinator {
	ttl := cfg.Seen.TTL
	if ttl <= 0 {
		ttl = seen.DefaultTTL
	}

	return &Coordinator{
		cfg:        cfg,
		records:    records,
		seenStore:  seenStore,
		filter:     filter.New(cfg.Filter),
		selector:   selector.New(seenStore, ttl, nil),
		statuspage: source.NewStatuspageFetcher(client),
		custom:     source.NewCustomFetcher(client),
		feeds:      source.NewFeedFetcher(client),
		now:        time.Now,
	}
}

// Bootstrap ensures the current month's record exists.
func (c *Coordinator) Bootstrap(ctx context.Context) error {
	return c.records.Bootstrap(ctx)
}

// task is one (entity, source URL) pair in document order. scope isolates
// seen fingerprints: the entity name for vendor tasks, entity|sourceURL
// for category tasks so the same article surfaced by two vendors' feeds
// in one category is tracked independently. budget is shared across a
// category's tasks and nil for vendor tasks.
type task struct {
	entity string
	scope  string
	kind   model.SourceKind
	url    string
	budget *selector.Budget
}

// fetchResult holds one task's raw fetch output. Exactly one field is
// populated, matching the task's kind.
type fetchResult struct {
	incidents  []source.StatusIncident
	candidates []model.Candidate
	done       bool
}

// Run executes one ingestion run for the phase. It acquires the
// month-keyed lease first and aborts with ErrLeaseHeld when another run
// owns it. Fetch or parse failures for individual sources never fail the
// run; a missing sources document or monthly record does.
func (c *Coordinator) Run(ctx context.Context, phase Phase) error {
	start := c.now()
	err := c.run(ctx, phase)

	metrics.RunDuration.Observe(c.now().Sub(start).Seconds())
	switch {
	case err == nil:
		metrics.Runs.WithLabelValues(string(phase), "ok").Inc()
	case err == ErrLeaseHeld:
		metrics.Runs.WithLabelValues(string(phase), "locked").Inc()
	default:
		metrics.Runs.WithLabelValues(string(phase), "error").Inc()
	}
	return err
}

func (c *Coordinator) run(ctx context.Context, phase Phase) error {
	leaseKey := "lease:run:" + store.MonthKey(c.now())
	leaseTTL := c.cfg.Seen.LeaseTTL
	if leaseTTL <= 0 {
		leaseTTL = 10 * time.Minute
	}

	acquired, err := c.seenStore.Acquire(ctx, leaseKey, leaseTTL)
	if err != nil {
		return fmt.Errorf("acquire lease: %w", err)
	}
	if !acquired {
		return ErrLeaseHeld
	}
	defer func() {
		if err := c.seenStore.Release(context.WithoutCancel(ctx), leaseKey); err != nil {
			log.Printf("release lease: %v", err)
		}
	}()

	raw, err := c.records.LoadSources(ctx)
	if err != nil {
		return err
	}
	doc, err := config.Parse(raw)
	if err != nil {
		return err
	}

	entries, key, err := c.records.LoadMonth(ctx)
	if err != nil {
		return err
	}
	rec := record.New(entries, c.cfg.Limits.LinkCapacity)

	tasks := c.buildTasks(doc, phase)
	if len(tasks) == 0 {
		log.Printf("phase %s matched no sources", phase)
		return nil
	}

	results := c.fetchAll(ctx, tasks)
	for i, t := range tasks {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if t.budget != nil && t.budget.Exhausted() {
			continue
		}
		c.merge(ctx, rec, t, &results[i])
	}

	if !rec.Changed() {
		if c.cfg.Verbose {
			log.Printf("phase %s: no new links, skipping persist", phase)
		}
		return nil
	}
	if err := c.records.SaveMonth(ctx, key, rec.Entries()); err != nil {
		return err
	}
	log.Printf("phase %s: persisted %s", phase, key)
	return nil
}

// buildTasks flattens the phase's config subset into document order. Each
// category gets one shared admission budget spanning all of its tasks.
func (c *Coordinator) buildTasks(doc *config.Document, phase Phase) []task {
	var tasks []task

	appendVendor := func(entity string, v config.Vendor, budget *selector.Budget) {
		for _, s := range v.Sources {
			if phase == PhaseNews && s.Type != model.KindNewsFeed {
				continue
			}
			if phase == PhaseVendors && s.Type == model.KindNewsFeed {
				continue
			}
			for _, u := range s.URLs {
				scope := entity
				if budget != nil {
					scope = entity + "|" + u
				}
				tasks = append(tasks, task{entity: entity, scope: scope, kind: s.Type, url: u, budget: budget})
			}
		}
	}

	if phase == PhaseVendors || phase == PhaseNews || phase == PhaseAll {
		for _, v := range doc.Vendors {
			appendVendor(v.Vendor, v, nil)
		}
	}
	if phase == PhaseCategories || phase == PhaseAll {
		runCap := c.cfg.Limits.CategoryRunCap
		if runCap <= 0 {
			runCap = model.DefaultCategoryRunCap
		}
		for _, cat := range doc.Categories {
			budget := selector.NewBudget(runCap)
			for _, v := range cat.Vendors {
				appendVendor(cat.Name, v, budget)
			}
		}
	}
	return tasks
}

// fetchAll retrieves every task's raw output. With more than one fetch
// worker the I/O runs in parallel into per-task slots; merging stays on
// the caller's goroutine in document order either way. Sequential mode
// defers each fetch to merge time instead, so an exhausted category
// budget skips the remaining fetches entirely.
func (c *Coordinator) fetchAll(ctx context.Context, tasks []task) []fetchResult {
	results := make([]fetchResult, len(tasks))
	if c.cfg.Concurrency.FetchWorkers <= 1 {
		return results
	}

	pool := worker.NewPool(c.cfg.Concurrency.FetchWorkers)
	pool.Run(ctx, len(tasks), func(ctx context.Context, i int) {
		c.fetchOne(ctx, tasks[i], &results[i])
	})
	return results
}

func (c *Coordinator) fetchOne(ctx context.Context, t task, res *fetchResult) {
	switch t.kind {
	case model.KindStatuspage:
		res.incidents = c.statuspage.Fetch(ctx, t.entity, t.url)
	case model.KindCustom:
		res.incidents = c.custom.Fetch(ctx, t.entity, t.url)
	case model.KindStatusFeed, model.KindCategoryFeed, model.KindNewsFeed:
		res.candidates = c.feeds.Fetch(ctx, t.kind, t.entity, t.url)
	default:
		// Unknown kinds are forward-compatible no-ops.
		log.Printf("skipping source with unknown kind %q for %s", t.kind, t.entity)
		metrics.UnknownKinds.WithLabelValues(string(t.kind)).Inc()
	}
	res.done = true
}

func (c *Coordinator) merge(ctx context.Context, rec *record.Record, t task, res *fetchResult) {
	if !res.done {
		c.fetchOne(ctx, t, res)
	}

	switch t.kind {
	case model.KindStatuspage, model.KindCustom:
		wide := t.kind == model.KindCustom
		for _, inc := range res.incidents {
			if t.budget != nil && t.budget.Exhausted() {
				return
			}
			if !c.filter.SeverityEligible(inc.Impact, wide) {
				continue
			}
			c.admit(rec, t, inc.Link)
		}
	case model.KindStatusFeed, model.KindCategoryFeed, model.KindNewsFeed:
		eligible := res.candidates[:0:0]
		for _, cand := range res.candidates {
			if c.filter.CandidateEligible(cand) {
				eligible = append(eligible, cand)
			}
		}
		pick, ok := c.selector.Pick(ctx, t.scope, eligible)
		if !ok {
			return
		}
		c.admit(rec, t, pick.Link)
	}
}

func (c *Coordinator) admit(rec *record.Record, t task, link string) {
	if !rec.AppendLink(t.entity, link) {
		return
	}
	if t.budget != nil {
		t.budget.Spend()
	}
	metrics.Admissions.WithLabelValues(t.entity, string(t.kind)).Inc()
	if c.cfg.Verbose {
		log.Printf("admitted %s for %s (%s)", link, t.entity, t.kind)
	}
}
