// Package selector decides which filtered candidates are admitted this
// run: it discards already-seen fingerprints and picks at most one of the
// remainder per source invocation.
package selector

import (
	"context"
	"log"
	"math/rand"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/outagewatch/outagewatch/internal/metrics"
	"github.com/outagewatch/outagewatch/internal/model"
	"github.com/outagewatch/outagewatch/internal/seen"
)

// Selector consults the seen store and applies the selection policy.
//
// Marking policy: every eligible candidate examined in an invocation is
// marked seen, whether or not it was the one picked. Unchosen items are
// discarded permanently; in exchange, each run surfaces a genuinely new
// item the next time the feed is polled. The policy is uniform across all
// feed kinds.
type Selector struct {
	store seen.Store
	ttl   time.Duration
	rng   *rand.Rand
}

// New creates a selector. rng may be nil, in which case a time-seeded
// source is used; tests inject a fixed seed.
func New(store seen.Store, ttl time.Duration, rng *rand.Rand) *Selector {
	if ttl <= 0 {
		ttl = seen.DefaultTTL
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Selector{store: store, ttl: ttl, rng: rng}
}

// Fingerprint derives the seen-store key for a candidate within a scope.
// The material covers the fields that identify one incident occurrence:
// normalized link, title, published time in epoch millis.
func Fingerprint(scope string, c model.Candidate) string {
	material := normalizeLink(c.Link) + "\n" + c.Title + "\n" + strconv.FormatInt(c.Published.UnixMilli(), 10)
	return seen.Key(scope, material)
}

// Pick returns at most one never-seen candidate, chosen uniformly at
// random. Feeds are not reliably ordered, and random choice avoids
// resurfacing the same perennial top-of-feed item. All eligible
// candidates are marked seen before returning. Seen-store failures drop
// the affected candidate for this run only.
func (s *Selector) Pick(ctx context.Context, scope string, candidates []model.Candidate) (model.Candidate, bool) {
	eligible := make([]model.Candidate, 0, len(candidates))
	for _, c := range candidates {
		key := Fingerprint(scope, c)
		found, err := s.store.Seen(ctx, key)
		if err != nil {
			log.Printf("seen lookup failed for %s: %v", scope, err)
			metrics.SeenErrors.Inc()
			continue
		}
		if found {
			continue
		}
		eligible = append(eligible, c)
	}

	if len(eligible) == 0 {
		return model.Candidate{}, false
	}

	picked := eligible[s.rng.Intn(len(eligible))]

	for _, c := range eligible {
		if err := s.store.Mark(ctx, Fingerprint(scope, c), s.ttl); err != nil {
			log.Printf("seen mark failed for %s: %v", scope, err)
			metrics.SeenErrors.Inc()
		}
	}

	return picked, true
}

// normalizeLink canonicalizes a link for fingerprinting: lowercased
// scheme/host, fragment dropped, trailing slash trimmed.
func normalizeLink(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Fragment = ""
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// Budget is the run-wide admission cap shared by all sources feeding one
// category. Caps are evaluated in iteration order; once exhausted, the
// category's remaining sources are skipped for the rest of the run.
type Budget struct {
	remaining int
	unlimited bool
}

// NewBudget creates a budget of n admissions. n <= 0 means unlimited,
// used for vendor entities which are bounded by record capacity alone.
func NewBudget(n int) *Budget {
	if n <= 0 {
		return &Budget{unlimited: true}
	}
	return &Budget{remaining: n}
}

// Exhausted reports whether the budget has been spent.
func (b *Budget) Exhausted() bool {
	return !b.unlimited && b.remaining <= 0
}

// Spend consumes one admission.
func (b *Budget) Spend() {
	if !b.unlimited {
		b.remaining--
	}
}
