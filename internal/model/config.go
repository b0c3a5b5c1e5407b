package model

import (
	"strconv"
	"time"
)

// Named defaults for the merge caps. Both are configuration, not behavior:
// deployments tune them without code changes.
const (
	DefaultLinkCapacity   = 6 // max links per entity per month
	DefaultCategoryRunCap = 6 // max admissions per category per run
)

// Config is the full application configuration.
type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Store        StoreConfig        `yaml:"store"`
	Seen         SeenConfig         `yaml:"seen"`
	Filter       FilterConfig       `yaml:"filter"`
	Limits       LimitsConfig       `yaml:"limits"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency"`
	Metrics      MetricsConfig      `yaml:"metrics"`
	Robots       RobotsConfig       `yaml:"robots"`
	Verbose      bool               `yaml:"verbose"`
}

// HTTPConfig controls outbound fetches.
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	UserAgent    string        `yaml:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	MaxRetries   int           `yaml:"max_retries"`
	HTTPProxy    string        `yaml:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy"`
}

// StoreConfig selects and parameterizes the object store holding the
// monthly record, its template, and the sources document.
type StoreConfig struct {
	Backend     string `yaml:"backend"` // "s3" or "fs"
	Bucket      string `yaml:"bucket"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"` // custom endpoint for S3-compatibles
	Prefix      string `yaml:"prefix"`
	Dir         string `yaml:"dir"` // fs backend root
	TemplateKey string `yaml:"template_key"`
	SourcesKey  string `yaml:"sources_key"`
}

// SeenConfig selects the seen-state backend and its retention window.
type SeenConfig struct {
	Backend       string        `yaml:"backend"` // "redis", "memory" or "disk"
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	Dir           string        `yaml:"dir"` // disk backend root
	TTL           time.Duration `yaml:"ttl"`
	LeaseTTL      time.Duration `yaml:"lease_ttl"`
}

// FilterConfig holds the eligibility rules applied to raw fetch output.
type FilterConfig struct {
	// Severities admitted from structured sources. WideSeverities applies
	// to the lower-signal custom kind instead when non-empty.
	Severities     []string `yaml:"severities"`
	WideSeverities []string `yaml:"wide_severities"`
	// NoiseTerms rejects feed items whose title+description contains any
	// term (case-insensitive substring).
	NoiseTerms []string `yaml:"noise_terms"`
}

// LimitsConfig bounds record growth.
type LimitsConfig struct {
	LinkCapacity   int `yaml:"link_capacity"`
	CategoryRunCap int `yaml:"category_run_cap"`
}

// RateLimitingConfig throttles outbound requests per upstream host.
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size"`
}

// ConcurrencyConfig controls the prefetch worker pool. FetchWorkers <= 1
// disables prefetch and keeps fetching strictly sequential.
type ConcurrencyConfig struct {
	FetchWorkers int `yaml:"fetch_workers"`
}

// MetricsConfig controls the Prometheus endpoint served in interval mode.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// RobotsConfig gates feed fetches on robots.txt. Structured status APIs are
// first-party endpoints and are never gated.
type RobotsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// DefaultConfig returns the built-in defaults. Flags, environment and the
// config file override on top.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      30 * time.Second,
			UserAgent:    "outagewatch/0.3 (+https://github.com/outagewatch/outagewatch)",
			MaxBodyBytes: 2_000_000,
			MaxRetries:   3,
		},
		Store: StoreConfig{
			Backend:     "s3",
			TemplateKey: "outages-template.json",
			SourcesKey:  "outage-sources.json",
		},
		Seen: SeenConfig{
			Backend:  "redis",
			TTL:      90 * 24 * time.Hour,
			LeaseTTL: 10 * time.Minute,
		},
		Filter: FilterConfig{
			Severities:     []string{"major", "critical"},
			WideSeverities: []string{"minor", "major", "critical"},
			NoiseTerms:     DefaultNoiseTerms(),
		},
		Limits: LimitsConfig{
			LinkCapacity:   DefaultLinkCapacity,
			CategoryRunCap: DefaultCategoryRunCap,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
		},
		Concurrency: ConcurrencyConfig{
			FetchWorkers: 1,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9097",
		},
		Robots: RobotsConfig{
			Enabled: true,
		},
	}
}

// DefaultNoiseTerms covers resolution/closure language and recurring
// off-topic feed content. Feeds mix live incident updates with marketing,
// legal and retrospective items and carry no reliable liveness flag. The
// two previous UTC years are included to catch year-stamped
// retrospectives; the current year is not, since live incident titles
// may carry it.
func DefaultNoiseTerms() []string {
	year := time.Now().UTC().Year()
	return []string{
		"resolved",
		"restored",
		"recovered",
		"completed",
		"maintenance",
		"scheduled",
		"class action",
		"lawsuit",
		"stock",
		"shares",
		"earnings",
		"retrospective",
		"postmortem",
		"year in review",
		strconv.Itoa(year - 2),
		strconv.Itoa(year - 1),
	}
}
