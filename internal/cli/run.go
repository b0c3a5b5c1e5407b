package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outagewatch/outagewatch/internal/metrics"
	"github.com/outagewatch/outagewatch/internal/model"
	"github.com/outagewatch/outagewatch/internal/pipeline"
	"github.com/outagewatch/outagewatch/internal/seen"
	"github.com/outagewatch/outagewatch/internal/source"
	"github.com/outagewatch/outagewatch/internal/store"
	"github.com/outagewatch/outagewatch/internal/util"
	"github.com/outagewatch/outagewatch/internal/worker"
	"github.com/spf13/cobra"
)

var (
	phaseName    string
	once         bool
	interval     time.Duration
	runTimeout   time.Duration
	userAgent    string
	maxBytes     int64
	storeBackend string
	bucket       string
	region       string
	endpoint     string
	storeDir     string
	seenBackend  string
	redisAddr    string
	seenDir      string
	fetchWorkers int
	metricsAddr  string
	noMetrics    bool
	noRobots     bool
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the ingestion pipeline",
	Long: `Run executes ingestion for one phase of the sources document:

  vendors     structured status APIs and status feeds, per vendor
  categories  aggregated category feeds (shared per-run admission cap)
  news        vendor news feeds
  all         everything in one pass

With --once the pipeline runs a single time and exits. Otherwise it runs
on --interval and serves Prometheus metrics until interrupted.

Example:
  outagewatch run --phase vendors --once --bucket outages
  outagewatch run --phase all --interval 1h --bucket outages --redis-addr localhost:6379`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&phaseName, "phase", "all", "config subset to ingest (vendors, categories, news, all)")
	runCmd.Flags().BoolVar(&once, "once", false, "run a single time and exit")
	runCmd.Flags().DurationVar(&interval, "interval", time.Hour, "time between runs (ignored with --once)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 10*time.Minute, "overall timeout for one run")

	// HTTP flags
	runCmd.Flags().StringVar(&userAgent, "ua", "", "HTTP User-Agent (default from config)")
	runCmd.Flags().Int64Var(&maxBytes, "max-bytes", 2_000_000, "max response bytes to read")
	runCmd.Flags().BoolVar(&noRobots, "no-robots", false, "skip robots.txt checks for feed hosts")

	// Store flags
	runCmd.Flags().StringVar(&storeBackend, "store-backend", "s3", "record store backend (s3, fs)")
	runCmd.Flags().StringVar(&bucket, "bucket", "", "bucket holding the monthly records")
	runCmd.Flags().StringVar(&region, "region", "auto", "bucket region")
	runCmd.Flags().StringVar(&endpoint, "endpoint", "", "custom S3 endpoint (R2, MinIO)")
	runCmd.Flags().StringVar(&storeDir, "store-dir", "", "directory for the fs store backend")

	// Seen-store flags
	runCmd.Flags().StringVar(&seenBackend, "seen-backend", "redis", "seen store backend (redis, memory, disk, layered)")
	runCmd.Flags().StringVar(&redisAddr, "redis-addr", "localhost:6379", "redis address for the seen store")
	runCmd.Flags().StringVar(&seenDir, "seen-dir", "", "directory for the disk seen backend")

	runCmd.Flags().IntVar(&fetchWorkers, "fetch-workers", 1, "parallel fetch workers (1 = sequential)")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9097", "metrics listen address (interval mode)")
	runCmd.Flags().BoolVar(&noMetrics, "no-metrics", false, "disable the metrics endpoint")
}

func runRun(cmd *cobra.Command, args []string) error {
	phase, err := pipeline.ParsePhase(phaseName)
	if err != nil {
		return err
	}

	cfg := buildRunConfig()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	coord, err := buildCoordinator(ctx, cfg)
	if err != nil {
		return err
	}

	runOnce := func() error {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		return coord.Run(runCtx, phase)
	}

	if once {
		return runOnce()
	}

	if cfg.Metrics.Enabled {
		srv := metrics.NewServer(cfg.Metrics.Addr)
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("metrics server: %v", err)
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()
	}

	log.Printf("running phase %s every %s", phase, interval)
	if err := runOnce(); err != nil && !errors.Is(err, pipeline.ErrLeaseHeld) {
		log.Printf("run failed: %v", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Printf("shutting down")
			return nil
		case <-ticker.C:
			if err := runOnce(); err != nil {
				if errors.Is(err, pipeline.ErrLeaseHeld) {
					log.Printf("skipping run: %v", err)
					continue
				}
				log.Printf("run failed: %v", err)
			}
		}
	}
}

// buildRunConfig layers the run flags over the defaults.
func buildRunConfig() *model.Config {
	cfg := model.DefaultConfig()
	cfg.Verbose = verbose

	if userAgent != "" {
		cfg.HTTP.UserAgent = userAgent
	}
	cfg.HTTP.MaxBodyBytes = maxBytes
	cfg.HTTP.HTTPProxy = os.Getenv("HTTP_PROXY")
	cfg.HTTP.HTTPSProxy = os.Getenv("HTTPS_PROXY")
	cfg.HTTP.NoProxy = os.Getenv("NO_PROXY")

	cfg.Store.Backend = storeBackend
	cfg.Store.Bucket = bucket
	cfg.Store.Region = region
	cfg.Store.Endpoint = endpoint
	cfg.Store.Dir = storeDir

	cfg.Seen.Backend = seenBackend
	cfg.Seen.RedisAddr = redisAddr
	cfg.Seen.RedisPassword = os.Getenv("OUTAGEWATCH_REDIS_PASSWORD")
	cfg.Seen.Dir = seenDir

	cfg.Concurrency.FetchWorkers = fetchWorkers
	cfg.Metrics.Enabled = !noMetrics
	cfg.Metrics.Addr = metricsAddr
	cfg.Robots.Enabled = !noRobots

	return cfg
}

// buildCoordinator wires stores and fetchers from configuration.
func buildCoordinator(ctx context.Context, cfg *model.Config) (*pipeline.Coordinator, error) {
	records, err := buildRecords(ctx, cfg)
	if err != nil {
		return nil, err
	}
	seenStore, err := buildSeenStore(cfg)
	if err != nil {
		return nil, err
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	var robots *util.RobotsChecker
	if cfg.Robots.Enabled {
		robots = util.NewRobotsChecker(cfg.HTTP.UserAgent, cfg.HTTP.Timeout)
	}
	client := source.NewClient(cfg.HTTP, limiter, robots)

	return pipeline.New(cfg, records, seenStore, client), nil
}

func buildRecords(ctx context.Context, cfg *model.Config) (*store.Records, error) {
	var objects store.ObjectStore
	switch cfg.Store.Backend {
	case "s3":
		if cfg.Store.Bucket == "" {
			return nil, fmt.Errorf("s3 store backend requires --bucket")
		}
		s3, err := store.NewS3Store(ctx, store.S3Config{
			Bucket:   cfg.Store.Bucket,
			Region:   cfg.Store.Region,
			Endpoint: cfg.Store.Endpoint,
			Prefix:   cfg.Store.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 store: %w", err)
		}
		objects = s3
	case "fs":
		if cfg.Store.Dir == "" {
			return nil, fmt.Errorf("fs store backend requires --store-dir")
		}
		objects = store.NewFSStore(cfg.Store.Dir)
	default:
		return nil, fmt.Errorf("unknown store backend %q (want s3 or fs)", cfg.Store.Backend)
	}
	return store.NewRecords(objects, cfg.Store.TemplateKey, cfg.Store.SourcesKey), nil
}

func buildSeenStore(cfg *model.Config) (seen.Store, error) {
	switch cfg.Seen.Backend {
	case "redis":
		return seen.NewRedisStore(cfg.Seen.RedisAddr, cfg.Seen.RedisPassword, cfg.Seen.RedisDB), nil
	case "memory":
		return seen.NewMemoryStore(cfg.Seen.TTL, time.Hour), nil
	case "disk":
		if cfg.Seen.Dir == "" {
			return nil, fmt.Errorf("disk seen backend requires --seen-dir")
		}
		return seen.NewDiskStore(cfg.Seen.Dir), nil
	case "layered":
		front := seen.NewMemoryStore(cfg.Seen.TTL, time.Hour)
		back := seen.NewRedisStore(cfg.Seen.RedisAddr, cfg.Seen.RedisPassword, cfg.Seen.RedisDB)
		return seen.NewLayeredStore(front, back, cfg.Seen.TTL), nil
	default:
		return nil, fmt.Errorf("unknown seen backend %q (want redis, memory, disk or layered)", cfg.Seen.Backend)
	}
}
