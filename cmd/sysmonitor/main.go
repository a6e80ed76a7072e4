package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/api"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/collector"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/config"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/history"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/ranker"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/scheduler"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/store"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/temperature"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/ui"
)

const retentionSweepInterval = time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "sysmonitor: %v\n", err)
		os.Exit(1)
	}

	initLogging(cfg)

	if err := run(cfg); err != nil {
		logger.ErrorWithCode(asAppError(err)).Msg("Fatal error")
		os.Exit(1)
	}
}

// initLogging routes log output away from the terminal in TUI mode, where
// the alternate screen owns stdout.
func initLogging(cfg *config.Config) {
	var w *os.File
	if cfg.Mode == "tui" {
		path := filepath.Join(os.TempDir(), "sysmonitor.log")
		if f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644); err == nil {
			w = f
		}
	}
	if w == nil {
		w = os.Stdout
	}

	logger.Init(cfg.Debug, cfg.Verbose, w)
	if !cfg.Debug && !cfg.Verbose {
		logger.SetLogLevel(logLevelFromName(cfg.LogLevel))
	}
}

func logLevelFromName(name string) logger.LogLevel {
	switch name {
	case "debug":
		return logger.DebugLevel
	case "info":
		return logger.InfoLevel
	case "warning":
		return logger.WarnLevel
	case "error":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log := logger.Default()

	// GPU telemetry is optional; hosts without an NVIDIA driver run the
	// same pipeline with the GPU fields absent.
	gpu, err := collector.NewNVMLReader()
	if err != nil {
		log.Debug().
			Str("error_code", string(errors.CodeOf(err))).
			Msg("GPU telemetry disabled")
		gpu = nil
	}

	var gpuTemp temperature.GPUTemperatureFunc
	if gpu != nil {
		gpuTemp = gpu.Temperature
	}

	coll := collector.New(temperature.NewDefaultEstimator(gpuTemp), gpu)
	defer func() {
		if err := coll.Close(); err != nil {
			log.Warn().Err(err).Msg("Collector close failed")
		}
	}()

	st := store.New()

	var repo history.Repository
	if cfg.Persistence {
		repo, err = history.NewRepository(history.Config{
			DBPath:     cfg.Database,
			PoolSize:   cfg.PoolSize,
			QueryLimit: cfg.HistoryLimit,
		}, log)
		if err != nil {
			return err
		}
		defer func() {
			if err := repo.Close(); err != nil {
				log.Warn().Err(err).Msg("History close failed")
			}
		}()
	}

	cycle := newCycle(coll, st, cfg.TopLimit)

	pool := scheduler.NewWorkerPool(cfg.PoolSize)
	sched := scheduler.New(pool, log)

	if err := sched.Add(scheduler.Task{
		Name:       "collect",
		Interval:   time.Duration(cfg.Interval) * time.Second,
		Run:        cycle.run,
		RunAtStart: true,
	}); err != nil {
		return err
	}

	if repo != nil {
		if err := sched.Add(scheduler.Task{
			Name:     "persist",
			Interval: time.Duration(cfg.PersistInterval) * time.Second,
			Run: func(ctx context.Context) error {
				snapshot, ok := st.Current()
				if !ok {
					return nil
				}
				_, err := repo.Append(ctx, snapshot)
				return err
			},
		}); err != nil {
			return err
		}

		retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour
		if err := sched.Add(scheduler.Task{
			Name:       "retention",
			Interval:   retentionSweepInterval,
			RunAtStart: true,
			Run: func(ctx context.Context) error {
				removed, err := repo.PurgeOlderThan(ctx, time.Now().UTC().Add(-retention))
				if err != nil {
					return err
				}
				if removed > 0 {
					log.Info().Int64("removed", removed).Msg("Purged expired history")
				}
				return nil
			},
		}); err != nil {
			return err
		}
	}

	sched.Start(ctx)
	defer sched.Stop()

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, st, repo, log)
	default:
		return ui.Run(st, cycle.run)
	}
}

func runAPI(ctx context.Context, cfg *config.Config, st *store.Store, repo history.Repository, log logger.Logger) error {
	server := api.NewServer(api.Config{Host: cfg.Host, Port: cfg.Port}, st, repo, log)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Start()
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return server.Shutdown(shutdownCtx)
}

// cycle runs one sampling pass: collect, rank, publish. The elapsed interval
// for network rates is measured from the previous pass, however triggered.
type cycle struct {
	collector *collector.Collector
	store     *store.Store
	topLimit  int

	mu   sync.Mutex
	last time.Time
}

func newCycle(coll *collector.Collector, st *store.Store, topLimit int) *cycle {
	return &cycle{
		collector: coll,
		store:     st,
		topLimit:  topLimit,
	}
}

func (c *cycle) run(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(c.last)
	if c.last.IsZero() {
		elapsed = 0
	}
	c.last = now
	c.mu.Unlock()

	snapshot, procs, err := c.collector.Collect(ctx, elapsed)
	if err != nil {
		return err
	}

	c.store.Publish(snapshot, ranker.Rank(procs, c.topLimit))

	return nil
}

func asAppError(err error) errors.Error {
	var appErr errors.Error
	if errors.As(err, &appErr) {
		return appErr
	}

	return errors.New().Wrap(errors.ErrInternal, err)
}
