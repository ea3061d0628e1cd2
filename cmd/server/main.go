package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/p-n-ai/pai-study/internal/api"
	"github.com/p-n-ai/pai-study/internal/curriculum"
	"github.com/p-n-ai/pai-study/internal/live"
	"github.com/p-n-ai/pai-study/internal/platform/cache"
	"github.com/p-n-ai/pai-study/internal/platform/config"
	"github.com/p-n-ai/pai-study/internal/platform/database"
	"github.com/p-n-ai/pai-study/internal/platform/metrics"
	"github.com/p-n-ai/pai-study/internal/studied"
	"github.com/p-n-ai/pai-study/internal/study"
)

const (
	// pruneInterval is how often expired studied-page rows are removed.
	pruneInterval = time.Hour
	// reloadTimeout bounds an on-demand curriculum load for a new session.
	reloadTimeout = 30 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(newLogger(cfg.Log, os.Stdout))

	// Graceful shutdown on SIGTERM/SIGINT.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		slog.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
	}
}

// newLogger builds the process logger from the log settings.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level), AddSource: cfg.AddSource}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// app holds the wired components of a running server.
type app struct {
	handler  http.Handler
	sessions *study.Service
	closers  []func()
}

func (a *app) close() {
	a.sessions.Close()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	store, err := curriculum.NewDirStore(cfg.Content.Path)
	if err != nil {
		return nil, err
	}
	loader, err := curriculum.NewLoader(store, curriculum.WithConcurrency(cfg.Content.Concurrency))
	if err != nil {
		return nil, err
	}
	// A failed initial load is retried by the first curriculum request.
	if _, err := loader.Reload(ctx); err != nil {
		slog.Error("initial curriculum load failed", "path", cfg.Content.Path, "error", err)
	}

	a := &app{}
	kv, checks, err := openKV(ctx, cfg, a)
	if err != nil {
		for _, c := range a.closers {
			c()
		}
		return nil, err
	}

	if cfg.Content.Watch {
		w, err := curriculum.NewWatcher(cfg.Content.Path, loader, curriculum.DefaultDebounce)
		if err != nil {
			slog.Warn("content watching disabled", "error", err)
		} else {
			watchCtx, cancel := context.WithCancel(context.Background())
			a.closers = append(a.closers, cancel)
			go w.Run(watchCtx)
		}
	}

	var events study.EventLogger = study.SlogEventLogger{Logger: slog.Default()}
	var metricsHandler http.Handler
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		events = study.MultiEventLogger{events, metrics.New(reg)}
		metricsHandler = metrics.Handler(reg)
	}

	hub := live.NewHub()
	a.sessions = study.NewService(study.Config{
		Source:       currentOrReload(loader),
		Tracker:      studied.NewTracker(kv, cfg.Studied.TTL()),
		Events:       events,
		Notifier:     hub,
		AdvanceDelay: cfg.Quiz.AdvanceDelay,
	})

	server, err := api.NewServer(api.Config{
		Loader:         loader,
		Sessions:       a.sessions,
		Hub:            hub,
		Checks:         checks,
		OriginPatterns: cfg.Origins,
		Metrics:        metricsHandler,
	})
	if err != nil {
		a.close()
		return nil, err
	}
	a.handler = server.Handler()
	return a, nil
}

// currentOrReload serves the loaded curriculum and retries the load while
// there is none.
func currentOrReload(loader *curriculum.Loader) study.SourceFunc {
	return func() *curriculum.Curriculum {
		if c, ok := loader.Current(); ok {
			return c
		}
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		c, err := loader.Reload(ctx)
		if err != nil {
			slog.Warn("curriculum still unavailable", "error", err)
			return nil
		}
		return c
	}
}

// openKV connects the configured studied-page backend and registers its
// cleanup on a.
func openKV(ctx context.Context, cfg *config.Config, a *app) (studied.KV, map[string]api.HealthChecker, error) {
	switch cfg.Studied.Backend {
	case config.BackendRedis:
		c, err := cache.New(ctx, cache.Options{URL: cfg.Cache.URL, Prefix: cfg.Cache.Prefix})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to cache: %w", err)
		}
		a.closers = append(a.closers, func() { c.Close() })
		slog.Info("studied pages stored in redis")
		return c, map[string]api.HealthChecker{"cache": c}, nil

	case config.BackendPostgres:
		db, err := database.New(ctx, database.Options{
			URL:      cfg.Database.URL,
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		a.closers = append(a.closers, db.Close)
		kv, err := studied.NewPostgresKV(ctx, db.Pool)
		if err != nil {
			return nil, nil, err
		}
		startPruning(a, kv)
		slog.Info("studied pages stored in postgres")
		return kv, map[string]api.HealthChecker{"database": db}, nil

	case config.BackendSQLite:
		kv, err := studied.OpenSQLiteKV(ctx, cfg.Studied.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() { kv.Close() })
		startPruning(a, kv)
		slog.Info("studied pages stored in sqlite", "path", cfg.Studied.SQLitePath)
		return kv, map[string]api.HealthChecker{"database": kv}, nil

	default:
		return studied.NewMemoryKV(), nil, nil
	}
}

// expirer is a KV that can drop expired records.
type expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

func startPruning(a *app, kv expirer) {
	ctx, cancel := context.WithCancel(context.Background())
	a.closers = append(a.closers, cancel)
	go prune(ctx, kv)
}

func prune(ctx context.Context, kv expirer) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := kv.DeleteExpired(ctx)
			if err != nil {
				slog.Warn("pruning studied pages failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Debug("pruned expired studied pages", "rows", n)
			}
		}
	}
}
