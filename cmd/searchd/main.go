package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/docugrid/searchcore/internal/element"
	"github.com/docugrid/searchcore/internal/searcher"
	"github.com/docugrid/searchcore/internal/searcher/cache"
	"github.com/docugrid/searchcore/internal/searcher/handler"
	"github.com/docugrid/searchcore/pkg/config"
	"github.com/docugrid/searchcore/pkg/health"
	"github.com/docugrid/searchcore/pkg/logger"
	"github.com/docugrid/searchcore/pkg/metrics"
	"github.com/docugrid/searchcore/pkg/middleware"
	"github.com/docugrid/searchcore/pkg/postgres"
	pkgredis "github.com/docugrid/searchcore/pkg/redis"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search daemon",
		"port", cfg.Server.Port,
		"source", cfg.Source.Backend,
		"cache", cfg.Cache.Backend,
	)

	m := metrics.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()

	source, pgClient, err := buildSource(cfg, checker)
	if err != nil {
		slog.Error("failed to set up element source", "error", err)
		os.Exit(1)
	}
	if pgClient != nil {
		defer pgClient.Close()
	}

	resultCache, redisClient := buildCache(cfg, checker, m)
	if redisClient != nil {
		defer redisClient.Close()
	}

	engineOpts := []searcher.Option{searcher.WithMetrics(m)}
	if resultCache != nil {
		engineOpts = append(engineOpts, searcher.WithCache(resultCache))
	}
	engine, err := searcher.New(cfg, source, engineOpts...)
	if err != nil {
		slog.Error("failed to create search engine", "error", err)
		os.Exit(1)
	}
	if err := engine.Start(ctx); err != nil {
		slog.Error("failed to start search engine", "error", err)
		os.Exit(1)
	}
	slog.Info("search engine started", "elements", engine.Statistics().Index.Elements)

	checker.Register("engine", func(ctx context.Context) health.ComponentHealth {
		stats := engine.Statistics()
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d elements indexed", stats.Index.Elements),
		}
	})

	h := handler.New(engine)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/suggest", h.Suggest)
	mux.HandleFunc("PUT /api/v1/elements", h.UpsertElement)
	mux.HandleFunc("DELETE /api/v1/elements/{id}", h.DeleteElement)
	mux.HandleFunc("GET /api/v1/stats", h.Stats)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/clear", h.CacheClear)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.QueryID(chain)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Enabled {
		go func() {
			addr := ":" + strconv.Itoa(cfg.Metrics.Port)
			slog.Info("metrics server listening", "addr", addr)
			metricsMux := http.NewServeMux()
			metricsMux.Handle("GET /metrics", metrics.Handler())
			if err := http.ListenAndServe(addr, metricsMux); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
		if err := engine.Shutdown(shutdownCtx); err != nil {
			slog.Error("engine shutdown error", "error", err)
		}
	}()

	slog.Info("search daemon listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search daemon stopped")
}

// buildSource selects the element source from config. The postgres and kafka
// backends share the postgres snapshot; kafka layers a change feed on top.
func buildSource(cfg *config.Config, checker *health.Checker) (element.Source, *postgres.Client, error) {
	switch cfg.Source.Backend {
	case "memory":
		return element.NewMemoryStore(), nil, nil
	case "postgres", "kafka":
		pgClient, err := postgres.New(cfg.Postgres)
		if err != nil {
			return nil, nil, err
		}
		checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
			if err := pgClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		pgSource := element.NewPostgresSource(pgClient)
		if cfg.Source.Backend == "postgres" {
			return pgSource, pgClient, nil
		}
		slog.Info("change feed enabled",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.ChangesTopic,
		)
		return element.NewKafkaSource(cfg.Kafka, pgSource), pgClient, nil
	default:
		return nil, nil, fmt.Errorf("unknown source backend %q", cfg.Source.Backend)
	}
}

// buildCache selects the result cache backend. A failed redis connection
// degrades to no caching instead of refusing to start.
func buildCache(cfg *config.Config, checker *health.Checker, m *metrics.Metrics) (cache.ResultCache, *pkgredis.Client) {
	if !cfg.Cache.Enabled {
		slog.Info("result caching disabled")
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		redisClient, err := pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, result caching disabled", "error", err)
			return nil, nil
		}
		checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
			if err := redisClient.Ping(ctx); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
		slog.Info("redis result cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Cache.TTL)
		return cache.NewRedis(redisClient, cfg.Cache.TTL), redisClient
	default:
		memCache := cache.NewMemory(cfg.Cache.TTL, cfg.Cache.MaxSize)
		memCache.SetEvictionHook(func() { m.CacheEvictionsTotal.Inc() })
		slog.Info("memory result cache enabled", "ttl", cfg.Cache.TTL, "max_size", cfg.Cache.MaxSize)
		return memCache, nil
	}
}
