package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"github.com/mmynk/onecount/internal/analyzer"
	"github.com/mmynk/onecount/internal/config"
	"github.com/mmynk/onecount/internal/middleware"
	"github.com/mmynk/onecount/internal/service"
	"github.com/mmynk/onecount/internal/storage"
	"github.com/mmynk/onecount/internal/storage/memory"
	"github.com/mmynk/onecount/internal/storage/sqlite"
	"github.com/mmynk/onecount/internal/workspace"
	"github.com/mmynk/onecount/pkg/logging"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Configure(cfg.LogLevel, cfg.LogFormat)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()
	logger.Info("Storage initialized", "backend", cfg.DataBackend)

	ws, err := workspace.New(ctx,
		workspace.WithStore(store),
		workspace.WithLogger(logger),
		workspace.WithInitialMembers(cfg.InitialMembers...),
	)
	if err != nil {
		return err
	}

	a, closeAnalyzer := newAnalyzer(ctx, cfg, logger)
	defer closeAnalyzer()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := middleware.NewMetrics(reg)

	svc := service.NewBillService(ws, a, service.WithMetrics(metrics), service.WithLogger(logger))
	path, handler := svc.Handler(connect.WithInterceptors(
		middleware.LoggingInterceptor(logger),
		metrics.Interceptor(),
	))

	mux := http.NewServeMux()
	mux.Handle(path, handler)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	staticDir, err := filepath.Abs(cfg.StaticPath)
	if err != nil {
		return fmt.Errorf("failed to resolve static path: %w", err)
	}
	logger.Info("Serving static files", "path", staticDir)
	mux.HandleFunc("/", staticHandler(staticDir))

	// Add logging and CORS middleware, then h2c for HTTP/2 without TLS
	h2cHandler := h2c.NewHandler(middleware.Logging(logger, middleware.CORS(mux)), &http2.Server{})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h2cHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Connect server starting", "address", server.Addr, "url", "http://localhost"+server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newStore(cfg *config.Config) (storage.Store, error) {
	if cfg.DataBackend == "sqlite" {
		return sqlite.New(cfg.DBPath)
	}
	return memory.New(), nil
}

// newAnalyzer builds the receipt analyzer, wrapped in a Redis cache when one
// is configured. Analysis is disabled without an API key.
func newAnalyzer(ctx context.Context, cfg *config.Config, logger *slog.Logger) (analyzer.Analyzer, func()) {
	noop := func() {}
	if !cfg.AnalysisEnabled() {
		logger.Warn("ANTHROPIC_API_KEY not set, receipt analysis disabled")
		return analyzer.Disabled{}, noop
	}

	claude, err := analyzer.NewClaudeAnalyzer(cfg.Anthropic.APIKey,
		analyzer.WithModel(cfg.Anthropic.Model),
		analyzer.WithMaxTokens(cfg.Anthropic.MaxTokens),
		analyzer.WithLogger(logger),
	)
	if err != nil {
		logger.Warn("Receipt analysis disabled", "error", err)
		return analyzer.Disabled{}, noop
	}
	logger.Info("Receipt analysis enabled", "model", cfg.Anthropic.Model)

	if cfg.Redis.Addr == "" {
		return claude, noop
	}
	cache, err := analyzer.NewRedisCache(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Warn("Analysis cache unavailable, continuing without it", "addr", cfg.Redis.Addr, "error", err)
		return claude, noop
	}
	logger.Info("Analysis cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
	return analyzer.NewCachingAnalyzer(claude, cache, cfg.Redis.CacheTTL, logger), func() { _ = cache.Close() }
}

// staticHandler serves the frontend, falling back to index.html for unknown paths.
func staticHandler(staticDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Check if this is an API request (Connect RPC)
		if strings.HasPrefix(r.URL.Path, service.ServicePath) {
			http.NotFound(w, r)
			return
		}

		urlPath := r.URL.Path
		if urlPath == "/" {
			urlPath = "/index.html"
		}

		filePath := filepath.Join(staticDir, filepath.Clean(urlPath))
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}

		http.ServeFile(w, r, filePath)
	}
}
