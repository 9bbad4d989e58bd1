// Package main provides the entry point for the policy evaluation server
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/audit"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/cache"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/db"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/engine"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/metrics"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/policy"
	"github.com/CCCloudPlatform/agenticcp-policy-engine/internal/server"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		httpPort        = flag.Int("http-port", 8080, "HTTP server port")
		cacheEnabled    = flag.Bool("cache", true, "Enable result cache")
		cacheSize       = flag.Int("cache-size", 10000, "Maximum local cache entries")
		cacheTTL        = flag.Duration("cache-ttl", 5*time.Minute, "Result cache TTL")
		redisAddr       = flag.String("redis-addr", "", "Redis host:port for the shared result cache (local-only when empty)")
		redisPassword   = flag.String("redis-password", "", "Redis password")
		postgresDSN     = flag.String("postgres-dsn", "", "Postgres DSN for the policy store (in-memory store when empty)")
		migrate         = flag.Bool("migrate", true, "Run database migrations on startup")
		policyDir       = flag.String("policy-dir", "", "Directory to load YAML policies from")
		watchPolicies   = flag.Bool("watch-policies", false, "Reload the policy directory on file changes")
		auditLog        = flag.String("audit-log", "", "Decision log file (stdout when empty)")
		logLevel        = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
		logFormat       = flag.String("log-format", "json", "Log format (json, console)")
		showVersion     = flag.Bool("version", false, "Show version information")
		gracefulTimeout = flag.Duration("shutdown-timeout", 30*time.Second, "Graceful shutdown timeout")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("policy-server %s\n", Version)
		fmt.Printf("  Build Time: %s\n", BuildTime)
		fmt.Printf("  Git Commit: %s\n", GitCommit)
		os.Exit(0)
	}

	logger, err := initLogger(*logLevel, *logFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting policy evaluation server",
		zap.String("version", Version),
		zap.Int("http_port", *httpPort),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Policy store
	store, cleanup, err := initStore(*postgresDSN, *migrate, logger)
	if err != nil {
		logger.Fatal("failed to initialize policy store", zap.Error(err))
	}
	defer cleanup()

	// Policy directory loading and reload watching
	loader := policy.NewLoader(logger)
	if *policyDir != "" {
		count, err := loader.LoadIntoStore(ctx, *policyDir, store)
		if err != nil {
			logger.Fatal("failed to load policies", zap.Error(err), zap.String("dir", *policyDir))
		}
		logger.Info("loaded policies", zap.Int("count", count), zap.String("dir", *policyDir))
	}

	// Result cache
	var resultCache cache.ResultCache
	if *cacheEnabled {
		hybridCfg := cache.DefaultHybridConfig()
		hybridCfg.L1Capacity = *cacheSize
		hybridCfg.L2Enabled = *redisAddr != ""
		if *redisAddr != "" {
			host, port, err := splitHostPort(*redisAddr)
			if err != nil {
				logger.Fatal("invalid redis address", zap.Error(err))
			}
			hybridCfg.L2Config.Host = host
			hybridCfg.L2Config.Port = port
			hybridCfg.L2Config.Password = *redisPassword
		}
		resultCache, err = cache.NewHybridCache(hybridCfg, logger)
		if err != nil {
			logger.Fatal("failed to initialize result cache", zap.Error(err))
		}
	}

	// Decision log
	writer, err := initAuditWriter(*auditLog)
	if err != nil {
		logger.Fatal("failed to initialize decision log", zap.Error(err))
	}
	decisionLog := audit.NewLogger(writer, audit.DefaultConfig(), logger)
	defer decisionLog.Close()

	// Metrics
	prom := metrics.NewPrometheusMetrics("policy_engine")

	// Decision engine
	engCfg := engine.DefaultConfig()
	engCfg.CacheEnabled = *cacheEnabled
	engCfg.CacheTTL = *cacheTTL
	eng := engine.New(engCfg, store, resultCache, logger,
		engine.WithMetrics(prom),
		engine.WithAuditLogger(decisionLog),
	)

	logger.Info("decision engine initialized",
		zap.Bool("cache_enabled", *cacheEnabled),
		zap.Duration("cache_ttl", *cacheTTL),
	)

	// Policy file watcher
	if *policyDir != "" && *watchPolicies {
		watcher, err := policy.NewFileWatcher(*policyDir, store, loader, logger)
		if err != nil {
			logger.Fatal("failed to start policy watcher", zap.Error(err))
		}
		if err := watcher.Watch(ctx); err != nil {
			logger.Fatal("failed to start policy watcher", zap.Error(err))
		}
		defer watcher.Stop()

		go func() {
			for ev := range watcher.Events() {
				if ev.Err != nil {
					continue
				}
				// Reloaded policies invalidate every cached decision
				eng.EvictAllPolicyCache(ctx)
			}
		}()
	}

	// HTTP server
	srvCfg := server.DefaultConfig()
	srvCfg.Port = *httpPort
	srv, err := server.New(srvCfg, eng, store, prom, logger)
	if err != nil {
		logger.Fatal("failed to create HTTP server", zap.Error(err))
	}

	errChan := make(chan error, 1)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		if err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	case sig := <-sigChan:
		logger.Info("received shutdown signal", zap.String("signal", sig.String()))

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), *gracefulTimeout)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			logger.Warn("HTTP server shutdown error", zap.Error(err))
		}
	}

	logger.Info("server stopped")
}

// initStore builds the policy store, running migrations for Postgres
func initStore(dsn string, migrate bool, logger *zap.Logger) (policy.Store, func(), error) {
	if dsn == "" {
		return policy.NewMemoryStore(), func() {}, nil
	}

	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	if migrate {
		runner, err := db.NewMigrationRunner(conn, logger)
		if err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("create migration runner: %w", err)
		}
		if err := runner.Up(); err != nil {
			conn.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return policy.NewPostgresStore(conn), func() { conn.Close() }, nil
}

// initAuditWriter builds the decision-log writer
func initAuditWriter(path string) (audit.Writer, error) {
	if path == "" {
		return audit.NewStdoutWriter(), nil
	}
	return audit.NewFileWriter(path, 100, 30, 10)
}

// initLogger initializes the zap logger
func initLogger(level, format string) (*zap.Logger, error) {
	var zapLevel zapcore.Level
	switch level {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	var config zap.Config
	if format == "console" {
		config = zap.NewDevelopmentConfig()
	} else {
		config = zap.NewProductionConfig()
	}
	config.Level = zap.NewAtomicLevelAt(zapLevel)

	return config.Build()
}

// splitHostPort parses "host:port" with a numeric port
func splitHostPort(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("address %q must be host:port", addr)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port in %q", addr)
	}
	return host, port, nil
}
