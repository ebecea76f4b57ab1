package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/rgilks/spf-mcp-sub000/internal/config"
	"github.com/rgilks/spf-mcp-sub000/internal/dice"
	"github.com/rgilks/spf-mcp-sub000/internal/repository"
	"github.com/rgilks/spf-mcp-sub000/internal/server"
	"github.com/rgilks/spf-mcp-sub000/internal/session"
)

var (
	configPath = flag.String("config", "", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting combat core server",
		zap.String("version", version),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// The database is optional: without one the server keeps session
	// records in memory and skips the roll audit journal.
	var (
		sessionRepo session.Repository
		journal     dice.Journal
		db          server.Pinger
	)
	if cfg.Database.URL != "" {
		pool, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer pool.Close()
		sessionRepo = repository.NewSessionRepository(pool)
		journal = repository.NewRollJournal(pool)
		db = pool
	} else {
		logger.Warn("no database configured; sessions are in-memory and rolls are not journaled")
		sessionRepo = repository.NewMemorySessionRepository()
		journal = repository.NoopJournal{}
	}

	sessionMgr := session.NewManager(
		sessionRepo,
		journal,
		cfg.Deck.UseJokers,
		cfg.Session.IdleTTL,
		logger.Named("session"),
	)
	logger.Info("session manager initialized",
		zap.Duration("idle_ttl", cfg.Session.IdleTTL),
		zap.Bool("use_jokers", cfg.Deck.UseJokers),
	)

	go sessionMgr.ReapIdleSessions(ctx, cfg.Session.ReapInterval)

	srv := server.New(cfg.Server, sessionMgr, db, version, logger.Named("http"))

	go func() {
		if serveErr := srv.Start(cfg.Server.HTTPAddr); serveErr != nil {
			logger.Error("http server stopped", zap.Error(serveErr))
		}
	}()

	logger.Info("combat core server initialized",
		zap.String("http_addr", cfg.Server.HTTPAddr),
	)

	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	logger.Info("shutting down gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", zap.Error(err))
	}

	sessionMgr.CloseAll()

	logger.Info("combat core server stopped")
}

// initLogger initializes the zap logger based on configuration
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
