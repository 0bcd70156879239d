package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/magefree/solitaire-server-go/internal/config"
	"github.com/magefree/solitaire-server-go/internal/game"
	"github.com/magefree/solitaire-server-go/internal/hint"
	"github.com/magefree/solitaire-server-go/internal/repository"
	"github.com/magefree/solitaire-server-go/internal/server"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting solitaire server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	// Create context that listens for termination signals
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Initialize high score store
	var store game.HighScoreStore
	if cfg.Database.URL != "" {
		db, err := repository.NewDB(ctx, cfg.Database, logger)
		if err != nil {
			logger.Fatal("failed to connect to database", zap.Error(err))
		}
		defer db.Close()

		stats := db.Stats()
		logger.Info("database connection pool initialized",
			zap.Int32("total_conns", stats.TotalConns()),
			zap.Int32("idle_conns", stats.IdleConns()),
			zap.String("high_score_slot", cfg.Database.HighScoreSlot),
		)
		store = repository.NewHighScoreRepository(db, cfg.Database.HighScoreSlot)
	} else {
		logger.Warn("no database configured; high score is kept in memory")
		store = repository.NewMemoryHighScoreStore(0)
	}

	// Initialize session manager
	sessionMgr := game.NewManager(game.ManagerOptions{
		LeasePeriod: cfg.Server.LeasePeriod,
		MaxSessions: cfg.Server.MaxSessions,
		Store:       store,
		Session: game.SessionOptions{
			InvariantChecks: cfg.Game.InvariantChecks,
			Seed:            cfg.Game.Seed,
		},
	}, logger)
	logger.Info("session manager initialized",
		zap.Duration("lease_period", cfg.Server.LeasePeriod),
		zap.Int("max_sessions", cfg.Server.MaxSessions),
		zap.Bool("invariant_checks", cfg.Game.InvariantChecks),
	)

	// Start session cleanup goroutine
	go sessionMgr.CleanupExpiredSessions(ctx)

	// Initialize hint service
	var oracle hint.Oracle
	if cfg.Hint.Enabled {
		oracle = hint.NewGeminiClient(
			&http.Client{Timeout: cfg.Hint.Timeout},
			cfg.Hint.APIKey,
			cfg.Hint.BaseURL,
			cfg.Hint.Model,
			cfg.Hint.FallbackModels,
			logger,
		)
		logger.Info("hint oracle initialized",
			zap.String("model", cfg.Hint.Model),
			zap.Strings("fallback_models", cfg.Hint.FallbackModels),
		)
	} else {
		logger.Info("hint oracle disabled")
	}
	hintSvc := hint.NewService(oracle, cfg.Hint.Timeout, logger)

	solitaireServer := server.NewSolitaireServer(sessionMgr, hintSvc, version, logger)

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(server.ChainUnaryInterceptors(
			server.RecoveryInterceptor(logger),
			server.LoggingInterceptor(logger),
			server.SessionValidationInterceptor(sessionMgr),
		)),
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    30 * time.Second,
			Timeout: 10 * time.Second,
		}),
		grpc.MaxConcurrentStreams(uint32(cfg.Server.GRPC.MaxConcurrentStreams)),
	)

	server.RegisterSolitaireServer(grpcServer, solitaireServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPC.Address)
	if err != nil {
		logger.Fatal("failed to listen", zap.Error(err))
	}

	// Start gRPC server
	go func() {
		logger.Info("starting gRPC server", zap.String("address", cfg.Server.GRPC.Address))
		if serveErr := grpcServer.Serve(lis); serveErr != nil && !errors.Is(serveErr, grpc.ErrServerStopped) {
			logger.Error("gRPC server error", zap.Error(serveErr))
		}
	}()

	// Start WebSocket server
	wsDone := make(chan struct{})
	go func() {
		defer close(wsDone)
		if wsErr := server.StartWebSocketServer(ctx, cfg.Server.WebSocket, sessionMgr, hintSvc, logger); wsErr != nil {
			logger.Error("WebSocket server error", zap.Error(wsErr))
		}
	}()

	logger.Info("solitaire server initialized",
		zap.String("version", version),
		zap.String("grpc_address", cfg.Server.GRPC.Address),
		zap.String("websocket_address", cfg.Server.WebSocket.Address),
		zap.Int("max_sessions", cfg.Server.MaxSessions),
		zap.Bool("hints_enabled", hintSvc.Enabled()),
	)

	// Wait for termination signal
	sig := <-sigChan
	logger.Info("received shutdown signal", zap.String("signal", sig.String()))

	// Graceful shutdown
	logger.Info("shutting down gracefully...")
	grpcServer.GracefulStop()

	// Close all active sessions while the WebSocket hub can still tell clients
	sessionMgr.CloseAll()
	hintSvc.Wait()

	cancel()
	<-wsDone

	logger.Info("solitaire server stopped")
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
