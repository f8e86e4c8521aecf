package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chessd/internal/server/config"
	"chessd/internal/server/engine"
	"chessd/internal/server/enginelog"
	chesshttp "chessd/internal/server/http"
	"chessd/internal/server/logging"
	"chessd/internal/server/metrics"
	"chessd/internal/server/service"
	"chessd/internal/server/session"
	"chessd/internal/server/storage"
	"chessd/internal/server/storage/kube"
	"chessd/internal/server/storage/sqlite"
	"chessd/internal/server/tmux"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const gracefulShutdownTimeout = 5 * time.Second

var (
	pidPath string
	pidLock bool
	devMode bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server and the engine session",
	Long: `Start the engine session and serve the REST API.

Examples:
  # Defaults: tmux session, Kubernetes game store in namespace "chess"
  chessd serve

  # Local development with a pty session and SQLite
  CHESSD_ENGINE_TERMINAL=pty CHESSD_STORE_BACKEND=sqlite \
  CHESSD_STORE_SQLITE_PATH=chess.db chessd serve --dev`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&pidPath, "pid", "", "optional path to write PID file")
	cmd.Flags().BoolVar(&pidLock, "pid-lock", false, "lock PID file to allow only one instance (requires --pid)")
	cmd.Flags().BoolVar(&devMode, "dev", false, "development mode (relaxed rate limits, console logs, WAL)")
}

func runServe(cmd *cobra.Command, _ []string) error {
	if pidLock && pidPath == "" {
		return errors.New("--pid-lock requires --pid")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if devMode {
		cfg.Server.Dev = true
		cfg.Log.Format = "console"
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if pidPath != "" {
		cleanup, err := managePIDFile(pidPath, pidLock)
		if err != nil {
			return fmt.Errorf("failed to manage PID file: %w", err)
		}
		defer cleanup()
		logger.Info("pid file created", zap.String("path", pidPath), zap.Bool("lock", pidLock))
	}

	metrics.Register(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Engine session; failure here is fatal
	mgr := session.New(newTerminal(cfg), session.Config{
		EnginePath: cfg.Engine.Path,
		LogDir:     cfg.Engine.LogDir,
	}, logger)
	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine session: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
		defer cancel()
		if err := mgr.Close(closeCtx); err != nil {
			logger.Warn("engine session close failed", zap.Error(err))
		}
	}()

	follower, err := enginelog.Open(mgr.LogPath(), enginelog.Options{
		Interval: cfg.Engine.PollInterval,
		Logger:   logger,
	})
	if err != nil {
		return err
	}
	defer follower.Close()

	eng := engine.New(mgr, follower, engine.Config{
		CalcTimeout:   cfg.Engine.CalcTimeout,
		ReadyAttempts: cfg.Engine.ReadyAttempts,
		ReadyWait:     cfg.Engine.ReadyWait,
		WhiteTimeMs:   cfg.Engine.WhiteTimeMs,
		BlackTimeMs:   cfg.Engine.BlackTimeMs,
		WhiteIncMs:    cfg.Engine.WhiteIncMs,
		BlackIncMs:    cfg.Engine.BlackIncMs,
	}, logger)

	if err := eng.HealthCheck(ctx); err != nil {
		logger.Warn("engine not ready at startup", zap.Error(err))
	}

	// 2. Game store and optional audit trail
	store, audit, closeStore, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	svc := service.New(storage.WithRetry(store, cfg.Store.Retries, cfg.Store.RetryDelay, logger), eng, audit, logger)

	// 3. HTTP
	var secret []byte
	if cfg.Auth.Enabled {
		secret = []byte(cfg.Auth.Secret)
	}
	app := chesshttp.NewFiberApp(svc, chesshttp.Options{
		Dev:          cfg.Server.Dev,
		RateLimit:    cfg.Server.RateLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		AuthSecret:   secret,
		Logger:       logger,
		Gatherer:     prometheus.DefaultGatherer,
	})

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("chessd listening",
			zap.String("addr", cfg.Addr()),
			zap.String("session", mgr.Name()),
			zap.String("engine_log", mgr.LogPath()),
			zap.String("store", cfg.Store.Backend),
			zap.Bool("auth", cfg.Auth.Enabled),
			zap.Bool("dev", cfg.Server.Dev))
		listenErr <- app.Listen(cfg.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-listenErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("server forced to shutdown", zap.Error(err))
	}

	logger.Info("chessd exited")
	return nil
}

func newTerminal(cfg *config.Config) session.Terminal {
	if cfg.Engine.Terminal == config.TerminalPty {
		return session.NewPtyTerminal(cfg.Engine.Shell)
	}
	return tmux.NewClient()
}

// openStores returns the configured game store, the audit log (nil when no
// SQLite path is set) and a function closing whatever was opened.
func openStores(cfg *config.Config, logger *zap.Logger) (storage.GameStore, storage.AuditLog, func(), error) {
	var db *sqlite.Store
	closeAll := func() {
		if db != nil {
			if err := db.Close(); err != nil {
				logger.Warn("failed to close storage cleanly", zap.Error(err))
			}
		}
	}

	if cfg.Store.SQLitePath != "" {
		var err error
		db, err = sqlite.NewStore(cfg.Store.SQLitePath, cfg.Server.Dev, logger)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
		}
		if err := db.InitDB(); err != nil {
			db.Close()
			return nil, nil, nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	var audit storage.AuditLog
	if db != nil {
		audit = db
	}

	switch cfg.Store.Backend {
	case config.StoreSQLite:
		if db == nil {
			return nil, nil, nil, errors.New("store.sqlite_path is required for the sqlite backend")
		}
		return db, audit, closeAll, nil
	default:
		store, err := kube.NewInCluster(cfg.Store.Namespace)
		if err != nil {
			closeAll()
			return nil, nil, nil, err
		}
		return store, audit, closeAll, nil
	}
}
