package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gocifsd/smbnotifyd/internal/coretypes"
	"github.com/gocifsd/smbnotifyd/internal/dbpool"
	"github.com/gocifsd/smbnotifyd/internal/demobuilder"
	"github.com/gocifsd/smbnotifyd/internal/demosession"
	"github.com/gocifsd/smbnotifyd/internal/filecache"
	"github.com/gocifsd/smbnotifyd/internal/fsdriver"
	"github.com/gocifsd/smbnotifyd/internal/logger"
	"github.com/gocifsd/smbnotifyd/internal/notify"
	"github.com/gocifsd/smbnotifyd/internal/threadpool"
	"github.com/gocifsd/smbnotifyd/pkg/config"
	"github.com/gocifsd/smbnotifyd/pkg/metrics"
)

var watchDir string

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the demo daemon",
	Long: `Start wires the thread pool, file-state cache, DB connection pool, and
change-notification dispatcher together and arms one recursive watch over
--watch-dir, logging every notification a real SMB client would receive.

Examples:
  smbnotifyd start --watch-dir /tmp/share
  SMBNOTIFYD_DB_DSN=postgres://... smbnotifyd start --watch-dir /tmp/share`,
	RunE: runStart,
}

func init() {
	startCmd.Flags().StringVar(&watchDir, "watch-dir", ".", "Directory to watch for changes")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		metricsServer = metrics.NewServer(cfg.Metrics.Port)
		go func() {
			if err := metricsServer.Start(ctx); err != nil {
				logger.Error("metrics server error", "error", err)
			}
		}()
		logger.Info("metrics enabled", "port", cfg.Metrics.Port)
	} else {
		logger.Info("metrics disabled")
	}

	pool := threadpool.New(cfg.Pool.Workers)
	pool.SetMetrics(metrics.NewThreadPoolMetrics())
	pool.Start()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := pool.Shutdown(shutdownCtx); err != nil {
			logger.Error("threadpool shutdown error", "error", err)
		}
	}()

	cache := filecache.New(filecache.Config{
		InitialSize:    cfg.Cache.InitialSize,
		CaseSensitive:  cfg.Cache.CaseSensitive,
		ExpireInterval: cfg.Cache.ExpireInterval,
	}, pool, nil)
	cache.SetMetrics(metrics.NewFileCacheMetrics())
	defer cache.Close()

	builder := demobuilder.New()
	dispatcher := notify.New(notify.Config{
		DefaultLease: cfg.Notify.DefaultLease,
		BufferLimit:  cfg.Notify.BufferLimit,
	}, builder, pool)
	dispatcher.SetMetrics(metrics.NewNotifyMetrics())
	defer func() { _ = dispatcher.Close(ctx) }()

	if cfg.DB.DSN != "" {
		dbPool, err := dbpool.Connect(ctx, cfg.DB.DSN, dbpool.Config{
			Min:                 cfg.DB.Min,
			Max:                 cfg.DB.Max,
			Lease:               cfg.DB.Lease,
			OnlineCheckInterval: cfg.DB.OnlineCheckInterval,
		}, nil)
		if err != nil {
			logger.Warn("database connection pool unavailable, continuing without it", "error", err)
		} else {
			dbPool.SetMetrics(metrics.NewDbPoolMetrics())
			defer func() {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()
				if err := dbPool.Shutdown(shutdownCtx); err != nil {
					logger.Error("dbpool shutdown error", "error", err)
				}
			}()
		}
	} else {
		logger.Info("db.dsn not set, running without a database connection pool")
	}

	driver, err := fsdriver.New(watchDir, cache, dispatcher)
	if err != nil {
		return fmt.Errorf("failed to start filesystem watcher on %q: %w", watchDir, err)
	}
	go driver.Run()
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Error("filesystem watcher close error", "error", err)
		}
	}()

	session := demosession.New("demo-session-1")
	dispatcher.AddRequest(&coretypes.NotifyRequest{
		Session:   session,
		RequestID: uuid.NewString(),
		WatchPath: coretypes.NormalizedPath(""),
		Filter:    coretypes.NotifyFileName | coretypes.NotifyDirectoryName | coretypes.NotifyLastWrite | coretypes.NotifyAttributes,
		WatchTree: true,
	})

	logger.Info("watching for changes", "dir", watchDir)
	fmt.Printf("smbnotifyd watching %s (Ctrl+C to stop)\n", watchDir)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	signal.Stop(sigChan)
	logger.Info("shutdown signal received")

	return nil
}
