package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"syndic/internal/amqp"
	"syndic/internal/blob"
	"syndic/internal/blob/drive"
	blobmem "syndic/internal/blob/memory"
	"syndic/internal/config"
	"syndic/internal/core"
	apphttp "syndic/internal/http"
	"syndic/internal/ledger"
	ledgermem "syndic/internal/ledger/memory"
	"syndic/internal/services"
	"syndic/internal/session"
	"syndic/internal/storage"
	"syndic/internal/workflow"
)

func main() {
	// Load .env for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	var repo ledger.Repository
	switch cfg.DataBackend {
	case "sqlite":
		sqliteRepo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
		if err != nil {
			logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
			os.Exit(1)
		}
		defer sqliteRepo.Close()
		repo = sqliteRepo
		logger.Info("Initialized sqlite backend", "path", cfg.SQLiteDBPath)
	default:
		repo = ledgermem.New(defaultUnits(), cfg.AdminUnitName)
		logger.Info("Initialized memory backend")
	}

	var blobs blob.Store
	switch cfg.BlobBackend {
	case "drive":
		driveStore, err := drive.NewFromEnv(context.Background())
		if err != nil {
			logger.Error("Failed to initialize Google Drive store", "error", err)
			os.Exit(1)
		}
		blobs = driveStore
		logger.Info("Initialized drive blob backend")
	default:
		blobs = blobmem.New(cfg.MemoryBlobBaseURL)
		logger.Info("Initialized memory blob backend")
	}

	// Cleanup publisher is optional: without a broker the delete flows still
	// work, orphaned objects just stay in storage.
	var publisher services.OrphanPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, orphan cleanup disabled", "error", err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
		}
	}

	svc := services.NewLedgerService(repo, blobs, publisher)
	uploads := workflow.New(repo, blobs, logger, workflow.WithStatusTTL(cfg.UploadStatusTTL))

	sess := session.New("gestionnaire", session.RoleSyndic,
		session.WithTimeout(cfg.SessionTimeout),
		session.WithExpiryCallback(func() {
			logger.Info("Operator session expired from inactivity")
		}))
	sess.Start()
	defer sess.Stop()

	srv := apphttp.NewServer(":"+cfg.Port, svc, uploads, sess, cfg.AdminUnitName)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting syndic server",
		"port", cfg.Port,
		"data_backend", cfg.DataBackend,
		"blob_backend", cfg.BlobBackend)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}

// defaultUnits seeds the memory backend with the same units the SQLite
// migrations provision.
func defaultUnits() []core.Unit {
	units := make([]core.Unit, 0, 11)
	for i := 1; i <= 10; i++ {
		units = append(units, core.Unit{ID: int64(i), Name: "Appartement " + strconv.Itoa(i)})
	}
	units = append(units, core.Unit{ID: 99, Name: "Syndic"})
	return units
}
