package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"syndic/internal/amqp"
	"syndic/internal/blob"
	"syndic/internal/blob/drive"
	blobmem "syndic/internal/blob/memory"
	"syndic/internal/config"
)

// The sweeper reclaims storage objects whose ledger record was deleted. It
// consumes orphan messages and removes the object behind each ref; an
// already-missing object counts as done.
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting syndic-sweeper")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
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
	default:
		blobs = blobmem.New(cfg.MemoryBlobBaseURL)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		err := amqpClient.ConsumeOrphans(ctx, func(msg *amqp.OrphanMessage) error {
			rctx, rcancel := context.WithTimeout(ctx, 30*time.Second)
			defer rcancel()

			err := blobs.Remove(rctx, blob.Ref(msg.Ref))
			if errors.Is(err, blob.ErrObjectMissing) {
				logger.Info("Orphan object already gone", "bucket", string(msg.Bucket), "ref", msg.Ref)
				return nil
			}
			return err
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()
	logger.Info("Sweeper stopped")
}
