package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/placeshare/placeshare/internal/queue"
	"github.com/placeshare/placeshare/internal/telemetry"
)

func main() {
	var mode = flag.String("mode", "worker", "Mode to run: 'worker', 'scheduler'")
	flag.Parse()

	logger := telemetry.NewLogger()
	slog.SetDefault(logger)

	shutdownTelemetry, err := telemetry.Setup(context.Background(), logger)
	if err != nil {
		logger.Error("Failed to set up telemetry", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(ctx); err != nil {
			logger.Error("Telemetry shutdown error", slog.String("err", err.Error()))
		}
	}()

	switch *mode {
	case "worker":
		runWorker(logger)
	case "scheduler":
		runScheduler(logger)
	default:
		logger.Error("Invalid mode. Use 'worker' or 'scheduler'", slog.String("mode", *mode))
		os.Exit(1)
	}
}

func waitForSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
}

func runWorker(logger *slog.Logger) {
	logger.Info("Starting in WORKER mode...")

	worker, err := queue.NewWorker(logger)
	if err != nil {
		logger.Error("Failed to create worker", slog.String("err", err.Error()))
		os.Exit(1)
	}

	// Start is non-blocking; asynq runs its own goroutines
	if err := worker.Start(); err != nil {
		logger.Error("Worker error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	waitForSignal()

	logger.Info("Shutting down worker...")
	worker.Stop()
	logger.Info("Worker exited properly")
}

func runScheduler(logger *slog.Logger) {
	logger.Info("Starting in SCHEDULER mode...")

	scheduler, err := queue.NewScheduler(logger)
	if err != nil {
		logger.Error("Failed to create scheduler", slog.String("err", err.Error()))
		os.Exit(1)
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("Scheduler error", slog.String("err", err.Error()))
		os.Exit(1)
	}

	waitForSignal()

	logger.Info("Shutting down scheduler...")
	scheduler.Stop()
	logger.Info("Scheduler exited properly")
}
