package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/amaumene/watchtrack/internal/app"
	"github.com/amaumene/watchtrack/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API until interrupted",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("port", "", "HTTP listen port")
	viper.BindPFlag("SERVER_PORT", serveCmd.Flags().Lookup("port"))
}

func runServe(cmd *cobra.Command, args []string) error {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. Wire logger, store, tracing, controller, server and scheduler
	a, cleanup, err := app.InitializeApp(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	defer cleanup()

	logger := a.Logger
	logger.WithField("version", app.Version).Info("Starting watchtrack")

	// 3. Start maintenance scheduler
	if err := a.Scheduler.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer a.Scheduler.Stop()

	// 4. Start HTTP server; Start shuts it down once ctx is cancelled
	serverDone := make(chan error, 1)
	go func() {
		serverDone <- a.Server.Start(ctx)
	}()

	// 5. Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	logger.Info("watchtrack is running")

	if err := awaitShutdown(sigChan, serverDone, cancel, logger); err != nil {
		return err
	}

	logger.Info("watchtrack stopped")
	return nil
}

// awaitShutdown blocks until the server fails or a signal arrives. On a
// signal it cancels the server context and waits for Start to return.
func awaitShutdown(sigChan <-chan os.Signal, serverDone <-chan error, cancel context.CancelFunc, logger *logrus.Logger) error {
	select {
	case err := <-serverDone:
		if err == nil {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		logger.WithField("signal", sig).Info("Received shutdown signal")
		cancel()
		if err := <-serverDone; err != nil {
			logger.WithError(err).Error("Error during server shutdown")
		}
		return nil
	}
}
