package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/switchboard/internal/cli"
	"github.com/aretw0/switchboard/internal/config"
	httpAdapter "github.com/aretw0/switchboard/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Starts the engine and exposes commands, feedbacks, navigation and metrics as a JSON API over HTTP.

An app_restart command rebuilds the engine from the configuration file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")

		for {
			cfg, logger, err := cli.LoadConfig(configPath, debug)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.HTTP.Addr, _ = cmd.Flags().GetString("addr")
			}

			restart, err := serve(cmd.Context(), cfg, logger, debug)
			if err != nil || !restart {
				return err
			}
			logger.Info("Restarting Switchboard server")
		}
	},
}

// serve runs one server until a signal or app_exit stops it. It reports
// whether app_restart asked for a new one.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, debug bool) (bool, error) {
	stack, err := cli.NewStack(ctx, cfg, logger, debug, cli.WithRestart())
	if err != nil {
		return false, err
	}
	defer stack.Close()

	clockCtx, stopClock := context.WithCancel(context.Background())
	defer stopClock()
	go stack.RunClock(clockCtx)

	srv := &http.Server{
		Addr: cfg.HTTP.Addr,
		Handler: httpAdapter.NewHandler(stack.Engine,
			httpAdapter.WithGatherer(stack.Registry),
			httpAdapter.WithLogger(logger),
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("Starting Switchboard server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	var restart bool
	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return false, nil
		}
		return false, fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Start shutdown", "signal", sig.String())

	case req := <-stack.Requests:
		logger.Info("Start shutdown", "request", req.String())
		restart = req == cli.AppRestart
	}

	// Give outstanding requests a deadline for completion.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Graceful shutdown did not complete", "timeout", shutdownTimeout, "error", err)
		if err := srv.Close(); err != nil {
			return false, fmt.Errorf("error killing server: %w", err)
		}
	}
	stack.Engine.Wait()
	logger.Info("Switchboard server stopped gracefully")
	return restart, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (overrides http.addr)")
}
