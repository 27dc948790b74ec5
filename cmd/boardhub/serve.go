package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/boardhub/boardhub/internal/config"
	"github.com/boardhub/boardhub/pkg/hub"
	"github.com/boardhub/boardhub/pkg/server"
)

func serveCmd() *cobra.Command {
	var (
		configPath  string
		addr        string
		staticDir   string
		gracePeriod time.Duration
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the board session server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			// Flags override the file.
			if addr != "" {
				cfg.Addr = addr
			}
			if staticDir != "" {
				cfg.StaticDir = staticDir
			}
			if gracePeriod > 0 {
				cfg.RoomGracePeriod = config.Duration(gracePeriod)
			}

			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
			for _, warning := range cfg.Warnings() {
				logger.Warn("config warning", "warning", warning)
			}

			return runServer(cfg, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&staticDir, "static", "", "client bundle directory to serve at /")
	cmd.Flags().DurationVar(&gracePeriod, "grace-period", 0, "how long empty rooms are kept before expiry")

	return cmd
}

func runServer(cfg *config.Config, logger *slog.Logger) error {
	coord := hub.New(&hub.Config{
		Palette:         cfg.Palette,
		RoomGracePeriod: cfg.RoomGracePeriod.Std(),
		SweepInterval:   cfg.SweepInterval.Std(),
		Metrics:         hub.NewMetrics(hub.WithNamespace(cfg.MetricsNamespace)),
		Logger:          logger,
	})
	defer coord.Close()

	srv := server.New(coord, server.Options{
		Addr:           cfg.Addr,
		AllowedOrigins: cfg.AllowedOrigins,
		StaticDir:      cfg.StaticDir,
		ReadTimeout:    cfg.ReadTimeout.Std(),
		WriteTimeout:   cfg.WriteTimeout.Std(),
		PingInterval:   cfg.PingInterval.Std(),
		SendQueueSize:  cfg.SendQueueSize,
		Logger:         logger,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout.Std())
	defer cancel()
	return srv.Shutdown(ctx)
}
