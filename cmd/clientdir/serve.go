package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/saltyorg/clientdir/internal/auth"
	"github.com/saltyorg/clientdir/internal/config"
	"github.com/saltyorg/clientdir/internal/database"
	"github.com/saltyorg/clientdir/internal/directory"
	"github.com/saltyorg/clientdir/internal/events"
	"github.com/saltyorg/clientdir/internal/maintenance"
	"github.com/saltyorg/clientdir/internal/web"
)

func newServeCmd() *cobra.Command {
	var (
		addr     string
		timeouts = config.DefaultTimeoutConfig()
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the directory over an HTTP JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				cfg.HTTP.Addr = addr
			}
			return runServe(cfg, timeouts)
		},
	}

	// Advanced timeout flags
	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (overrides LISTEN_ADDR)")
	cmd.Flags().DurationVar(&timeouts.HTTPRead, "http-read-timeout", timeouts.HTTPRead, "Timeout for reading a request")
	cmd.Flags().DurationVar(&timeouts.Request, "request-timeout", timeouts.Request, "Timeout for a single API request")
	cmd.Flags().DurationVar(&timeouts.WebSocketPing, "websocket-ping", timeouts.WebSocketPing, "Interval between WebSocket keepalive pings")
	cmd.Flags().DurationVar(&timeouts.Shutdown, "shutdown-timeout", timeouts.Shutdown, "Time allowed for in-flight requests on shutdown")
	return cmd
}

func runServe(cfg *config.Config, timeouts *config.TimeoutConfig) error {
	mode, err := database.ParseFindMode(cfg.FindMode)
	if err != nil {
		return err
	}

	if cfg.HTTP.TokenHash == "" {
		if host, _, err := net.SplitHostPort(cfg.HTTP.Addr); err == nil && !isLoopback(host) {
			log.Warn().Str("addr", cfg.HTTP.Addr).Msg("API is reachable beyond localhost without a token. Consider setting API_TOKEN_HASH (see gen-token).")
		}
	}

	log.Info().
		Str("version", version).
		Str("addr", cfg.HTTP.Addr).
		Str("driver", cfg.DB.Driver).
		Str("find_mode", string(mode)).
		Msg("Starting Clientdir")

	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	hub := events.NewHub(timeouts.WebSocketPing)
	defer hub.Stop()

	notifier, err := newNotificationManager(cfg.Notify)
	if err != nil {
		return err
	}
	defer notifier.Stop()

	svc := directory.New(db, events.Multi{events.NewConsole(os.Stdout), hub, notifier}, mode)

	scheduler, err := maintenance.NewScheduler(db, cfg.Maintenance)
	if err != nil {
		return err
	}
	scheduler.Start()
	defer scheduler.Stop()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
			cancel()
		case <-ctx.Done():
		}
	}()

	server := web.NewServer(svc, hub, cfg.HTTP, timeouts)
	server.SetMaintenance(scheduler)
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	log.Info().Msg("Clientdir stopped")
	return nil
}

func isLoopback(host string) bool {
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func newMaintenanceCmd() *cobra.Command {
	var vacuum bool

	cmd := &cobra.Command{
		Use:   "maintenance",
		Short: "Refresh query planner statistics, optionally reclaiming space",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			start := time.Now()
			scheduler, err := maintenance.NewScheduler(db, "")
			if err != nil {
				return err
			}
			if err := scheduler.RunOnce(ctx); err != nil {
				return err
			}
			if vacuum {
				if err := db.Vacuum(ctx); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Database maintenance (%s) finished in %s\n", db.Dialect(), time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().BoolVar(&vacuum, "vacuum", false, "Also rebuild the database to reclaim free space")
	return cmd
}

func newGenTokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gen-token",
		Short: "Generate an API token and the hash to configure it with",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := auth.GenerateToken()
			if err != nil {
				return err
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Token: %s\n", token)
			// single quotes keep godotenv from expanding the $ in the hash
			fmt.Fprintf(out, "API_TOKEN_HASH='%s'\n", hash)
			return nil
		},
	}
}
