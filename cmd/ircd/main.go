// Command ircd starts a catrelay IRC relay server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/meowirc/catrelay/internal/config"
	"github.com/meowirc/catrelay/internal/connlimit"
	"github.com/meowirc/catrelay/internal/hub"
)

func main() {
	configFile := flag.String("config", "", "Path to key=value configuration file (optional).")
	listenAddr := flag.String("listen-addr", "", "Override the configured listen address.")
	serverName := flag.String("server-name", "", "Override the configured server name.")
	envFile := flag.String("env-file", "settings.env", "Optional .env file to load before reading environment overrides.")
	verbose := flag.Bool("verbose", false, "Enable debug logging.")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := godotenv.Load(*envFile); err != nil {
		logger.Debug("no env file loaded", "file", *envFile, "error", err)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddress = *listenAddr
	}
	if *serverName != "" {
		cfg.ServerName = *serverName
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", cfg.ListenAddress, err)
	}

	limiter := connlimit.New(cfg.ConnectRatePerSecond, cfg.ConnectBurst, cfg.ConnectBucketTTL)

	h := hub.New(hub.Config{
		ServerName:  cfg.ServerName,
		Version:     cfg.Version,
		MOTD:        cfg.MOTD,
		ConnLimiter: limiter,
		Logger:      logger,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return h.Run(gctx, listener)
	})

	return g.Wait()
}
