// Package main is the entry point for the gateway daemon.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corvidbot/gateway/internal/buildinfo"
	"github.com/corvidbot/gateway/internal/config"
	"github.com/corvidbot/gateway/internal/journal"
	"github.com/corvidbot/gateway/internal/media"
	"github.com/corvidbot/gateway/internal/plugin"
	"github.com/corvidbot/gateway/internal/session"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	if flag.NArg() == 0 {
		printUsage()
		return
	}

	switch flag.Arg(0) {
	case "serve":
		runServe(logger, *configPath)
	case "init":
		dir := "."
		if flag.NArg() > 1 {
			dir = flag.Arg(1)
		}
		if err := runInit(os.Stdout, dir); err != nil {
			fmt.Fprintln(os.Stderr, "init:", err)
			os.Exit(1)
		}
	case "version":
		fmt.Println(buildinfo.String())
		for k, v := range buildinfo.Info() {
			fmt.Printf("  %-12s %s\n", k+":", v)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", flag.Arg(0))
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("gatewayd - session-oriented bot gateway")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve    Accept upstream connections and run the gateway")
	fmt.Println("  init     Write a starter config.toml into a directory")
	fmt.Println("  version  Show version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

func runServe(logger *slog.Logger, configPath string) {
	logger.Info("starting gatewayd", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfgPath, err := config.FindConfig(configPath)
	if err != nil {
		logger.Error("config", "error", err)
		os.Exit(1)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			logger.Error("invalid log_level in config", "error", err)
			os.Exit(1)
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: config.ReplaceLogLevelNames,
		}))
	}

	logger.Info("config loaded", "path", cfgPath, "listen", fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port))

	var mediaClient *media.Client
	if cfg.Media.Configured() {
		mediaClient = media.New(media.Config{Root: cfg.Media.Root, ProxyURL: cfg.Media.ProxyURL}, logger)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logger.Error("redis ping failed", "error", err)
		os.Exit(1)
	}

	j := journal.New(rdb, mediaClient, journal.Config{}, logger)
	defer j.Stop()

	pluginFactory := func(bus *plugin.Bus) ([]plugin.Plugin, error) {
		return nil, nil
	}

	mux := session.Handler(cfg.Auth.Token, func(clientID string) session.Config {
		return session.Config{
			Journal:           j,
			Plugins:           pluginFactory,
			CorrelatorTimeout: cfg.Upstream.RequestTimeout(),
		}
	}, logger)

	addr := fmt.Sprintf("%s:%d", cfg.Listen.Address, cfg.Listen.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}

	logger.Info("gatewayd stopped")
}
