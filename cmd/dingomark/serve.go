package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dataeval/dingomark/pkg/config"
	"github.com/dataeval/dingomark/pkg/gateway"
	"github.com/dataeval/dingomark/pkg/github"
	"github.com/dataeval/dingomark/pkg/logger"
	"github.com/dataeval/dingomark/pkg/marketing"
	"github.com/dataeval/dingomark/pkg/providers"
	"github.com/dataeval/dingomark/pkg/scheduler"
	"github.com/dataeval/dingomark/pkg/store"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the marketing API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to config file (JSON)")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Log.File != "" {
		if err := logger.EnableFileLogging(cfg.Log.File); err != nil {
			return fmt.Errorf("enable file logging: %w", err)
		}
		defer logger.DisableFileLogging()
	}

	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		return err
	}

	gh := github.NewClient(cfg.GitHub.Token, cfg.GitHub.RequestsPerSecond, cfg.GitHub.Burst)

	registry, err := marketing.BuildRegistry(cfg, provider, gh)
	if err != nil {
		return err
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	svc, err := marketing.NewService(cfg, provider, registry, st)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Scheduler.Enabled {
		sched := scheduler.New(st, svc, cfg.Scheduler.PollInterval())
		go sched.Start(ctx)
	}

	gateway.SetVersion(formatVersion())
	srv := gateway.NewServer(cfg, svc, st)
	if err := srv.Start(); err != nil {
		return err
	}

	logger.InfoCF("main", "dingomark started", map[string]any{
		"version":   formatVersion(),
		"provider":  cfg.LLM.Provider,
		"model":     cfg.LLM.Model,
		"scheduler": cfg.Scheduler.Enabled,
	})

	<-ctx.Done()
	logger.InfoC("main", "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
	}
	return nil
}
