package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prilive-com/strmbot"
	"github.com/prilive-com/strmbot/internal/handler"
	"github.com/prilive-com/strmbot/internal/logging"
	"github.com/prilive-com/strmbot/internal/notify"
	"github.com/prilive-com/strmbot/internal/resilience"
	"github.com/prilive-com/strmbot/internal/scrub"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the bot (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd)
		},
	}
}

func (a *app) run(cmd *cobra.Command) error {
	cfg := a.cfg
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return err
	}
	if f := a.viper.ConfigFileUsed(); f != "" {
		logger.Debug("config file loaded", "path", f)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	storageDir := cfg.StorageDir()
	logger.Info("starting strmbot",
		"version", version,
		"storage_dir", storageDir,
		"proxy", scrub.URL(cfg.ProxyURL),
		"workers", cfg.Workers,
	)

	bot, err := strmbot.New(cfg.Token.Value(),
		strmbot.WithLogger(logger),
		strmbot.WithPolling(cfg.PollingTimeout, 100),
		strmbot.WithWorkers(cfg.Workers),
		strmbot.WithProxy(cfg.ProxyURL),
		strmbot.WithTimeouts(cfg.ConnectTimeout, cfg.ReadTimeout),
		strmbot.WithDeleteWebhook(true),
	)
	if err != nil {
		logger.Error("failed to create bot", "error", err)
		return err
	}
	defer bot.Close()

	replyPolicy := resilience.DefaultPolicy("reply")
	replyPolicy.MaxAttempts = cfg.RetryMaxAttempts
	replyPolicy.Backoff = resilience.FixedBackoff(cfg.RetryDelay)

	h := handler.New(handler.Config{
		StorageDir:    storageDir,
		MaxNameLength: cfg.MaxNameLength(),
		Retry:         replyPolicy,
	}, bot.Sender(), handler.WithLogger(logger))

	startupPolicy := notify.StartupPolicy()
	startupPolicy.MaxAttempts = cfg.StartupRetryMaxAttempts
	startupPolicy.Backoff = resilience.FixedBackoff(cfg.RetryDelay)

	notifier := notify.New(bot.Sender(), bot.Sender(), notify.Config{
		AdminChatID: cfg.AdminChatID,
		Version:     version,
		StorageDir:  storageDir,
		Retry:       startupPolicy,
		Logger:      logger,
	})

	// The notice can spend minutes in retry waits; polling starts meanwhile.
	var wg sync.WaitGroup
	wg.Go(func() {
		if err := notifier.Notify(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("startup notification failed", "error", err)
		}
	})

	err = bot.Run(ctx, h)
	stop()
	wg.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("bot stopped", "error", err)
		return err
	}
	logger.Info("bot stopped")
	return nil
}
