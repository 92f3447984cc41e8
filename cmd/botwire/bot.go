// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/bureau-foundation/botwire/botapi"
	"github.com/bureau-foundation/botwire/dispatch"
	"github.com/bureau-foundation/botwire/lib/checkpoint"
	"github.com/bureau-foundation/botwire/lib/config"
	"github.com/bureau-foundation/botwire/lib/credential"
	"github.com/bureau-foundation/botwire/lib/filter"
	"github.com/bureau-foundation/botwire/lib/observability"
)

// newClient resolves the token and builds the API client. The client
// owns the token from here on.
func newClient(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (*botapi.Client, error) {
	token, err := credential.Resolve(ctx, cfg.API.TokenSource, credential.Options{
		IdentityFile: cfg.API.IdentityFile,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("resolving bot token: %w", err)
	}

	client, err := botapi.NewClient(botapi.ClientConfig{
		BaseURL: cfg.API.BaseURL,
		Token:   token,
		Logger:  logger,
		Metrics: metrics,
	})
	if err != nil {
		token.Close()
		return nil, err
	}
	return client, nil
}

// runBot runs the dispatch loop until ctx is cancelled.
func runBot(ctx context.Context, cfg *config.Config, opts options) error {
	logger := newLogger(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)

	metrics := observability.NewMetrics()
	client, err := newClient(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}
	defer client.Close()

	me, err := client.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("checking bot token: %w", err)
	}
	logger.Info("authenticated", "bot_id", me.ID, "username", me.Username)

	store, err := checkpoint.Open(ctx, checkpoint.Config{
		Backend:   cfg.Checkpoint.Backend,
		Path:      cfg.Checkpoint.Path,
		Key:       cfg.Checkpoint.Key,
		RedisAddr: cfg.Checkpoint.RedisAddr,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("opening checkpoint: %w", err)
	}
	defer store.Close()

	var updateFilter *filter.Filter
	if cfg.Dispatch.Filter != "" {
		updateFilter, err = filter.Compile(cfg.Dispatch.Filter)
		if err != nil {
			return err
		}
	}

	if cfg.Metrics.Listen != "" {
		shutdown, err := serveMetrics(cfg.Metrics.Listen, metrics, logger)
		if err != nil {
			return err
		}
		defer shutdown()
	}

	driver, err := dispatch.New(dispatch.Config{
		Client:             client,
		Poller:             pollerConfig(cfg.Polling),
		Handler:            botHandler(logger, opts.echo),
		Filter:             updateFilter,
		Checkpoint:         store,
		Concurrency:        cfg.Dispatch.Concurrency,
		InitialBackoff:     cfg.Dispatch.InitialBackoff,
		MaxBackoff:         cfg.Dispatch.MaxBackoff,
		Logger:             logger,
		Metrics:            metrics,
		DropWebhook:        cfg.Dispatch.DropWebhook,
		DropPendingUpdates: cfg.Dispatch.DropPendingUpdates,
	})
	if err != nil {
		return err
	}

	logger.Info("dispatching updates",
		"base_url", client.BaseURL(),
		"checkpoint", cfg.Checkpoint.Backend,
		"concurrency", cfg.Dispatch.Concurrency,
	)
	return driver.Run(ctx)
}

func pollerConfig(polling config.PollingConfig) botapi.PollerConfig {
	var allowed []botapi.UpdateKind
	if polling.AllowedUpdates != nil {
		allowed = make([]botapi.UpdateKind, 0, len(polling.AllowedUpdates))
		for _, kind := range polling.AllowedUpdates {
			allowed = append(allowed, botapi.UpdateKind(kind))
		}
	}
	return botapi.PollerConfig{
		Offset:         polling.InitialOffset,
		Limit:          polling.Limit,
		Timeout:        polling.Timeout,
		Grace:          polling.Grace,
		AllowedUpdates: allowed,
	}
}

// botHandler logs every update and, with echo, answers messages with
// their own text.
func botHandler(logger *slog.Logger, echo bool) dispatch.Handler {
	return func(ctx context.Context, update *botapi.HandlerContext) error {
		chatID, _ := update.ChatID()
		logger.Info("update received",
			"update_id", update.Update.ID,
			"kind", update.Update.Kind(),
			"chat_id", chatID,
		)
		if !echo || update.Update.Kind() != botapi.KindMessage {
			return nil
		}
		text := update.Update.Text()
		if text == "" {
			return nil
		}
		return update.Reply(ctx, text)
	}
}

// serveMetrics exposes /metrics on listen. The returned function stops
// the server.
func serveMetrics(listen string, metrics *observability.Metrics, logger *slog.Logger) (func(), error) {
	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("listening on %s for metrics: %w", listen, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()
	logger.Info("serving metrics", "address", listener.Addr().String())

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}, nil
}
