// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bureau-foundation/botwire/botapi"
	"github.com/bureau-foundation/botwire/lib/checkpoint"
	"github.com/bureau-foundation/botwire/lib/clock"
	"github.com/bureau-foundation/botwire/lib/filter"
	"github.com/bureau-foundation/botwire/lib/observability"
)

const (
	// DefaultInitialBackoff is the first retry delay after a failed poll.
	DefaultInitialBackoff = time.Second

	// DefaultMaxBackoff caps the doubling retry delay.
	DefaultMaxBackoff = time.Minute

	// DefaultShortPollInterval is the pause after an empty batch when
	// the poll timeout is zero.
	DefaultShortPollInterval = time.Second

	// finalSaveTimeout bounds the checkpoint save made after the run
	// context has been cancelled.
	finalSaveTimeout = 5 * time.Second
)

// Handler processes one update. The context is cancelled when the
// driver shuts down.
type Handler func(ctx context.Context, update *botapi.HandlerContext) error

// Config configures a Driver.
type Config struct {
	// Client sends every request. Required.
	Client *botapi.Client

	// Poller configures getUpdates. A checkpointed offset replaces
	// Poller.Offset.
	Poller botapi.PollerConfig

	// Handler is called for every update that passes Filter. Required.
	Handler Handler

	// Filter drops updates before they reach Handler. Dropped updates
	// are still acknowledged. Nil passes everything.
	Filter *filter.Filter

	// Checkpoint persists the offset. Nil keeps it in memory only.
	Checkpoint checkpoint.Store

	// Concurrency is the number of handlers that may run at once.
	// Zero means 1.
	Concurrency int

	// InitialBackoff and MaxBackoff bound the retry delay after a
	// failed poll. Zero means DefaultInitialBackoff and DefaultMaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// ShortPollInterval is the pause after an empty batch when
	// Poller.Timeout is zero, so short polling does not spin. Zero
	// means DefaultShortPollInterval.
	ShortPollInterval time.Duration

	// Clock times the backoff and the short-poll pause. Nil means the
	// real clock.
	Clock clock.Clock

	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger

	// Metrics records handler outcomes and backoff. Nil disables them.
	Metrics *observability.Metrics

	// DropWebhook calls deleteWebhook before the first poll, since
	// getUpdates is refused while a webhook is set.
	DropWebhook bool

	// DropPendingUpdates asks deleteWebhook to discard the queue.
	// Only meaningful with DropWebhook.
	DropPendingUpdates bool
}

// Driver runs the poll, filter and dispatch loop for one bot.
type Driver struct {
	client         *botapi.Client
	pollerConfig   botapi.PollerConfig
	handler        Handler
	filter         *filter.Filter
	checkpoint     checkpoint.Store
	concurrency    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	shortPoll      time.Duration
	clock          clock.Clock
	logger         *slog.Logger
	metrics        *observability.Metrics
	dropWebhook    bool
	dropPending    bool

	poller  atomic.Pointer[botapi.Poller]
	running atomic.Bool
}

// New validates config and returns a Driver.
func New(config Config) (*Driver, error) {
	if config.Client == nil {
		return nil, errors.New("dispatch: client is required")
	}
	if config.Handler == nil {
		return nil, errors.New("dispatch: handler is required")
	}
	if config.Concurrency < 0 {
		return nil, fmt.Errorf("dispatch: concurrency must not be negative, got %d", config.Concurrency)
	}
	// The real poller is built in Run, once the checkpoint is known.
	if _, err := botapi.NewPoller(config.Client, config.Poller); err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}

	driver := &Driver{
		client:         config.Client,
		pollerConfig:   config.Poller,
		handler:        config.Handler,
		filter:         config.Filter,
		checkpoint:     config.Checkpoint,
		concurrency:    max(config.Concurrency, 1),
		initialBackoff: config.InitialBackoff,
		maxBackoff:     config.MaxBackoff,
		shortPoll:      config.ShortPollInterval,
		clock:          config.Clock,
		logger:         config.Logger,
		metrics:        config.Metrics,
		dropWebhook:    config.DropWebhook,
		dropPending:    config.DropPendingUpdates,
	}
	if driver.initialBackoff <= 0 {
		driver.initialBackoff = DefaultInitialBackoff
	}
	if driver.maxBackoff <= 0 {
		driver.maxBackoff = DefaultMaxBackoff
	}
	if driver.maxBackoff < driver.initialBackoff {
		return nil, fmt.Errorf("dispatch: max backoff %s is below initial backoff %s", driver.maxBackoff, driver.initialBackoff)
	}
	if driver.shortPoll <= 0 {
		driver.shortPoll = DefaultShortPollInterval
	}
	if driver.clock == nil {
		driver.clock = clock.Real()
	}
	if driver.logger == nil {
		driver.logger = slog.Default()
	}
	return driver, nil
}

// Offset returns the poller's current offset. The bool is false before
// Run has started or while no offset is known.
func (d *Driver) Offset() (int64, bool) {
	poller := d.poller.Load()
	if poller == nil {
		return 0, false
	}
	return poller.Offset()
}

// Run polls and dispatches until ctx is cancelled, then waits for
// running handlers, saves the offset and returns nil. It returns an
// error only when startup fails. A Driver runs at most once at a time.
func (d *Driver) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("dispatch: driver is already running")
	}
	defer d.running.Store(false)

	poller, err := d.start(ctx)
	if err != nil {
		return err
	}
	d.poller.Store(poller)

	pool := newWorkerPool(d.concurrency)
	saved, hasSaved := poller.Offset()
	backoff := d.initialBackoff
	failing := false

	for ctx.Err() == nil {
		updates, err := poller.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			delay, hinted := d.retryDelay(err, backoff)
			d.logger.Warn("poll failed, retrying",
				"error", err,
				"backoff", delay,
			)
			d.metrics.SetBackoff(delay)
			failing = true
			select {
			case <-ctx.Done():
			case <-d.clock.After(delay):
			}
			if !hinted {
				backoff = min(backoff*2, d.maxBackoff)
			}
			continue
		}

		if failing {
			d.logger.Info("poll recovered")
			failing = false
			backoff = d.initialBackoff
			d.metrics.SetBackoff(0)
		}

		for _, update := range updates {
			d.dispatch(ctx, pool, update)
		}

		if offset, ok := poller.Offset(); ok && (!hasSaved || offset != saved) {
			if d.save(ctx, offset) {
				saved, hasSaved = offset, true
			}
		}

		if len(updates) == 0 && d.pollerConfig.Timeout == 0 {
			select {
			case <-ctx.Done():
			case <-d.clock.After(d.shortPoll):
			}
		}
	}

	pool.wait()

	if offset, ok := poller.Offset(); ok && (!hasSaved || offset != saved) {
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
		d.save(saveCtx, offset)
		cancel()
	}

	offset, _ := poller.Offset()
	d.logger.Info("dispatch stopped", "offset", offset)
	return nil
}

// start removes the webhook if asked to and builds the poller from the
// configured or checkpointed offset.
func (d *Driver) start(ctx context.Context) (*botapi.Poller, error) {
	if d.dropWebhook {
		if err := d.client.DeleteWebhook(ctx, d.dropPending); err != nil {
			return nil, fmt.Errorf("dispatch: deleting webhook: %w", err)
		}
		d.logger.Info("webhook removed", "drop_pending_updates", d.dropPending)
	}

	config := d.pollerConfig
	if d.checkpoint != nil {
		offset, ok, err := d.checkpoint.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("dispatch: loading checkpoint: %w", err)
		}
		if ok {
			config.Offset = &offset
			d.logger.Info("resuming from checkpoint", "offset", offset)
		}
	}

	poller, err := botapi.NewPoller(d.client, config)
	if err != nil {
		return nil, fmt.Errorf("dispatch: %w", err)
	}
	return poller, nil
}

// retryDelay picks the wait after a failed poll. A retry_after hint
// wins over the backoff schedule; hinted reports which was used.
func (d *Driver) retryDelay(err error, backoff time.Duration) (time.Duration, bool) {
	var apiErr *botapi.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return apiErr.RetryAfter, true
	}
	return backoff, false
}

// save writes offset to the checkpoint. Failures are logged: the next
// batch tries again.
func (d *Driver) save(ctx context.Context, offset int64) bool {
	if d.checkpoint == nil {
		return true
	}
	if err := d.checkpoint.Save(ctx, offset); err != nil {
		d.logger.Error("saving checkpoint", "offset", offset, "error", err)
		return false
	}
	return true
}
