// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package botapi

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// MaxPollLimit is the largest batch getUpdates accepts, and the
	// limit used when none is configured.
	MaxPollLimit = 100

	// DefaultPollGrace is added to the long-poll timeout to bound each
	// poll on our side, so a connection the server silently dropped
	// cannot stall the loop.
	DefaultPollGrace = 10 * time.Second
)

// ErrPollInFlight is returned when a poll starts while another poll on
// the same Poller has not finished.
var ErrPollInFlight = errors.New("botapi: poll already in flight")

// PollerConfig configures a Poller.
type PollerConfig struct {
	// Offset is the starting offset. Nil omits it from the first
	// request. A negative value asks for that many of the most recent
	// updates and drops everything older.
	Offset *int64

	// Limit is the batch size, 1 to 100. Zero means 100.
	Limit int

	// Timeout is the long-poll hold time and must be a whole number of
	// seconds. Zero makes every poll return immediately.
	Timeout time.Duration

	// Grace bounds each poll at Timeout+Grace. Zero means DefaultPollGrace.
	Grace time.Duration

	// AllowedUpdates is sent as allowed_updates. Nil keeps the server's
	// previous setting; empty means every kind.
	AllowedUpdates []UpdateKind
}

// Poller fetches updates with getUpdates and owns the offset. Offset
// may be read from any goroutine; polling is serialized.
type Poller struct {
	client         *Client
	limit          int
	timeoutSeconds int
	grace          time.Duration
	allowed        []UpdateKind

	inFlight atomic.Bool

	mu        sync.Mutex
	offset    int64
	hasOffset bool
}

// NewPoller validates config and returns a Poller.
func NewPoller(client *Client, config PollerConfig) (*Poller, error) {
	if client == nil {
		return nil, errors.New("botapi: poller requires a client")
	}

	limit := config.Limit
	if limit == 0 {
		limit = MaxPollLimit
	}
	if limit < 1 || limit > MaxPollLimit {
		return nil, fmt.Errorf("botapi: poll limit must be between 1 and %d, got %d", MaxPollLimit, config.Limit)
	}
	if config.Timeout < 0 {
		return nil, fmt.Errorf("botapi: poll timeout must not be negative, got %s", config.Timeout)
	}
	if config.Timeout%time.Second != 0 {
		return nil, fmt.Errorf("botapi: poll timeout must be a whole number of seconds, got %s", config.Timeout)
	}
	grace := config.Grace
	if grace <= 0 {
		grace = DefaultPollGrace
	}

	poller := &Poller{
		client:         client,
		limit:          limit,
		timeoutSeconds: int(config.Timeout / time.Second),
		grace:          grace,
		allowed:        config.AllowedUpdates,
	}
	if config.Offset != nil {
		poller.offset = *config.Offset
		poller.hasOffset = true
	}
	return poller, nil
}

// Offset returns the current offset. The bool is false until an offset
// has been configured or a batch has been received.
func (p *Poller) Offset() (int64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.offset, p.hasOffset
}

// Poll performs one getUpdates call and returns its updates in
// ascending id order. After a non-empty batch the offset is the
// highest id plus one; after an empty batch or an error it is
// unchanged, so the next Poll asks for the same updates again.
func (p *Poller) Poll(ctx context.Context) ([]Update, error) {
	updates, err := p.fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(updates) > 0 {
		p.advance(updates[len(updates)-1].ID)
	}
	p.observe(len(updates))
	return updates, nil
}

// Updates yields updates one at a time, polling as needed. The offset
// moves past each update as it is yielded. The sequence ends after
// yielding a poll error, when ctx is done, or when the consumer stops;
// retrying is the consumer's decision. A poll cut short by ctx ends the
// sequence without yielding its error.
func (p *Poller) Updates(ctx context.Context) iter.Seq2[Update, error] {
	return func(yield func(Update, error) bool) {
		for ctx.Err() == nil {
			updates, err := p.fetch(ctx)
			if err != nil {
				if ctx.Err() == nil {
					yield(Update{}, err)
				}
				return
			}
			for _, update := range updates {
				p.advance(update.ID)
				p.observe(1)
				if !yield(update, nil) {
					return
				}
			}
		}
	}
}

// fetch issues getUpdates and normalizes the batch. It never changes
// the offset.
func (p *Poller) fetch(ctx context.Context) ([]Update, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, ErrPollInFlight
	}
	defer p.inFlight.Store(false)

	request := GetUpdates{
		Limit:          p.limit,
		Timeout:        p.timeoutSeconds,
		AllowedUpdates: p.allowed,
	}
	offset, hasOffset := p.Offset()
	if hasOffset {
		request.Offset = &offset
	}

	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(p.timeoutSeconds)*time.Second+p.grace)
	defer cancel()

	updates, err := Send[[]Update](pollCtx, p.client, request)
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(updates, func(a, b Update) int { return cmp.Compare(a.ID, b.ID) })
	updates = slices.CompactFunc(updates, func(a, b Update) bool { return a.ID == b.ID })
	if hasOffset && offset > 0 {
		// A server that ignores the offset must not cause redelivery.
		updates = slices.DeleteFunc(updates, func(update Update) bool { return update.ID < offset })
	}

	p.client.logger.Debug("polled updates",
		"count", len(updates),
		"offset", offset,
		"has_offset", hasOffset,
	)
	return updates, nil
}

// advance moves the offset past id. It never moves backwards.
func (p *Poller) advance(id int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.hasOffset || id+1 > p.offset {
		p.offset = id + 1
		p.hasOffset = true
	}
}

func (p *Poller) observe(count int) {
	offset, _ := p.Offset()
	p.client.metrics.ObservePoll(count, offset)
}
