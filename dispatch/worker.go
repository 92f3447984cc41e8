// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/bureau-foundation/botwire/botapi"
	"github.com/bureau-foundation/botwire/lib/filter"
	"github.com/bureau-foundation/botwire/lib/observability"
)

// workerPool runs at most size functions at once. Functions start in
// submission order, so a pool of one runs them strictly in sequence.
type workerPool struct {
	slots chan struct{}
	group sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	return &workerPool{slots: make(chan struct{}, size)}
}

// submit blocks until a slot is free, then runs fn on its own goroutine.
func (p *workerPool) submit(fn func()) {
	p.slots <- struct{}{}
	p.group.Go(func() {
		defer func() { <-p.slots }()
		fn()
	})
}

// wait blocks until every submitted function has returned.
func (p *workerPool) wait() {
	p.group.Wait()
}

// dispatch filters update and, if it passes, queues its handler.
func (d *Driver) dispatch(ctx context.Context, pool *workerPool, update botapi.Update) {
	if d.filter != nil && !d.filter.Match(filterAttributes(update)) {
		d.logger.Debug("update filtered",
			"update_id", update.ID,
			"kind", update.Kind(),
			"filter", d.filter.String(),
		)
		d.metrics.ObserveHandler(observability.HandlerFiltered, 0)
		return
	}

	handlerContext := botapi.NewHandlerContext(d.client, update)
	pool.submit(func() {
		d.handle(ctx, handlerContext)
	})
}

// handle runs the handler for one update and records how it ended.
func (d *Driver) handle(ctx context.Context, handlerContext *botapi.HandlerContext) {
	start := time.Now()
	outcome := observability.HandlerOK
	update := handlerContext.Update

	defer func() {
		if recovered := recover(); recovered != nil {
			outcome = observability.HandlerPanic
			d.logger.Error("handler panicked",
				"update_id", update.ID,
				"kind", update.Kind(),
				"panic", fmt.Sprint(recovered),
				"stack", string(debug.Stack()),
			)
		}
		d.metrics.ObserveHandler(outcome, time.Since(start))
	}()

	if err := d.handler(ctx, handlerContext); err != nil {
		outcome = observability.HandlerError
		d.logger.Error("handler failed",
			"update_id", update.ID,
			"kind", update.Kind(),
			"error", err,
		)
	}
}

// filterAttributes builds the variables a filter expression sees.
func filterAttributes(update botapi.Update) map[string]any {
	chatID, _ := update.ChatID()

	raw := map[string]any{}
	if len(update.Raw) > 0 {
		// An undecodable update leaves the map empty; field access
		// then fails and the filter does not match.
		_ = json.Unmarshal(update.Raw, &raw)
	} else {
		encoded, err := json.Marshal(update)
		if err == nil {
			_ = json.Unmarshal(encoded, &raw)
		}
	}

	return map[string]any{
		filter.VarKind:   string(update.Kind()),
		filter.VarChatID: chatID,
		filter.VarText:   update.Text(),
		filter.VarUpdate: raw,
	}
}
