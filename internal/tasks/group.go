// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// DefaultTaskTimeout bounds a single background task.
const DefaultTaskTimeout = 30 * time.Second

// Func is a unit of background work. The context is cancelled when the
// task times out.
type Func func(ctx context.Context) error

// Stats counts finished tasks.
type Stats struct {
	Started   int64
	Succeeded int64
	Failed    int64
	Panicked  int64
}

// =============================================================================
// GROUP
// =============================================================================

// Group tracks fire-and-forget background tasks so they can be waited for
// before the process exits. Failures and panics are logged and never reach
// the caller of Go.
type Group struct {
	wg      conc.WaitGroup
	timeout time.Duration
	logger  zerolog.Logger

	pending   atomic.Int64
	started   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
	panicked  atomic.Int64
}

// NewGroup creates a task group.
func NewGroup() *Group {
	return &Group{
		timeout: DefaultTaskTimeout,
		logger:  zerolog.Nop(),
	}
}

// WithTimeout sets the per-task timeout. Zero disables it.
func (g *Group) WithTimeout(d time.Duration) *Group {
	if d < 0 {
		d = 0
	}
	g.timeout = d
	return g
}

// WithLogger sets the logger for task failures.
func (g *Group) WithLogger(logger zerolog.Logger) *Group {
	g.logger = logger.With().Str("component", "tasks").Logger()
	return g
}

// Go starts fn in the background. It does not block.
func (g *Group) Go(name string, fn Func) {
	g.pending.Add(1)
	g.started.Add(1)

	g.wg.Go(func() {
		defer g.pending.Add(-1)

		ctx := context.Background()
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}

		var err error
		var pc panics.Catcher
		pc.Try(func() { err = fn(ctx) })

		switch {
		case pc.Recovered() != nil:
			g.panicked.Add(1)
			r := pc.Recovered()
			g.logger.Error().
				Str("task", name).
				Str("panic", fmt.Sprint(r.Value)).
				Bytes("stack", r.Stack).
				Msg("background task panicked")
		case err != nil:
			g.failed.Add(1)
			g.logger.Warn().Err(err).Str("task", name).Msg("background task failed")
		default:
			g.succeeded.Add(1)
			g.logger.Debug().Str("task", name).Msg("background task done")
		}
	})
}

// Wait blocks until every started task has finished.
func (g *Group) Wait() {
	g.wg.Wait()
}

// WaitContext waits like Wait but gives up when ctx is done. Tasks that are
// still running keep running.
func (g *Group) WaitContext(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending returns the number of tasks not yet finished.
func (g *Group) Pending() int {
	return int(g.pending.Load())
}

// Stats returns a snapshot of task counters.
func (g *Group) Stats() Stats {
	return Stats{
		Started:   g.started.Load(),
		Succeeded: g.succeeded.Load(),
		Failed:    g.failed.Load(),
		Panicked:  g.panicked.Load(),
	}
}
