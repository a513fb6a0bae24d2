// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package tasks tracks fire-and-forget background work.
//
// # Key Types
//
//   - Group: starts tasks, recovers panics, and waits for all of them
//   - Stats: counters of finished tasks
//
// # Usage
//
//	group := tasks.NewGroup().WithLogger(logger)
//	group.Go("notify", func(ctx context.Context) error {
//	    return send(ctx)
//	})
//	...
//	group.Wait() // before exit
package tasks
