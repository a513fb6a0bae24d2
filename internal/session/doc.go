// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session runs chat turns with retry and rollback.
//
// # Key Types
//
//   - Executor: runs one user turn against a Streamer
//   - Observer: receives attempt and token events for rendering
//   - Notifier: receives committed question/answer pairs
//
// # Usage
//
//	conv := model.NewConversation(prompt, 20)
//	exec := session.NewExecutor(conv, client).
//	    WithObserver(printer).
//	    WithNotifier(telegram)
//	res, err := exec.RunTurn(ctx, "why is the sky blue?")
//
// A turn that fails for any reason leaves the conversation exactly as it
// was before the question was asked.
package session
