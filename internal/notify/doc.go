// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package notify forwards answered questions to a Telegram chat.
//
// Messages are sent in HTML parse mode. Text longer than MaxMessageLen is
// split with SplitHTML before sending, and segments are paced by a rate
// limiter. Sends run as background tasks and never surface errors to the
// chat session.
package notify
