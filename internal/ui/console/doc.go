// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package console renders a chat session on a line-mode terminal.
//
// WordWrapper wraps streamed tokens at word boundaries as they arrive.
// Printer draws banners, the thinking indicator and replies, and receives
// turn progress callbacks.
package console
