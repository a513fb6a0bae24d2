// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the kidsai command: flag parsing, configuration
// and logging setup, and the interactive chat session.
//
// # Key Types
//
//   - Options: parsed command-line flags
//   - Chat: one session wiring the conversation, the turn executor, the
//     console printer and parent notifications
//   - ChatCLI: liner-based line input with in-memory history
//
// # Usage
//
//	func main() {
//	    os.Exit(cli.Run(os.Args[1:]))
//	}
//
// # Console Commands
//
//   - quit, exit, bye: end the session (as do Ctrl+C and Ctrl+D)
//   - /help: list commands
//   - /clear: forget the conversation so far
//   - /history: show the remembered turns
package cli
