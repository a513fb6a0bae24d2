// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides OpenRouter integration for streamed chat replies.
//
// # Key Types
//
//   - OpenRouterClient: HTTP client for the chat completions endpoint
//   - ChatMessage: Chat message in OpenRouter wire format
//   - SSEReader: Server-sent event parser
//   - StreamAccumulator: Per-request token collector
//
// # Usage
//
//	client := cloud.NewOpenRouterClient(apiKey)
//	client.SetModel("meta-llama/llama-3.3-70b-instruct:free")
//	reply, err := client.StreamChat(ctx, cloud.FromTurns(conv.Materialize()), func(tok string) {
//	    fmt.Print(tok)
//	})
//
// # Security
//
// API keys are never logged; a short SHA-256 fingerprint is logged instead.
package cloud
