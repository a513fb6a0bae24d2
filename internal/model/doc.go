// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
//
// # Key Types
//
//   - Conversation: system prompt plus a bounded, ordered turn history
//   - Turn: a single immutable message with a role and content
//   - Role: turn role enumeration (user, assistant, system)
//
// # Usage
//
//	conv := model.NewConversation(systemPrompt, 20)
//	conv.AppendUser("Why is the sky blue?")
//	msgs := conv.Materialize() // [system, user]
//	conv.AppendAssistant(reply)
//
// If no reply could be obtained, roll the question back:
//
//	conv.RetractLastUserTurn()
package model
