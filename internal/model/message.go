// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
package model

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "AI"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// TURN TYPE
// =============================================================================

// Turn is a single accepted message in the conversation.
// Turns are values: once appended they are never mutated, only evicted or retracted.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// NewUserTurn creates a user turn.
func NewUserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// NewAssistantTurn creates an assistant turn.
func NewAssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

// NewSystemTurn creates a system turn.
func NewSystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

// IsUser returns true if this is a user turn.
func (t Turn) IsUser() bool {
	return t.Role == RoleUser
}

// IsAssistant returns true if this is an assistant turn.
func (t Turn) IsAssistant() bool {
	return t.Role == RoleAssistant
}
