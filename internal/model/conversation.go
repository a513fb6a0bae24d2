// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and turns.
package model

// DefaultCapacity is the default number of turns kept in conversation history.
const DefaultCapacity = 20

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation holds the system prompt and a bounded, ordered turn history.
//
// Two invariants hold after every mutation:
//   - the history never holds more than capacity turns (oldest are evicted first)
//   - the history never starts with an assistant turn
//
// Every mutation path ends in normalize; there is no way to change the
// history without it.
type Conversation struct {
	systemPrompt string
	turns        []Turn
	capacity     int

	// evicted holds the turns the most recent append pushed out, so that
	// retracting that append restores the exact prior history.
	evicted []Turn
}

// NewConversation creates a conversation with the given system prompt and
// history capacity. A capacity below 1 is clamped to 1.
func NewConversation(systemPrompt string, capacity int) *Conversation {
	if capacity < 1 {
		capacity = 1
	}
	return &Conversation{
		systemPrompt: systemPrompt,
		turns:        make([]Turn, 0, capacity+1),
		capacity:     capacity,
	}
}

// =============================================================================
// MUTATION
// =============================================================================

// AppendUser appends a user turn. Text is stored verbatim.
func (c *Conversation) AppendUser(content string) {
	c.append(NewUserTurn(content))
}

// AppendAssistant appends an assistant turn. Text is stored verbatim.
func (c *Conversation) AppendAssistant(content string) {
	c.append(NewAssistantTurn(content))
}

// RetractLastUserTurn removes the most recent turn if it is a user turn.
// It is used to roll back a turn whose reply could not be obtained, so the
// history never records an unanswered question. Turns evicted by that same
// append are put back, leaving the history as it was before the append.
// Returns true if a turn was removed.
func (c *Conversation) RetractLastUserTurn() bool {
	n := len(c.turns)
	if n == 0 || !c.turns[n-1].IsUser() {
		return false
	}
	c.turns[n-1] = Turn{}
	c.turns = c.turns[:n-1]

	if len(c.evicted) > 0 {
		restored := make([]Turn, 0, len(c.evicted)+len(c.turns))
		restored = append(restored, c.evicted...)
		restored = append(restored, c.turns...)
		c.turns = restored
	}
	c.evicted = nil
	c.normalize()
	return true
}

// Clear drops the whole history. The system prompt is kept.
func (c *Conversation) Clear() {
	c.turns = c.turns[:0]
	c.evicted = nil
}

func (c *Conversation) append(t Turn) {
	c.turns = append(c.turns, t)
	c.evicted = c.normalize()
}

// normalize restores both invariants and returns a copy of the evicted turns.
// Capacity eviction runs first; the leading-role fixup then runs on the
// result, because a capacity eviction can expose an assistant turn at the head.
func (c *Conversation) normalize() []Turn {
	drop := 0
	if over := len(c.turns) - c.capacity; over > 0 {
		drop = over
	}
	for drop < len(c.turns) && c.turns[drop].IsAssistant() {
		drop++
	}
	if drop == 0 {
		return nil
	}

	evicted := make([]Turn, drop)
	copy(evicted, c.turns[:drop])

	// Compact in place so the backing array does not grow without bound.
	kept := copy(c.turns, c.turns[drop:])
	for i := kept; i < len(c.turns); i++ {
		c.turns[i] = Turn{}
	}
	c.turns = c.turns[:kept]
	return evicted
}

// =============================================================================
// READ ACCESS
// =============================================================================

// Materialize returns the API-bound message list: the system turn followed by
// the history. The returned slice is freshly allocated on every call, so later
// mutations of the conversation never change a list already handed out.
func (c *Conversation) Materialize() []Turn {
	out := make([]Turn, 0, len(c.turns)+1)
	out = append(out, NewSystemTurn(c.systemPrompt))
	out = append(out, c.turns...)
	return out
}

// Turns returns a copy of the history without the system turn.
func (c *Conversation) Turns() []Turn {
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Len returns the number of turns in the history.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Capacity returns the maximum history length.
func (c *Conversation) Capacity() int {
	return c.capacity
}

// SystemPrompt returns the system prompt.
func (c *Conversation) SystemPrompt() string {
	return c.systemPrompt
}

// IsEmpty returns true if there are no turns in the history.
func (c *Conversation) IsEmpty() bool {
	return len(c.turns) == 0
}
