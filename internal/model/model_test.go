// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// ROLE TESTS
// =============================================================================

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "AI"},
		{RoleSystem, "System"},
		{Role("tool"), "tool"},
	}

	for _, tc := range tests {
		t.Run(string(tc.role), func(t *testing.T) {
			if got := tc.role.DisplayName(); got != tc.want {
				t.Errorf("DisplayName() = %q, want %q", got, tc.want)
			}
		})
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_MaterializeStartsWithSystem(t *testing.T) {
	conv := NewConversation("be nice", 4)
	conv.AppendUser("hi")

	msgs := conv.Materialize()
	require.Len(t, msgs, 2)
	assert.Equal(t, NewSystemTurn("be nice"), msgs[0])
	assert.Equal(t, NewUserTurn("hi"), msgs[1])
}

func TestConversation_MaterializeDoesNotAlias(t *testing.T) {
	conv := NewConversation("sys", 4)
	conv.AppendUser("first")

	snapshot := conv.Materialize()
	conv.AppendAssistant("reply")
	conv.AppendUser("second")
	conv.RetractLastUserTurn()

	require.Len(t, snapshot, 2)
	assert.Equal(t, "first", snapshot[1].Content)

	// Mutating the snapshot must not reach the conversation either.
	snapshot[1].Content = "changed"
	assert.Equal(t, "first", conv.Turns()[0].Content)
}

func TestConversation_CapacityEviction(t *testing.T) {
	conv := NewConversation("sys", 4)
	for i := 0; i < 3; i++ {
		conv.AppendUser("q")
		conv.AppendAssistant("a")
	}

	assert.Equal(t, 4, conv.Len())
	turns := conv.Turns()
	assert.True(t, turns[0].IsUser(), "history must start with a user turn")
}

// TestConversation_LeadingAssistantScenario walks the documented capacity-2
// sequence: the final append evicts "c" by capacity, which exposes "d" at the
// head, so "d" must be evicted as well.
func TestConversation_LeadingAssistantScenario(t *testing.T) {
	conv := NewConversation("sys", 2)
	conv.AppendUser("a")
	conv.AppendAssistant("b")
	conv.AppendUser("c")
	conv.AppendAssistant("d")
	conv.AppendUser("e")

	assert.Equal(t, []Turn{NewUserTurn("e")}, conv.Turns())
}

func TestConversation_AssistantOnEmptyIsDropped(t *testing.T) {
	conv := NewConversation("sys", 3)
	conv.AppendAssistant("orphan")

	assert.True(t, conv.IsEmpty())
	assert.Len(t, conv.Materialize(), 1)
}

func TestConversation_CapacityClamped(t *testing.T) {
	conv := NewConversation("sys", 0)
	assert.Equal(t, 1, conv.Capacity())

	conv.AppendUser("one")
	conv.AppendUser("two")
	assert.Equal(t, []Turn{NewUserTurn("two")}, conv.Turns())
}

func TestConversation_RetractLastUserTurn(t *testing.T) {
	t.Run("removes trailing user turn", func(t *testing.T) {
		conv := NewConversation("sys", 4)
		conv.AppendUser("q1")
		conv.AppendAssistant("a1")
		conv.AppendUser("q2")

		require.True(t, conv.RetractLastUserTurn())
		assert.Equal(t, []Turn{NewUserTurn("q1"), NewAssistantTurn("a1")}, conv.Turns())
	})

	t.Run("no-op on trailing assistant turn", func(t *testing.T) {
		conv := NewConversation("sys", 4)
		conv.AppendUser("q1")
		conv.AppendAssistant("a1")

		assert.False(t, conv.RetractLastUserTurn())
		assert.Equal(t, 2, conv.Len())
	})

	t.Run("no-op on empty history", func(t *testing.T) {
		conv := NewConversation("sys", 4)
		assert.False(t, conv.RetractLastUserTurn())
		assert.True(t, conv.IsEmpty())
	})
}

func TestConversation_FailedTurnLeavesHistoryUnchanged(t *testing.T) {
	conv := NewConversation("sys", 4)
	conv.AppendUser("q1")
	conv.AppendAssistant("a1")
	before := conv.Turns()

	conv.AppendUser("q2")
	conv.RetractLastUserTurn()

	assert.Equal(t, before, conv.Turns())
}

func TestConversation_RetractRestoresEvictedTurns(t *testing.T) {
	conv := NewConversation("sys", 2)
	conv.AppendUser("q1")
	conv.AppendAssistant("a1")
	before := conv.Turns()

	// At capacity: this append evicts q1 and then the exposed a1.
	conv.AppendUser("q2")
	require.Equal(t, []Turn{NewUserTurn("q2")}, conv.Turns())

	require.True(t, conv.RetractLastUserTurn())
	assert.Equal(t, before, conv.Turns())
}

func TestConversation_RetractOnlyRestoresLatestAppend(t *testing.T) {
	conv := NewConversation("sys", 1)
	conv.AppendUser("q1")
	conv.AppendUser("q2") // evicts q1
	conv.AppendUser("q3") // evicts q2

	require.True(t, conv.RetractLastUserTurn())
	assert.Equal(t, []Turn{NewUserTurn("q2")}, conv.Turns())

	require.True(t, conv.RetractLastUserTurn())
	assert.True(t, conv.IsEmpty(), "q1 was evicted by an earlier append and stays gone")
}

func TestConversation_Clear(t *testing.T) {
	conv := NewConversation("sys", 4)
	conv.AppendUser("q")
	conv.Clear()

	assert.True(t, conv.IsEmpty())
	assert.Equal(t, "sys", conv.SystemPrompt())
	assert.Empty(t, conv.Turns())
}

// TestConversation_InvariantsHoldForRandomSequences drives random mutation
// sequences and checks both invariants after every call.
func TestConversation_InvariantsHoldForRandomSequences(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for capacity := 1; capacity <= 6; capacity++ {
		conv := NewConversation("sys", capacity)
		for step := 0; step < 500; step++ {
			switch rng.Intn(3) {
			case 0:
				conv.AppendUser("u")
			case 1:
				conv.AppendAssistant("a")
			case 2:
				conv.RetractLastUserTurn()
			}

			if conv.Len() > capacity {
				t.Fatalf("capacity %d: history length %d after step %d", capacity, conv.Len(), step)
			}
			msgs := conv.Materialize()
			if msgs[0].Role != RoleSystem {
				t.Fatalf("capacity %d: materialized list does not start with system", capacity)
			}
			if len(msgs) > 1 && msgs[1].IsAssistant() {
				t.Fatalf("capacity %d: history starts with assistant after step %d", capacity, step)
			}
		}
	}
}
