// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitMessage_ExactLimitUnsplit(t *testing.T) {
	text := strings.Repeat("a", MaxMessageLen)

	segments := SplitMessage(text, MaxMessageLen)
	require.Len(t, segments, 1)
	assert.Equal(t, text, segments[0])
}

func TestSplitMessage_OneOverLimit(t *testing.T) {
	text := strings.Repeat("a", MaxMessageLen+1)

	segments := SplitMessage(text, MaxMessageLen)
	require.Len(t, segments, 2)
	assert.Len(t, segments[0], MaxMessageLen)
	assert.Len(t, segments[1], 1)
}

func TestSplitMessage_Cases(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		maxLen int
		want   []string
	}{
		{"empty", "", 10, []string{""}},
		{"prefers last newline", "one\ntwo\nthree four", 12, []string{"one\ntwo", "three four"}},
		{"hard cut without newline", "abcdefghij", 4, []string{"abcd", "efgh", "ij"}},
		{"newline at cut is dropped", "abcd\nefgh", 4, []string{"abcd", "efgh"}},
		{"leading newline is not a cut point", "\nabcdef", 4, []string{"\nabc", "def"}},
		{"multibyte kept whole", "ééé", 3, []string{"é", "é", "é"}},
		{"rune wider than limit", "日日", 2, []string{"日", "日"}},
		{"non-positive limit uses default", "short", 0, []string{"short"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitMessage(tc.text, tc.maxLen))
		})
	}
}

// reassemble walks the original text and checks that the segments appear in
// order, allowing one dropped newline after each segment.
func reassemble(t *testing.T, original string, segments []string) {
	t.Helper()
	pos := 0
	for i, seg := range segments {
		require.True(t, strings.HasPrefix(original[pos:], seg), "segment %d not found at offset %d", i, pos)
		pos += len(seg)
		if pos < len(original) && original[pos] == '\n' {
			pos++
		}
	}
	assert.Equal(t, len(original), pos, "segments must cover the whole text")
}

func TestSplitMessage_TrailingNewlineAtCutIsDropped(t *testing.T) {
	segments := SplitMessage("aa世 é🙂\n", 4)
	assert.Equal(t, []string{"aa", "世 ", "é", "🙂"}, segments)

	// Text that fits keeps its trailing newline.
	assert.Equal(t, []string{"ok\n"}, SplitMessage("ok\n", 4))
}

func TestSplitMessage_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	alphabet := []rune("abc xyz\néü日本🙂")

	for i := 0; i < 300; i++ {
		n := rng.Intn(400)
		runes := make([]rune, n)
		for j := range runes {
			runes[j] = alphabet[rng.Intn(len(alphabet))]
		}
		text := string(runes)
		maxLen := 4 + rng.Intn(60)

		segments := SplitMessage(text, maxLen)
		for _, seg := range segments {
			assert.LessOrEqual(t, len(seg), maxLen)
			assert.True(t, utf8.ValidString(seg), "segment %q splits a rune", seg)
		}
		reassemble(t, text, segments)
	}
}

func TestSplitHTML_AvoidsMarkup(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{"entity kept whole", "abc&amp;def", 6, []string{"abc", "&amp;d", "ef"}},
		{"tag kept whole", "ab<b>cd</b>", 4, []string{"ab", "<b>c", "d", "</b>"}},
		{"plain text unchanged", "abcdefgh", 4, []string{"abcd", "efgh"}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, SplitHTML(tc.text, tc.max))
		})
	}
}

func TestSplitHTML_FormattedMessage(t *testing.T) {
	answer := strings.Repeat("Tom & Jerry <3 ", 600)
	text := FormatQA("who?", answer)

	segments := SplitHTML(text, MaxMessageLen)
	require.Greater(t, len(segments), 1)
	for _, seg := range segments {
		assert.LessOrEqual(t, len(seg), MaxMessageLen)
		assert.Equal(t, strings.Count(seg, "&"), strings.Count(seg, ";"), "entity split across segments")
	}
	reassemble(t, text, segments)
}
