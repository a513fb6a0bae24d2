// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"math/rand"
	"strings"
	"testing"
	"unicode"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func wrapAll(width, initialCol int, tokens ...string) (string, *WordWrapper) {
	var out strings.Builder
	w := NewWordWrapper(&out, width, initialCol)
	for _, tok := range tokens {
		w.Push(tok)
	}
	w.Finish()
	return out.String(), w
}

func TestWordWrapper_Cases(t *testing.T) {
	tests := []struct {
		name       string
		width      int
		initialCol int
		tokens     []string
		want       string
	}{
		{"fits on one line", 80, 0, []string{"hello world"}, "hello world"},
		{"wraps before overflowing word", 10, 0, []string{"aaaa bbbb cccc"}, "aaaa bbbb \ncccc"},
		{"space after exact fill is dropped", 4, 0, []string{"abcd efg"}, "abcd\nefg"},
		{"word split across tokens", 80, 0, []string{"hel", "lo wor", "ld"}, "hello world"},
		{"leading space dropped", 80, 0, []string{" hi"}, "hi"},
		{"newline resets column", 5, 0, []string{"abc\nabcd e"}, "abc\nabcd \ne"},
		{"prefix columns count", 10, 4, []string{"abcdefg"}, "\nabcdefg"},
		{"wide runes use cell width", 6, 0, []string{"日本 語"}, "日本 \n語"},
		{"tab acts as space", 80, 0, []string{"a\tb"}, "a b"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _ := wrapAll(tc.width, tc.initialCol, tc.tokens...)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestWordWrapper_LongWordFlushedWithoutWhitespace(t *testing.T) {
	var out strings.Builder
	w := NewWordWrapper(&out, 5, 0)
	w.Push("abcdefgh")

	assert.Equal(t, "abcdefgh", out.String(), "oversized word must not wait for whitespace")
	assert.Equal(t, 8, w.Column())
}

func TestWordWrapper_FinishWritesPartialWord(t *testing.T) {
	var out strings.Builder
	w := NewWordWrapper(&out, 80, 0)
	w.Push("partial")
	assert.Empty(t, out.String())

	w.Finish()
	assert.Equal(t, "partial", out.String())
}

func TestWordWrapper_ClampsArguments(t *testing.T) {
	var out strings.Builder
	w := NewWordWrapper(&out, 0, -3)
	assert.Equal(t, 0, w.Column())

	// width 0 is clamped to one cell: every word gets its own line
	w.Push("a b")
	w.Finish()
	assert.Equal(t, "a\nb", out.String())
}

// randomReply builds text from short words separated by spaces and the
// occasional newline.
func randomReply(rng *rand.Rand, words int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzé日"
	alphabet := []rune(letters)

	var sb strings.Builder
	for i := 0; i < words; i++ {
		if i > 0 {
			if rng.Intn(10) == 0 {
				sb.WriteByte('\n')
			} else {
				sb.WriteByte(' ')
			}
		}
		n := 1 + rng.Intn(8)
		for j := 0; j < n; j++ {
			sb.WriteRune(alphabet[rng.Intn(len(alphabet))])
		}
	}
	return sb.String()
}

// randomChunks splits s at random rune boundaries.
func randomChunks(rng *rand.Rand, s string) []string {
	runes := []rune(s)
	var chunks []string
	for len(runes) > 0 {
		n := 1 + rng.Intn(7)
		if n > len(runes) {
			n = len(runes)
		}
		chunks = append(chunks, string(runes[:n]))
		runes = runes[n:]
	}
	return chunks
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func TestWordWrapper_PreservesContent(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 200; i++ {
		text := randomReply(rng, 1+rng.Intn(60))
		width := 20 + rng.Intn(40)

		perRune, _ := wrapAll(width, 4, strings.Split(text, "")...)
		chunked, _ := wrapAll(width, 4, randomChunks(rng, text)...)

		assert.Equal(t, stripSpace(text), stripSpace(perRune), "per-rune feed changed content")
		assert.Equal(t, stripSpace(text), stripSpace(chunked), "chunked feed changed content")
		assert.Equal(t, perRune, chunked, "layout must not depend on chunk boundaries")
	}
}

func TestWordWrapper_LinesWithinWidth(t *testing.T) {
	rng := rand.New(rand.NewSource(11))

	for i := 0; i < 200; i++ {
		text := randomReply(rng, 1+rng.Intn(80))
		width := 20 + rng.Intn(40)

		out, _ := wrapAll(width, 0, randomChunks(rng, text)...)
		for _, line := range strings.Split(out, "\n") {
			if w := runewidth.StringWidth(line); w > width {
				t.Fatalf("line %q is %d cells, width %d", line, w, width)
			}
		}
	}
}
