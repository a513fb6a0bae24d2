// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"io"
	"strings"

	"github.com/mattn/go-runewidth"
)

// WordWrapper wraps streamed text at word boundaries as it arrives.
//
// Tokens are network-sized, not word-sized: a word may be split across two
// Push calls, so the pending word and the current column persist between
// calls. Widths are display cells, so wide runes count as two.
type WordWrapper struct {
	out   io.Writer
	width int
	col   int

	word      strings.Builder
	wordWidth int
}

// NewWordWrapper returns a wrapper writing to out. initialCol is the number
// of cells already used on the current line, for example by a prompt prefix.
func NewWordWrapper(out io.Writer, width, initialCol int) *WordWrapper {
	if width < 1 {
		width = 1
	}
	if initialCol < 0 {
		initialCol = 0
	}
	return &WordWrapper{out: out, width: width, col: initialCol}
}

// Push feeds one token.
func (w *WordWrapper) Push(token string) {
	for _, r := range token {
		switch r {
		case '\n':
			w.flushWord()
			w.write("\n")
			w.col = 0
		case ' ', '\t':
			w.flushWord()
			// At line start, or when the last word exactly filled the
			// line, the separator is dropped.
			if w.col > 0 && w.col < w.width {
				w.write(" ")
				w.col++
			}
		default:
			w.word.WriteRune(r)
			w.wordWidth += runewidth.RuneWidth(r)
		}
	}

	if w.wordWidth >= w.width {
		w.flushWord()
	}
}

// Finish writes any buffered partial word. It must be called once after the
// last token of a reply.
func (w *WordWrapper) Finish() {
	w.flushWord()
}

// Column returns the current display column.
func (w *WordWrapper) Column() int {
	return w.col
}

func (w *WordWrapper) flushWord() {
	if w.word.Len() == 0 {
		return
	}
	if w.col > 0 && w.col+w.wordWidth > w.width {
		w.write("\n")
		w.col = 0
	}
	w.write(w.word.String())
	w.col += w.wordWidth
	w.word.Reset()
	w.wordWidth = 0
}

func (w *WordWrapper) write(s string) {
	_, _ = io.WriteString(w.out, s)
}
