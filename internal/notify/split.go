// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"strings"
	"unicode/utf8"
)

// MaxMessageLen is the largest text the Bot API accepts in one message.
const MaxMessageLen = 4096

// SplitMessage splits text into segments of at most maxLen bytes.
//
// Each cut is made at the last newline inside the allowed prefix when there
// is one, otherwise at the limit, and never inside a UTF-8 sequence. The
// newline a cut lands on is dropped, so a newline right after a cut at the
// very end of the text is lost: the Bot API rejects a message holding only
// whitespace. Text that fits is returned as a single segment. A maxLen below
// 1 means MaxMessageLen.
func SplitMessage(text string, maxLen int) []string {
	return split(text, maxLen, nil)
}

// SplitHTML is SplitMessage for Telegram HTML text: a hard cut is moved back
// so it never lands inside a tag or a character entity.
func SplitHTML(text string, maxLen int) []string {
	return split(text, maxLen, markupSafeCut)
}

func split(text string, maxLen int, adjust func(prefix string) int) []string {
	if maxLen < 1 {
		maxLen = MaxMessageLen
	}
	if len(text) <= maxLen {
		return []string{text}
	}

	var segments []string
	rest := text
	for len(rest) > maxLen {
		cut := runeBoundary(rest, maxLen)

		if nl := strings.LastIndexByte(rest[:cut], '\n'); nl > 0 {
			cut = nl
		} else if adjust != nil {
			if c := adjust(rest[:cut]); c > 0 {
				cut = c
			}
		}

		segments = append(segments, rest[:cut])
		rest = strings.TrimPrefix(rest[cut:], "\n")
	}
	if rest != "" {
		segments = append(segments, rest)
	}
	return segments
}

// runeBoundary returns the largest cut <= limit that does not split a rune.
// It is always positive, so every iteration makes progress: if the first
// rune alone is wider than limit, the cut is placed after it.
func runeBoundary(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, size := utf8.DecodeRuneInString(s)
		cut = size
	}
	return cut
}

// markupSafeCut returns an earlier cut when prefix ends inside an open tag or
// entity, or 0 to keep the cut.
func markupSafeCut(prefix string) int {
	if lt := strings.LastIndexByte(prefix, '<'); lt >= 0 && lt > strings.LastIndexByte(prefix, '>') {
		return lt
	}
	if amp := strings.LastIndexByte(prefix, '&'); amp >= 0 && amp > strings.LastIndexByte(prefix, ';') {
		return amp
	}
	return 0
}
