// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes the three characters Telegram's HTML parse mode
// requires. Quotes are left alone.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// FormatQA renders a question and its answer as a Telegram HTML message.
func FormatQA(question, answer string) string {
	var sb strings.Builder
	sb.Grow(len(question) + len(answer) + 40)
	sb.WriteString("<b>Question:</b>\n")
	sb.WriteString(EscapeHTML(question))
	sb.WriteString("\n\n<b>Answer:</b>\n")
	sb.WriteString(EscapeHTML(answer))
	return sb.String()
}
