// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// UNICODE: widths are terminal cells, so wide characters count as two.

// TruncateWidth shortens s to at most maxWidth cells, ending in "..." when
// anything was cut.
func TruncateWidth(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth <= 3 {
		return runewidth.Truncate(s, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth, "...")
}

// OneLine collapses all runs of whitespace, newlines included, to single
// spaces so multi-line text fits in a listing.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Preview returns s on one line, truncated to maxWidth cells.
func Preview(s string, maxWidth int) string {
	return TruncateWidth(OneLine(s), maxWidth)
}
