// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import "testing"

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"plain", "plain"},
		{"a & b", "a &amp; b"},
		{"<script>", "&lt;script&gt;"},
		{"&lt;", "&amp;lt;"},
		{`"quotes" 'stay'`, `"quotes" 'stay'`},
	}

	for _, tc := range tests {
		if got := EscapeHTML(tc.in); got != tc.want {
			t.Errorf("EscapeHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatQA(t *testing.T) {
	got := FormatQA("is 2 < 3?", "yes & no")
	want := "<b>Question:</b>\nis 2 &lt; 3?\n\n<b>Answer:</b>\nyes &amp; no"
	if got != want {
		t.Errorf("FormatQA() = %q, want %q", got, want)
	}
}
