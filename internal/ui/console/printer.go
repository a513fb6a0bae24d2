// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jeranaias/kidsai/internal/model"
	"github.com/jeranaias/kidsai/internal/ui/styles"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// AIPrefix is printed before every streamed reply.
	AIPrefix = "AI> "

	// UserPrefix is the input prompt.
	UserPrefix = "You> "

	// DefaultPrefixCols is the display width of AIPrefix.
	DefaultPrefixCols = 4

	// thinkingText is shown until the first token of an attempt arrives.
	thinkingText = "Thinking..."

	// clearLine returns the cursor to column 0 and erases the line.
	clearLine = "\r\x1b[2K"

	bannerRule = "=========================================="
)

// User-facing failure messages.
const (
	MsgTransportError = "Something went wrong. Try asking again!"
	MsgNoReply        = "Hmm, I couldn't get a response. Please try again!"
	MsgInputError     = "Something went wrong with input. Try again!"
)

// =============================================================================
// PRINTER
// =============================================================================

// Printer renders a chat session on a line-mode terminal. It implements the
// turn observer callbacks, so streamed tokens are wrapped and written as they
// arrive.
type Printer struct {
	out        io.Writer
	theme      *styles.Theme
	width      int
	prefixCols int
	childName  string

	// interactive enables cursor control; off for pipes and tests.
	interactive bool

	thinking bool
	wrapper  *WordWrapper
}

// NewPrinter creates a printer. width is the terminal width in cells.
func NewPrinter(out io.Writer, theme *styles.Theme, width int) *Printer {
	if theme == nil {
		theme = styles.Plain(out)
	}
	return &Printer{
		out:        out,
		theme:      theme,
		width:      width,
		prefixCols: DefaultPrefixCols,
	}
}

// WithChildName personalises the banners.
func (p *Printer) WithChildName(name string) *Printer {
	p.childName = strings.TrimSpace(name)
	return p
}

// WithPrefixCols sets the column the wrapper starts at after the AI> prefix.
func (p *Printer) WithPrefixCols(cols int) *Printer {
	if cols < 0 {
		cols = 0
	}
	p.prefixCols = cols
	return p
}

// WithInteractive enables in-place erasing of the thinking indicator.
func (p *Printer) WithInteractive(on bool) *Printer {
	p.interactive = on
	return p
}

// =============================================================================
// BANNERS
// =============================================================================

// Welcome prints the session banner.
func (p *Printer) Welcome() {
	greeting := "  Welcome to Kids AI! Ask me anything!"
	if p.childName != "" {
		greeting = fmt.Sprintf("  Hi %s! Welcome to Kids AI!", p.childName)
	}
	banner := strings.Join([]string{bannerRule, greeting, bannerRule}, "\n")
	p.println(p.theme.Banner.Render(banner))
	p.println(p.theme.Hint.Render(`Type "quit" or "exit" when you're done.`))
	p.println("")
}

// Goodbye prints the farewell line.
func (p *Printer) Goodbye() {
	msg := "Bye! See you next time! 👋"
	if p.childName != "" {
		msg = fmt.Sprintf("Bye %s! See you next time! 👋", p.childName)
	}
	p.println("\n" + p.theme.Banner.Render(msg))
}

// Error prints a friendly error line followed by a blank line.
func (p *Printer) Error(msg string) {
	p.println("\n" + p.theme.Error.Render("Oops! "+msg))
	p.println("")
}

// Info prints a console command result.
func (p *Printer) Info(msg string) {
	p.println(p.theme.Command.Render(msg))
}

// HistoryLine prints one entry of a history listing.
func (p *Printer) HistoryLine(role model.Role, text string) {
	style := p.theme.AIPrefix
	if role == model.RoleUser {
		style = p.theme.User
	}
	p.println("  " + style.Render(role.DisplayName()+":") + " " + p.theme.History.Render(text))
}

// Prompt returns the input prompt. It is never styled: the line editor
// rejects prompts containing control characters.
func (p *Printer) Prompt() string {
	return UserPrefix
}

// =============================================================================
// TURN OBSERVER
// =============================================================================

// AttemptStarted shows the thinking indicator.
func (p *Printer) AttemptStarted(int) {
	p.wrapper = nil
	p.thinking = true
	p.print("\n" + p.theme.Thinking.Render(thinkingText))
}

// Token writes a streamed token. The first token of an attempt replaces the
// thinking indicator with the AI> prefix.
func (p *Printer) Token(tok string) {
	if p.thinking {
		p.clearThinking()
		p.print(p.theme.AIPrefix.Render(AIPrefix))
		p.wrapper = NewWordWrapper(p.out, p.width, p.prefixCols)
	}
	if p.wrapper != nil {
		p.wrapper.Push(tok)
	}
}

// AttemptEmpty removes the thinking indicator before the next attempt.
func (p *Printer) AttemptEmpty(int) {
	p.endAttempt()
}

// AttemptFailed closes any partial reply and prints the transport message.
// A cancelled turn is closed silently; the session is ending.
func (p *Printer) AttemptFailed(_ int, err error) {
	p.endAttempt()
	if errors.Is(err, context.Canceled) {
		return
	}
	p.Error(MsgTransportError)
}

// Succeeded ends the reply with a blank line.
func (p *Printer) Succeeded(string) {
	p.endAttempt()
	p.println("")
}

// Exhausted prints the no-reply message.
func (p *Printer) Exhausted() {
	p.Error(MsgNoReply)
}

func (p *Printer) endAttempt() {
	if p.thinking {
		p.clearThinking()
		return
	}
	if p.wrapper != nil {
		p.wrapper.Finish()
		p.wrapper = nil
		p.println("")
	}
}

func (p *Printer) clearThinking() {
	p.thinking = false
	if p.interactive {
		p.print(clearLine)
		return
	}
	// Without escape sequences the indicator stays; start a fresh line.
	p.print("\n")
}

func (p *Printer) print(s string) {
	_, _ = io.WriteString(p.out, s)
}

func (p *Printer) println(s string) {
	_, _ = io.WriteString(p.out, s+"\n")
}
