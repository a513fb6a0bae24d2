// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Interactive chat session for kidsai.
//
// USABILITY: Uses liner for readline-like input with in-session history.
// Up/down arrows recall earlier questions. History is kept in memory only.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterh/liner"
	"github.com/rs/zerolog"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/kidsai/internal/cloud"
	"github.com/jeranaias/kidsai/internal/config"
	"github.com/jeranaias/kidsai/internal/model"
	"github.com/jeranaias/kidsai/internal/notify"
	"github.com/jeranaias/kidsai/internal/prompt"
	"github.com/jeranaias/kidsai/internal/session"
	"github.com/jeranaias/kidsai/internal/tasks"
	"github.com/jeranaias/kidsai/internal/ui/console"
	"github.com/jeranaias/kidsai/internal/ui/styles"
	"github.com/jeranaias/kidsai/internal/util"
)

const (
	// maxInputErrors ends the session after this many input failures in a row.
	maxInputErrors = 3

	// defaultDrainTimeout bounds the wait for notifications at exit. Every
	// task is already bounded by its own timeout.
	defaultDrainTimeout = tasks.DefaultTaskTimeout + 5*time.Second
)

// exitWords end the session, compared case-insensitively.
var exitWords = []string{"quit", "exit", "bye"}

// =============================================================================
// LINE INPUT
// =============================================================================

// LineReader reads one line of user input per call.
type LineReader interface {
	// Prompt returns liner.ErrPromptAborted on Ctrl+C and io.EOF on Ctrl+D.
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// ChatCLI wraps liner for interactive input with history support.
type ChatCLI struct {
	line *liner.State
}

// NewChatCLI creates a new ChatCLI. Ctrl+C at the prompt aborts it.
func NewChatCLI() *ChatCLI {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetCompleter(completeCommand)
	return &ChatCLI{line: line}
}

// Prompt reads a line of input with the given prompt.
func (c *ChatCLI) Prompt(prompt string) (string, error) {
	return c.line.Prompt(prompt)
}

// AppendHistory adds an entry for arrow-key recall.
func (c *ChatCLI) AppendHistory(item string) {
	c.line.AppendHistory(item)
}

// Close restores the terminal.
func (c *ChatCLI) Close() error {
	return c.line.Close()
}

// =============================================================================
// CONSOLE COMMANDS
// =============================================================================

type consoleCommand struct {
	name  string
	alias string
	desc  string
}

var consoleCommands = []consoleCommand{
	{"/help", "/h", "Show this help"},
	{"/clear", "/c", "Start over and forget what we talked about"},
	{"/history", "", "Show what we talked about"},
}

func lookupCommand(input string) (consoleCommand, bool) {
	name := strings.ToLower(input)
	for _, cmd := range consoleCommands {
		if name == cmd.name || (cmd.alias != "" && name == cmd.alias) {
			return cmd, true
		}
	}
	return consoleCommand{}, false
}

func completeCommand(line string) []string {
	if !strings.HasPrefix(line, "/") {
		return nil
	}
	var out []string
	for _, cmd := range consoleCommands {
		if strings.HasPrefix(cmd.name, strings.ToLower(line)) {
			out = append(out, cmd.name)
		}
	}
	return out
}

func isExitWord(input string) bool {
	for _, w := range exitWords {
		if strings.EqualFold(input, w) {
			return true
		}
	}
	return false
}

// normalizeInput trims input and puts it in NFC form so composed and
// decomposed spellings of the same word are sent identically.
func normalizeInput(line string) string {
	return norm.NFC.String(strings.TrimSpace(line))
}

// =============================================================================
// CHAT SESSION
// =============================================================================

// Chat is one interactive session: a conversation, the turn executor that
// drives it and the printer that renders it.
type Chat struct {
	conv    *model.Conversation
	exec    *session.Executor
	printer *console.Printer
	group   *tasks.Group
	logger  zerolog.Logger

	previewWidth int
	drainTimeout time.Duration

	// watchInterrupt catches Ctrl+C and SIGTERM while a turn runs. The
	// returned context is never handed to the turn itself, so a reply in
	// flight always finishes and is mirrored before the session ends.
	watchInterrupt func(ctx context.Context) (context.Context, context.CancelFunc)
}

// NewChat wires a session from configuration. cfg must be valid.
func NewChat(cfg *config.Config, out io.Writer, display Display, logger zerolog.Logger) *Chat {
	conv := model.NewConversation(prompt.BuildSystemPrompt(cfg.Chat.ChildName), cfg.Chat.MaxHistory)

	client := cloud.NewOpenRouterClient(cfg.OpenRouter.APIKey).
		WithBaseURL(cfg.OpenRouter.BaseURL).
		WithSiteName(cfg.OpenRouter.SiteName).
		WithLogger(logger)
	client.SetModel(cfg.OpenRouter.Model)
	logger.Info().
		Str("model", client.GetModel()).
		Str("api_key", client.APIKeyMasked()).
		Msg("openrouter client ready")

	printer := console.NewPrinter(out, styles.NewTheme(out, display.Profile), display.Width).
		WithChildName(cfg.Chat.ChildName).
		WithPrefixCols(cfg.Chat.WrapPrefixCols).
		WithInteractive(display.Interactive)

	group := tasks.NewGroup().WithLogger(logger)

	exec := session.NewExecutor(conv, client).
		WithObserver(printer).
		WithNotifier(newNotifier(cfg, group, logger)).
		WithMaxAttempts(cfg.Chat.MaxAttempts).
		WithBackoff(time.Duration(cfg.Chat.RetryBackoffMs) * time.Millisecond).
		WithLogger(logger)

	return &Chat{
		conv:         conv,
		exec:         exec,
		printer:      printer,
		group:        group,
		logger:       logger.With().Str("component", "chat").Logger(),
		previewWidth: max(display.Width-10, MinTerminalWidth),
		drainTimeout: defaultDrainTimeout,
		watchInterrupt: func(ctx context.Context) (context.Context, context.CancelFunc) {
			return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		},
	}
}

func newNotifier(cfg *config.Config, group *tasks.Group, logger zerolog.Logger) session.Notifier {
	if !cfg.Telegram.Enabled {
		return notify.NopNotifier{}
	}
	return notify.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, group).
		WithBaseURL(cfg.Telegram.BaseURL).
		WithSendInterval(time.Duration(cfg.Telegram.SendIntervalMs) * time.Millisecond).
		WithLogger(logger)
}

// Conversation returns the session's conversation.
func (c *Chat) Conversation() *model.Conversation {
	return c.conv
}

// Run shows the welcome banner and reads lines until the child leaves.
// Pending notifications are delivered before it returns.
func (c *Chat) Run(ctx context.Context, in LineReader) {
	c.printer.Welcome()
	defer c.shutdown()

	failures := 0
	for {
		line, err := in.Prompt(c.printer.Prompt())
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
				c.printer.Goodbye()
				return
			}
			failures++
			c.logger.Error().Err(err).Int("failures", failures).Msg("input error")
			c.printer.Error(console.MsgInputError)
			if failures >= maxInputErrors {
				c.printer.Goodbye()
				return
			}
			continue
		}
		failures = 0

		if !c.Handle(ctx, in, line) {
			c.printer.Goodbye()
			return
		}
	}
}

// Handle processes one line of input. It returns false when the session
// should end.
func (c *Chat) Handle(ctx context.Context, in LineReader, line string) bool {
	text := normalizeInput(line)
	if text == "" {
		return true
	}
	in.AppendHistory(text)

	if isExitWord(text) {
		return false
	}
	if cmd, ok := lookupCommand(text); ok {
		c.runCommand(cmd.name)
		return true
	}

	interrupted, stop := c.watchInterrupt(ctx)
	defer stop()

	res, err := c.exec.RunTurn(ctx, text)
	if err != nil {
		c.logger.Debug().Err(err).Str("state", res.State.String()).Msg("turn not committed")
	}
	if interrupted.Err() != nil {
		c.logger.Info().
			Str("turn_id", res.TurnID).
			Str("state", res.State.String()).
			Msg("interrupted, ending session after turn")
		return false
	}
	return true
}

func (c *Chat) shutdown() {
	if n := c.group.Pending(); n > 0 {
		c.logger.Info().Int("pending", n).Msg("waiting for notifications")
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.drainTimeout)
	defer cancel()
	if err := c.group.WaitContext(ctx); err != nil {
		c.logger.Warn().
			Err(err).
			Int("pending", c.group.Pending()).
			Msg("gave up waiting for notifications")
	}

	stats := c.group.Stats()
	c.logger.Info().
		Int64("notifications", stats.Started).
		Int64("failed", stats.Failed+stats.Panicked).
		Int("history", c.conv.Len()).
		Msg("session end")
}

// =============================================================================
// COMMAND HANDLERS
// =============================================================================

func (c *Chat) runCommand(name string) {
	switch name {
	case "/help":
		c.showHelp()
	case "/clear":
		c.clearConversation()
	case "/history":
		c.showHistory()
	}
}

func (c *Chat) showHelp() {
	c.printer.Info("Things you can type:")
	for _, cmd := range consoleCommands {
		name := cmd.name
		if cmd.alias != "" {
			name += ", " + cmd.alias
		}
		c.printer.Info("  " + padRight(name, 14) + cmd.desc)
	}
	c.printer.Info(`  ` + padRight(strings.Join(exitWords, ", "), 14) + "Say goodbye")
	c.printer.Info("")
}

func (c *Chat) clearConversation() {
	c.conv.Clear()
	c.printer.Info("[Conversation cleared]")
	c.printer.Info("")
}

func (c *Chat) showHistory() {
	turns := c.conv.Turns()
	if len(turns) == 0 {
		c.printer.Info("[No messages yet]")
		c.printer.Info("")
		return
	}
	for _, t := range turns {
		c.printer.HistoryLine(t.Role, util.Preview(t.Content, c.previewWidth))
	}
	c.printer.Info("")
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-len(s))
}
