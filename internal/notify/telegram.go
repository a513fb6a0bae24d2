// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/jeranaias/kidsai/internal/tasks"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultTelegramURL is the Bot API base URL.
	DefaultTelegramURL = "https://api.telegram.org"

	// DefaultSendInterval paces consecutive segments of one notification.
	// The Bot API allows about one message per second per chat.
	DefaultSendInterval = time.Second

	// DefaultRequestTimeout bounds a single sendMessage call.
	DefaultRequestTimeout = 15 * time.Second

	// maxErrorBody caps how much of an error response is kept.
	maxErrorBody = 8 * 1024

	// maxRetryAfter caps how long a 429 is waited out. It stays well under
	// tasks.DefaultTaskTimeout so the retry can still be sent.
	maxRetryAfter = 10 * time.Second
)

// ErrNotConfigured indicates the bot token or chat ID is missing.
var ErrNotConfigured = errors.New("telegram notifier not configured")

// =============================================================================
// ERRORS
// =============================================================================

// APIError is a non-2xx response from the Bot API.
type APIError struct {
	Status      int
	Description string
	RetryAfter  time.Duration
	Body        string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("telegram API error (HTTP %d): %s", e.Status, e.Description)
	}
	return fmt.Sprintf("telegram API error (HTTP %d): %s", e.Status, e.Body)
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters,omitempty"`
}

type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// =============================================================================
// NOTIFIER
// =============================================================================

// TelegramNotifier forwards completed question/answer pairs to a chat.
//
// Notify never blocks the caller: each pair is sent by a background task in
// the shared task group, which must be waited for before exit. Failures are
// logged and otherwise ignored.
type TelegramNotifier struct {
	httpClient *http.Client
	baseURL    string
	botToken   string
	chatID     string
	limiter    *rate.Limiter
	group      *tasks.Group
	logger     zerolog.Logger
}

// NewTelegramNotifier creates a notifier. Background sends are tracked in group.
func NewTelegramNotifier(botToken, chatID string, group *tasks.Group) *TelegramNotifier {
	if group == nil {
		group = tasks.NewGroup()
	}
	return &TelegramNotifier{
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
		baseURL:    DefaultTelegramURL,
		botToken:   strings.TrimSpace(botToken),
		chatID:     strings.TrimSpace(chatID),
		limiter:    rate.NewLimiter(rate.Every(DefaultSendInterval), 1),
		group:      group,
		logger:     zerolog.Nop(),
	}
}

// WithBaseURL overrides the Bot API URL.
func (n *TelegramNotifier) WithBaseURL(baseURL string) *TelegramNotifier {
	n.baseURL = strings.TrimRight(baseURL, "/")
	return n
}

// WithHTTPClient sets a custom HTTP client.
func (n *TelegramNotifier) WithHTTPClient(client *http.Client) *TelegramNotifier {
	n.httpClient = client
	return n
}

// WithSendInterval sets the minimum gap between messages. Zero disables pacing.
func (n *TelegramNotifier) WithSendInterval(d time.Duration) *TelegramNotifier {
	if d <= 0 {
		n.limiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		n.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
	return n
}

// WithLogger sets the logger.
func (n *TelegramNotifier) WithLogger(logger zerolog.Logger) *TelegramNotifier {
	n.logger = logger.With().Str("component", "telegram").Logger()
	return n
}

// IsConfigured returns true if both the token and the chat ID are set.
func (n *TelegramNotifier) IsConfigured() bool {
	return n.botToken != "" && n.chatID != ""
}

// Notify sends the pair in the background. The strings are copied into the
// task, so the caller's data is never shared with it. Failures are logged by
// the group.
func (n *TelegramNotifier) Notify(question, answer string) {
	q := strings.Clone(question)
	a := strings.Clone(answer)

	n.group.Go("telegram-notify", func(ctx context.Context) error {
		return n.SendQA(ctx, q, a)
	})
}

// SendQA formats the pair and sends it, split into as many messages as needed.
// Segments are sent in order; the first failure stops the rest.
func (n *TelegramNotifier) SendQA(ctx context.Context, question, answer string) error {
	if !n.IsConfigured() {
		return ErrNotConfigured
	}

	segments := SplitHTML(FormatQA(question, answer), MaxMessageLen)
	for i, seg := range segments {
		if err := n.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
		}
		if err := n.sendMessage(ctx, seg); err != nil {
			return fmt.Errorf("segment %d/%d: %w", i+1, len(segments), err)
		}
	}

	n.logger.Debug().Int("segments", len(segments)).Msg("notification sent")
	return nil
}

// sendMessage posts one message. A 429 with retry_after is retried once.
func (n *TelegramNotifier) sendMessage(ctx context.Context, text string) error {
	err := n.post(ctx, text)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests && apiErr.RetryAfter > 0 {
		wait := min(apiErr.RetryAfter, maxRetryAfter)
		n.logger.Debug().Dur("retry_after", wait).Msg("rate limited by bot API")

		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
		return n.post(ctx, text)
	}
	return err
}

func (n *TelegramNotifier) post(ctx context.Context, text string) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:    n.chatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token; keep it out of logs.
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode, Body: string(raw)}

	var parsed apiResponse
	if json.Unmarshal(raw, &parsed) == nil {
		apiErr.Description = parsed.Description
		if parsed.Parameters != nil && parsed.Parameters.RetryAfter > 0 {
			apiErr.RetryAfter = time.Duration(parsed.Parameters.RetryAfter) * time.Second
		}
	}
	return apiErr
}

// =============================================================================
// NOP NOTIFIER
// =============================================================================

// NopNotifier discards every pair. It is used when notifications are off.
type NopNotifier struct{}

// Notify does nothing.
func (NopNotifier) Notify(string, string) {}
