// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud provides the OpenRouter chat-completion client.
//
// OpenRouter exposes many hosted models behind a single OpenAI-compatible
// API. This package implements the streaming side of that API: a request is
// sent with stream=true and the reply arrives as server-sent events.
package cloud

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/jeranaias/kidsai/internal/model"
)

// Configuration constants for OpenRouter API.
const (
	// DefaultOpenRouterURL is the base URL for OpenRouter API.
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

	// DefaultModel is a free-tier model that works without credits.
	DefaultModel = "meta-llama/llama-3.3-70b-instruct:free"

	// MaxErrorBodySize caps how much of an error response is kept for diagnostics.
	MaxErrorBodySize = 64 * 1024
)

var (
	// sharedStreamingClient is used for streaming requests (no timeout, context-controlled).
	// PERFORMANCE: Connection pooling for streaming requests.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
)

// Error variables for common OpenRouter errors.
var (
	// ErrNotConfigured indicates the API key is not set.
	ErrNotConfigured = errors.New("OpenRouter API key not configured")

	// ErrConnect indicates the request never reached the API.
	ErrConnect = errors.New("failed to connect to OpenRouter")

	// ErrAuthFailed indicates authentication failed (invalid or expired API key).
	ErrAuthFailed = errors.New("authentication failed")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")

	// ErrModelNotFound indicates the requested model does not exist.
	ErrModelNotFound = errors.New("model not found")

	// ErrInsufficientCredits indicates the account has insufficient credits.
	ErrInsufficientCredits = errors.New("insufficient credits")
)

// OpenRouterError represents a non-success response from the OpenRouter API.
// Body holds the raw response body for diagnostics.
type OpenRouterError struct {
	Code    string
	Message string
	Status  int
	Body    string
}

// Error implements the error interface.
func (e *OpenRouterError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("OpenRouter API error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("OpenRouter API error (HTTP %d): %s", e.Status, e.Message)
}

// Unwrap maps well-known status codes onto the sentinel errors so callers can
// use errors.Is without losing the status and body.
func (e *OpenRouterError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrAuthFailed
	case http.StatusPaymentRequired:
		return ErrInsufficientCredits
	case http.StatusNotFound:
		return ErrModelNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	default:
		return nil
	}
}

// ChatMessage is a single message in the wire format of the chat completions endpoint.
type ChatMessage struct {
	Role    string `json:"role"`    // "user", "assistant", or "system"
	Content string `json:"content"` // The message content
}

// FromTurns converts materialized conversation turns into wire messages.
func FromTurns(turns []model.Turn) []ChatMessage {
	msgs := make([]ChatMessage, len(turns))
	for i, t := range turns {
		msgs[i] = ChatMessage{Role: t.Role.String(), Content: t.Content}
	}
	return msgs
}

// ChatRequest represents a request to the chat completions endpoint.
type ChatRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// apiErrorResponse represents an error response from the API.
type apiErrorResponse struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message string          `json:"message"`
	} `json:"error"`
}

// OpenRouterClient is a client for communicating with the OpenRouter API.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	model      string
	siteURL    string
	siteName   string
	logger     zerolog.Logger
}

// NewOpenRouterClient creates a new OpenRouter client with the given API key.
//
// If the API key is empty, the client will still be created but StreamChat
// will fail with ErrNotConfigured.
func NewOpenRouterClient(apiKey string) *OpenRouterClient {
	return &OpenRouterClient{
		apiKey:     strings.TrimSpace(apiKey),
		baseURL:    DefaultOpenRouterURL,
		httpClient: sharedStreamingClient,
		model:      DefaultModel,
		siteURL:    "https://github.com/jeranaias/kidsai",
		siteName:   "Kids AI",
		logger:     zerolog.Nop(),
	}
}

// WithBaseURL sets a custom base URL for the API.
func (c *OpenRouterClient) WithBaseURL(url string) *OpenRouterClient {
	c.baseURL = strings.TrimSuffix(url, "/")
	return c
}

// WithHTTPClient replaces the shared streaming HTTP client.
func (c *OpenRouterClient) WithHTTPClient(client *http.Client) *OpenRouterClient {
	c.httpClient = client
	return c
}

// WithSiteURL sets the site URL sent as HTTP-Referer for OpenRouter attribution.
func (c *OpenRouterClient) WithSiteURL(url string) *OpenRouterClient {
	c.siteURL = url
	return c
}

// WithSiteName sets the site name sent as X-Title.
func (c *OpenRouterClient) WithSiteName(name string) *OpenRouterClient {
	c.siteName = name
	return c
}

// WithLogger sets the diagnostics logger.
func (c *OpenRouterClient) WithLogger(logger zerolog.Logger) *OpenRouterClient {
	c.logger = logger.With().Str("component", "openrouter").Logger()
	return c
}

// SetModel sets the model to use for chat requests. An empty name keeps the current model.
func (c *OpenRouterClient) SetModel(model string) {
	if model = strings.TrimSpace(model); model != "" {
		c.model = model
	}
}

// GetModel returns the current model.
func (c *OpenRouterClient) GetModel() string {
	return c.model
}

// IsConfigured returns true if the client has an API key configured.
func (c *OpenRouterClient) IsConfigured() bool {
	return c.apiKey != ""
}

// APIKeyMasked returns a masked version of the API key for display.
// SECURITY: Never exposes API key fragments - use fingerprint instead.
func (c *OpenRouterClient) APIKeyMasked() string {
	if c.apiKey == "" {
		return "[not set]"
	}
	return fmt.Sprintf("[REDACTED, length=%d, fingerprint=%s]", len(c.apiKey), c.keyFingerprint())
}

// keyFingerprint returns a short SHA-256 fingerprint of the API key for logging.
func (c *OpenRouterClient) keyFingerprint() string {
	if c.apiKey == "" {
		return "none"
	}
	h := sha256.Sum256([]byte(c.apiKey))
	return hex.EncodeToString(h[:4])
}

// setHeaders sets the required headers for OpenRouter API requests.
func (c *OpenRouterClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	if c.siteURL != "" {
		req.Header.Set("HTTP-Referer", c.siteURL)
	}
	if c.siteName != "" {
		req.Header.Set("X-Title", c.siteName)
	}
}

// readErrorBody reads at most MaxErrorBodySize bytes of an error response.
func readErrorBody(resp *http.Response) []byte {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxErrorBodySize))
	return body
}

// handleErrorResponse converts a non-success HTTP response into an *OpenRouterError.
// The raw body is always kept so it can be logged.
func (c *OpenRouterClient) handleErrorResponse(statusCode int, body []byte) error {
	orErr := &OpenRouterError{
		Status:  statusCode,
		Message: strings.TrimSpace(string(body)),
		Body:    string(body),
	}

	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		orErr.Message = apiErr.Error.Message
		orErr.Code = strings.Trim(string(apiErr.Error.Code), `"`)
	}
	if orErr.Message == "" {
		orErr.Message = http.StatusText(statusCode)
	}

	return orErr
}
