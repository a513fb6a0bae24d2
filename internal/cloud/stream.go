// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cloud

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// STREAMING: Robust SSE parsing with error handling

// =============================================================================
// STREAMING CONSTANTS
// =============================================================================

// DoneSentinel is the event payload that terminates an OpenRouter stream.
const DoneSentinel = "[DONE]"

// =============================================================================
// STREAMING TYPES
// =============================================================================

// StreamChunk represents a single event payload from the OpenRouter streaming response.
// Content is kept raw so that a non-string value is ignored instead of
// failing the whole event.
type StreamChunk struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content json.RawMessage `json:"content"`
			Role    string          `json:"role,omitempty"`
		} `json:"delta"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// GetContent returns the string content of the first choice's delta.
// Absent, null and non-string content all yield "".
func (c *StreamChunk) GetContent() string {
	if len(c.Choices) == 0 {
		return ""
	}
	raw := c.Choices[0].Delta.Content
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// GetFinishReason returns the finish reason if streaming is complete.
func (c *StreamChunk) GetFinishReason() string {
	if len(c.Choices) > 0 && c.Choices[0].FinishReason != nil {
		return *c.Choices[0].FinishReason
	}
	return ""
}

// TokenFunc receives each non-empty text token, in arrival order.
type TokenFunc func(token string)

// StreamAccumulator collects tokens for a single request and forwards each
// one to the sink as it arrives.
type StreamAccumulator struct {
	// PERFORMANCE: strings.Builder avoids quadratic allocations
	full   strings.Builder
	sink   TokenFunc
	tokens int
	first  time.Duration
	start  time.Time
}

// NewStreamAccumulator creates an accumulator that forwards tokens to sink.
// A nil sink is allowed.
func NewStreamAccumulator(sink TokenFunc) *StreamAccumulator {
	return &StreamAccumulator{sink: sink, start: time.Now()}
}

// Add forwards a token to the sink and appends it to the full text.
// Empty tokens are dropped.
func (a *StreamAccumulator) Add(token string) {
	if token == "" {
		return
	}
	if a.tokens == 0 {
		a.first = time.Since(a.start)
	}
	a.tokens++
	if a.sink != nil {
		a.sink(token)
	}
	a.full.WriteString(token)
}

// Content returns the accumulated text.
func (a *StreamAccumulator) Content() string {
	return a.full.String()
}

// TokenCount returns the number of tokens received.
func (a *StreamAccumulator) TokenCount() int {
	return a.tokens
}

// FirstTokenLatency returns the time from creation to the first token.
func (a *StreamAccumulator) FirstTokenLatency() time.Duration {
	return a.first
}

// =============================================================================
// SSE READER
// =============================================================================

// SSEReader parses Server-Sent Events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{
		reader: bufio.NewReader(r),
	}
}

// ReadEvent reads the next SSE event from the stream.
// Returns the event type and the data lines joined with "\n".
// Returns io.EOF when the stream ends.
func (s *SSEReader) ReadEvent() (string, []byte, error) {
	var eventType string
	var dataLines [][]byte
	hasData := false

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil && !(err == io.EOF && len(line) > 0) {
			if err == io.EOF {
				// If we have data, return it before EOF
				if hasData {
					return eventType, bytes.Join(dataLines, []byte("\n")), nil
				}
				return "", nil, io.EOF
			}
			return "", nil, err
		}

		// Trim trailing newline and carriage return
		line = bytes.TrimRight(line, "\r\n")

		// Empty line signals end of event
		if len(line) == 0 {
			if hasData {
				return eventType, bytes.Join(dataLines, []byte("\n")), nil
			}
			eventType = ""
			continue
		}

		// Parse field. A single space after the colon is not part of the value.
		switch {
		case bytes.HasPrefix(line, []byte("data:")):
			data := line[5:]
			if len(data) > 0 && data[0] == ' ' {
				data = data[1:]
			}
			dataLines = append(dataLines, data)
			hasData = true
		case bytes.HasPrefix(line, []byte("event:")):
			eventType = string(bytes.TrimSpace(line[6:]))
		}
		// Ignore other fields (id:, retry:, comments starting with :)
	}
}

// =============================================================================
// STREAMING CHAT
// =============================================================================

// StreamChat performs a streaming chat completion request.
//
// onToken is called synchronously for every non-empty token, in order, as
// soon as the event carrying it has been decoded. The full reply is returned
// when the stream ends, either at the [DONE] sentinel or at end of body.
//
// Events that are not valid JSON are skipped. Connection failures and
// non-success statuses are returned as errors; they are not retried here.
func (c *OpenRouterClient) StreamChat(ctx context.Context, messages []ChatMessage, onToken TokenFunc) (string, error) {
	if !c.IsConfigured() {
		return "", ErrNotConfigured
	}

	url := c.baseURL + "/chat/completions"

	reqBody := ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	c.setHeaders(req)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c.logger.Debug().
		Str("model", c.model).
		Int("messages", len(messages)).
		Str("key", c.keyFingerprint()).
		Msg("stream request")

	startTime := time.Now()
	resp, err := c.httpClient.Do(req)

	// SECURITY: Clear Authorization header immediately after request to prevent logging
	req.Header.Del("Authorization")

	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrConnect, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := readErrorBody(resp)
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("body", string(body)).
			Msg("stream request rejected")
		return "", c.handleErrorResponse(resp.StatusCode, body)
	}

	acc := NewStreamAccumulator(onToken)
	finish, err := c.processStream(ctx, resp.Body, acc)

	c.logger.Debug().
		Str("finish_reason", finish).
		Int("tokens", acc.TokenCount()).
		Dur("first_token", acc.FirstTokenLatency()).
		Dur("total", time.Since(startTime)).
		Msg("stream finished")

	if err != nil {
		return acc.Content(), err
	}
	return acc.Content(), nil
}

// processStream reads the SSE stream and feeds decoded tokens to acc.
// It returns the last finish reason the stream reported, if any.
func (c *OpenRouterClient) processStream(ctx context.Context, body io.Reader, acc *StreamAccumulator) (string, error) {
	reader := NewSSEReader(body)
	var finish string

	for {
		_, data, err := reader.ReadEvent()
		if err != nil {
			if err == io.EOF {
				return finish, nil
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return finish, ctxErr
			}
			// A broken body mid-stream ends the reply with what has arrived;
			// an empty result is then handled like any other empty reply.
			c.logger.Warn().Err(err).Msg("stream read failed")
			return finish, nil
		}

		// Check for [DONE] signal
		if string(bytes.TrimSpace(data)) == DoneSentinel {
			return finish, nil
		}

		var chunk StreamChunk
		if err := json.Unmarshal(data, &chunk); err != nil {
			// Skip malformed chunks
			c.logger.Debug().Err(err).Msg("skipping malformed stream event")
			continue
		}

		acc.Add(chunk.GetContent())
		if r := chunk.GetFinishReason(); r != "" {
			finish = r
		}
	}
}
