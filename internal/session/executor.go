// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jeranaias/kidsai/internal/cloud"
	"github.com/jeranaias/kidsai/internal/model"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// DefaultMaxAttempts is the number of tries per turn before giving up on an empty reply.
	DefaultMaxAttempts = 3

	// DefaultBackoff is the fixed wait before every attempt after the first.
	// Free-tier models often answer the first request of a cold start with nothing.
	DefaultBackoff = 1500 * time.Millisecond
)

var (
	// ErrExhausted indicates every attempt returned an empty reply.
	ErrExhausted = errors.New("no reply after all attempts")

	// ErrEmptyQuestion indicates RunTurn was called with blank input.
	ErrEmptyQuestion = errors.New("empty question")
)

// =============================================================================
// STATE
// =============================================================================

// State is the outcome state of a turn.
type State int

const (
	// StateAttempting means attempts are still being made.
	StateAttempting State = iota
	// StateSucceeded means a non-empty reply was obtained.
	StateSucceeded
	// StateFailed means the turn was rolled back.
	StateFailed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// Streamer issues one streamed chat request. It is satisfied by *cloud.OpenRouterClient.
type Streamer interface {
	StreamChat(ctx context.Context, messages []cloud.ChatMessage, onToken cloud.TokenFunc) (string, error)
}

// Notifier receives completed question/answer pairs. Notify must not block
// the caller and must not keep references into the conversation.
type Notifier interface {
	Notify(question, answer string)
}

// Observer is told about progress so a front end can render it.
// All methods are called on the goroutine running RunTurn, in order.
type Observer interface {
	// AttemptStarted is called before each request; attempt counts from 0.
	AttemptStarted(attempt int)
	// Token is called for each streamed token.
	Token(token string)
	// AttemptEmpty is called when an attempt ends with no text.
	AttemptEmpty(attempt int)
	// AttemptFailed is called when an attempt ends with an error.
	AttemptFailed(attempt int, err error)
	// Succeeded is called once the reply has been committed.
	Succeeded(reply string)
	// Exhausted is called when every attempt came back empty.
	Exhausted()
}

// NopObserver ignores all events.
type NopObserver struct{}

func (NopObserver) AttemptStarted(int)       {}
func (NopObserver) Token(string)             {}
func (NopObserver) AttemptEmpty(int)         {}
func (NopObserver) AttemptFailed(int, error) {}
func (NopObserver) Succeeded(string)         {}
func (NopObserver) Exhausted()               {}

type nopNotifier struct{}

func (nopNotifier) Notify(string, string) {}

// =============================================================================
// EXECUTOR
// =============================================================================

// Result describes a finished turn.
type Result struct {
	TurnID   string
	Question string
	Reply    string
	Attempts int
	State    State
}

// Executor runs user turns: it appends the question, streams a reply with
// retries on empty output, and then commits or rolls back the turn.
//
// An Executor is not safe for concurrent use; turns are strictly sequential.
type Executor struct {
	conv        *model.Conversation
	streamer    Streamer
	notifier    Notifier
	observer    Observer
	maxAttempts int
	backoff     time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      zerolog.Logger
}

// NewExecutor creates an executor over the given conversation.
func NewExecutor(conv *model.Conversation, streamer Streamer) *Executor {
	return &Executor{
		conv:        conv,
		streamer:    streamer,
		notifier:    nopNotifier{},
		observer:    NopObserver{},
		maxAttempts: DefaultMaxAttempts,
		backoff:     DefaultBackoff,
		sleep:       sleepContext,
		logger:      zerolog.Nop(),
	}
}

// WithNotifier sets where completed turns are handed off.
func (e *Executor) WithNotifier(n Notifier) *Executor {
	if n == nil {
		n = nopNotifier{}
	}
	e.notifier = n
	return e
}

// WithObserver sets the progress observer.
func (e *Executor) WithObserver(o Observer) *Executor {
	if o == nil {
		o = NopObserver{}
	}
	e.observer = o
	return e
}

// WithMaxAttempts sets the attempt budget. Values below 1 are treated as 1.
func (e *Executor) WithMaxAttempts(n int) *Executor {
	if n < 1 {
		n = 1
	}
	e.maxAttempts = n
	return e
}

// WithBackoff sets the fixed wait before retries.
func (e *Executor) WithBackoff(d time.Duration) *Executor {
	if d < 0 {
		d = 0
	}
	e.backoff = d
	return e
}

// WithLogger sets the diagnostics logger.
func (e *Executor) WithLogger(logger zerolog.Logger) *Executor {
	e.logger = logger.With().Str("component", "turn").Logger()
	return e
}

// RunTurn runs a single user turn to completion.
//
// The question is appended and the outbound message list is materialized
// once; every attempt sends that same list. Only empty replies are retried,
// after a fixed backoff. Any error fails the turn at once. On failure the
// question is retracted, so the conversation is left as if it was never asked.
func (e *Executor) RunTurn(ctx context.Context, question string) (Result, error) {
	if question == "" {
		return Result{State: StateFailed}, ErrEmptyQuestion
	}

	res := Result{
		TurnID:   uuid.New().String(),
		Question: question,
		State:    StateAttempting,
	}
	log := e.logger.With().Str("turn_id", res.TurnID).Logger()

	e.conv.AppendUser(question)
	messages := cloud.FromTurns(e.conv.Materialize())

	reply, attempts, err := e.attempt(ctx, log, messages)
	res.Attempts = attempts

	if err != nil {
		e.conv.RetractLastUserTurn()
		res.State = StateFailed
		if errors.Is(err, ErrExhausted) {
			log.Warn().Int("attempts", attempts).Msg("no reply, turn rolled back")
			e.observer.Exhausted()
		} else {
			log.Error().Err(err).Int("attempts", attempts).Msg("turn failed, rolled back")
		}
		return res, err
	}

	e.conv.AppendAssistant(reply)
	res.Reply = reply
	res.State = StateSucceeded
	log.Info().
		Int("attempts", attempts).
		Int("reply_bytes", len(reply)).
		Int("history", e.conv.Len()).
		Msg("turn committed")

	e.observer.Succeeded(reply)
	e.notifier.Notify(question, reply)
	return res, nil
}

// attempt is the bounded retry loop. It returns the reply, the number of
// attempts made and either nil, ErrExhausted or the first error seen.
func (e *Executor) attempt(ctx context.Context, log zerolog.Logger, messages []cloud.ChatMessage) (string, int, error) {
	for n := 0; n < e.maxAttempts; n++ {
		if n > 0 {
			if err := e.sleep(ctx, e.backoff); err != nil {
				return "", n, err
			}
		}

		e.observer.AttemptStarted(n)
		reply, err := e.streamer.StreamChat(ctx, messages, e.observer.Token)
		if err != nil {
			e.observer.AttemptFailed(n, err)
			return "", n + 1, fmt.Errorf("attempt %d: %w", n+1, err)
		}
		if reply != "" {
			return reply, n + 1, nil
		}

		log.Debug().Int("attempt", n+1).Msg("empty reply")
		e.observer.AttemptEmpty(n)
	}
	return "", e.maxAttempts, ErrExhausted
}

// sleepContext waits for d or until ctx is done.
func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
