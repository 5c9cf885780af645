// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

// Package engine runs the refinement state machine: a session is drafted on
// start, revised once per accepted feedback, and frozen on finish.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/contentloop/contentloop/internal/generate"
	"github.com/contentloop/contentloop/internal/session"
	"github.com/contentloop/contentloop/internal/store"
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// DefaultGenerationTimeout bounds a single draft or revision call.
const DefaultGenerationTimeout = 90 * time.Second

const (
	msgStarted   = "Draft generated, waiting for feedback."
	msgRevised   = "Feedback processed. New draft generated, waiting for more feedback."
	msgCompleted = "Content finalized successfully!"
)

// Generator produces drafts. *generate.Generator satisfies it.
type Generator interface {
	Draft(ctx context.Context, req generate.DraftRequest) (string, error)
	Revise(ctx context.Context, req generate.RevisionRequest) (string, error)
}

// Admitter is consulted before any generator call. *guard.Guard satisfies it.
type Admitter interface {
	Admit(ctx context.Context, key string) error
}

// Screener vets text on both sides of the generator. *safety.Filter
// satisfies it.
type Screener interface {
	ScreenInput(ctx context.Context, text string) (string, error)
	ScreenOutput(ctx context.Context, text string) (string, error)
}

// Config tunes the engine. Zero values take defaults.
type Config struct {
	GenerationTimeout time.Duration
	Terminator        Terminator
	// Screener is optional.
	Screener Screener
}

// StartRequest opens a session.
type StartRequest struct {
	Brief  string
	Length string
	Style  string
	// ClientKey identifies the caller for admission control.
	ClientKey string
}

// FeedbackRequest submits one round of feedback.
type FeedbackRequest struct {
	SessionID string
	Text      string
	ClientKey string
}

// Result is the outcome of a state-changing operation.
type Result struct {
	SessionID     string
	State         store.State
	Draft         string
	RevisionCount int
	Message       string
	LastError     string
}

type Engine struct {
	sessions *session.Store
	gen      Generator
	admit    Admitter
	screen   Screener
	term     Terminator
	timeout  time.Duration
}

// New wires an engine. admit may be nil to disable admission control.
func New(sessions *session.Store, gen Generator, admit Admitter, cfg Config) *Engine {
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultGenerationTimeout
	}
	if cfg.Terminator == nil {
		cfg.Terminator = NewSentinelTerminator(DefaultSentinel)
	}
	return &Engine{
		sessions: sessions,
		gen:      gen,
		admit:    admit,
		screen:   cfg.Screener,
		term:     cfg.Terminator,
		timeout:  cfg.GenerationTimeout,
	}
}

// Start validates the brief, creates the session and generates the first
// draft. A generator failure leaves the session persisted as FAILED; the
// returned Result is non-nil in that case.
func (e *Engine) Start(ctx context.Context, req StartRequest) (*Result, error) {
	brief := strings.TrimSpace(req.Brief)
	if brief == "" {
		return nil, looperr.New(looperr.CodeEngineInvalidInput, "brief must not be empty")
	}
	length := store.LengthMedium
	if strings.TrimSpace(req.Length) != "" {
		l, ok := store.ParseLength(req.Length)
		if !ok {
			return nil, looperr.Errorf(looperr.CodeEngineInvalidInput,
				"content length %q must be one of short, medium, long", req.Length)
		}
		length = l
	}
	brief, err := e.screenInput(ctx, brief)
	if err != nil {
		return nil, err
	}

	if err := e.admitCall(ctx, req.ClientKey); err != nil {
		return nil, err
	}

	id, err := e.sessions.Create(ctx, &store.Session{
		State:       store.StateGenerating,
		Brief:       brief,
		Constraints: store.Constraints{Length: length, Style: strings.TrimSpace(req.Style)},
	})
	if err != nil {
		return nil, err
	}

	// The session exists from here on; it must leave GENERATING whatever
	// happens to the caller.
	bg := context.WithoutCancel(ctx)
	var genErr error
	snap, err := e.sessions.Mutate(bg, id, func(ctx context.Context, sess *store.Session) error {
		draft, err := e.generate(ctx, id, func(ctx context.Context) (string, error) {
			return e.gen.Draft(ctx, generate.DraftRequest{Brief: sess.Brief, Constraints: sess.Constraints})
		})
		if err != nil {
			genErr = err
			sess.State = store.StateFailed
			sess.LastError = err.Error()
			return nil
		}
		sess.State = store.StateAwaitingFeedback
		sess.CurrentDraft = draft
		sess.LastError = ""
		return nil
	})
	if err != nil {
		if derr := e.sessions.Delete(bg, id); derr != nil {
			slog.Error("dropping unstarted session failed", "session_id", id, "error", derr)
		}
		slog.Warn("session start aborted", "session_id", id, "error", err)
		return nil, looperr.With(err, looperr.FieldSessionID(id))
	}

	res := resultOf(snap)
	if genErr != nil {
		slog.Warn("session failed on first draft", "session_id", id, "error", genErr)
		return res, genErr
	}
	res.Message = msgStarted
	slog.Info("session started", "session_id", id, "length", length)
	return res, nil
}

// SubmitFeedback applies one round of feedback. Sentinel feedback finishes
// the session without a generator call and without consuming budget. On a
// generator failure the previous draft is returned alongside the error.
func (e *Engine) SubmitFeedback(ctx context.Context, req FeedbackRequest) (*Result, error) {
	id := strings.TrimSpace(req.SessionID)
	if id == "" {
		return nil, looperr.New(looperr.CodeEngineInvalidInput, "session id must not be empty")
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, looperr.New(looperr.CodeEngineInvalidInput, "feedback must not be empty",
			looperr.FieldSessionID(id))
	}

	if e.term.Terminal(text) {
		return e.Finish(ctx, id)
	}
	text, err := e.screenInput(ctx, text)
	if err != nil {
		return nil, looperr.With(err, looperr.FieldSessionID(id))
	}

	if err := e.admitCall(ctx, req.ClientKey); err != nil {
		return nil, err
	}

	var genErr error
	snap, err := e.sessions.Mutate(ctx, id, func(ctx context.Context, sess *store.Session) error {
		if err := requireAwaiting(sess); err != nil {
			return err
		}

		draft, err := e.generate(ctx, id, func(ctx context.Context) (string, error) {
			return e.gen.Revise(ctx, generate.RevisionRequest{
				Brief:       sess.Brief,
				Constraints: sess.Constraints,
				Draft:       sess.CurrentDraft,
				Feedback:    text,
				History:     sess.Feedback,
			})
		})
		if err != nil {
			// Persist only the error; draft and revision count stay put.
			genErr = err
			sess.LastError = err.Error()
			return nil
		}

		sess.CurrentDraft = draft
		sess.RevisionCount++
		sess.Feedback = append(sess.Feedback, text)
		sess.LastError = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := resultOf(snap)
	if genErr != nil {
		slog.Warn("revision failed", "session_id", id, "error", genErr)
		return res, genErr
	}
	res.Message = msgRevised
	slog.Info("session revised", "session_id", id, "revision_count", res.RevisionCount)
	return res, nil
}

// Finish freezes the current draft.
func (e *Engine) Finish(ctx context.Context, id string) (*Result, error) {
	if strings.TrimSpace(id) == "" {
		return nil, looperr.New(looperr.CodeEngineInvalidInput, "session id must not be empty")
	}

	snap, err := e.sessions.Mutate(ctx, id, func(_ context.Context, sess *store.Session) error {
		if err := requireAwaiting(sess); err != nil {
			return err
		}
		sess.State = store.StateCompleted
		sess.LastError = ""
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := resultOf(snap)
	res.Message = msgCompleted
	slog.Info("session completed", "session_id", id, "revision_count", res.RevisionCount)
	return res, nil
}

// Get returns a snapshot of the session.
func (e *Engine) Get(ctx context.Context, id string) (*store.Session, error) {
	return e.sessions.Get(ctx, id)
}

// Delete removes the session. Unknown ids are not an error.
func (e *Engine) Delete(ctx context.Context, id string) error {
	return e.sessions.Delete(ctx, id)
}

func (e *Engine) screenInput(ctx context.Context, text string) (string, error) {
	if e.screen == nil {
		return text, nil
	}
	return e.screen.ScreenInput(ctx, text)
}

func (e *Engine) admitCall(ctx context.Context, key string) error {
	if e.admit == nil {
		return nil
	}
	return e.admit.Admit(ctx, key)
}

// generate runs fn under the generation timeout and normalizes its failure
// into a generation error. Empty output counts as a failure, as does a
// draft the output screen rejects.
func (e *Engine) generate(ctx context.Context, id string, fn func(context.Context) (string, error)) (string, error) {
	genCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	text, err := fn(genCtx)
	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("generator returned empty content")
	}
	if err == nil && e.screen != nil {
		text, err = e.screen.ScreenOutput(ctx, text)
	}
	if err == nil {
		return strings.TrimSpace(text), nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(genCtx.Err(), context.DeadlineExceeded) {
		return "", looperr.New(looperr.CodeEngineGenerationTimeout,
			"generation timed out after "+e.timeout.String(), looperr.FieldSessionID(id))
	}
	return "", looperr.New(looperr.CodeEngineGenerationFailure,
		"generation failed: "+err.Error(), looperr.FieldSessionID(id))
}

func requireAwaiting(sess *store.Session) error {
	switch sess.State {
	case store.StateAwaitingFeedback:
		return nil
	case store.StateCompleted:
		return looperr.New(looperr.CodeEngineInvalidState, "session already completed",
			looperr.FieldSessionID(sess.ID), looperr.FieldState(string(sess.State)))
	case store.StateFailed:
		return looperr.New(looperr.CodeEngineInvalidState, "session failed; start a new session",
			looperr.FieldSessionID(sess.ID), looperr.FieldState(string(sess.State)))
	default:
		return looperr.New(looperr.CodeEngineInvalidState, "session is not awaiting feedback",
			looperr.FieldSessionID(sess.ID), looperr.FieldState(string(sess.State)))
	}
}

func resultOf(sess *store.Session) *Result {
	return &Result{
		SessionID:     sess.ID,
		State:         sess.State,
		Draft:         sess.CurrentDraft,
		RevisionCount: sess.RevisionCount,
		LastError:     sess.LastError,
	}
}
