// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/contentloop/contentloop/internal/engine"
	"github.com/contentloop/contentloop/internal/optimize"
	"github.com/contentloop/contentloop/internal/store"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/danielgtaylor/huma/v2"
)

const timeLayout = time.RFC3339

func (s *Server) registerRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"system"},
	}, s.handleHealth)

	huma.Register(s.api, huma.Operation{
		OperationID: "list-providers",
		Method:      http.MethodGet,
		Path:        "/api/v1/providers",
		Summary:     "List provider health",
		Tags:        []string{"system"},
	}, s.handleListProviders)

	// Sessions
	huma.Register(s.api, huma.Operation{
		OperationID: "start-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions",
		Summary:     "Start a session and generate the first draft",
		Tags:        []string{"sessions"},
	}, s.handleStartSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "session-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/stats",
		Summary:     "Count live and expired sessions",
		Tags:        []string{"sessions"},
	}, s.handleSessionStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "cleanup-sessions",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/cleanup",
		Summary:     "Remove expired sessions now",
		Tags:        []string{"sessions"},
	}, s.handleCleanupSessions)

	huma.Register(s.api, huma.Operation{
		OperationID: "get-session",
		Method:      http.MethodGet,
		Path:        "/api/v1/sessions/{id}",
		Summary:     "Get session details",
		Tags:        []string{"sessions"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-session",
		Method:        http.MethodDelete,
		Path:          "/api/v1/sessions/{id}",
		Summary:       "Delete a session",
		Tags:          []string{"sessions"},
		DefaultStatus: http.StatusNoContent,
	}, s.handleDeleteSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "submit-feedback",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/feedback",
		Summary:     "Submit feedback and generate a revision",
		Tags:        []string{"sessions"},
	}, s.handleSubmitFeedback)

	huma.Register(s.api, huma.Operation{
		OperationID: "finish-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/finish",
		Summary:     "Accept the current draft",
		Tags:        []string{"sessions"},
	}, s.handleFinishSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "optimize-session",
		Method:      http.MethodPost,
		Path:        "/api/v1/sessions/{id}/optimize",
		Summary:     "Analyze the session's current draft",
		Tags:        []string{"optimization"},
	}, s.handleOptimizeSession)

	// Optimization
	huma.Register(s.api, huma.Operation{
		OperationID: "analyze-content",
		Method:      http.MethodPost,
		Path:        "/api/v1/optimization/analyze",
		Summary:     "Analyze content for engagement",
		Tags:        []string{"optimization"},
	}, s.handleAnalyze)

	huma.Register(s.api, huma.Operation{
		OperationID: "suggest-hashtags",
		Method:      http.MethodPost,
		Path:        "/api/v1/optimization/hashtags",
		Summary:     "Suggest hashtags for content",
		Tags:        []string{"optimization"},
	}, s.handleHashtags)
}

// --- Request/Response types for huma ---

type healthOutput struct {
	Body struct {
		Status string `json:"status" example:"ok" doc:"Health status"`
	}
}

type listProvidersOutput struct {
	Body struct {
		Providers []ProviderHealthDetail `json:"providers"`
	}
}

type sessionIDInput struct {
	ID string `path:"id" doc:"Session identifier"`
}

// sessionResult is the body of every state-changing session operation.
type sessionResult struct {
	SessionID     string `json:"session_id" doc:"Session identifier"`
	State         string `json:"state" enum:"GENERATING,AWAITING_FEEDBACK,COMPLETED,FAILED"`
	Draft         string `json:"draft,omitempty" doc:"Current draft"`
	RevisionCount int    `json:"revision_count" doc:"Accepted revisions"`
	Message       string `json:"message,omitempty" doc:"Status message"`
}

func newSessionResult(res *engine.Result) sessionResult {
	return sessionResult{
		SessionID:     res.SessionID,
		State:         string(res.State),
		Draft:         res.Draft,
		RevisionCount: res.RevisionCount,
		Message:       res.Message,
	}
}

type sessionResultOutput struct {
	Body sessionResult
}

type startSessionInput struct {
	Body struct {
		Brief         string `json:"brief" maxLength:"20000" doc:"Ideas or brief for the content"`
		ContentLength string `json:"content_length,omitempty" doc:"short, medium (default) or long"`
		Style         string `json:"style,omitempty" maxLength:"500" doc:"Tone or style guidance"`
	}
}

type feedbackInput struct {
	ID   string `path:"id"`
	Body struct {
		FeedbackText string `json:"feedback_text" maxLength:"20000" doc:"Revision request, or \"done\" to finish"`
	}
}

type getSessionOutput struct {
	Body SessionView
}

type statsOutput struct {
	Body struct {
		Total      int   `json:"total" doc:"Sessions held"`
		Expired    int   `json:"expired" doc:"Sessions past their TTL awaiting cleanup"`
		Healthy    int   `json:"healthy" doc:"Sessions within their TTL"`
		TTLSeconds int64 `json:"ttl_seconds" doc:"Idle lifetime of a session"`
	}
}

type cleanupOutput struct {
	Body struct {
		Removed int `json:"removed" doc:"Sessions removed"`
	}
}

type analyzeInput struct {
	Body struct {
		Content       string `json:"content" maxLength:"50000" doc:"Content to analyze"`
		Brief         string `json:"brief,omitempty" doc:"Brief the content was written from"`
		ContentLength string `json:"content_length,omitempty" doc:"short, medium or long"`
		Industry      string `json:"industry,omitempty" doc:"Audience industry (default general)"`
	}
}

type optimizeSessionInput struct {
	ID   string `path:"id"`
	Body struct {
		Industry string `json:"industry,omitempty" doc:"Audience industry (default general)"`
	}
}

type reportOutput struct {
	Body *optimize.Report
}

type hashtagsInput struct {
	Body struct {
		Content string `json:"content" maxLength:"50000" doc:"Content to tag"`
		Brief   string `json:"brief,omitempty" doc:"Brief the content was written from"`
		Count   int    `json:"count,omitempty" minimum:"0" maximum:"30" doc:"Number of hashtags (default 8)"`
	}
}

type hashtagsOutput struct {
	Body struct {
		Hashtags []string `json:"hashtags"`
	}
}

// --- Handlers ---

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*healthOutput, error) {
	out := &healthOutput{}
	out.Body.Status = "ok"
	return out, nil
}

func (s *Server) handleListProviders(ctx context.Context, _ *struct{}) (*listProvidersOutput, error) {
	out := &listProvidersOutput{}
	out.Body.Providers = []ProviderHealthDetail{}
	if s.services.providers == nil {
		return out, nil
	}
	for _, st := range s.services.providers.Statuses(ctx) {
		out.Body.Providers = append(out.Body.Providers, newProviderHealthDetail(st))
	}
	return out, nil
}

func (s *Server) handleStartSession(ctx context.Context, input *startSessionInput) (*sessionResultOutput, error) {
	res, err := s.services.refiner.Start(ctx, engine.StartRequest{
		Brief:     input.Body.Brief,
		Length:    input.Body.ContentLength,
		Style:     input.Body.Style,
		ClientKey: clientKey(ctx),
	})
	if err != nil {
		return nil, toAPIError(err, res)
	}
	return &sessionResultOutput{Body: newSessionResult(res)}, nil
}

func (s *Server) handleSubmitFeedback(ctx context.Context, input *feedbackInput) (*sessionResultOutput, error) {
	res, err := s.services.refiner.SubmitFeedback(ctx, engine.FeedbackRequest{
		SessionID: input.ID,
		Text:      input.Body.FeedbackText,
		ClientKey: clientKey(ctx),
	})
	if err != nil {
		return nil, toAPIError(err, res)
	}
	body := newSessionResult(res)
	if res.State == store.StateCompleted {
		// Completion by feedback answers with the message alone; the final
		// draft stays readable through GET and finish.
		body.Draft = ""
	}
	return &sessionResultOutput{Body: body}, nil
}

func (s *Server) handleFinishSession(ctx context.Context, input *sessionIDInput) (*sessionResultOutput, error) {
	res, err := s.services.refiner.Finish(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	return &sessionResultOutput{Body: newSessionResult(res)}, nil
}

func (s *Server) handleGetSession(ctx context.Context, input *sessionIDInput) (*getSessionOutput, error) {
	sess, err := s.services.refiner.Get(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	return &getSessionOutput{Body: newSessionView(sess)}, nil
}

func (s *Server) handleDeleteSession(ctx context.Context, input *sessionIDInput) (*struct{}, error) {
	if err := s.services.refiner.Delete(ctx, input.ID); err != nil {
		return nil, toAPIError(err, nil)
	}
	return nil, nil
}

func (s *Server) handleSessionStats(ctx context.Context, _ *struct{}) (*statsOutput, error) {
	st, err := s.services.sessions.Stats(ctx)
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	out := &statsOutput{}
	out.Body.Total = st.Total
	out.Body.Expired = st.Expired
	out.Body.Healthy = st.Healthy
	out.Body.TTLSeconds = int64(st.TTL / time.Second)
	return out, nil
}

func (s *Server) handleCleanupSessions(ctx context.Context, _ *struct{}) (*cleanupOutput, error) {
	removed, err := s.services.sessions.Reap(ctx)
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	out := &cleanupOutput{}
	out.Body.Removed = removed
	return out, nil
}

func (s *Server) handleAnalyze(ctx context.Context, input *analyzeInput) (*reportOutput, error) {
	report, err := s.services.optimizer.Analyze(ctx, optimize.Input{
		Content:   input.Body.Content,
		Brief:     input.Body.Brief,
		Length:    input.Body.ContentLength,
		Industry:  input.Body.Industry,
		ClientKey: clientKey(ctx),
	})
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	return &reportOutput{Body: report}, nil
}

func (s *Server) handleOptimizeSession(ctx context.Context, input *optimizeSessionInput) (*reportOutput, error) {
	sess, err := s.services.refiner.Get(ctx, input.ID)
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	if strings.TrimSpace(sess.CurrentDraft) == "" {
		return nil, toAPIError(looperr.New(looperr.CodeEngineInvalidState,
			"session has no draft to optimize", looperr.FieldSessionID(sess.ID)), nil)
	}

	report, err := s.services.optimizer.Analyze(ctx, optimize.Input{
		Content:   sess.CurrentDraft,
		Brief:     sess.Brief,
		Length:    string(sess.Constraints.Length),
		Industry:  input.Body.Industry,
		ClientKey: clientKey(ctx),
	})
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	return &reportOutput{Body: report}, nil
}

func (s *Server) handleHashtags(ctx context.Context, input *hashtagsInput) (*hashtagsOutput, error) {
	tags, err := s.services.optimizer.Hashtags(ctx, input.Body.Content, input.Body.Brief, input.Body.Count, clientKey(ctx))
	if err != nil {
		return nil, toAPIError(err, nil)
	}
	out := &hashtagsOutput{}
	out.Body.Hashtags = tags
	return out, nil
}
