// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package server

import (
	"context"

	"github.com/contentloop/contentloop/internal/engine"
	"github.com/contentloop/contentloop/internal/optimize"
	"github.com/contentloop/contentloop/internal/provider"
	"github.com/contentloop/contentloop/internal/session"
	"github.com/contentloop/contentloop/internal/store"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/contentloop/contentloop/pkg/health"
)

// Services holds dependencies injected into route handlers.
// Each field is an interface so subsystems can be mocked in tests.
type Services struct {
	refiner   RefinementService
	sessions  SessionAdminService
	optimizer OptimizationService
	providers ProviderService // optional
}

// NewServices creates a Services instance. providers may be nil, in which
// case the provider list is empty.
func NewServices(refiner RefinementService, sessions SessionAdminService, optimizer OptimizationService, providers ProviderService) (*Services, error) {
	if refiner == nil {
		return nil, looperr.New(looperr.CodeServerConfigInvalid, "refinement service is required")
	}
	if sessions == nil {
		return nil, looperr.New(looperr.CodeServerConfigInvalid, "session admin service is required")
	}
	if optimizer == nil {
		return nil, looperr.New(looperr.CodeServerConfigInvalid, "optimization service is required")
	}
	return &Services{
		refiner:   refiner,
		sessions:  sessions,
		optimizer: optimizer,
		providers: providers,
	}, nil
}

// RefinementService drives the draft/feedback loop. *engine.Engine
// implements it.
type RefinementService interface {
	Start(ctx context.Context, req engine.StartRequest) (*engine.Result, error)
	SubmitFeedback(ctx context.Context, req engine.FeedbackRequest) (*engine.Result, error)
	Finish(ctx context.Context, id string) (*engine.Result, error)
	Get(ctx context.Context, id string) (*store.Session, error)
	Delete(ctx context.Context, id string) error
}

// SessionAdminService exposes store housekeeping. *session.Store
// implements it.
type SessionAdminService interface {
	Stats(ctx context.Context) (session.Stats, error)
	Reap(ctx context.Context) (int, error)
}

// OptimizationService scores content. *optimize.Adapter implements it.
type OptimizationService interface {
	Analyze(ctx context.Context, in optimize.Input) (*optimize.Report, error)
	Hashtags(ctx context.Context, content, brief string, count int, clientKey string) ([]string, error)
}

// ProviderService reports provider health. *provider.Registry implements it.
type ProviderService interface {
	Statuses(ctx context.Context) []provider.ProviderStatus
}

// SessionView is the REST representation of a session.
type SessionView struct {
	SessionID     string   `json:"session_id" doc:"Session identifier"`
	State         string   `json:"state" enum:"GENERATING,AWAITING_FEEDBACK,COMPLETED,FAILED" doc:"Session state"`
	Brief         string   `json:"brief" doc:"Original content brief"`
	ContentLength string   `json:"content_length" doc:"Requested length"`
	Style         string   `json:"style,omitempty" doc:"Requested style"`
	Draft         string   `json:"draft" doc:"Current draft"`
	RevisionCount int      `json:"revision_count" doc:"Accepted revisions"`
	Feedback      []string `json:"feedback_history" doc:"Applied feedback, oldest first"`
	LastError     string   `json:"last_error,omitempty" doc:"Most recent generation failure"`
	CreatedAt     string   `json:"created_at" format:"date-time"`
	UpdatedAt     string   `json:"updated_at" format:"date-time"`
}

func newSessionView(s *store.Session) SessionView {
	feedback := s.Feedback
	if feedback == nil {
		feedback = []string{}
	}
	return SessionView{
		SessionID:     s.ID,
		State:         string(s.State),
		Brief:         s.Brief,
		ContentLength: string(s.Constraints.Length),
		Style:         s.Constraints.Style,
		Draft:         s.CurrentDraft,
		RevisionCount: s.RevisionCount,
		Feedback:      feedback,
		LastError:     s.LastError,
		CreatedAt:     s.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:     s.UpdatedAt.UTC().Format(timeLayout),
	}
}

// ProviderHealthDetail is the REST representation of a provider's health.
type ProviderHealthDetail struct {
	Provider         string `json:"provider" doc:"Provider name"`
	Message          string `json:"message" doc:"Human-readable status message"`
	MetricsAvailable bool   `json:"metrics_available" doc:"Whether the provider reported health metrics"`
	health.Metrics
}

func newProviderHealthDetail(st provider.ProviderStatus) ProviderHealthDetail {
	d := ProviderHealthDetail{
		Provider: st.Provider,
		Message:  st.Message,
	}
	if st.Health != nil {
		d.Metrics = *st.Health
		d.MetricsAvailable = true
	}
	d.Available = st.Available
	return d
}
