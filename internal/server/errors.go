// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package server

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/contentloop/contentloop/internal/engine"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/danielgtaylor/huma/v2"
)

const defaultRetryAfter = time.Second

// APIError is the JSON error body returned by every operation.
type APIError struct {
	Status    int    `json:"status" doc:"HTTP status code"`
	Title     string `json:"title" doc:"Short status text"`
	Detail    string `json:"detail" doc:"Human-readable explanation"`
	Reason    string `json:"reason" enum:"invalid_input,not_found,invalid_state,busy,generation_failure,rate_limited,internal"`
	SessionID string `json:"session_id,omitempty" doc:"Session the failure belongs to"`
	State     string `json:"state,omitempty" doc:"Session state after the failure"`
	Draft     string `json:"draft,omitempty" doc:"Draft still held by the session"`

	headers http.Header
}

func (e *APIError) Error() string { return e.Detail }

func (e *APIError) GetStatus() int { return e.Status }

func (e *APIError) GetHeaders() http.Header { return e.headers }

func init() {
	// Route huma's own validation and routing errors through the same body.
	huma.NewError = func(status int, msg string, errs ...error) huma.StatusError {
		if status == http.StatusUnprocessableEntity {
			status = http.StatusBadRequest
		}
		details := make([]string, 0, len(errs)+1)
		details = append(details, msg)
		for _, err := range errs {
			if err != nil {
				details = append(details, err.Error())
			}
		}
		return &APIError{
			Status: status,
			Title:  http.StatusText(status),
			Detail: strings.Join(details, ": "),
			Reason: reasonForStatus(status),
		}
	}
}

// toAPIError maps a domain error onto the HTTP error body. res, when
// non-nil, carries the session outcome that accompanied the failure.
func toAPIError(err error, res *engine.Result) error {
	status := looperr.HTTPStatus(err)
	apiErr := &APIError{
		Status: status,
		Title:  http.StatusText(status),
		Detail: err.Error(),
		Reason: looperr.Reason(err),
	}
	if res != nil {
		apiErr.SessionID = res.SessionID
		apiErr.State = string(res.State)
		apiErr.Draft = res.Draft
	} else if id, ok := looperr.FieldsOf(err)["session_id"].(string); ok {
		apiErr.SessionID = id
	}

	if status == http.StatusTooManyRequests || status == http.StatusServiceUnavailable {
		wait, ok := looperr.RetryAfterOf(err)
		if !ok || wait <= 0 {
			wait = defaultRetryAfter
		}
		apiErr.headers = http.Header{"Retry-After": []string{retryAfterSeconds(wait)}}
	}

	switch {
	case status >= http.StatusInternalServerError:
		slog.Warn("request failed", "status", status, "reason", apiErr.Reason,
			"code", looperr.CodeOf(err), "session_id", apiErr.SessionID, "error", err)
	case status == http.StatusTooManyRequests:
		slog.Debug("request throttled", "code", looperr.CodeOf(err))
	}
	return apiErr
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(int(math.Ceil(d.Seconds())))
}

func reasonForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_input"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "invalid_state"
	case http.StatusTooManyRequests:
		return "rate_limited"
	case http.StatusServiceUnavailable:
		return "busy"
	case http.StatusBadGateway, http.StatusGatewayTimeout:
		return "generation_failure"
	default:
		if status >= 400 && status < 500 {
			return "invalid_input"
		}
		return "internal"
	}
}
