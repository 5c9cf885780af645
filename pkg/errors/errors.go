// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeStoreSessionGetNotFound    Code = "store.session.get.not_found"
	CodeStoreSessionCreateConflict Code = "store.session.create.conflict"
	CodeStoreDatabaseFailure       Code = "store.database.failure"
	CodeStoreBackendUnsupported    Code = "store.backend.unsupported"
	CodeStoreInvalidInput          Code = "store.invalid_input"

	CodeSessionNotFound   Code = "session.get.not_found"
	CodeSessionBusy       Code = "session.lane.busy"
	CodeSessionClosed     Code = "session.lane.closed"
	CodeSessionIDFailure  Code = "session.id.failure"
	CodeSessionInvalidArg Code = "session.mutate.invalid_input"

	CodeEngineInvalidInput      Code = "engine.request.invalid_input"
	CodeEngineInvalidState      Code = "engine.session.invalid_state"
	CodeEngineGenerationFailure Code = "engine.generator.generation_failure"
	CodeEngineGenerationTimeout Code = "engine.generator.timeout"

	CodeGuardRateLimited   Code = "guard.admission.rate_limited"
	CodeGuardConfigInvalid Code = "guard.config.invalid_value"

	CodeOptimizeInvalidInput Code = "optimize.request.invalid_input"

	CodeSafetyRuleInvalid   Code = "safety.rule.failure"
	CodeSafetyModeInvalid   Code = "safety.mode.invalid_value"
	CodeSafetyInputBlocked  Code = "safety.input.invalid_input"
	CodeSafetyOutputBlocked Code = "safety.output.generation_failure"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeProviderRequestInvalid  Code = "provider.request.invalid"
	CodeProviderResponseInvalid Code = "provider.response.invalid"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"
	CodeProviderNotFound        Code = "provider.registry.not_found"
	CodeProviderAllUnavailable  Code = "provider.routing.all_unavailable"
	CodeProviderNoDefault       Code = "provider.routing.no_default"
	CodeProviderInvalidModelRef Code = "provider.routing.invalid_model_ref"
	CodeProviderKeyInvalid      Code = "provider.key.invalid"
	CodeProviderKeyCheckFailed  Code = "provider.key.check_failed"

	CodeSecretInvalidInput   Code = "secret.input.invalid"
	CodeSecretNotFound       Code = "secret.get.not_found"
	CodeSecretStoreFailure   Code = "secret.store.failure"
	CodeSecretDeleteFailure  Code = "secret.delete.failure"
	CodeSecretResolveFailure Code = "secret.resolve.failure"

	CodeServerRequestInvalid  Code = "server.request.invalid"
	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLIGatewayNotRunning Code = "cli.gateway.not_running"
	CodeCLIRequestFailure    Code = "cli.request.failure"
	CodeCLIResponseInvalid   Code = "cli.response.invalid"
	CodeCLISetupFailure      Code = "cli.setup.failure"
	CodeCLIInputInvalid      Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldSessionID(value string) Attr {
	return Field("session_id", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldState(value string) Attr {
	return Field("state", value)
}

// FieldRetryAfter records how long a throttled caller should wait.
func FieldRetryAfter(d time.Duration) Attr {
	return Field("retry_after", d)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	if oopsErr.Code() == nil {
		return ""
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

// RetryAfterOf returns the retry hint attached with FieldRetryAfter, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	v, ok := FieldsOf(err)["retry_after"]
	if !ok {
		return 0, false
	}
	d, ok := v.(time.Duration)
	return d, ok
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsConflict(err error) bool {
	return reason(CodeOf(err)) == "conflict"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsInvalidState(err error) bool {
	return reason(CodeOf(err)) == "invalid_state"
}

func IsBusy(err error) bool {
	return reason(CodeOf(err)) == "busy"
}

func IsRateLimited(err error) bool {
	return reason(CodeOf(err)) == "rate_limited"
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

// IsGenerationFailure reports whether err is a failed or timed out generator call.
func IsGenerationFailure(err error) bool {
	r := reason(CodeOf(err))
	return r == "generation_failure" || HasCode(err, CodeEngineGenerationTimeout)
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

// Reason collapses an error into the condition names exposed at the boundary.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case IsInvalidInput(err):
		return "invalid_input"
	case IsNotFound(err):
		return "not_found"
	case IsInvalidState(err), IsConflict(err):
		return "invalid_state"
	case IsBusy(err):
		return "busy"
	case IsRateLimited(err):
		return "rate_limited"
	case IsGenerationFailure(err), IsUpstreamFailure(err):
		return "generation_failure"
	default:
		return "internal"
	}
}

func HTTPStatus(err error) int {
	switch {
	case IsNotFound(err):
		return http.StatusNotFound
	case IsInvalidState(err), IsConflict(err):
		return http.StatusConflict
	case IsInvalidInput(err):
		return http.StatusBadRequest
	case IsRateLimited(err):
		return http.StatusTooManyRequests
	case IsBusy(err):
		return http.StatusServiceUnavailable
	case IsTimeout(err):
		return http.StatusGatewayTimeout
	case IsGenerationFailure(err), IsUpstreamFailure(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
