// Package apierror is the JSON error body returned by the HTTP surface:
// {"code": "...", "details": {...}}. Domain errors keep their code and
// details; anything else is reported as an opaque UnknownInternalError whose
// errorId correlates the response with the server log.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"identgate/internal/httputils"
	"identgate/internal/observability/logging"

	"github.com/google/uuid"
)

// Well-known error codes
const (
	CodeUnknownInternal = "UnknownInternalError"
	CodeUnauthenticated = "Unauthenticated"
)

// ErrorIDKey is the detail carrying the correlation id of an opaque error
const ErrorIDKey = "errorId"

// Error is a client-facing error with a machine-readable code
type Error struct {
	Code    string                     `json:"code"`
	Details map[string]json.RawMessage `json:"details,omitempty"`
}

// New creates an Error without details
func New(code string) *Error {
	return &Error{Code: code}
}

func (e *Error) Error() string {
	return fmt.Sprintf("api error: %s", e.Code)
}

// AddDetail attaches value under key. It fails only when value cannot be
// encoded as JSON, in which case the error is left unchanged.
func (e *Error) AddDetail(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode detail '%s': %w", key, err)
	}
	if e.Details == nil {
		e.Details = make(map[string]json.RawMessage)
	}
	e.Details[key] = raw
	return nil
}

// Extract returns err as an *Error when it is one. Any other error is logged
// at warn level with a fresh id and replaced by an UnknownInternalError
// carrying that id.
func Extract(err error, logger *logging.Logger) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}

	id := uuid.New().String()
	logger.Warn("Unexpected error", "error_id", id, logging.Err(err))

	fallback := New(CodeUnknownInternal)
	// A string always encodes
	_ = fallback.AddDetail(ErrorIDKey, id)
	return fallback
}

// Respond writes err as a 400 Bad Request
func Respond(w http.ResponseWriter, logger *logging.Logger, err error) {
	RespondStatus(w, logger, http.StatusBadRequest, err)
}

// RespondStatus writes err with the given status
func RespondStatus(w http.ResponseWriter, logger *logging.Logger, status int, err error) {
	if writeErr := httputils.WriteJSON(w, status, Extract(err, logger)); writeErr != nil {
		logger.Error("Failed to write error response", logging.Err(writeErr))
	}
}
