package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/entrhq/formai/pkg/types"
)

// API-specific errors.
var (
	// ErrInvalidInput is returned for unreadable or malformed request bodies.
	ErrInvalidInput = errors.New("invalid input")

	// ErrHistoryDisabled is returned by the history endpoint when no store
	// is configured.
	ErrHistoryDisabled = errors.New("history disabled")
)

// ErrorCode represents an API error code.
type ErrorCode string

// Error codes for API responses.
const (
	CodeInvalidInput    ErrorCode = "invalid_input"
	CodeValidation      ErrorCode = "validation_failed"
	CodeHistoryDisabled ErrorCode = "history_disabled"
	CodeInternal        ErrorCode = "internal"
)

// internalMessage is returned instead of the real error for 500 responses.
const internalMessage = "internal server error"

// ErrorDTO is the JSON body of every error response.
type ErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HTTPError represents an error with an associated HTTP status code.
type HTTPError struct {
	StatusCode int
	Code       ErrorCode
	Err        error
}

func (e *HTTPError) Error() string {
	return e.Err.Error()
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// MapError maps a domain error to an HTTPError.
func MapError(err error) *HTTPError {
	if err == nil {
		return nil
	}

	var verr *types.ValidationError
	switch {
	case errors.As(err, &verr):
		return &HTTPError{http.StatusBadRequest, CodeValidation, err}

	case errors.Is(err, ErrInvalidInput):
		return &HTTPError{http.StatusBadRequest, CodeInvalidInput, err}

	case errors.Is(err, ErrHistoryDisabled):
		return &HTTPError{http.StatusNotFound, CodeHistoryDisabled, err}

	default:
		return &HTTPError{http.StatusInternalServerError, CodeInternal, err}
	}
}

// WriteError writes an error response. Internal errors are reported with a
// generic message; callers log the detail.
func WriteError(w http.ResponseWriter, err error) {
	httpErr := MapError(err)
	if httpErr == nil {
		return
	}

	resp := ErrorDTO{
		Code:    string(httpErr.Code),
		Message: httpErr.Error(),
	}
	if httpErr.Code == CodeInternal {
		resp.Message = internalMessage
	}

	writeJSON(w, httpErr.StatusCode, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already sent; an encode error cannot be reported.
	_ = json.NewEncoder(w).Encode(v)
}
