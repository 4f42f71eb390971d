package errors

import (
	"encoding/json"
	stdErrors "errors"
	"net/http"

	"github.com/rs/zerolog"
)

type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

const (
	ErrCodeInvalidInput      = "INVALID_INPUT"
	ErrCodeUnauthorized      = "UNAUTHORIZED"
	ErrCodeForbidden         = "FORBIDDEN"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeConflict          = "CONFLICT"
	ErrCodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrCodeInternal          = "INTERNAL_ERROR"
)

var statusByCode = map[string]int{
	ErrCodeInvalidInput:      http.StatusBadRequest,
	ErrCodeUnauthorized:      http.StatusUnauthorized,
	ErrCodeForbidden:         http.StatusForbidden,
	ErrCodeNotFound:          http.StatusNotFound,
	ErrCodeConflict:          http.StatusConflict,
	ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
	ErrCodeInternal:          http.StatusInternalServerError,
}

// Error is an application error whose code decides the HTTP status and whose
// message is safe to show to the client.
type Error struct {
	Code    string
	Message string
	Details interface{}
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same code, so sentinel values work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && (t.Message == "" || t.Message == e.Message)
}

// WithDetails returns a copy carrying details for the response body.
func (e *Error) WithDetails(details interface{}) *Error {
	cp := *e
	cp.Details = details
	return &cp
}

func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

func Wrap(code string, err error, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func Invalid(message string) *Error   { return New(ErrCodeInvalidInput, message) }
func NotFound(message string) *Error  { return New(ErrCodeNotFound, message) }
func Conflict(message string) *Error  { return New(ErrCodeConflict, message) }
func Forbidden(message string) *Error { return New(ErrCodeForbidden, message) }

// As extracts the first *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func StatusFor(code string) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    code,
		Details: details,
	})
}

// Write maps err onto the error envelope. Untyped and internal errors are
// logged with the request logger and answered with a generic message.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	typed := As(err)
	if typed == nil || typed.Code == ErrCodeInternal {
		zerolog.Ctx(r.Context()).Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		WriteError(w, http.StatusInternalServerError, ErrCodeInternal, "Došlo je do pogreške na poslužitelju", nil)
		return
	}

	WriteError(w, StatusFor(typed.Code), typed.Code, typed.Message, typed.Details)
}
