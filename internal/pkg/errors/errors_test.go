package errors

import (
	"encoding/json"
	stdErrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorIs(t *testing.T) {
	notFound := NotFound("Račun nije pronađen")
	wrapped := fmt.Errorf("loading invoice: %w", notFound)

	assert.True(t, stdErrors.Is(wrapped, notFound))
	assert.True(t, stdErrors.Is(wrapped, &Error{Code: ErrCodeNotFound}), "empty message matches any message")
	assert.False(t, stdErrors.Is(wrapped, NotFound("Kontakt nije pronađen")))
	assert.False(t, stdErrors.Is(wrapped, Conflict("Račun nije pronađen")))
}

func TestWithDetailsCopies(t *testing.T) {
	base := Invalid("Neispravni podaci")
	detailed := base.WithDetails(map[string]string{"amount": "obavezno polje"})

	assert.Nil(t, base.Details)
	assert.NotNil(t, detailed.Details)
	assert.True(t, stdErrors.Is(detailed, base))
}

func TestAs(t *testing.T) {
	cause := stdErrors.New("constraint failed")
	err := fmt.Errorf("saving: %w", Wrap(ErrCodeConflict, cause, "Zapis već postoji"))

	typed := As(err)
	require.NotNil(t, typed)
	assert.Equal(t, ErrCodeConflict, typed.Code)
	assert.ErrorIs(t, typed, cause)
	assert.Equal(t, "Zapis već postoji: constraint failed", typed.Error())

	assert.Nil(t, As(cause))
}

func TestStatusFor(t *testing.T) {
	tests := map[string]int{
		ErrCodeInvalidInput:      http.StatusBadRequest,
		ErrCodeUnauthorized:      http.StatusUnauthorized,
		ErrCodeForbidden:         http.StatusForbidden,
		ErrCodeNotFound:          http.StatusNotFound,
		ErrCodeConflict:          http.StatusConflict,
		ErrCodeRateLimitExceeded: http.StatusTooManyRequests,
		"SOMETHING_ELSE":         http.StatusInternalServerError,
	}
	for code, want := range tests {
		assert.Equal(t, want, StatusFor(code), code)
	}
}

func TestWrite(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/invoices/1", nil)

	rr := httptest.NewRecorder()
	Write(rr, req, Invalid("Iznos mora biti pozitivan").WithDetails(map[string]string{"amount": "mora biti veće od 0"}))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeInvalidInput, body.Code)
	assert.Equal(t, "Iznos mora biti pozitivan", body.Message)
	assert.Equal(t, "Bad Request", body.Error)
	assert.NotNil(t, body.Details)

	rr = httptest.NewRecorder()
	Write(rr, req, stdErrors.New("database is locked"))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, ErrCodeInternal, body.Code)
	assert.NotContains(t, body.Message, "locked", "internal causes stay out of the response")
}
