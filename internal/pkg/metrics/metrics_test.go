package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body, err := io.ReadAll(rr.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetrics(t *testing.T) {
	m := New()

	m.ObserveRequest("/api/invoices", http.MethodPost, http.StatusCreated, 15*time.Millisecond)
	m.ObserveRequest("", http.MethodGet, http.StatusNotFound, time.Millisecond)
	m.DocumentIssued("invoice")
	m.DocumentIssued("invoice")
	m.DocumentIssued("payment")
	m.PaymentRecorded()

	out := scrape(t, m)
	assert.Contains(t, out, `invostock_http_requests_total{method="POST",route="/api/invoices",status="201"} 1`)
	assert.Contains(t, out, `invostock_http_requests_total{method="GET",route="unmatched",status="404"} 1`)
	assert.Contains(t, out, `invostock_document_codes_issued_total{kind="invoice"} 2`)
	assert.Contains(t, out, `invostock_document_codes_issued_total{kind="payment"} 1`)
	assert.Contains(t, out, "invostock_payments_recorded_total 1")
	assert.Contains(t, out, "go_goroutines")
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveRequest("/", http.MethodGet, http.StatusOK, time.Millisecond)
		m.DocumentIssued("invoice")
		m.PaymentRecorded()
	})
	assert.NotNil(t, m.Handler())
}
