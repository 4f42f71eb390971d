package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invostock/internal/engine/mailer"
	"invostock/internal/pkg/metrics"
	"invostock/internal/platform/config"
	"invostock/internal/platform/database"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := database.NewTestDB(t)
	cfg := &config.Config{
		JWT:       config.JWTConfig{Secret: "router-test-secret", Issuer: "invostock", AccessTokenTTL: time.Hour},
		RateLimit: config.RateLimitConfig{APIReadPerMinute: 1000, APIWritePerMinute: 1000},
		App:       config.AppConfig{FrontendURL: "http://localhost:5173"},
	}
	deps, rt := NewDependencies(db, cfg, metrics.New(), mailer.LogSender{}, zerolog.Nop())
	t.Cleanup(rt.Close)
	return &testServer{t: t, handler: NewRouter(deps)}
}

func (s *testServer) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

type session struct {
	UserID int64
	Token  string
}

func (s *testServer) register(name, email string) session {
	s.t.Helper()
	rr := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": name, "email": email, "password": "tajna-lozinka",
	})
	require.Equal(s.t, http.StatusCreated, rr.Code, rr.Body.String())

	var out struct {
		User struct {
			ID int64 `json:"id"`
		} `json:"user"`
		AccessToken string `json:"access_token"`
	}
	decode(s.t, rr, &out)
	return session{UserID: out.User.ID, Token: out.AccessToken}
}

func TestRouter_AuthFlow(t *testing.T) {
	s := newTestServer(t)
	ana := s.register("Ana Anić", "  Ana@Example.com ")

	rr := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Druga Ana", "email": "ana@example.com", "password": "tajna-lozinka",
	})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "kriva"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ANA@example.com", "password": "tajna-lozinka"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, "/api/auth/me", ana.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var me struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	decode(t, rr, &me)
	assert.Equal(t, "ana@example.com", me.Email)
	assert.Equal(t, "user", me.Role)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/auth/me", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/stats", ana.Token, nil).Code)
}

func TestRouter_InvoicePaymentFlow(t *testing.T) {
	s := newTestServer(t)
	ana := s.register("Ana Anić", "ana@example.com")
	ivo := s.register("Ivo Ivić", "ivo@example.com")

	rr := s.do(http.MethodPost, "/api/contacts", ana.Token, map[string]string{"name": "Kupac d.o.o.", "email": "kupac@example.com"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var contact struct {
		ID int64 `json:"id"`
	}
	decode(t, rr, &contact)

	rr = s.do(http.MethodPost, "/api/invoices", ana.Token, map[string]interface{}{
		"contact_id": contact.ID,
		"issue_date": "2026-10-16",
		"due_date":   "2026-10-30",
		"discount":   "3",
		"items": []map[string]interface{}{
			{"description": "Servis", "quantity": 2, "unit_price": "10"},
			{"description": "Ulje", "quantity": 1, "unit_price": "5"},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var inv struct {
		ID          int64  `json:"id"`
		Code        string `json:"code"`
		FinalAmount string `json:"final_amount"`
		Status      string `json:"status"`
	}
	decode(t, rr, &inv)
	assert.Equal(t, fmt.Sprintf("FK-16102026-U%d-1", ana.UserID), inv.Code)
	assert.Equal(t, "22", inv.FinalAmount)
	assert.Equal(t, "pending", inv.Status)

	invoicePath := fmt.Sprintf("/api/invoices/%d", inv.ID)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, invoicePath, ivo.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, invoicePath+"/payments", ivo.Token, map[string]string{"amount": "5"}).Code)

	rr = s.do(http.MethodPost, invoicePath+"/payments", ana.Token, map[string]string{"amount": "30"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = s.do(http.MethodPost, invoicePath+"/payments", ana.Token, map[string]string{"amount": "22", "method": "transfer"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var res struct {
		InvoiceStatus string `json:"invoice_status"`
		Payment       struct {
			Code string `json:"code"`
		} `json:"payment"`
	}
	decode(t, rr, &res)
	assert.Equal(t, "paid", res.InvoiceStatus)
	assert.True(t, strings.HasPrefix(res.Payment.Code, "UPL-"))

	rr = s.do(http.MethodPost, invoicePath+"/payments", ana.Token, map[string]string{"amount": "1"})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = s.do(http.MethodGet, invoicePath+"/payments", ana.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var list []json.RawMessage
	decode(t, rr, &list)
	assert.Len(t, list, 1)

	rr = s.do(http.MethodGet, "/api/dashboard", ana.Token, nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "invostock_payments_recorded_total 1")
	assert.Contains(t, rr.Body.String(), `invostock_http_requests_total{method="POST",route="/api/invoices",status="201"} 1`)
}

func TestRouter_OrganizationSharing(t *testing.T) {
	s := newTestServer(t)
	owner := s.register("Marko Marić", "marko@example.com")
	member := s.register("Petra Perić", "petra@example.com")

	rr := s.do(http.MethodPost, "/api/organizations", owner.Token, map[string]string{"name": "Radionica d.o.o."})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = s.do(http.MethodPost, "/api/contacts", owner.Token, map[string]string{"name": "Zajednički kupac"})
	require.Equal(t, http.StatusCreated, rr.Code)

	assert.Equal(t, http.StatusForbidden, s.do(http.MethodPost, "/api/organizations/current/invites", member.Token, map[string]string{"email": "marko@example.com"}).Code)

	rr = s.do(http.MethodPost, "/api/organizations/current/invites", owner.Token, map[string]string{"email": "petra@example.com"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var invite struct {
		ID int64 `json:"id"`
	}
	decode(t, rr, &invite)

	rr = s.do(http.MethodGet, "/api/contacts", member.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var contacts []json.RawMessage
	decode(t, rr, &contacts)
	assert.Empty(t, contacts)

	rr = s.do(http.MethodPost, fmt.Sprintf("/api/invites/%d/accept", invite.ID), member.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = s.do(http.MethodGet, "/api/contacts", member.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	decode(t, rr, &contacts)
	assert.Len(t, contacts, 1)

	rr = s.do(http.MethodGet, "/api/organizations/current/members", member.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var members []json.RawMessage
	decode(t, rr, &members)
	assert.Len(t, members, 2)

	rr = s.do(http.MethodGet, "/api/notifications", owner.Token, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var inbox struct {
		Unread int `json:"unread"`
	}
	decode(t, rr, &inbox)
	assert.Equal(t, 1, inbox.Unread)
}

func TestRouter_Errors(t *testing.T) {
	s := newTestServer(t)

	rr := s.do(http.MethodGet, "/api/nepostojece", "", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	var body struct {
		Code string `json:"code"`
	}
	decode(t, rr, &body)
	assert.Equal(t, "NOT_FOUND", body.Code)

	rr = s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	ana := s.register("Ana Anić", "ana@example.com")
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodGet, "/api/invoices/abc", ana.Token, nil).Code)
}
