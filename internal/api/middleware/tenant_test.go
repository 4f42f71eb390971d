package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apiContext "invostock/internal/api/context"
	"invostock/internal/platform/auth"
	"invostock/internal/platform/database"
	"invostock/internal/platform/repositories"
	"invostock/internal/platform/tenant"
)

func withClaims(r *http.Request, userID int64) *http.Request {
	ctx := context.WithValue(r.Context(), apiContext.Claims, &auth.Claims{UserID: userID})
	return r.WithContext(ctx)
}

func TestTenantMiddleware(t *testing.T) {
	db := database.NewTestDB(t)
	users := repositories.NewUserRepository(db)
	orgs := repositories.NewOrganizationRepository(db)
	mw := NewTenantMiddleware(users, orgs)

	solo := database.CreateTestUser(t, db, "solo@example.com")
	member := database.CreateTestUser(t, db, "clan@example.com")
	orgID := database.CreateTestOrganization(t, db, "Obrt d.o.o.")
	database.AddTestMember(t, db, member, orgID, tenant.OrgRoleAdmin)

	serve := func(r *http.Request) (*httptest.ResponseRecorder, tenant.Scope) {
		var got tenant.Scope
		rr := httptest.NewRecorder()
		mw.Handle(func(w http.ResponseWriter, r *http.Request) {
			got, _ = tenant.FromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})(rr, r)
		return rr, got
	}

	t.Run("individual user", func(t *testing.T) {
		rr, scope := serve(withClaims(httptest.NewRequest(http.MethodGet, "/", nil), solo))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, solo, scope.UserID)
		assert.False(t, scope.IsOrganization())
	})

	t.Run("organization member", func(t *testing.T) {
		rr, scope := serve(withClaims(httptest.NewRequest(http.MethodGet, "/", nil), member))
		require.Equal(t, http.StatusOK, rr.Code)
		require.NotNil(t, scope.OrganizationID)
		assert.Equal(t, orgID, *scope.OrganizationID)
		assert.True(t, scope.IsOrgAdmin())
	})

	t.Run("missing claims", func(t *testing.T) {
		rr, _ := serve(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("unknown user", func(t *testing.T) {
		rr, _ := serve(withClaims(httptest.NewRequest(http.MethodGet, "/", nil), 9999))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("deactivated organization", func(t *testing.T) {
		require.NoError(t, orgs.SetActive(context.Background(), orgID, false))
		defer orgs.SetActive(context.Background(), orgID, true)

		rr, _ := serve(withClaims(httptest.NewRequest(http.MethodGet, "/", nil), member))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})

	t.Run("deactivated user", func(t *testing.T) {
		require.NoError(t, users.SetActive(context.Background(), solo, false))

		rr, _ := serve(withClaims(httptest.NewRequest(http.MethodGet, "/", nil), solo))
		assert.Equal(t, http.StatusForbidden, rr.Code)
	})
}

func TestTenantMiddleware_DatabaseError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM users WHERE id = ?").
		WithArgs(int64(7)).
		WillReturnError(errors.New("disk I/O error"))

	mw := NewTenantMiddleware(repositories.NewUserRepository(db), repositories.NewOrganizationRepository(db))
	rr := httptest.NewRecorder()
	mw.Handle(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler should not be called")
	})(rr, withClaims(httptest.NewRequest(http.MethodGet, "/", nil), 7))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequireGuards(t *testing.T) {
	orgID := int64(3)
	ok := func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }
	admin := tenant.Individual(1)
	admin.Role = tenant.RoleSystemAdmin

	tests := []struct {
		name  string
		guard func(http.HandlerFunc) http.HandlerFunc
		scope tenant.Scope
		want  int
	}{
		{"system admin passes", RequireSystemAdmin, admin, http.StatusOK},
		{"user is not system admin", RequireSystemAdmin, tenant.Individual(1), http.StatusForbidden},
		{"member passes organization", RequireOrganization, tenant.Organization(1, orgID, tenant.OrgRoleMember), http.StatusOK},
		{"individual is not member", RequireOrganization, tenant.Individual(1), http.StatusForbidden},
		{"org admin passes", RequireOrgAdmin, tenant.Organization(1, orgID, tenant.OrgRoleAdmin), http.StatusOK},
		{"member is not org admin", RequireOrgAdmin, tenant.Organization(1, orgID, tenant.OrgRoleMember), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(tenant.NewContext(req.Context(), tt.scope))
			rr := httptest.NewRecorder()
			tt.guard(ok)(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}
