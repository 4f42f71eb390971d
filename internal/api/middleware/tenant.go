package middleware

import (
	"net/http"

	"github.com/rs/zerolog"

	"invostock/internal/pkg/errors"
	"invostock/internal/platform/repositories"
	"invostock/internal/platform/tenant"
)

// TenantMiddleware resolves the request scope from the authenticated
// user's current row. Membership changes apply on the next request.
type TenantMiddleware struct {
	users *repositories.UserRepository
	orgs  *repositories.OrganizationRepository
}

func NewTenantMiddleware(users *repositories.UserRepository, orgs *repositories.OrganizationRepository) *TenantMiddleware {
	return &TenantMiddleware{users: users, orgs: orgs}
}

func (m *TenantMiddleware) Handle(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Korisnik nije prijavljen", nil)
			return
		}

		user, err := m.users.GetByID(r.Context(), claims.UserID)
		if err != nil {
			errors.Write(w, r, err)
			return
		}
		if user == nil {
			errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Korisnik ne postoji", nil)
			return
		}
		if !user.IsActive {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Korisnički račun je deaktiviran", nil)
			return
		}

		var scope tenant.Scope
		switch {
		case user.Role == tenant.RoleSystemAdmin:
			scope = tenant.Individual(user.ID)
			scope.Role = tenant.RoleSystemAdmin
		case user.OrganizationID != nil:
			org, err := m.orgs.GetByID(r.Context(), *user.OrganizationID)
			if err != nil {
				errors.Write(w, r, err)
				return
			}
			if org == nil || !org.IsActive {
				errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Organizacija je deaktivirana", nil)
				return
			}
			scope = tenant.Organization(user.ID, org.ID, user.OrgRole)
		default:
			scope = tenant.Individual(user.ID)
		}

		ctx := tenant.NewContext(r.Context(), scope)
		logger := zerolog.Ctx(ctx).With().Int64("user_id", user.ID).Str("owner", scope.OwnerCode()).Logger()
		next(w, r.WithContext(logger.WithContext(ctx)))
	}
}

// RequireSystemAdmin lets only system administrators through.
func RequireSystemAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := tenant.FromContext(r.Context())
		if !ok || !scope.IsSystemAdmin() {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Pristup dopušten samo administratoru sustava", nil)
			return
		}
		next(w, r)
	}
}

// RequireOrganization lets through members of an organization.
func RequireOrganization(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := tenant.FromContext(r.Context())
		if !ok || !scope.IsOrganization() {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Korisnik nije član organizacije", nil)
			return
		}
		next(w, r)
	}
}

// RequireOrgAdmin lets through administrators of the caller's organization.
func RequireOrgAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		scope, ok := tenant.FromContext(r.Context())
		if !ok || !scope.IsOrgAdmin() {
			errors.WriteError(w, http.StatusForbidden, errors.ErrCodeForbidden, "Pristup dopušten samo administratoru organizacije", nil)
			return
		}
		next(w, r)
	}
}
