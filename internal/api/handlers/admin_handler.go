package handlers

import (
	"net/http"
	"strconv"

	"invostock/internal/engine/analytics"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
	"invostock/internal/platform/models"
	"invostock/internal/platform/repositories"
	"invostock/internal/platform/tenant"
)

var (
	errSelfChange       = errors.Invalid("Ne možete mijenjati vlastiti račun")
	errInvalidOrgFilter = errors.Invalid("Neispravan identifikator organizacije")
	errRoleInOrg        = errors.Conflict("Uloga člana organizacije mijenja se kroz organizaciju")
)

type AdminHandler struct {
	userRepo  *repositories.UserRepository
	orgRepo   *repositories.OrganizationRepository
	analytics *analytics.Service
	audit     *audit.Logger
}

func NewAdminHandler(userRepo *repositories.UserRepository, orgRepo *repositories.OrganizationRepository, stats *analytics.Service, auditLog *audit.Logger) *AdminHandler {
	return &AdminHandler{userRepo: userRepo, orgRepo: orgRepo, analytics: stats, audit: auditLog}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.AdminStats(r.Context())
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.UserFilter{Role: q.Get("role"), Search: q.Get("search")}

	if raw := q.Get("organization_id"); raw != "" {
		orgID, ok := tenant.ParseOrgID(raw)
		if !ok {
			errors.Write(w, r, errInvalidOrgFilter)
			return
		}
		filter.OrganizationID = &orgID
	}
	if raw := q.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			errors.Write(w, r, errors.Invalid("Neispravna vrijednost filtra active"))
			return
		}
		filter.Active = &active
	}

	users, err := h.userRepo.List(r.Context(), filter)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type UpdateUserRequest struct {
	Role     string `json:"role" validate:"omitempty,oneof=user systemadmin"`
	IsActive *bool  `json:"is_active"`
}

func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var req UpdateUserRequest
	if err := validator.Decode(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	scope := scopeOf(r)
	if id == scope.UserID {
		errors.Write(w, r, errSelfChange)
		return
	}

	user, err := h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if user == nil {
		errors.Write(w, r, repositories.ErrNotFound)
		return
	}

	if req.Role != "" && req.Role != user.Role {
		if user.OrganizationID != nil {
			errors.Write(w, r, errRoleInOrg)
			return
		}
		if err := h.userRepo.UpdateRole(r.Context(), id, req.Role); err != nil {
			errors.Write(w, r, err)
			return
		}
	}
	if req.IsActive != nil {
		if err := h.userRepo.SetActive(r.Context(), id, *req.IsActive); err != nil {
			errors.Write(w, r, err)
			return
		}
	}

	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "admin.user_update", "user", id, map[string]interface{}{
		"role":      req.Role,
		"is_active": req.IsActive,
	}))

	user, err = h.userRepo.GetByID(r.Context(), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AdminHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.orgRepo.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orgs)
}

type UpdateOrganizationStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *AdminHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var req UpdateOrganizationStatusRequest
	if err := validator.Decode(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	if err := h.orgRepo.SetActive(r.Context(), id, *req.IsActive); err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scopeOf(r), audit.FromRequest(r, "admin.organization_update", "organization", id, map[string]interface{}{
		"is_active": *req.IsActive,
	}))

	org, err := h.orgRepo.GetByID(r.Context(), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, org)
}
