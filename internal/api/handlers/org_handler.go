package handlers

import (
	"net/http"

	"invostock/internal/engine/notifications"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
	"invostock/internal/platform/models"
	"invostock/internal/platform/repositories"
	"invostock/internal/platform/tenant"
)

var errAdminCannotJoin = errors.Invalid("Administrator sustava ne može osnovati organizaciju")

type OrgHandler struct {
	orgRepo       *repositories.OrganizationRepository
	userRepo      *repositories.UserRepository
	notifications *notifications.Service
	audit         *audit.Logger
}

func NewOrgHandler(orgRepo *repositories.OrganizationRepository, userRepo *repositories.UserRepository, n *notifications.Service, auditLog *audit.Logger) *OrgHandler {
	return &OrgHandler{orgRepo: orgRepo, userRepo: userRepo, notifications: n, audit: auditLog}
}

type OrganizationRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=500"`
}

// Create founds an organization; the caller becomes its admin.
func (h *OrgHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req OrganizationRequest
	if err := validator.Decode(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	scope := scopeOf(r)
	if scope.IsSystemAdmin() {
		errors.Write(w, r, errAdminCannotJoin)
		return
	}

	org := &models.Organization{Name: req.Name, Email: validator.NormalizeEmail(req.Email), Address: req.Address}
	if err := h.orgRepo.CreateForOwner(r.Context(), org, scope.UserID); err != nil {
		errors.Write(w, r, err)
		return
	}

	h.audit.Log(r.Context(), tenant.Organization(scope.UserID, org.ID, tenant.OrgRoleAdmin),
		audit.FromRequest(r, "organization.create", "organization", org.ID, nil))
	org.MemberCount = 1
	writeJSON(w, http.StatusCreated, org)
}

func (h *OrgHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	org, err := h.orgRepo.GetByID(r.Context(), *scopeOf(r).OrganizationID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if org == nil {
		errors.Write(w, r, repositories.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, org)
}

func (h *OrgHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req OrganizationRequest
	if err := validator.Decode(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	scope := scopeOf(r)
	org := &models.Organization{
		ID:      *scope.OrganizationID,
		Name:    req.Name,
		Email:   validator.NormalizeEmail(req.Email),
		Address: req.Address,
	}
	if err := h.orgRepo.Update(r.Context(), org); err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "organization.update", "organization", org.ID, nil))
	h.GetCurrent(w, r)
}

func (h *OrgHandler) Members(w http.ResponseWriter, r *http.Request) {
	members, err := h.userRepo.ListMembers(r.Context(), *scopeOf(r).OrganizationID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, members)
}

func (h *OrgHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}

	scope := scopeOf(r)
	if err := h.userRepo.LeaveOrganization(r.Context(), *scope.OrganizationID, id); err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "organization.member_remove", "user", id, nil))
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}

func (h *OrgHandler) Leave(w http.ResponseWriter, r *http.Request) {
	scope := scopeOf(r)
	if err := h.userRepo.LeaveOrganization(r.Context(), *scope.OrganizationID, scope.UserID); err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "organization.leave", "user", scope.UserID, nil))
	writeJSON(w, http.StatusOK, map[string]bool{"left": true})
}

func (h *OrgHandler) Invite(w http.ResponseWriter, r *http.Request) {
	var req notifications.InviteInput
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	scope := scopeOf(r)
	invite, err := h.notifications.Invite(r.Context(), scope, req)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "organization.invite", "invite", invite.ID, map[string]interface{}{
		"email": invite.UserEmail,
	}))
	writeJSON(w, http.StatusCreated, invite)
}

func (h *OrgHandler) Invites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.notifications.OrganizationInvites(r.Context(), *scopeOf(r).OrganizationID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}
