package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
	"invostock/internal/platform/auth"
	"invostock/internal/platform/models"
	"invostock/internal/platform/repositories"
	"invostock/internal/platform/tenant"
)

var (
	errBadCredentials  = errors.New(errors.ErrCodeUnauthorized, "Neispravan e-mail ili lozinka")
	errInactiveAccount = errors.Forbidden("Korisnički račun je deaktiviran")
	errWrongPassword   = errors.Invalid("Trenutna lozinka nije ispravna")
)

type AuthHandler struct {
	userRepo *repositories.UserRepository
	orgRepo  *repositories.OrganizationRepository
	tokenSvc *auth.TokenService
	audit    *audit.Logger
}

func NewAuthHandler(userRepo *repositories.UserRepository, orgRepo *repositories.OrganizationRepository, tokenSvc *auth.TokenService, auditLog *audit.Logger) *AuthHandler {
	return &AuthHandler{
		userRepo: userRepo,
		orgRepo:  orgRepo,
		tokenSvc: tokenSvc,
		audit:    auditLog,
	}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := h.tokenSvc.GenerateAccessToken(user.ID, user.Role, user.Email)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, status, AuthResponse{User: user, AccessToken: token})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}
	req.Email = validator.NormalizeEmail(req.Email)
	if err := validator.Struct(req); err != nil {
		errors.Write(w, r, err)
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		errors.Write(w, r, err)
		return
	}

	user := &models.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		Role:         tenant.RoleUser,
	}
	if err := h.userRepo.Create(r.Context(), user); err != nil {
		errors.Write(w, r, err)
		return
	}

	zerolog.Ctx(r.Context()).Info().Int64("user_id", user.ID).Msg("user registered")
	h.audit.Log(r.Context(), tenant.Individual(user.ID), audit.FromRequest(r, "user.register", "user", user.ID, nil))
	h.respondWithToken(w, r, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := validator.Decode(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	user, err := h.userRepo.GetByEmail(r.Context(), validator.NormalizeEmail(req.Email))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.Password) {
		errors.Write(w, r, errBadCredentials)
		return
	}
	if !user.IsActive {
		errors.Write(w, r, errInactiveAccount)
		return
	}

	if err := h.attachOrganization(r, user); err != nil {
		errors.Write(w, r, err)
		return
	}
	h.respondWithToken(w, r, http.StatusOK, user)
}

func (h *AuthHandler) attachOrganization(r *http.Request, user *models.User) error {
	if user.OrganizationID == nil {
		return nil
	}
	org, err := h.orgRepo.GetByID(r.Context(), *user.OrganizationID)
	if err != nil {
		return err
	}
	user.Organization = org
	return nil
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.userRepo.GetByID(r.Context(), scopeOf(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if user == nil {
		errors.Write(w, r, repositories.ErrNotFound)
		return
	}
	if err := h.attachOrganization(r, user); err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

type UpdateProfileRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
}

func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req UpdateProfileRequest
	if err := validator.DecodeJSON(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}
	req.Email = validator.NormalizeEmail(req.Email)
	if err := validator.Struct(req); err != nil {
		errors.Write(w, r, err)
		return
	}

	scope := scopeOf(r)
	if err := h.userRepo.UpdateProfile(r.Context(), scope.UserID, req.Name, req.Email); err != nil {
		errors.Write(w, r, err)
		return
	}
	h.Me(w, r)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req ChangePasswordRequest
	if err := validator.Decode(r, &req); err != nil {
		errors.Write(w, r, err)
		return
	}

	scope := scopeOf(r)
	user, err := h.userRepo.GetByID(r.Context(), scope.UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, req.CurrentPassword) {
		errors.Write(w, r, errWrongPassword)
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if err := h.userRepo.UpdatePassword(r.Context(), user.ID, hash); err != nil {
		errors.Write(w, r, err)
		return
	}

	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "user.password_change", "user", user.ID, nil))
	writeJSON(w, http.StatusOK, map[string]bool{"updated": true})
}
