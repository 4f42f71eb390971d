package handlers

import (
	"net/http"

	"invostock/internal/engine/packages"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
)

type PackageHandler struct {
	svc   *packages.Service
	audit *audit.Logger
}

func NewPackageHandler(svc *packages.Service, auditLog *audit.Logger) *PackageHandler {
	return &PackageHandler{svc: svc, audit: auditLog}
}

func (h *PackageHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context(), scopeOf(r), r.URL.Query().Get("status"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PackageHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	p, err := h.svc.Get(r.Context(), scopeOf(r), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PackageHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in packages.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	p, err := h.svc.Create(r.Context(), scope, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "package.create", "package", p.ID, map[string]interface{}{
		"code": p.Code,
	}))
	writeJSON(w, http.StatusCreated, p)
}

func (h *PackageHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var in packages.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	p, err := h.svc.Update(r.Context(), scopeOf(r), id, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *PackageHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var in packages.StatusInput
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	p, err := h.svc.UpdateStatus(r.Context(), scope, id, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "package.status", "package", id, map[string]interface{}{
		"status": p.Status,
	}))
	writeJSON(w, http.StatusOK, p)
}

func (h *PackageHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	if err := h.svc.Delete(r.Context(), scope, id); err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "package.delete", "package", id, nil))
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}
