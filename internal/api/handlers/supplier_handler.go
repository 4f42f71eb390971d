package handlers

import (
	"net/http"

	"invostock/internal/engine/suppliers"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
)

type SupplierHandler struct {
	repo  *suppliers.Repository
	audit *audit.Logger
}

func NewSupplierHandler(repo *suppliers.Repository, auditLog *audit.Logger) *SupplierHandler {
	return &SupplierHandler{repo: repo, audit: auditLog}
}

func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context(), scopeOf(r), r.URL.Query().Get("search"))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *SupplierHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	c, err := h.repo.Get(r.Context(), scopeOf(r), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in suppliers.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	c, err := h.repo.Create(r.Context(), scope, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "supplier.create", "supplier", c.ID, nil))
	writeJSON(w, http.StatusCreated, c)
}

func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var in suppliers.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	c, err := h.repo.Update(r.Context(), scopeOf(r), id, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	if err := h.repo.Delete(r.Context(), scope, id); err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "supplier.delete", "supplier", id, nil))
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}
