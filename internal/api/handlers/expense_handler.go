package handlers

import (
	"net/http"

	"invostock/internal/engine/expenses"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
)

type ExpenseHandler struct {
	svc   *expenses.Service
	audit *audit.Logger
}

func NewExpenseHandler(svc *expenses.Service, auditLog *audit.Logger) *ExpenseHandler {
	return &ExpenseHandler{svc: svc, audit: auditLog}
}

func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	categoryID, err := queryID(r, "category_id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	q := r.URL.Query()
	list, err := h.svc.List(r.Context(), scopeOf(r), expenses.Filter{
		CategoryID: categoryID,
		From:       q.Get("from"),
		To:         q.Get("to"),
	})
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	e, err := h.svc.Get(r.Context(), scopeOf(r), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in expenses.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	e, err := h.svc.Create(r.Context(), scope, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "expense.create", "expense", e.ID, map[string]interface{}{
		"code":   e.Code,
		"amount": e.Amount.String(),
	}))
	writeJSON(w, http.StatusCreated, e)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var in expenses.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	e, err := h.svc.Update(r.Context(), scopeOf(r), id, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "expense.delete", "expense", id, nil))
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}

func (h *ExpenseHandler) Categories(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Categories(r.Context(), scopeOf(r))
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *ExpenseHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var in expenses.CategoryInput
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), scopeOf(r), in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (h *ExpenseHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), scopeOf(r), id); err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}
