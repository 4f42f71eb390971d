package handlers

import (
	"net/http"

	"invostock/internal/engine/orders"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
)

type OrderHandler struct {
	svc   *orders.Service
	audit *audit.Logger
}

func NewOrderHandler(svc *orders.Service, auditLog *audit.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, audit: auditLog}
}

func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.svc.List(r.Context(), scopeOf(r), orders.Filter{Type: q.Get("type"), Status: q.Get("status")})
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	o, err := h.svc.Get(r.Context(), scopeOf(r), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in orders.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	o, err := h.svc.Create(r.Context(), scope, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "order.create", "order", o.ID, map[string]interface{}{
		"code": o.Code,
		"type": o.Type,
	}))
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrderHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var in orders.UpdateInput
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	o, err := h.svc.Update(r.Context(), scopeOf(r), id, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "order.delete", "order", id, nil))
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}

// Receive books a purchase order into stock and expenses.
func (h *OrderHandler) Receive(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	receipt, err := h.svc.MarkAsReceived(r.Context(), scope, id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "order.receive", "order", id, map[string]interface{}{
		"expense_code": receipt.ExpenseCode,
		"amount":       receipt.Amount.String(),
	}))
	writeJSON(w, http.StatusOK, receipt)
}

func (h *OrderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	o, err := h.svc.MarkAsDelivered(r.Context(), scope, id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "order.deliver", "order", id, nil))
	writeJSON(w, http.StatusOK, o)
}

func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	o, err := h.svc.Cancel(r.Context(), scope, id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "order.cancel", "order", id, nil))
	writeJSON(w, http.StatusOK, o)
}
