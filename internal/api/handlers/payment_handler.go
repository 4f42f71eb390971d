package handlers

import (
	"net/http"

	"invostock/internal/engine/payments"
	"invostock/internal/pkg/errors"
	"invostock/internal/platform/audit"
)

type PaymentHandler struct {
	svc   *payments.Service
	audit *audit.Logger
}

func NewPaymentHandler(svc *payments.Service, auditLog *audit.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, audit: auditLog}
}

func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := queryID(r, "invoice_id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	list, err := h.svc.List(r.Context(), scopeOf(r), invoiceID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
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

// Delete reverses a payment; the invoice gets the amount back as remaining.
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "payment.delete", "payment", id, nil))
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}
