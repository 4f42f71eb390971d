package handlers

import (
	"net/http"

	"invostock/internal/engine/invoices"
	"invostock/internal/engine/payments"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
)

type InvoiceHandler struct {
	svc      *invoices.Service
	payments *payments.Service
	audit    *audit.Logger
}

func NewInvoiceHandler(svc *invoices.Service, p *payments.Service, auditLog *audit.Logger) *InvoiceHandler {
	return &InvoiceHandler{svc: svc, payments: p, audit: auditLog}
}

func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	contactID, err := queryID(r, "contact_id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	list, err := h.svc.List(r.Context(), scopeOf(r), invoices.Filter{
		Status:    r.URL.Query().Get("status"),
		ContactID: contactID,
	})
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	inv, err := h.svc.Get(r.Context(), scopeOf(r), id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in invoices.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	inv, err := h.svc.Create(r.Context(), scope, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "invoice.create", "invoice", inv.ID, map[string]interface{}{
		"code":         inv.Code,
		"final_amount": inv.FinalAmount.String(),
	}))
	writeJSON(w, http.StatusCreated, inv)
}

func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var in invoices.UpdateInput
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	inv, err := h.svc.Update(r.Context(), scopeOf(r), id, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "invoice.delete", "invoice", id, nil))
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}

func (h *InvoiceHandler) Payments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	if _, err := h.svc.Get(r.Context(), scope, id); err != nil {
		errors.Write(w, r, err)
		return
	}
	list, err := h.payments.List(r.Context(), scope, &id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *InvoiceHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	var in payments.Input
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}

	scope := scopeOf(r)
	res, err := h.payments.Record(r.Context(), scope, id, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "payment.create", "invoice", id, map[string]interface{}{
		"code":           res.Payment.Code,
		"amount":         res.Payment.Amount.String(),
		"invoice_status": res.InvoiceStatus,
	}))
	writeJSON(w, http.StatusCreated, res)
}
