package handlers

import (
	"net/http"

	"invostock/internal/engine/mailer"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/audit"
)

type EmailHandler struct {
	svc   *mailer.Service
	audit *audit.Logger
}

func NewEmailHandler(svc *mailer.Service, auditLog *audit.Logger) *EmailHandler {
	return &EmailHandler{svc: svc, audit: auditLog}
}

func (h *EmailHandler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	res, err := h.svc.SendInvoice(r.Context(), scope, id)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "email.invoice", "invoice", id, map[string]interface{}{
		"to":         res.To,
		"message_id": res.MessageID,
	}))
	writeJSON(w, http.StatusOK, res)
}

func (h *EmailHandler) SendToContact(w http.ResponseWriter, r *http.Request) {
	var in mailer.ContactMessage
	if err := validator.DecodeJSON(r, &in); err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	res, err := h.svc.SendToContact(r.Context(), scope, in)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), scope, audit.FromRequest(r, "email.contact", "contact", in.ContactID, map[string]interface{}{
		"to":      res.To,
		"subject": in.Subject,
	}))
	writeJSON(w, http.StatusOK, res)
}
