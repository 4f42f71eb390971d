package handlers

import (
	"net/http"

	"invostock/internal/engine/notifications"
	"invostock/internal/pkg/errors"
	"invostock/internal/platform/audit"
	"invostock/internal/platform/tenant"
)

type NotificationHandler struct {
	svc   *notifications.Service
	audit *audit.Logger
}

func NewNotificationHandler(svc *notifications.Service, auditLog *audit.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, audit: auditLog}
}

type notificationList struct {
	Notifications []*notifications.Notification `json:"notifications"`
	Unread        int                           `json:"unread"`
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := scopeOf(r).UserID
	list, err := h.svc.List(r.Context(), userID, r.URL.Query().Get("unread") == "true")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	unread, err := h.svc.UnreadCount(r.Context(), userID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notificationList{Notifications: list, Unread: unread})
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if err := h.svc.MarkRead(r.Context(), scopeOf(r).UserID, id); err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "is_read": true})
}

func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.MarkAllRead(r.Context(), scopeOf(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": n})
}

func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), scopeOf(r).UserID, id); err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, deleted{Deleted: true, ID: id})
}

func (h *NotificationHandler) Invites(w http.ResponseWriter, r *http.Request) {
	invites, err := h.svc.PendingInvites(r.Context(), scopeOf(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (h *NotificationHandler) AcceptInvite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	scope := scopeOf(r)
	invite, err := h.svc.Accept(r.Context(), id, scope.UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	h.audit.Log(r.Context(), tenant.Organization(scope.UserID, invite.OrganizationID, tenant.OrgRoleMember),
		audit.FromRequest(r, "invite.accept", "invite", id, nil))
	writeJSON(w, http.StatusOK, invite)
}

func (h *NotificationHandler) DeclineInvite(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	invite, err := h.svc.Decline(r.Context(), id, scopeOf(r).UserID)
	if err != nil {
		errors.Write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invite)
}
