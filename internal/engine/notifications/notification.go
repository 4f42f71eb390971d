package notifications

import "invostock/internal/pkg/errors"

const (
	TypeOrganizationInvite = "organization_invite"
	TypeInviteAccepted     = "invite_accepted"
	TypeLowStock           = "low_stock"
	TypeInvoiceOverdue     = "invoice_overdue"

	InvitePending  = "pending"
	InviteAccepted = "accepted"
	InviteDeclined = "declined"
)

var (
	ErrNotFound          = errors.NotFound("Obavijest nije pronađena")
	ErrInviteNotFound    = errors.NotFound("Pozivnica nije pronađena")
	ErrInviteNotPending  = errors.Conflict("Pozivnica je već obrađena")
	ErrUserNotFound      = errors.NotFound("Korisnik s tom e-mail adresom ne postoji")
	ErrAlreadyInOrg      = errors.Conflict("Korisnik je već član organizacije")
	ErrAlreadyInvited    = errors.Conflict("Korisnik već ima pozivnicu na čekanju")
	ErrNotOrgAdmin       = errors.Forbidden("Samo administrator organizacije može slati pozivnice")
	ErrCannotInviteAdmin = errors.Invalid("Administrator sustava ne može biti član organizacije")
)

type Notification struct {
	ID        int64  `json:"id"`
	UserID    int64  `json:"user_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	IsRead    bool   `json:"is_read"`
	RefID     *int64 `json:"ref_id"`
	CreatedAt int64  `json:"created_at"`
}

type Invite struct {
	ID               int64  `json:"id"`
	OrganizationID   int64  `json:"organization_id"`
	OrganizationName string `json:"organization_name"`
	UserID           int64  `json:"user_id"`
	UserEmail        string `json:"user_email"`
	InvitedBy        int64  `json:"invited_by"`
	Status           string `json:"status"`
	CreatedAt        int64  `json:"created_at"`
	RespondedAt      *int64 `json:"responded_at"`
}

type InviteInput struct {
	Email string `json:"email" validate:"required,email"`
}
