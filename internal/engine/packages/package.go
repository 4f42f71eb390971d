package packages

import "invostock/internal/pkg/errors"

const (
	StatusNotShipped = "not_shipped"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
)

var (
	ErrNotFound          = errors.NotFound("Paket nije pronađen")
	ErrInvalidTransition = errors.Conflict("Nedopuštena promjena statusa paketa")
	ErrNoRecipient       = errors.Invalid("Nedostaje primatelj paketa")
	ErrOrderNotSales     = errors.Invalid("Paket se može vezati samo uz narudžbu kupca")
)

type Package struct {
	ID               int64  `json:"id"`
	UserID           int64  `json:"user_id"`
	OrganizationID   *int64 `json:"organization_id"`
	Code             string `json:"code"`
	OrderID          *int64 `json:"order_id"`
	OrderCode        string `json:"order_code,omitempty"`
	ContactID        *int64 `json:"contact_id"`
	RecipientName    string `json:"recipient_name"`
	RecipientAddress string `json:"recipient_address"`
	Courier          string `json:"courier"`
	TrackingNumber   string `json:"tracking_number"`
	Status           string `json:"status"`
	ShippedAt        *int64 `json:"shipped_at"`
	DeliveredAt      *int64 `json:"delivered_at"`
	CreatedAt        int64  `json:"created_at"`
	UpdatedAt        int64  `json:"updated_at"`
}

// Input creates or edits a package. Recipient fields left empty are taken
// from the linked contact, or from the contact of the linked sales order.
type Input struct {
	OrderID          *int64 `json:"order_id"`
	ContactID        *int64 `json:"contact_id"`
	RecipientName    string `json:"recipient_name" validate:"max=200"`
	RecipientAddress string `json:"recipient_address" validate:"max=500"`
	Courier          string `json:"courier" validate:"max=100"`
	TrackingNumber   string `json:"tracking_number" validate:"max=100"`
}

type StatusInput struct {
	Status string `json:"status" validate:"required,oneof=not_shipped shipped delivered"`
}

var transitions = map[string][]string{
	StatusNotShipped: {StatusShipped, StatusDelivered},
	StatusShipped:    {StatusDelivered},
}

// CanTransition reports whether a package may move from one status to the
// next. Statuses only move forward.
func CanTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
