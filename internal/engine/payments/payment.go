package payments

import (
	"github.com/shopspring/decimal"

	"invostock/internal/pkg/errors"
)

const (
	MethodTransfer = "transfer"
	MethodCash     = "cash"
	MethodCard     = "card"
)

var (
	ErrNotFound          = errors.NotFound("Uplata nije pronađena")
	ErrAmountNotPositive = errors.Invalid("Iznos uplate mora biti veći od nule")
	ErrExceedsRemaining  = errors.Invalid("Iznos uplate premašuje preostali iznos")
	ErrAlreadyPaid       = errors.Conflict("Račun je već plaćen")
)

type Payment struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	OrganizationID *int64          `json:"organization_id"`
	Code           string          `json:"code"`
	InvoiceID      int64           `json:"invoice_id"`
	InvoiceCode    string          `json:"invoice_code,omitempty"`
	Amount         decimal.Decimal `json:"amount"`
	Method         string          `json:"method"`
	PaidAt         string          `json:"paid_at"`
	Note           string          `json:"note"`
	CreatedAt      int64           `json:"created_at"`
}

type Input struct {
	Amount decimal.Decimal `json:"amount" validate:"required"`
	Method string          `json:"method" validate:"omitempty,oneof=transfer cash card"`
	PaidAt string          `json:"paid_at" validate:"omitempty,datetime=2006-01-02"`
	Note   string          `json:"note" validate:"max=500"`
}

// Result is a recorded payment together with the invoice state it produced.
type Result struct {
	Payment         *Payment        `json:"payment"`
	InvoiceStatus   string          `json:"invoice_status"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
}
