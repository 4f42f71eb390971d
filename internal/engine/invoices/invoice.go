package invoices

import (
	"github.com/shopspring/decimal"

	"invostock/internal/pkg/errors"
)

const (
	StatusPending       = "pending"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
)

var (
	ErrNotFound         = errors.NotFound("Račun nije pronađen")
	ErrDiscountTooLarge = errors.Invalid("Popust ne može biti veći od ukupnog iznosa")
	ErrNegativeDiscount = errors.Invalid("Popust ne može biti negativan")
	ErrDueBeforeIssue   = errors.Invalid("Datum dospijeća ne može biti prije datuma izdavanja")
)

type Invoice struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"user_id"`
	OrganizationID  *int64          `json:"organization_id"`
	Code            string          `json:"code"`
	ContactID       *int64          `json:"contact_id"`
	ContactName     string          `json:"contact_name,omitempty"`
	ContactEmail    string          `json:"contact_email,omitempty"`
	IssueDate       string          `json:"issue_date"`
	DueDate         string          `json:"due_date"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Discount        decimal.Decimal `json:"discount"`
	FinalAmount     decimal.Decimal `json:"final_amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes"`
	CreatedAt       int64           `json:"created_at"`
	UpdatedAt       int64           `json:"updated_at"`
	Items           []Item          `json:"items,omitempty"`
}

type Item struct {
	ID              int64           `json:"id"`
	InvoiceID       int64           `json:"invoice_id"`
	InventoryItemID *int64          `json:"inventory_item_id"`
	Description     string          `json:"description"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineTotal       decimal.Decimal `json:"line_total"`
}

type Input struct {
	ContactID *int64          `json:"contact_id"`
	IssueDate string          `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate   string          `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Discount  decimal.Decimal `json:"discount"`
	Notes     string          `json:"notes" validate:"max=2000"`
	Items     []ItemInput     `json:"items" validate:"required,min=1,dive"`
}

type ItemInput struct {
	InventoryItemID *int64          `json:"inventory_item_id"`
	Description     string          `json:"description" validate:"required,max=500"`
	Quantity        int             `json:"quantity" validate:"gt=0"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

// UpdateInput changes header fields only; amounts are fixed once issued.
type UpdateInput struct {
	ContactID *int64 `json:"contact_id"`
	DueDate   string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
	Notes     string `json:"notes" validate:"max=2000"`
}

type Filter struct {
	Status    string
	ContactID *int64
}

type Totals struct {
	Total     decimal.Decimal `json:"total_amount"`
	Discount  decimal.Decimal `json:"discount"`
	Final     decimal.Decimal `json:"final_amount"`
	Remaining decimal.Decimal `json:"remaining_amount"`
}

// ComputeTotals derives the invoice amounts from its lines:
// total = sum(quantity * unit price), final = total - discount,
// remaining = final. The discount must lie within [0, total].
func ComputeTotals(items []ItemInput, discount decimal.Decimal) (Totals, error) {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(LineTotal(it))
	}
	discount = discount.Round(2)

	if discount.IsNegative() {
		return Totals{}, ErrNegativeDiscount
	}
	if discount.GreaterThan(total) {
		return Totals{}, ErrDiscountTooLarge
	}

	final := total.Sub(discount)
	return Totals{Total: total, Discount: discount, Final: final, Remaining: final}, nil
}

func LineTotal(it ItemInput) decimal.Decimal {
	return it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
}

// StatusFor derives the payment status from the final and remaining amounts.
func StatusFor(final, remaining decimal.Decimal) string {
	switch {
	case !remaining.IsPositive():
		return StatusPaid
	case remaining.LessThan(final):
		return StatusPartiallyPaid
	default:
		return StatusPending
	}
}
