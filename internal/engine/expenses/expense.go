package expenses

import (
	"github.com/shopspring/decimal"

	"invostock/internal/pkg/errors"
)

// ProcurementCategory collects the expenses booked when purchase orders are received.
const ProcurementCategory = "Nabava dijelova"

var (
	ErrNotFound         = errors.NotFound("Trošak nije pronađen")
	ErrCategoryNotFound = errors.NotFound("Kategorija troška nije pronađena")
	ErrSharedCategory   = errors.Forbidden("Zajedničke kategorije nije moguće brisati")
	ErrCategoryExists   = errors.Conflict("Kategorija s tim nazivom već postoji")
)

type Expense struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	OrganizationID *int64          `json:"organization_id"`
	Code           string          `json:"code"`
	CategoryID     *int64          `json:"category_id"`
	CategoryName   string          `json:"category_name"`
	OrderID        *int64          `json:"order_id"`
	Description    string          `json:"description"`
	Amount         decimal.Decimal `json:"amount"`
	ExpenseDate    string          `json:"expense_date"`
	CreatedAt      int64           `json:"created_at"`
	UpdatedAt      int64           `json:"updated_at"`
}

// Category with no owner is shared by every tenant.
type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Shared bool   `json:"shared"`
}

type Input struct {
	CategoryID  *int64          `json:"category_id"`
	Description string          `json:"description" validate:"required,max=500"`
	Amount      decimal.Decimal `json:"amount" validate:"required,gt=0"`
	ExpenseDate string          `json:"expense_date" validate:"required,datetime=2006-01-02"`
}

type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

type Filter struct {
	CategoryID *int64
	From       string
	To         string
}
