package orders

import (
	"github.com/shopspring/decimal"

	"invostock/internal/pkg/errors"
)

const (
	TypePurchase = "purchase"
	TypeSales    = "sales"

	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

var (
	ErrNotFound         = errors.NotFound("Narudžba nije pronađena")
	ErrNotPending       = errors.Conflict("Narudžba više nije na čekanju")
	ErrNotPurchase      = errors.Invalid("Samo narudžbe dobavljaču mogu biti zaprimljene")
	ErrNotSales         = errors.Invalid("Samo narudžbe kupaca mogu biti isporučene")
	ErrSupplierRequired = errors.Invalid("Narudžba dobavljaču mora imati dobavljača")
)

type Order struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	OrganizationID *int64          `json:"organization_id"`
	Code           string          `json:"code"`
	Type           string          `json:"type"`
	SupplierID     *int64          `json:"supplier_id"`
	SupplierName   string          `json:"supplier_name,omitempty"`
	ContactID      *int64          `json:"contact_id"`
	ContactName    string          `json:"contact_name,omitempty"`
	Status         string          `json:"status"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	OrderDate      string          `json:"order_date"`
	Notes          string          `json:"notes"`
	CompletedAt    *int64          `json:"completed_at"`
	CreatedAt      int64           `json:"created_at"`
	UpdatedAt      int64           `json:"updated_at"`
	Items          []Item          `json:"items,omitempty"`
}

type Item struct {
	ID              int64           `json:"id"`
	OrderID         int64           `json:"order_id"`
	InventoryItemID *int64          `json:"inventory_item_id"`
	Name            string          `json:"name"`
	Quantity        int             `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

type Input struct {
	Type       string      `json:"type" validate:"required,oneof=purchase sales"`
	SupplierID *int64      `json:"supplier_id"`
	ContactID  *int64      `json:"contact_id"`
	OrderDate  string      `json:"order_date" validate:"required,datetime=2006-01-02"`
	Notes      string      `json:"notes" validate:"max=2000"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput replaces the editable fields of a pending order. The type is
// fixed at creation.
type UpdateInput struct {
	SupplierID *int64      `json:"supplier_id"`
	ContactID  *int64      `json:"contact_id"`
	OrderDate  string      `json:"order_date" validate:"required,datetime=2006-01-02"`
	Notes      string      `json:"notes" validate:"max=2000"`
	Items      []ItemInput `json:"items" validate:"required,min=1,dive"`
}

type ItemInput struct {
	InventoryItemID *int64          `json:"inventory_item_id"`
	Name            string          `json:"name" validate:"required,max=200"`
	Quantity        int             `json:"quantity" validate:"gt=0"`
	UnitPrice       decimal.Decimal `json:"unit_price" validate:"gte=0"`
}

type Filter struct {
	Type   string
	Status string
}

// Receipt describes what MarkAsReceived booked.
type Receipt struct {
	OrderID      int64           `json:"order_id"`
	OrderCode    string          `json:"order_code"`
	ExpenseID    int64           `json:"expense_id"`
	ExpenseCode  string          `json:"expense_code"`
	Amount       decimal.Decimal `json:"amount"`
	ItemsUpdated []int64         `json:"inventory_item_ids"`
}

// Total sums quantity times unit price over the items, rounded to cents.
func Total(items []ItemInput) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total.Round(2)
}
