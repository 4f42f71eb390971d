package inventory

import (
	"github.com/shopspring/decimal"

	"invostock/internal/pkg/errors"
)

var (
	ErrNotFound          = errors.NotFound("Artikl nije pronađen")
	ErrInsufficientStock = errors.Invalid("Nedovoljno zalihe na skladištu")
	ErrNegativeStock     = errors.Invalid("Stanje zalihe ne može biti negativno")
)

const DefaultUnit = "kom"

type Item struct {
	ID             int64           `json:"id"`
	UserID         int64           `json:"user_id"`
	OrganizationID *int64          `json:"organization_id"`
	Name           string          `json:"name"`
	SKU            string          `json:"sku"`
	Category       string          `json:"category"`
	Unit           string          `json:"unit"`
	Price          decimal.Decimal `json:"price"`
	StockQuantity  int             `json:"stock_quantity"`
	ReorderLevel   int             `json:"reorder_level"`
	LowStock       bool            `json:"low_stock"`
	CreatedAt      int64           `json:"created_at"`
	UpdatedAt      int64           `json:"updated_at"`
}

type Input struct {
	Name          string          `json:"name" validate:"required,max=200"`
	SKU           string          `json:"sku" validate:"max=64"`
	Category      string          `json:"category" validate:"max=100"`
	Unit          string          `json:"unit" validate:"max=20"`
	Price         decimal.Decimal `json:"price" validate:"gte=0"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	ReorderLevel  int             `json:"reorder_level" validate:"gte=0"`
}

type Filter struct {
	Search   string
	Category string
	LowStock bool
}

// ReceiptLine is one delivered line of a purchase order.
type ReceiptLine struct {
	ItemID    *int64
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}
