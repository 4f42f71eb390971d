package analytics

import "github.com/shopspring/decimal"

type Dashboard struct {
	Contacts               int             `json:"contacts"`
	InventoryItems         int             `json:"inventory_items"`
	LowStockItems          int             `json:"low_stock_items"`
	PendingOrders          int             `json:"pending_orders"`
	Invoices               int             `json:"invoices"`
	PaidInvoices           int             `json:"paid_invoices"`
	TotalInvoiced          decimal.Decimal `json:"total_invoiced"`
	TotalPaid              decimal.Decimal `json:"total_paid"`
	Outstanding            decimal.Decimal `json:"outstanding"`
	TotalExpenses          decimal.Decimal `json:"total_expenses"`
	PaidInvoicesPercentage float64         `json:"paid_invoices_percentage"`
}

type AdminStats struct {
	TotalUsers             int             `json:"total_users"`
	ActiveUsers            int             `json:"active_users"`
	TotalOrganizations     int             `json:"total_organizations"`
	TotalInvoices          int             `json:"total_invoices"`
	PaidInvoices           int             `json:"paid_invoices"`
	TotalRevenue           decimal.Decimal `json:"total_revenue"`
	TotalInvoiced          decimal.Decimal `json:"total_invoiced"`
	AverageInvoiceValue    decimal.Decimal `json:"average_invoice_value"`
	TotalOrders            int             `json:"total_orders"`
	TotalPackages          int             `json:"total_packages"`
	PaidInvoicesPercentage float64         `json:"paid_invoices_percentage"`
	ActiveUsersPercentage  float64         `json:"active_users_percentage"`
}

// Percentage returns part/total*100 rounded to two decimals, or 0 when total is 0.
func Percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	p, _ := decimal.NewFromInt(int64(part)).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(total))).
		Round(2).
		Float64()
	return p
}
