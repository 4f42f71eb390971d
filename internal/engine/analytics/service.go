package analytics

import (
	"context"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"invostock/internal/platform/tenant"
)

type Service struct {
	repo *Repository
}

func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Dashboard aggregates the tenant's figures. The queries run concurrently
// and the first failure cancels the rest.
func (s *Service) Dashboard(ctx context.Context, scope tenant.Scope) (*Dashboard, error) {
	d := &Dashboard{}
	g, ctx := errgroup.WithContext(ctx)

	counts := []struct {
		dst   *int
		table string
		extra string
	}{
		{&d.Contacts, "contacts", ""},
		{&d.InventoryItems, "inventory_items", ""},
		{&d.LowStockItems, "inventory_items", "stock_quantity <= reorder_level"},
		{&d.PendingOrders, "orders", "status = 'pending'"},
		{&d.Invoices, "invoices", ""},
		{&d.PaidInvoices, "invoices", "status = 'paid'"},
	}
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := s.repo.CountScoped(ctx, scope, c.table, c.extra)
			*c.dst = n
			return err
		})
	}

	sums := []struct {
		dst    *decimal.Decimal
		table  string
		column string
	}{
		{&d.TotalInvoiced, "invoices", "final_amount"},
		{&d.Outstanding, "invoices", "remaining_amount"},
		{&d.TotalExpenses, "expenses", "amount"},
	}
	for _, sm := range sums {
		sm := sm
		g.Go(func() error {
			v, err := s.repo.SumScoped(ctx, scope, sm.table, sm.column)
			*sm.dst = v
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	d.TotalPaid = d.TotalInvoiced.Sub(d.Outstanding)
	d.PaidInvoicesPercentage = Percentage(d.PaidInvoices, d.Invoices)
	return d, nil
}

// AdminStats aggregates figures across every tenant.
func (s *Service) AdminStats(ctx context.Context) (*AdminStats, error) {
	st := &AdminStats{}
	g, ctx := errgroup.WithContext(ctx)

	counts := []struct {
		dst   *int
		table string
		extra string
	}{
		{&st.TotalUsers, "users", ""},
		{&st.ActiveUsers, "users", "is_active = 1"},
		{&st.TotalOrganizations, "organizations", ""},
		{&st.TotalInvoices, "invoices", ""},
		{&st.PaidInvoices, "invoices", "status = 'paid'"},
		{&st.TotalOrders, "orders", ""},
		{&st.TotalPackages, "packages", ""},
	}
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := s.repo.Count(ctx, c.table, c.extra)
			*c.dst = n
			return err
		})
	}
	g.Go(func() error {
		v, err := s.repo.Sum(ctx, "payments", "amount")
		st.TotalRevenue = v
		return err
	})
	g.Go(func() error {
		v, err := s.repo.Sum(ctx, "invoices", "final_amount")
		st.TotalInvoiced = v
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	st.AverageInvoiceValue = decimal.Zero
	if st.TotalInvoices > 0 {
		st.AverageInvoiceValue = st.TotalInvoiced.Div(decimal.NewFromInt(int64(st.TotalInvoices))).Round(2)
	}
	st.PaidInvoicesPercentage = Percentage(st.PaidInvoices, st.TotalInvoices)
	st.ActiveUsersPercentage = Percentage(st.ActiveUsers, st.TotalUsers)
	return st, nil
}
