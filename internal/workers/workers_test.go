package workers

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invostock/internal/engine/inventory"
	"invostock/internal/engine/invoices"
	"invostock/internal/engine/notifications"
	"invostock/internal/engine/sequence"
	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

func TestWorkers_LowStockAlerts(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()

	adminID := database.CreateTestUser(t, db, "admin@example.com")
	memberID := database.CreateTestUser(t, db, "clan@example.com")
	orgID := database.CreateTestOrganization(t, db, "Skladište")
	database.AddTestMember(t, db, adminID, orgID, tenant.OrgRoleAdmin)
	database.AddTestMember(t, db, memberID, orgID, tenant.OrgRoleMember)
	soloID := database.CreateTestUser(t, db, "solo@example.com")

	items := inventory.NewRepository(db)
	_, err := items.Create(ctx, tenant.Organization(memberID, orgID, tenant.OrgRoleMember), inventory.Input{Name: "Filter", StockQuantity: 1, ReorderLevel: 5})
	require.NoError(t, err)
	_, err = items.Create(ctx, tenant.Individual(soloID), inventory.Input{Name: "Ulje", StockQuantity: 0, ReorderLevel: 2})
	require.NoError(t, err)
	_, err = items.Create(ctx, tenant.Individual(soloID), inventory.Input{Name: "Guma", StockQuantity: 10, ReorderLevel: 2})
	require.NoError(t, err)

	notes := notifications.NewService(db)
	w := New(db, notes)

	sent, err := w.LowStockAlerts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, sent, "org admin and individual owner")

	sent, err = w.LowStockAlerts(ctx)
	require.NoError(t, err)
	assert.Zero(t, sent, "unread alerts are not repeated")

	adminNotes, err := notes.List(ctx, adminID, true)
	require.NoError(t, err)
	require.Len(t, adminNotes, 1)
	assert.Equal(t, notifications.TypeLowStock, adminNotes[0].Type)
	assert.Contains(t, adminNotes[0].Message, "Filter")

	memberNotes, err := notes.List(ctx, memberID, false)
	require.NoError(t, err)
	assert.Empty(t, memberNotes)
}

func TestWorkers_OverdueInvoiceReminders(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()

	userID := database.CreateTestUser(t, db, "racuni@example.com")
	scope := tenant.Individual(userID)
	inv := invoices.NewService(db, sequence.NewGenerator(nil))
	overdue, err := inv.Create(ctx, scope, invoices.Input{
		IssueDate: "2026-09-01",
		DueDate:   "2026-09-15",
		Items:     []invoices.ItemInput{{Description: "Servis", Quantity: 1, UnitPrice: decimal.NewFromInt(50)}},
	})
	require.NoError(t, err)
	_, err = inv.Create(ctx, scope, invoices.Input{
		IssueDate: "2026-10-10",
		DueDate:   "2026-11-10",
		Items:     []invoices.ItemInput{{Description: "Servis", Quantity: 1, UnitPrice: decimal.NewFromInt(50)}},
	})
	require.NoError(t, err)

	notes := notifications.NewService(db)
	w := New(db, notes)
	w.now = func() time.Time { return time.Date(2026, 10, 16, 8, 0, 0, 0, time.UTC) }

	sent, err := w.OverdueInvoiceReminders(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	list, err := notes.List(ctx, userID, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, &overdue.ID, list[0].RefID)
	assert.Contains(t, list[0].Message, overdue.Code)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	done := make(chan struct{})

	go func() {
		Run(ctx, "test", time.Millisecond, func(context.Context) (int, error) {
			calls++
			if calls == 3 {
				cancel()
			}
			return 0, nil
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.GreaterOrEqual(t, calls, 3)
}
