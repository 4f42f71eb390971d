package packages

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invostock/internal/engine/contacts"
	"invostock/internal/engine/orders"
	"invostock/internal/engine/sequence"
	"invostock/internal/engine/suppliers"
	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusNotShipped, StatusShipped, true},
		{StatusNotShipped, StatusDelivered, true},
		{StatusShipped, StatusDelivered, true},
		{StatusShipped, StatusNotShipped, false},
		{StatusDelivered, StatusShipped, false},
		{StatusDelivered, StatusNotShipped, false},
		{StatusShipped, StatusShipped, false},
		{"lost", StatusDelivered, false},
	}
	for _, tt := range tests {
		t.Run(tt.from+"->"+tt.to, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

type fixture struct {
	db      *sql.DB
	svc     *Service
	orders  *orders.Service
	scope   tenant.Scope
	contact *contacts.Contact
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := database.NewTestDB(t)
	userID := database.CreateTestUser(t, db, "otprema@example.com")
	scope := tenant.Individual(userID)

	contact, err := contacts.NewRepository(db).Create(context.Background(), scope, contacts.Input{
		Name:    "Ana Kovač",
		Address: "Ilica 1, Zagreb",
	})
	require.NoError(t, err)

	codes := sequence.NewGenerator(nil)
	return &fixture{
		db:      db,
		svc:     NewService(db, codes),
		orders:  orders.NewService(db, codes),
		scope:   scope,
		contact: contact,
	}
}

func TestService_CreateTakesRecipientFromSalesOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	order, err := f.orders.Create(ctx, f.scope, orders.Input{
		Type:      orders.TypeSales,
		ContactID: &f.contact.ID,
		OrderDate: "2026-10-16",
		Items:     []orders.ItemInput{{Name: "Guma", Quantity: 4, UnitPrice: decimal.NewFromInt(80)}},
	})
	require.NoError(t, err)

	p, err := f.svc.Create(ctx, f.scope, Input{OrderID: &order.ID, Courier: "GLS"})
	require.NoError(t, err)

	assert.Equal(t, "Ana Kovač", p.RecipientName)
	assert.Equal(t, "Ilica 1, Zagreb", p.RecipientAddress)
	assert.Equal(t, &f.contact.ID, p.ContactID)
	assert.Equal(t, order.Code, p.OrderCode)
	assert.Equal(t, StatusNotShipped, p.Status)
	assert.Contains(t, p.Code, "PAK-")
	assert.Nil(t, p.ShippedAt)
}

func TestService_CreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, f.scope, Input{Courier: "GLS"})
	assert.ErrorIs(t, err, ErrNoRecipient)

	missing := int64(404)
	_, err = f.svc.Create(ctx, f.scope, Input{OrderID: &missing})
	assert.ErrorIs(t, err, orders.ErrNotFound)

	supplier, err := suppliers.NewRepository(f.db).Create(ctx, f.scope, suppliers.Input{Name: "Vulkanizer d.o.o."})
	require.NoError(t, err)
	purchase, err := f.orders.Create(ctx, f.scope, orders.Input{
		Type:       orders.TypePurchase,
		SupplierID: &supplier.ID,
		OrderDate:  "2026-10-16",
		Items:      []orders.ItemInput{{Name: "Guma", Quantity: 1, UnitPrice: decimal.NewFromInt(50)}},
	})
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, f.scope, Input{OrderID: &purchase.ID, RecipientName: "Skladište"})
	assert.ErrorIs(t, err, ErrOrderNotSales)

	p, err := f.svc.Create(ctx, f.scope, Input{RecipientName: "Marko Marić", RecipientAddress: "Split"})
	require.NoError(t, err)
	assert.Nil(t, p.ContactID)
}

func TestService_UpdateStatusForwardOnly(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.scope, Input{ContactID: &f.contact.ID})
	require.NoError(t, err)

	shipped, err := f.svc.UpdateStatus(ctx, f.scope, p.ID, StatusInput{Status: StatusShipped})
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, shipped.Status)
	require.NotNil(t, shipped.ShippedAt)
	assert.Nil(t, shipped.DeliveredAt)

	_, err = f.svc.UpdateStatus(ctx, f.scope, p.ID, StatusInput{Status: StatusNotShipped})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	delivered, err := f.svc.UpdateStatus(ctx, f.scope, p.ID, StatusInput{Status: StatusDelivered})
	require.NoError(t, err)
	assert.Equal(t, StatusDelivered, delivered.Status)
	assert.Equal(t, shipped.ShippedAt, delivered.ShippedAt)
	require.NotNil(t, delivered.DeliveredAt)

	_, err = f.svc.UpdateStatus(ctx, f.scope, p.ID, StatusInput{Status: StatusShipped})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.svc.UpdateStatus(ctx, f.scope, p.ID, StatusInput{Status: "lost"})
	assert.Error(t, err)
}

func TestService_DirectDeliveryStampsBothTimes(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.scope, Input{RecipientName: "Osobno preuzimanje"})
	require.NoError(t, err)

	delivered, err := f.svc.UpdateStatus(ctx, f.scope, p.ID, StatusInput{Status: StatusDelivered})
	require.NoError(t, err)
	assert.NotNil(t, delivered.ShippedAt)
	assert.NotNil(t, delivered.DeliveredAt)
}

func TestService_UpdateListDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.svc.Create(ctx, f.scope, Input{RecipientName: "Marko Marić"})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, f.scope, p.ID, Input{RecipientName: "Marko Marić", Courier: "DPD", TrackingNumber: "HR123"})
	require.NoError(t, err)
	assert.Equal(t, "DPD", updated.Courier)
	assert.Equal(t, "HR123", updated.TrackingNumber)

	pending, err := f.svc.List(ctx, f.scope, StatusNotShipped)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	other := tenant.Individual(f.scope.UserID + 1000)
	assert.ErrorIs(t, f.svc.Delete(ctx, other, p.ID), ErrNotFound)
	_, err = f.svc.UpdateStatus(ctx, other, p.ID, StatusInput{Status: StatusShipped})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.Delete(ctx, f.scope, p.ID))
	all, err := f.svc.List(ctx, f.scope, "")
	require.NoError(t, err)
	assert.Empty(t, all)
}
