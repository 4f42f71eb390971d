package inventory

import (
	"context"
	"database/sql"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

func setup(t *testing.T) (*sql.DB, *Repository, tenant.Scope) {
	t.Helper()
	db := database.NewTestDB(t)
	scope := tenant.Individual(database.CreateTestUser(t, db, "skladiste@example.com"))
	return db, NewRepository(db), scope
}

func TestRepository_CreateAndLowStock(t *testing.T) {
	_, repo, scope := setup(t)
	ctx := context.Background()

	filter, err := repo.Create(ctx, scope, Input{Name: "Filter ulja", Price: decimal.RequireFromString("12.50"), StockQuantity: 2, ReorderLevel: 5})
	require.NoError(t, err)
	assert.True(t, filter.LowStock)
	assert.Equal(t, DefaultUnit, filter.Unit)
	assert.True(t, decimal.RequireFromString("12.5").Equal(filter.Price))

	_, err = repo.Create(ctx, scope, Input{Name: "Svjećica", StockQuantity: 40, ReorderLevel: 10})
	require.NoError(t, err)

	low, err := repo.LowStock(ctx, scope)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "Filter ulja", low[0].Name)
}

func TestRepository_RejectsNegativeInput(t *testing.T) {
	_, repo, scope := setup(t)

	_, err := repo.Create(context.Background(), scope, Input{Name: "X", Price: decimal.NewFromInt(-1)})
	assert.Error(t, err)

	_, err = repo.Create(context.Background(), scope, Input{Name: "X", StockQuantity: -3})
	assert.Error(t, err)
}

func TestRepository_AdjustStock(t *testing.T) {
	_, repo, scope := setup(t)
	ctx := context.Background()

	it, err := repo.Create(ctx, scope, Input{Name: "Remen", StockQuantity: 3})
	require.NoError(t, err)

	it, err = repo.AdjustStock(ctx, scope, it.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 7, it.StockQuantity)

	_, err = repo.AdjustStock(ctx, scope, it.ID, -8)
	assert.ErrorIs(t, err, ErrNegativeStock)

	_, err = repo.AdjustStock(ctx, tenant.Individual(scope.UserID+100), it.ID, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReceive_MatchesByIDThenNameThenInserts(t *testing.T) {
	db, repo, scope := setup(t)
	ctx := context.Background()

	byID, err := repo.Create(ctx, scope, Input{Name: "Kočione pločice", StockQuantity: 1})
	require.NoError(t, err)
	byName, err := repo.Create(ctx, scope, Input{Name: "Antifriz", StockQuantity: 2})
	require.NoError(t, err)

	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		id, err := Receive(ctx, tx, scope, ReceiptLine{ItemID: &byID.ID, Name: "drugo ime", Quantity: 4})
		require.NoError(t, err)
		assert.Equal(t, byID.ID, id)

		id, err = Receive(ctx, tx, scope, ReceiptLine{Name: "ANTIFRIZ", Quantity: 3})
		require.NoError(t, err)
		assert.Equal(t, byName.ID, id)

		_, err = Receive(ctx, tx, scope, ReceiptLine{Name: "Brisači", Quantity: 6, UnitPrice: decimal.NewFromInt(9)})
		return err
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, scope, byID.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)

	got, err = repo.Get(ctx, scope, byName.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.StockQuantity)

	items, err := repo.List(ctx, scope, Filter{Search: "Brisači"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 6, items[0].StockQuantity)
	assert.True(t, decimal.NewFromInt(9).Equal(items[0].Price))
}

func TestReceive_DoesNotTouchOtherTenants(t *testing.T) {
	db, repo, scope := setup(t)
	ctx := context.Background()
	other := tenant.Individual(database.CreateTestUser(t, db, "drugi@example.com"))

	foreign, err := repo.Create(ctx, other, Input{Name: "Ulje", StockQuantity: 1})
	require.NoError(t, err)

	err = database.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := Receive(ctx, tx, scope, ReceiptLine{ItemID: &foreign.ID, Name: "Ulje", Quantity: 10})
		return err
	})
	require.NoError(t, err)

	got, err := repo.Get(ctx, other, foreign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.StockQuantity)

	mine, err := repo.List(ctx, scope, Filter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 10, mine[0].StockQuantity)
}

func TestWithdraw(t *testing.T) {
	db, repo, scope := setup(t)
	ctx := context.Background()

	it, err := repo.Create(ctx, scope, Input{Name: "Akumulator", StockQuantity: 2})
	require.NoError(t, err)

	require.NoError(t, Withdraw(ctx, db, scope, it.ID, 2))
	err = Withdraw(ctx, db, scope, it.ID, 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got, err := repo.Get(ctx, scope, it.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.StockQuantity)
}
