package sequence

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

func TestFormat(t *testing.T) {
	date := time.Date(2026, time.March, 5, 10, 0, 0, 0, time.UTC)
	assert.Equal(t, "FK-05032026-O3-17", Format("FK", date, "O3", 17))
	assert.Equal(t, "NAR-05032026-U12-1", Format(KindOrder.Prefix(), date, "U12", 1))
}

func TestKindPrefixes(t *testing.T) {
	assert.Equal(t, "FK", KindInvoice.Prefix())
	assert.Equal(t, "NAR", KindOrder.Prefix())
	assert.Equal(t, "TR", KindExpense.Prefix())
	assert.Equal(t, "UPL", KindPayment.Prefix())
	assert.Equal(t, "PAK", KindPackage.Prefix())
	assert.Empty(t, Kind("unknown").Prefix())
}

func TestGenerator_NextIsPerOwnerAndKind(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()
	gen := NewGenerator(nil)
	date := time.Date(2026, time.October, 16, 0, 0, 0, 0, time.UTC)

	alice := tenant.Individual(1)
	org := tenant.Organization(1, 4, tenant.OrgRoleAdmin)

	code, err := gen.Next(ctx, db, alice, KindInvoice, date)
	require.NoError(t, err)
	assert.Equal(t, "FK-16102026-U1-1", code)

	code, err = gen.Next(ctx, db, alice, KindInvoice, date)
	require.NoError(t, err)
	assert.Equal(t, "FK-16102026-U1-2", code)

	code, err = gen.Next(ctx, db, alice, KindOrder, date)
	require.NoError(t, err)
	assert.Equal(t, "NAR-16102026-U1-1", code)

	code, err = gen.Next(ctx, db, org, KindInvoice, date)
	require.NoError(t, err)
	assert.Equal(t, "FK-16102026-O4-1", code)

	current, err := Current(ctx, db, alice, KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(2), current)
}

func TestGenerator_UnknownKind(t *testing.T) {
	db := database.NewTestDB(t)
	_, err := NewGenerator(nil).Next(context.Background(), db, tenant.Individual(1), Kind("quote"), time.Now())
	assert.Error(t, err)
}

func TestGenerator_RolledBackReservationIsReused(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()
	gen := NewGenerator(nil)
	scope := tenant.Individual(1)

	err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := gen.Next(ctx, tx, scope, KindPayment, time.Now())
		require.NoError(t, err)
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	current, err := Current(ctx, db, scope, KindPayment)
	require.NoError(t, err)
	assert.Equal(t, int64(0), current)
}

func TestGenerator_ConcurrentCodesAreDistinct(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()
	gen := NewGenerator(nil)
	scope := tenant.Organization(2, 9, tenant.OrgRoleMember)

	const n = 40
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		codes = make(map[string]struct{}, n)
		errs  []error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var code string
			err := database.WithTx(ctx, db, func(tx *sql.Tx) error {
				var err error
				code, err = gen.Next(ctx, tx, scope, KindInvoice, time.Now())
				return err
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			codes[code] = struct{}{}
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	assert.Len(t, codes, n)

	current, err := Current(ctx, db, scope, KindInvoice)
	require.NoError(t, err)
	assert.Equal(t, int64(n), current)
}

func TestGenerator_PropagatesDriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO document_sequences").
		WithArgs("U5", "expense").
		WillReturnError(sql.ErrConnDone)

	_, err = NewGenerator(nil).Next(context.Background(), db, tenant.Individual(5), KindExpense, time.Now())
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
