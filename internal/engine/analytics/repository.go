package analytics

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"invostock/internal/platform/tenant"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

// sum adds up a money column in decimal; SQLite would sum TEXT amounts as floats.
func (r *Repository) sum(ctx context.Context, query string, args ...any) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var v decimal.Decimal
		if err := rows.Scan(&v); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(v)
	}
	return total, rows.Err()
}

func (r *Repository) CountScoped(ctx context.Context, scope tenant.Scope, table, extra string) (int, error) {
	query := `SELECT COUNT(*) FROM ` + table + ` WHERE `
	if extra != "" {
		query += extra + ` AND `
	}
	return r.count(ctx, query+scope.Where(""), scope.Args()...)
}

func (r *Repository) SumScoped(ctx context.Context, scope tenant.Scope, table, column string) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT `+column+` FROM `+table+` WHERE `+scope.Where(""), scope.Args()...)
}

func (r *Repository) Count(ctx context.Context, table, extra string) (int, error) {
	query := `SELECT COUNT(*) FROM ` + table
	if extra != "" {
		query += ` WHERE ` + extra
	}
	return r.count(ctx, query)
}

func (r *Repository) Sum(ctx context.Context, table, column string) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT `+column+` FROM `+table)
}
