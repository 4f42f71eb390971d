package inventory

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"invostock/internal/pkg/validator"
	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const columns = `id, user_id, organization_id, name, sku, category, unit, price, stock_quantity, reorder_level, created_at, updated_at`

func scan(row interface{ Scan(...any) error }) (*Item, error) {
	it := &Item{}
	var orgID sql.NullInt64
	if err := row.Scan(&it.ID, &it.UserID, &orgID, &it.Name, &it.SKU, &it.Category, &it.Unit, &it.Price, &it.StockQuantity, &it.ReorderLevel, &it.CreatedAt, &it.UpdatedAt); err != nil {
		return nil, err
	}
	if orgID.Valid {
		it.OrganizationID = &orgID.Int64
	}
	it.LowStock = it.StockQuantity <= it.ReorderLevel
	return it, nil
}

func (r *Repository) List(ctx context.Context, scope tenant.Scope, f Filter) ([]*Item, error) {
	query := `SELECT ` + columns + ` FROM inventory_items WHERE `
	var args []any
	if s := strings.TrimSpace(f.Search); s != "" {
		query += `(name LIKE ? OR sku LIKE ?) AND `
		args = append(args, "%"+s+"%", "%"+s+"%")
	}
	if f.Category != "" {
		query += `category = ? AND `
		args = append(args, f.Category)
	}
	if f.LowStock {
		query += `stock_quantity <= reorder_level AND `
	}
	query += scope.Where("") + ` ORDER BY name COLLATE NOCASE`

	rows, err := r.db.QueryContext(ctx, query, scope.Args(args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*Item{}
	for rows.Next() {
		it, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// LowStock lists items at or below their reorder level.
func (r *Repository) LowStock(ctx context.Context, scope tenant.Scope) ([]*Item, error) {
	return r.List(ctx, scope, Filter{LowStock: true})
}

func (r *Repository) Get(ctx context.Context, scope tenant.Scope, id int64) (*Item, error) {
	return Get(ctx, r.db, scope, id)
}

func Get(ctx context.Context, db database.DBTX, scope tenant.Scope, id int64) (*Item, error) {
	it, err := scan(db.QueryRowContext(ctx, `SELECT `+columns+` FROM inventory_items WHERE id = ? AND `+scope.Where(""), scope.Args(id)...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return it, err
}

func (r *Repository) Create(ctx context.Context, scope tenant.Scope, in Input) (*Item, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	id, err := insert(ctx, r.db, scope, in)
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, scope, id)
}

func insert(ctx context.Context, db database.DBTX, scope tenant.Scope, in Input) (int64, error) {
	if in.Unit == "" {
		in.Unit = DefaultUnit
	}
	now := time.Now().Unix()
	res, err := db.ExecContext(ctx, `
		INSERT INTO inventory_items (user_id, organization_id, name, sku, category, unit, price, stock_quantity, reorder_level, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, scope.UserID, scope.OrgArg(), in.Name, in.SKU, in.Category, in.Unit, in.Price.Round(2), in.StockQuantity, in.ReorderLevel, now, now)
	if err != nil {
		return 0, fmt.Errorf("inserting inventory item: %w", err)
	}
	return res.LastInsertId()
}

func (r *Repository) Update(ctx context.Context, scope tenant.Scope, id int64, in Input) (*Item, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if in.Unit == "" {
		in.Unit = DefaultUnit
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE inventory_items
		SET name = ?, sku = ?, category = ?, unit = ?, price = ?, stock_quantity = ?, reorder_level = ?, updated_at = ?
		WHERE id = ? AND `+scope.Where(""),
		scope.Args(in.Name, in.SKU, in.Category, in.Unit, in.Price.Round(2), in.StockQuantity, in.ReorderLevel, time.Now().Unix(), id)...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, scope, id)
}

func (r *Repository) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM inventory_items WHERE id = ? AND `+scope.Where(""), scope.Args(id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdjustStock applies a manual correction. The result may not drop below zero.
func (r *Repository) AdjustStock(ctx context.Context, scope tenant.Scope, id int64, delta int) (*Item, error) {
	err := database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE inventory_items SET stock_quantity = stock_quantity + ?, updated_at = ?
			WHERE id = ? AND stock_quantity + ? >= 0 AND `+scope.Where(""),
			scope.Args(delta, time.Now().Unix(), id, delta)...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return nil
		}
		if _, err := Get(ctx, tx, scope, id); err != nil {
			return err
		}
		return ErrNegativeStock
	})
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, scope, id)
}

// Receive books a delivered line into stock through tx. The line is matched
// to an existing item by id, then by name (case-insensitive); when neither
// matches, a new item is created. It returns the affected item id.
func Receive(ctx context.Context, tx database.DBTX, scope tenant.Scope, line ReceiptLine) (int64, error) {
	now := time.Now().Unix()

	if line.ItemID != nil {
		res, err := tx.ExecContext(ctx, `
			UPDATE inventory_items SET stock_quantity = stock_quantity + ?, updated_at = ?
			WHERE id = ? AND `+scope.Where(""),
			scope.Args(line.Quantity, now, *line.ItemID)...)
		if err != nil {
			return 0, fmt.Errorf("incrementing stock of item %d: %w", *line.ItemID, err)
		}
		if n, _ := res.RowsAffected(); n == 1 {
			return *line.ItemID, nil
		}
	}

	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM inventory_items WHERE name = ? COLLATE NOCASE AND `+scope.Where("")+` ORDER BY id LIMIT 1
	`, scope.Args(strings.TrimSpace(line.Name))...).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		return insert(ctx, tx, scope, Input{
			Name:          strings.TrimSpace(line.Name),
			Price:         line.UnitPrice,
			StockQuantity: line.Quantity,
		})
	case err != nil:
		return 0, fmt.Errorf("matching item %q: %w", line.Name, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE inventory_items SET stock_quantity = stock_quantity + ?, updated_at = ? WHERE id = ?
	`, line.Quantity, now, id); err != nil {
		return 0, fmt.Errorf("incrementing stock of item %d: %w", id, err)
	}
	return id, nil
}

// Withdraw takes quantity out of stock through tx, failing with
// ErrInsufficientStock rather than going negative.
func Withdraw(ctx context.Context, tx database.DBTX, scope tenant.Scope, itemID int64, quantity int) error {
	res, err := tx.ExecContext(ctx, `
		UPDATE inventory_items SET stock_quantity = stock_quantity - ?, updated_at = ?
		WHERE id = ? AND stock_quantity >= ? AND `+scope.Where(""),
		scope.Args(quantity, time.Now().Unix(), itemID, quantity)...)
	if err != nil {
		return fmt.Errorf("decrementing stock of item %d: %w", itemID, err)
	}
	if n, _ := res.RowsAffected(); n == 1 {
		return nil
	}

	it, err := Get(ctx, tx, scope, itemID)
	if err != nil {
		return err
	}
	return ErrInsufficientStock.WithDetails(map[string]interface{}{
		"item_id":   it.ID,
		"name":      it.Name,
		"available": it.StockQuantity,
		"requested": quantity,
	})
}
