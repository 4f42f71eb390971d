package orders

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invostock/internal/engine/contacts"
	"invostock/internal/engine/expenses"
	"invostock/internal/engine/inventory"
	"invostock/internal/engine/sequence"
	"invostock/internal/engine/suppliers"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

type Service struct {
	db    *sql.DB
	codes *sequence.Generator
}

func NewService(db *sql.DB, codes *sequence.Generator) *Service {
	return &Service{db: db, codes: codes}
}

const selectOrder = `
	SELECT o.id, o.user_id, o.organization_id, o.code, o.type, o.supplier_id, COALESCE(s.name, ''),
		o.contact_id, COALESCE(c.name, ''), o.status, o.total_amount, o.order_date, o.notes,
		o.completed_at, o.created_at, o.updated_at
	FROM orders o
	LEFT JOIN suppliers s ON s.id = o.supplier_id
	LEFT JOIN contacts c ON c.id = o.contact_id
`

func scan(row interface{ Scan(...any) error }) (*Order, error) {
	o := &Order{}
	var orgID, supplierID, contactID, completedAt sql.NullInt64
	if err := row.Scan(&o.ID, &o.UserID, &orgID, &o.Code, &o.Type, &supplierID, &o.SupplierName,
		&contactID, &o.ContactName, &o.Status, &o.TotalAmount, &o.OrderDate, &o.Notes,
		&completedAt, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	o.OrganizationID = nullable(orgID)
	o.SupplierID = nullable(supplierID)
	o.ContactID = nullable(contactID)
	o.CompletedAt = nullable(completedAt)
	return o, nil
}

func nullable(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func (s *Service) List(ctx context.Context, scope tenant.Scope, f Filter) ([]*Order, error) {
	query := selectOrder + ` WHERE `
	var args []any
	if f.Type != "" {
		query += `o.type = ? AND `
		args = append(args, f.Type)
	}
	if f.Status != "" {
		query += `o.status = ? AND `
		args = append(args, f.Status)
	}
	query += scope.Where("o") + ` ORDER BY o.order_date DESC, o.id DESC`

	rows, err := s.db.QueryContext(ctx, query, scope.Args(args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Order{}
	for rows.Next() {
		o, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

func (s *Service) Get(ctx context.Context, scope tenant.Scope, id int64) (*Order, error) {
	o, err := get(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	if o.Items, err = items(ctx, s.db, id); err != nil {
		return nil, err
	}
	return o, nil
}

func get(ctx context.Context, db database.DBTX, scope tenant.Scope, id int64) (*Order, error) {
	o, err := scan(db.QueryRowContext(ctx, selectOrder+` WHERE o.id = ? AND `+scope.Where("o"), scope.Args(id)...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return o, err
}

func items(ctx context.Context, db database.DBTX, orderID int64) ([]Item, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, order_id, inventory_item_id, name, quantity, unit_price
		FROM order_items WHERE order_id = ? ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Item{}
	for rows.Next() {
		var (
			it     Item
			itemID sql.NullInt64
		)
		if err := rows.Scan(&it.ID, &it.OrderID, &itemID, &it.Name, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		it.InventoryItemID = nullable(itemID)
		list = append(list, it)
	}
	return list, rows.Err()
}

// checkParties verifies that referenced suppliers, contacts and inventory
// items belong to the tenant.
func checkParties(ctx context.Context, tx database.DBTX, scope tenant.Scope, in Input) error {
	if in.Type == TypePurchase && in.SupplierID == nil {
		return ErrSupplierRequired
	}
	if in.SupplierID != nil {
		if _, err := suppliers.Get(ctx, tx, scope, *in.SupplierID); err != nil {
			return err
		}
	}
	if in.ContactID != nil {
		if _, err := contacts.Get(ctx, tx, scope, *in.ContactID); err != nil {
			return err
		}
	}
	for _, it := range in.Items {
		if it.InventoryItemID != nil {
			if _, err := inventory.Get(ctx, tx, scope, *it.InventoryItemID); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *Service) Create(ctx context.Context, scope tenant.Scope, in Input) (*Order, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	date, _ := time.Parse(time.DateOnly, in.OrderDate)

	var id int64
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := checkParties(ctx, tx, scope, in); err != nil {
			return err
		}

		code, err := s.codes.Next(ctx, tx, scope, sequence.KindOrder, date)
		if err != nil {
			return err
		}

		now := time.Now().Unix()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO orders (user_id, organization_id, code, type, supplier_id, contact_id, status, total_amount, order_date, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 'pending', ?, ?, ?, ?, ?)
		`, scope.UserID, scope.OrgArg(), code, in.Type, in.SupplierID, in.ContactID, Total(in.Items), in.OrderDate, in.Notes, now, now)
		if err != nil {
			return fmt.Errorf("inserting order: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertItems(ctx, tx, id, in.Items)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

func insertItems(ctx context.Context, tx database.DBTX, orderID int64, list []ItemInput) error {
	for _, it := range list {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, inventory_item_id, name, quantity, unit_price) VALUES (?, ?, ?, ?, ?)
		`, orderID, it.InventoryItemID, it.Name, it.Quantity, it.UnitPrice.Round(2)); err != nil {
			return fmt.Errorf("inserting order item: %w", err)
		}
	}
	return nil
}

// Update replaces the header and items of a pending order. The type and code
// never change.
func (s *Service) Update(ctx context.Context, scope tenant.Scope, id int64, upd UpdateInput) (*Order, error) {
	if err := validator.Struct(upd); err != nil {
		return nil, err
	}
	in := Input{SupplierID: upd.SupplierID, ContactID: upd.ContactID, OrderDate: upd.OrderDate, Notes: upd.Notes, Items: upd.Items}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := get(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPending {
			return ErrNotPending
		}
		in.Type = current.Type
		if err := checkParties(ctx, tx, scope, in); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE orders SET supplier_id = ?, contact_id = ?, total_amount = ?, order_date = ?, notes = ?, updated_at = ?
			WHERE id = ?
		`, in.SupplierID, in.ContactID, Total(in.Items), in.OrderDate, in.Notes, time.Now().Unix(), id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = ?`, id); err != nil {
			return err
		}
		return insertItems(ctx, tx, id, in.Items)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

func (s *Service) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM orders WHERE id = ? AND `+scope.Where(""), scope.Args(id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkAsReceived books a pending purchase order as delivered. In one
// transaction it records an expense for the order total under the
// procurement category, adds every line to stock and flips the status.
// Any failure leaves the order, the expense ledger and stock untouched.
func (s *Service) MarkAsReceived(ctx context.Context, scope tenant.Scope, id int64) (*Receipt, error) {
	var receipt *Receipt
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		o, err := get(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if o.Type != TypePurchase {
			return ErrNotPurchase
		}
		if o.Status != StatusPending {
			return ErrNotPending
		}
		lines, err := items(ctx, tx, id)
		if err != nil {
			return err
		}

		categoryID, err := expenses.EnsureCategory(ctx, tx, scope, expenses.ProcurementCategory)
		if err != nil {
			return err
		}
		expense := &expenses.Expense{
			CategoryID:  &categoryID,
			OrderID:     &o.ID,
			Description: "Zaprimljena narudžba " + o.Code,
			Amount:      o.TotalAmount,
			ExpenseDate: time.Now().Format(time.DateOnly),
		}
		if _, err := expenses.Insert(ctx, tx, s.codes, scope, expense); err != nil {
			return err
		}

		receipt = &Receipt{
			OrderID:     o.ID,
			OrderCode:   o.Code,
			ExpenseID:   expense.ID,
			ExpenseCode: expense.Code,
			Amount:      o.TotalAmount,
		}
		for _, line := range lines {
			itemID, err := inventory.Receive(ctx, tx, scope, inventory.ReceiptLine{
				ItemID:    line.InventoryItemID,
				Name:      line.Name,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
			})
			if err != nil {
				return err
			}
			receipt.ItemsUpdated = append(receipt.ItemsUpdated, itemID)
		}

		return setStatus(ctx, tx, id, StatusDelivered)
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().
		Str("order", receipt.OrderCode).
		Str("expense", receipt.ExpenseCode).
		Int("lines", len(receipt.ItemsUpdated)).
		Msg("purchase order received")
	return receipt, nil
}

// MarkAsDelivered completes a pending sales order and takes its linked
// inventory lines out of stock.
func (s *Service) MarkAsDelivered(ctx context.Context, scope tenant.Scope, id int64) (*Order, error) {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		o, err := get(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if o.Type != TypeSales {
			return ErrNotSales
		}
		if o.Status != StatusPending {
			return ErrNotPending
		}
		lines, err := items(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, line := range lines {
			if line.InventoryItemID == nil {
				continue
			}
			if err := inventory.Withdraw(ctx, tx, scope, *line.InventoryItemID, line.Quantity); err != nil {
				return err
			}
		}
		return setStatus(ctx, tx, id, StatusDelivered)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

func (s *Service) Cancel(ctx context.Context, scope tenant.Scope, id int64) (*Order, error) {
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		o, err := get(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if o.Status != StatusPending {
			return ErrNotPending
		}
		return setStatus(ctx, tx, id, StatusCancelled)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

// setStatus moves a pending order on. The status guard makes a concurrent
// second transition a no-op that is reported as ErrNotPending.
func setStatus(ctx context.Context, tx database.DBTX, id int64, status string) error {
	now := time.Now().Unix()
	var completedAt any
	if status == StatusDelivered {
		completedAt = now
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = ?, completed_at = ?, updated_at = ? WHERE id = ? AND status = 'pending'
	`, status, completedAt, now, id)
	if err != nil {
		return fmt.Errorf("updating order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotPending
	}
	return nil
}
