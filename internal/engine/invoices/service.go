package invoices

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"invostock/internal/engine/contacts"
	"invostock/internal/engine/inventory"
	"invostock/internal/engine/sequence"
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

const selectInvoice = `
	SELECT i.id, i.user_id, i.organization_id, i.code, i.contact_id, COALESCE(c.name, ''), COALESCE(c.email, ''),
		i.issue_date, i.due_date, i.total_amount, i.discount, i.final_amount, i.remaining_amount,
		i.status, i.notes, i.created_at, i.updated_at
	FROM invoices i
	LEFT JOIN contacts c ON c.id = i.contact_id
`

func scan(row interface{ Scan(...any) error }) (*Invoice, error) {
	inv := &Invoice{}
	var orgID, contactID sql.NullInt64
	if err := row.Scan(&inv.ID, &inv.UserID, &orgID, &inv.Code, &contactID, &inv.ContactName, &inv.ContactEmail,
		&inv.IssueDate, &inv.DueDate, &inv.TotalAmount, &inv.Discount, &inv.FinalAmount, &inv.RemainingAmount,
		&inv.Status, &inv.Notes, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return nil, err
	}
	inv.OrganizationID = nullable(orgID)
	inv.ContactID = nullable(contactID)
	return inv, nil
}

func nullable(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func (s *Service) List(ctx context.Context, scope tenant.Scope, f Filter) ([]*Invoice, error) {
	query := selectInvoice + ` WHERE `
	var args []any
	if f.Status != "" {
		query += `i.status = ? AND `
		args = append(args, f.Status)
	}
	if f.ContactID != nil {
		query += `i.contact_id = ? AND `
		args = append(args, *f.ContactID)
	}
	query += scope.Where("i") + ` ORDER BY i.issue_date DESC, i.id DESC`

	rows, err := s.db.QueryContext(ctx, query, scope.Args(args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Invoice{}
	for rows.Next() {
		inv, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

func (s *Service) Get(ctx context.Context, scope tenant.Scope, id int64) (*Invoice, error) {
	inv, err := Get(ctx, s.db, scope, id)
	if err != nil {
		return nil, err
	}
	if inv.Items, err = items(ctx, s.db, id); err != nil {
		return nil, err
	}
	return inv, nil
}

// Get loads an invoice header owned by scope through db, which may be a transaction.
func Get(ctx context.Context, db database.DBTX, scope tenant.Scope, id int64) (*Invoice, error) {
	inv, err := scan(db.QueryRowContext(ctx, selectInvoice+` WHERE i.id = ? AND `+scope.Where("i"), scope.Args(id)...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return inv, err
}

func items(ctx context.Context, db database.DBTX, invoiceID int64) ([]Item, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, invoice_id, inventory_item_id, description, quantity, unit_price, line_total
		FROM invoice_items WHERE invoice_id = ? ORDER BY id
	`, invoiceID)
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
		if err := rows.Scan(&it.ID, &it.InvoiceID, &itemID, &it.Description, &it.Quantity, &it.UnitPrice, &it.LineTotal); err != nil {
			return nil, err
		}
		it.InventoryItemID = nullable(itemID)
		list = append(list, it)
	}
	return list, rows.Err()
}

// Create issues an invoice with server-computed totals. Lines linked to
// inventory are taken out of stock in the same transaction.
func (s *Service) Create(ctx context.Context, scope tenant.Scope, in Input) (*Invoice, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if in.DueDate != "" && in.DueDate < in.IssueDate {
		return nil, ErrDueBeforeIssue
	}
	totals, err := ComputeTotals(in.Items, in.Discount)
	if err != nil {
		return nil, err
	}
	issued, _ := time.Parse(time.DateOnly, in.IssueDate)

	var id int64
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if in.ContactID != nil {
			if _, err := contacts.Get(ctx, tx, scope, *in.ContactID); err != nil {
				return err
			}
		}

		code, err := s.codes.Next(ctx, tx, scope, sequence.KindInvoice, issued)
		if err != nil {
			return err
		}

		now := time.Now().Unix()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO invoices (user_id, organization_id, code, contact_id, issue_date, due_date, total_amount, discount,
				final_amount, remaining_amount, status, notes, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, scope.UserID, scope.OrgArg(), code, in.ContactID, in.IssueDate, in.DueDate, totals.Total, totals.Discount,
			totals.Final, totals.Remaining, StatusFor(totals.Final, totals.Remaining), in.Notes, now, now)
		if err != nil {
			return fmt.Errorf("inserting invoice: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		for _, it := range in.Items {
			if it.InventoryItemID != nil {
				if err := inventory.Withdraw(ctx, tx, scope, *it.InventoryItemID, it.Quantity); err != nil {
					return err
				}
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO invoice_items (invoice_id, inventory_item_id, description, quantity, unit_price, line_total)
				VALUES (?, ?, ?, ?, ?, ?)
			`, id, it.InventoryItemID, it.Description, it.Quantity, it.UnitPrice.Round(2), LineTotal(it)); err != nil {
				return fmt.Errorf("inserting invoice item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Int64("invoice_id", id).Str("total", totals.Final.String()).Msg("invoice issued")
	return s.Get(ctx, scope, id)
}

func (s *Service) Update(ctx context.Context, scope tenant.Scope, id int64, in UpdateInput) (*Invoice, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		current, err := Get(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if in.DueDate != "" && in.DueDate < current.IssueDate {
			return ErrDueBeforeIssue
		}
		if in.ContactID != nil {
			if _, err := contacts.Get(ctx, tx, scope, *in.ContactID); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE invoices SET contact_id = ?, due_date = ?, notes = ?, updated_at = ? WHERE id = ?
		`, in.ContactID, in.DueDate, in.Notes, time.Now().Unix(), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

// Delete removes the invoice together with its items and payments. Stock
// taken by the invoice is not returned.
func (s *Service) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM invoices WHERE id = ? AND `+scope.Where(""), scope.Args(id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetRemaining stores a new remaining amount on inv together with the
// status derived from it.
func SetRemaining(ctx context.Context, tx database.DBTX, inv *Invoice, remaining decimal.Decimal) error {
	remaining = remaining.Round(2)
	status := StatusFor(inv.FinalAmount, remaining)
	if _, err := tx.ExecContext(ctx, `UPDATE invoices SET remaining_amount = ?, status = ?, updated_at = ? WHERE id = ?`,
		remaining, status, time.Now().Unix(), inv.ID); err != nil {
		return err
	}
	inv.RemainingAmount = remaining
	inv.Status = status
	return nil
}

// Overdue is an unpaid invoice past its due date.
type Overdue struct {
	InvoiceID      int64
	Code           string
	UserID         int64
	OrganizationID *int64
	DueDate        string
	Remaining      string
}

// ListOverdue returns unpaid invoices of every tenant whose due date is before today.
func ListOverdue(ctx context.Context, db database.DBTX, today string) ([]Overdue, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, code, user_id, organization_id, due_date, remaining_amount
		FROM invoices
		WHERE status != 'paid' AND due_date != '' AND due_date < ?
		ORDER BY due_date
	`, today)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []Overdue{}
	for rows.Next() {
		var (
			o     Overdue
			orgID sql.NullInt64
		)
		if err := rows.Scan(&o.InvoiceID, &o.Code, &o.UserID, &orgID, &o.DueDate, &o.Remaining); err != nil {
			return nil, err
		}
		o.OrganizationID = nullable(orgID)
		list = append(list, o)
	}
	return list, rows.Err()
}
