package payments

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invostock/internal/engine/invoices"
	"invostock/internal/engine/sequence"
	"invostock/internal/pkg/metrics"
	"invostock/internal/pkg/validator"
	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

type Service struct {
	db      *sql.DB
	codes   *sequence.Generator
	metrics *metrics.Metrics
}

func NewService(db *sql.DB, codes *sequence.Generator, m *metrics.Metrics) *Service {
	return &Service{db: db, codes: codes, metrics: m}
}

const selectPayment = `
	SELECT p.id, p.user_id, p.organization_id, p.code, p.invoice_id, i.code, p.amount, p.method,
		p.paid_at, p.note, p.created_at
	FROM payments p
	JOIN invoices i ON i.id = p.invoice_id
`

func scan(row interface{ Scan(...any) error }) (*Payment, error) {
	p := &Payment{}
	var orgID sql.NullInt64
	if err := row.Scan(&p.ID, &p.UserID, &orgID, &p.Code, &p.InvoiceID, &p.InvoiceCode, &p.Amount, &p.Method,
		&p.PaidAt, &p.Note, &p.CreatedAt); err != nil {
		return nil, err
	}
	if orgID.Valid {
		p.OrganizationID = &orgID.Int64
	}
	return p, nil
}

// List returns the tenant's payments, optionally only those of one invoice.
func (s *Service) List(ctx context.Context, scope tenant.Scope, invoiceID *int64) ([]*Payment, error) {
	query := selectPayment + ` WHERE `
	var args []any
	if invoiceID != nil {
		query += `p.invoice_id = ? AND `
		args = append(args, *invoiceID)
	}
	query += scope.Where("p") + ` ORDER BY p.paid_at DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, scope.Args(args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Payment{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *Service) Get(ctx context.Context, scope tenant.Scope, id int64) (*Payment, error) {
	return get(ctx, s.db, scope, id)
}

func get(ctx context.Context, db database.DBTX, scope tenant.Scope, id int64) (*Payment, error) {
	p, err := scan(db.QueryRowContext(ctx, selectPayment+` WHERE p.id = ? AND `+scope.Where("p"), scope.Args(id)...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

// Record books a payment against an invoice. The remaining amount drops by
// the paid amount and the invoice becomes paid once nothing remains.
func (s *Service) Record(ctx context.Context, scope tenant.Scope, invoiceID int64, in Input) (*Result, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	amount := in.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrAmountNotPositive
	}
	if in.Method == "" {
		in.Method = MethodTransfer
	}
	paidAt := time.Now()
	if in.PaidAt != "" {
		paidAt, _ = time.Parse(time.DateOnly, in.PaidAt)
	}

	var (
		payment = &Payment{
			UserID:         scope.UserID,
			OrganizationID: scope.OrganizationID,
			InvoiceID:      invoiceID,
			Amount:         amount,
			Method:         in.Method,
			PaidAt:         paidAt.Format(time.DateOnly),
			Note:           in.Note,
		}
		inv *invoices.Invoice
	)
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if inv, err = invoices.Get(ctx, tx, scope, invoiceID); err != nil {
			return err
		}
		if inv.Status == invoices.StatusPaid {
			return ErrAlreadyPaid
		}
		if amount.GreaterThan(inv.RemainingAmount) {
			return ErrExceedsRemaining.WithDetails(map[string]string{
				"remaining_amount": inv.RemainingAmount.StringFixed(2),
			})
		}

		if payment.Code, err = s.codes.Next(ctx, tx, scope, sequence.KindPayment, paidAt); err != nil {
			return err
		}
		payment.CreatedAt = time.Now().Unix()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO payments (user_id, organization_id, code, invoice_id, amount, method, paid_at, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, scope.UserID, scope.OrgArg(), payment.Code, invoiceID, amount, payment.Method, payment.PaidAt, payment.Note, payment.CreatedAt)
		if err != nil {
			return fmt.Errorf("inserting payment: %w", err)
		}
		if payment.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		return invoices.SetRemaining(ctx, tx, inv, inv.RemainingAmount.Sub(amount))
	})
	if err != nil {
		return nil, err
	}

	s.metrics.PaymentRecorded()
	payment.InvoiceCode = inv.Code
	if inv.Status == invoices.StatusPaid {
		zerolog.Ctx(ctx).Info().Int64("invoice_id", inv.ID).Str("code", inv.Code).Msg("invoice paid")
	}
	return &Result{Payment: payment, InvoiceStatus: inv.Status, RemainingAmount: inv.RemainingAmount}, nil
}

// Delete removes a payment and gives its amount back to the invoice.
func (s *Service) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		p, err := get(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		inv, err := invoices.Get(ctx, tx, scope, p.InvoiceID)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id); err != nil {
			return err
		}

		remaining := inv.RemainingAmount.Add(p.Amount)
		if remaining.GreaterThan(inv.FinalAmount) {
			remaining = inv.FinalAmount
		}
		return invoices.SetRemaining(ctx, tx, inv, remaining)
	})
}
