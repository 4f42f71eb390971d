package packages

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invostock/internal/engine/contacts"
	"invostock/internal/engine/orders"
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

const selectPackage = `
	SELECT p.id, p.user_id, p.organization_id, p.code, p.order_id, COALESCE(o.code, ''), p.contact_id,
		p.recipient_name, p.recipient_address, p.courier, p.tracking_number, p.status,
		p.shipped_at, p.delivered_at, p.created_at, p.updated_at
	FROM packages p
	LEFT JOIN orders o ON o.id = p.order_id
`

func scan(row interface{ Scan(...any) error }) (*Package, error) {
	p := &Package{}
	var orgID, orderID, contactID, shippedAt, deliveredAt sql.NullInt64
	if err := row.Scan(&p.ID, &p.UserID, &orgID, &p.Code, &orderID, &p.OrderCode, &contactID,
		&p.RecipientName, &p.RecipientAddress, &p.Courier, &p.TrackingNumber, &p.Status,
		&shippedAt, &deliveredAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.OrganizationID = nullable(orgID)
	p.OrderID = nullable(orderID)
	p.ContactID = nullable(contactID)
	p.ShippedAt = nullable(shippedAt)
	p.DeliveredAt = nullable(deliveredAt)
	return p, nil
}

func nullable(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}

func (s *Service) List(ctx context.Context, scope tenant.Scope, status string) ([]*Package, error) {
	query := selectPackage + ` WHERE `
	var args []any
	if status != "" {
		query += `p.status = ? AND `
		args = append(args, status)
	}
	query += scope.Where("p") + ` ORDER BY p.created_at DESC, p.id DESC`

	rows, err := s.db.QueryContext(ctx, query, scope.Args(args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Package{}
	for rows.Next() {
		p, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

func (s *Service) Get(ctx context.Context, scope tenant.Scope, id int64) (*Package, error) {
	return get(ctx, s.db, scope, id)
}

func get(ctx context.Context, db database.DBTX, scope tenant.Scope, id int64) (*Package, error) {
	p, err := scan(db.QueryRowContext(ctx, selectPackage+` WHERE p.id = ? AND `+scope.Where("p"), scope.Args(id)...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

// resolveRecipient checks the linked order and contact and fills recipient
// fields the caller left empty.
func resolveRecipient(ctx context.Context, tx database.DBTX, scope tenant.Scope, in *Input) error {
	if in.OrderID != nil {
		var (
			orderType string
			contactID sql.NullInt64
		)
		err := tx.QueryRowContext(ctx, `SELECT type, contact_id FROM orders WHERE id = ? AND `+scope.Where(""),
			scope.Args(*in.OrderID)...).Scan(&orderType, &contactID)
		if err == sql.ErrNoRows {
			return orders.ErrNotFound
		}
		if err != nil {
			return err
		}
		if orderType != orders.TypeSales {
			return ErrOrderNotSales
		}
		if in.ContactID == nil && contactID.Valid {
			in.ContactID = &contactID.Int64
		}
	}

	if in.ContactID != nil {
		c, err := contacts.Get(ctx, tx, scope, *in.ContactID)
		if err != nil {
			return err
		}
		if in.RecipientName == "" {
			in.RecipientName = c.Name
		}
		if in.RecipientAddress == "" {
			in.RecipientAddress = c.Address
		}
	}

	if in.RecipientName == "" {
		return ErrNoRecipient
	}
	return nil
}

func (s *Service) Create(ctx context.Context, scope tenant.Scope, in Input) (*Package, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	var id int64
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := resolveRecipient(ctx, tx, scope, &in); err != nil {
			return err
		}

		now := time.Now()
		code, err := s.codes.Next(ctx, tx, scope, sequence.KindPackage, now)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO packages (user_id, organization_id, code, order_id, contact_id, recipient_name, recipient_address,
				courier, tracking_number, status, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 'not_shipped', ?, ?)
		`, scope.UserID, scope.OrgArg(), code, in.OrderID, in.ContactID, in.RecipientName, in.RecipientAddress,
			in.Courier, in.TrackingNumber, now.Unix(), now.Unix())
		if err != nil {
			return fmt.Errorf("inserting package: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

func (s *Service) Update(ctx context.Context, scope tenant.Scope, id int64, in Input) (*Package, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := get(ctx, tx, scope, id); err != nil {
			return err
		}
		if err := resolveRecipient(ctx, tx, scope, &in); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE packages SET order_id = ?, contact_id = ?, recipient_name = ?, recipient_address = ?,
				courier = ?, tracking_number = ?, updated_at = ?
			WHERE id = ?
		`, in.OrderID, in.ContactID, in.RecipientName, in.RecipientAddress, in.Courier, in.TrackingNumber,
			time.Now().Unix(), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, scope, id)
}

// UpdateStatus moves a package forward and stamps the matching timestamp.
// Skipping straight to delivered also stamps shipped_at.
func (s *Service) UpdateStatus(ctx context.Context, scope tenant.Scope, id int64, in StatusInput) (*Package, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		p, err := get(ctx, tx, scope, id)
		if err != nil {
			return err
		}
		if !CanTransition(p.Status, in.Status) {
			return ErrInvalidTransition.WithDetails(map[string]string{"from": p.Status, "to": in.Status})
		}

		now := time.Now().Unix()
		query := `UPDATE packages SET status = ?, shipped_at = COALESCE(shipped_at, ?), updated_at = ? WHERE id = ? AND status = ?`
		args := []any{in.Status, now, now, id, p.Status}
		if in.Status == StatusDelivered {
			query = `UPDATE packages SET status = ?, shipped_at = COALESCE(shipped_at, ?), delivered_at = ?, updated_at = ? WHERE id = ? AND status = ?`
			args = []any{in.Status, now, now, now, id, p.Status}
		}
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrInvalidTransition
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Int64("package_id", id).Str("status", in.Status).Msg("package status changed")
	return s.Get(ctx, scope, id)
}

func (s *Service) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM packages WHERE id = ? AND `+scope.Where(""), scope.Args(id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
