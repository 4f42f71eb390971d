package contacts

import (
	"context"
	"database/sql"
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

const columns = `id, user_id, organization_id, name, email, phone, address, oib, notes, created_at, updated_at`

func scan(row interface{ Scan(...any) error }) (*Contact, error) {
	c := &Contact{}
	var orgID sql.NullInt64
	if err := row.Scan(&c.ID, &c.UserID, &orgID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.OIB, &c.Notes, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if orgID.Valid {
		c.OrganizationID = &orgID.Int64
	}
	return c, nil
}

func (r *Repository) List(ctx context.Context, scope tenant.Scope, search string) ([]*Contact, error) {
	query := `SELECT ` + columns + ` FROM contacts WHERE `
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		query += `(name LIKE ? OR email LIKE ? OR oib LIKE ?) AND `
		like := "%" + search + "%"
		args = append(args, like, like, like)
	}
	query += scope.Where("") + ` ORDER BY name COLLATE NOCASE`

	rows, err := r.db.QueryContext(ctx, query, scope.Args(args...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Contact{}
	for rows.Next() {
		c, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *Repository) Get(ctx context.Context, scope tenant.Scope, id int64) (*Contact, error) {
	return Get(ctx, r.db, scope, id)
}

// Get loads a contact owned by scope through db, which may be a transaction.
func Get(ctx context.Context, db database.DBTX, scope tenant.Scope, id int64) (*Contact, error) {
	c, err := scan(db.QueryRowContext(ctx, `SELECT `+columns+` FROM contacts WHERE id = ? AND `+scope.Where(""), scope.Args(id)...))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return c, err
}

func (r *Repository) Create(ctx context.Context, scope tenant.Scope, in Input) (*Contact, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO contacts (user_id, organization_id, name, email, phone, address, oib, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, scope.UserID, scope.OrgArg(), in.Name, in.Email, in.Phone, in.Address, in.OIB, in.Notes, now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.Get(ctx, scope, id)
}

func (r *Repository) Update(ctx context.Context, scope tenant.Scope, id int64, in Input) (*Contact, error) {
	if err := validator.Struct(in); err != nil {
		return nil, err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE contacts SET name = ?, email = ?, phone = ?, address = ?, oib = ?, notes = ?, updated_at = ?
		WHERE id = ? AND `+scope.Where(""),
		scope.Args(in.Name, in.Email, in.Phone, in.Address, in.OIB, in.Notes, time.Now().Unix(), id)...)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return r.Get(ctx, scope, id)
}

func (r *Repository) Delete(ctx context.Context, scope tenant.Scope, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = ? AND `+scope.Where(""), scope.Args(id)...)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
