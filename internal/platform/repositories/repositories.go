package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"invostock/internal/platform/database"
	"invostock/internal/platform/models"
)

type OrganizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

// CreateForOwner inserts the organization and makes ownerID its admin in
// one transaction.
func (r *OrganizationRepository) CreateForOwner(ctx context.Context, org *models.Organization, ownerID int64) error {
	now := time.Now().Unix()
	org.CreatedAt, org.UpdatedAt, org.IsActive = now, now, true

	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var current sql.NullInt64
		if err := tx.QueryRowContext(ctx, `SELECT organization_id FROM users WHERE id = ?`, ownerID).Scan(&current); err != nil {
			return fmt.Errorf("loading owner: %w", err)
		}
		if current.Valid {
			return ErrAlreadyMember
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO organizations (name, email, address, is_active, created_at, updated_at)
			VALUES (?, ?, ?, 1, ?, ?)
		`, org.Name, org.Email, org.Address, org.CreatedAt, org.UpdatedAt)
		if err != nil {
			return fmt.Errorf("inserting organization: %w", err)
		}
		if org.ID, err = res.LastInsertId(); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET organization_id = ?, org_role = 'admin', role = 'organization', updated_at = ?
			WHERE id = ?
		`, org.ID, now, ownerID); err != nil {
			return fmt.Errorf("assigning owner: %w", err)
		}
		return nil
	})
}

const orgColumns = `o.id, o.name, o.email, o.address, o.is_active, o.created_at, o.updated_at,
	(SELECT COUNT(*) FROM users u WHERE u.organization_id = o.id AND u.is_active = 1)`

func scanOrganization(row interface{ Scan(...any) error }) (*models.Organization, error) {
	org := &models.Organization{}
	err := row.Scan(&org.ID, &org.Name, &org.Email, &org.Address, &org.IsActive, &org.CreatedAt, &org.UpdatedAt, &org.MemberCount)
	return org, err
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id int64) (*models.Organization, error) {
	org, err := scanOrganization(r.db.QueryRowContext(ctx, `SELECT `+orgColumns+` FROM organizations o WHERE o.id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return org, nil
}

func (r *OrganizationRepository) List(ctx context.Context, search string) ([]*models.Organization, error) {
	query := `SELECT ` + orgColumns + ` FROM organizations o`
	var args []any
	if search = strings.TrimSpace(search); search != "" {
		query += ` WHERE o.name LIKE ? OR o.email LIKE ?`
		like := "%" + search + "%"
		args = append(args, like, like)
	}
	query += ` ORDER BY o.name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []*models.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			return nil, err
		}
		orgs = append(orgs, org)
	}
	return orgs, rows.Err()
}

func (r *OrganizationRepository) Update(ctx context.Context, org *models.Organization) error {
	org.UpdatedAt = time.Now().Unix()
	res, err := r.db.ExecContext(ctx, `
		UPDATE organizations SET name = ?, email = ?, address = ?, updated_at = ? WHERE id = ?
	`, org.Name, org.Email, org.Address, org.UpdatedAt, org.ID)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// SetActive soft-deletes or restores an organization.
func (r *OrganizationRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE organizations SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now().Unix()
	user.CreatedAt, user.UpdatedAt, user.IsActive = now, now, true

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO users (name, email, password_hash, role, organization_id, org_role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
	`, user.Name, user.Email, user.PasswordHash, user.Role, user.OrganizationID, user.OrgRole, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	user.ID, err = res.LastInsertId()
	return err
}

const userColumns = `id, name, email, password_hash, role, organization_id, org_role, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	var orgID sql.NullInt64
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Role, &orgID, &user.OrgRole, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if orgID.Valid {
		user.OrganizationID = &orgID.Int64
	}
	return user, err
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]*models.User, error) {
	var (
		where []string
		args  []any
	)
	if filter.OrganizationID != nil {
		where = append(where, "organization_id = ?")
		args = append(args, *filter.OrganizationID)
	}
	if filter.Role != "" {
		where = append(where, "role = ?")
		args = append(args, filter.Role)
	}
	if filter.Active != nil {
		where = append(where, "is_active = ?")
		args = append(args, *filter.Active)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		where = append(where, "(name LIKE ? OR email LIKE ?)")
		args = append(args, "%"+s+"%", "%"+s+"%")
	}

	query := `SELECT ` + userColumns + ` FROM users`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *UserRepository) ListMembers(ctx context.Context, orgID int64) ([]*models.User, error) {
	active := true
	return r.List(ctx, models.UserFilter{OrganizationID: &orgID, Active: &active})
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id int64, name, email string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET name = ?, email = ?, updated_at = ? WHERE id = ?`,
		name, email, time.Now().Unix(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrEmailTaken
		}
		return err
	}
	return expectOne(res)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?`,
		hash, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *UserRepository) UpdateRole(ctx context.Context, id int64, role string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET role = ?, updated_at = ? WHERE id = ?`,
		role, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// SetActive soft-deletes or restores a user.
func (r *UserRepository) SetActive(ctx context.Context, id int64, active bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// LeaveOrganization detaches a user from orgID and turns them back into an
// individual. The last admin of an organization with other members cannot leave.
func (r *UserRepository) LeaveOrganization(ctx context.Context, orgID, userID int64) error {
	return database.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		var orgRole string
		err := tx.QueryRowContext(ctx, `SELECT org_role FROM users WHERE id = ? AND organization_id = ?`, userID, orgID).Scan(&orgRole)
		if err == sql.ErrNoRows {
			return ErrNotMember
		}
		if err != nil {
			return err
		}

		if orgRole == "admin" {
			var admins, members int
			if err := tx.QueryRowContext(ctx, `
				SELECT
					COALESCE(SUM(CASE WHEN org_role = 'admin' THEN 1 ELSE 0 END), 0),
					COUNT(*)
				FROM users WHERE organization_id = ? AND is_active = 1
			`, orgID).Scan(&admins, &members); err != nil {
				return err
			}
			if admins <= 1 && members > 1 {
				return ErrLastAdmin
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users SET organization_id = NULL, org_role = '', role = 'user', updated_at = ?
			WHERE id = ? AND organization_id = ?
		`, time.Now().Unix(), userID, orgID)
		return err
	})
}

// CountSystemAdmins is used to seed the first administrator.
func (r *UserRepository) CountSystemAdmins(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE role = 'systemadmin'`).Scan(&n)
	return n, err
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
