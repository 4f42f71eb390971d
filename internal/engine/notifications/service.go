package notifications

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invostock/internal/pkg/validator"
	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

func scan(row interface{ Scan(...any) error }) (*Notification, error) {
	n := &Notification{}
	var refID sql.NullInt64
	if err := row.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.IsRead, &refID, &n.CreatedAt); err != nil {
		return nil, err
	}
	if refID.Valid {
		n.RefID = &refID.Int64
	}
	return n, nil
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID int64, unreadOnly bool) ([]*Notification, error) {
	query := `SELECT id, user_id, type, title, message, is_read, ref_id, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		query += ` AND is_read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Notification{}
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, n)
	}
	return list, rows.Err()
}

func (s *Service) UnreadCount(ctx context.Context, userID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE user_id = ? AND is_read = 0`, userID).Scan(&n)
	return n, err
}

func (s *Service) MarkRead(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, userID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE user_id = ? AND is_read = 0`, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Service) Delete(ctx context.Context, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Insert stores a notification through db, which may be a transaction.
func Insert(ctx context.Context, db database.DBTX, n *Notification) error {
	n.CreatedAt = time.Now().Unix()
	res, err := db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, title, message, is_read, ref_id, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
	`, n.UserID, n.Type, n.Title, n.Message, n.RefID, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting notification: %w", err)
	}
	n.ID, err = res.LastInsertId()
	return err
}

// NotifyOnce inserts n unless the user still has an unread notification of
// the same type for the same reference. It reports whether a row was written.
func (s *Service) NotifyOnce(ctx context.Context, n *Notification) (bool, error) {
	var created bool
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM notifications WHERE user_id = ? AND type = ? AND ref_id IS ? AND is_read = 0)
		`, n.UserID, n.Type, n.RefID).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return nil
		}
		created = true
		return Insert(ctx, tx, n)
	})
	return created, err
}

const selectInvite = `
	SELECT i.id, i.organization_id, o.name, i.user_id, u.email, i.invited_by, i.status, i.created_at, i.responded_at
	FROM organization_invites i
	JOIN organizations o ON o.id = i.organization_id
	JOIN users u ON u.id = i.user_id
`

func scanInvite(row interface{ Scan(...any) error }) (*Invite, error) {
	inv := &Invite{}
	var respondedAt sql.NullInt64
	if err := row.Scan(&inv.ID, &inv.OrganizationID, &inv.OrganizationName, &inv.UserID, &inv.UserEmail,
		&inv.InvitedBy, &inv.Status, &inv.CreatedAt, &respondedAt); err != nil {
		return nil, err
	}
	if respondedAt.Valid {
		inv.RespondedAt = &respondedAt.Int64
	}
	return inv, nil
}

func (s *Service) listInvites(ctx context.Context, where string, args ...any) ([]*Invite, error) {
	rows, err := s.db.QueryContext(ctx, selectInvite+` WHERE `+where+` ORDER BY i.created_at DESC, i.id DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Invite{}
	for rows.Next() {
		inv, err := scanInvite(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// PendingInvites lists invites waiting for the user's answer.
func (s *Service) PendingInvites(ctx context.Context, userID int64) ([]*Invite, error) {
	return s.listInvites(ctx, `i.user_id = ? AND i.status = 'pending'`, userID)
}

// OrganizationInvites lists every invite an organization has sent.
func (s *Service) OrganizationInvites(ctx context.Context, orgID int64) ([]*Invite, error) {
	return s.listInvites(ctx, `i.organization_id = ?`, orgID)
}

// Invite creates a pending invite for the user registered under in.Email
// and notifies them, in one transaction. Only organization admins invite.
func (s *Service) Invite(ctx context.Context, scope tenant.Scope, in InviteInput) (*Invite, error) {
	in.Email = validator.NormalizeEmail(in.Email)
	if err := validator.Struct(in); err != nil {
		return nil, err
	}
	if !scope.IsOrgAdmin() {
		return nil, ErrNotOrgAdmin
	}
	orgID := *scope.OrganizationID

	var id int64
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var (
			userID  int64
			role    string
			current sql.NullInt64
			orgName string
		)
		err := tx.QueryRowContext(ctx, `SELECT id, role, organization_id FROM users WHERE email = ? AND is_active = 1`, in.Email).
			Scan(&userID, &role, &current)
		if err == sql.ErrNoRows {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if role == tenant.RoleSystemAdmin {
			return ErrCannotInviteAdmin
		}
		if current.Valid {
			return ErrAlreadyInOrg
		}

		var pending bool
		if err := tx.QueryRowContext(ctx, `
			SELECT EXISTS (SELECT 1 FROM organization_invites WHERE organization_id = ? AND user_id = ? AND status = 'pending')
		`, orgID, userID).Scan(&pending); err != nil {
			return err
		}
		if pending {
			return ErrAlreadyInvited
		}

		if err := tx.QueryRowContext(ctx, `SELECT name FROM organizations WHERE id = ?`, orgID).Scan(&orgName); err != nil {
			return fmt.Errorf("loading organization: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO organization_invites (organization_id, user_id, invited_by, status, created_at)
			VALUES (?, ?, ?, 'pending', ?)
		`, orgID, userID, scope.UserID, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("inserting invite: %w", err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return err
		}

		return Insert(ctx, tx, &Notification{
			UserID:  userID,
			Type:    TypeOrganizationInvite,
			Title:   "Pozivnica u organizaciju",
			Message: fmt.Sprintf("Pozvani ste da se pridružite organizaciji %s.", orgName),
			RefID:   &id,
		})
	})
	if err != nil {
		return nil, err
	}

	return scanInvite(s.db.QueryRowContext(ctx, selectInvite+` WHERE i.id = ?`, id))
}

// respond moves a pending invite of userID to status inside tx.
func respond(ctx context.Context, tx *sql.Tx, inviteID, userID int64, status string) (*Invite, error) {
	inv, err := scanInvite(tx.QueryRowContext(ctx, selectInvite+` WHERE i.id = ? AND i.user_id = ?`, inviteID, userID))
	if err == sql.ErrNoRows {
		return nil, ErrInviteNotFound
	}
	if err != nil {
		return nil, err
	}
	if inv.Status != InvitePending {
		return nil, ErrInviteNotPending
	}

	now := time.Now().Unix()
	res, err := tx.ExecContext(ctx, `
		UPDATE organization_invites SET status = ?, responded_at = ? WHERE id = ? AND status = 'pending'
	`, status, now, inviteID)
	if err != nil {
		return nil, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrInviteNotPending
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE notifications SET is_read = 1 WHERE user_id = ? AND type = ? AND ref_id = ?
	`, userID, TypeOrganizationInvite, inviteID); err != nil {
		return nil, err
	}

	inv.Status = status
	inv.RespondedAt = &now
	return inv, nil
}

// Accept joins the user to the inviting organization as a member. The
// invite, the membership and the notification change together.
func (s *Service) Accept(ctx context.Context, inviteID, userID int64) (*Invite, error) {
	var inv *Invite
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		if inv, err = respond(ctx, tx, inviteID, userID, InviteAccepted); err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE users SET organization_id = ?, org_role = 'member', role = 'organization', updated_at = ?
			WHERE id = ? AND organization_id IS NULL
		`, inv.OrganizationID, time.Now().Unix(), userID)
		if err != nil {
			return fmt.Errorf("joining organization: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrAlreadyInOrg
		}

		// Other invites are void once the user belongs to an organization.
		if _, err := tx.ExecContext(ctx, `
			UPDATE organization_invites SET status = 'declined', responded_at = ?
			WHERE user_id = ? AND status = 'pending'
		`, time.Now().Unix(), userID); err != nil {
			return err
		}

		return Insert(ctx, tx, &Notification{
			UserID:  inv.InvitedBy,
			Type:    TypeInviteAccepted,
			Title:   "Pozivnica prihvaćena",
			Message: fmt.Sprintf("Korisnik %s sada je član organizacije %s.", inv.UserEmail, inv.OrganizationName),
			RefID:   &inv.ID,
		})
	})
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Info().Int64("invite_id", inviteID).Int64("user_id", userID).
		Int64("organization_id", inv.OrganizationID).Msg("invite accepted")
	return inv, nil
}

func (s *Service) Decline(ctx context.Context, inviteID, userID int64) (*Invite, error) {
	var inv *Invite
	err := database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var err error
		inv, err = respond(ctx, tx, inviteID, userID, InviteDeclined)
		return err
	})
	return inv, err
}
