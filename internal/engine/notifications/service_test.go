package notifications

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

type fixture struct {
	db      *sql.DB
	svc     *Service
	admin   tenant.Scope
	orgID   int64
	inviter int64
	invitee int64
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db := database.NewTestDB(t)

	adminID := database.CreateTestUser(t, db, "sef@example.com")
	orgID := database.CreateTestOrganization(t, db, "Radiona")
	database.AddTestMember(t, db, adminID, orgID, tenant.OrgRoleAdmin)
	inviteeID := database.CreateTestUser(t, db, "novi@example.com")

	return &fixture{
		db:      db,
		svc:     NewService(db),
		admin:   tenant.Organization(adminID, orgID, tenant.OrgRoleAdmin),
		orgID:   orgID,
		inviter: adminID,
		invitee: inviteeID,
	}
}

func (f *fixture) membership(t *testing.T, userID int64) (orgID sql.NullInt64, orgRole, role string) {
	t.Helper()
	require.NoError(t, f.db.QueryRow(`SELECT organization_id, org_role, role FROM users WHERE id = ?`, userID).
		Scan(&orgID, &orgRole, &role))
	return orgID, orgRole, role
}

func TestService_InviteCreatesNotification(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	inv, err := f.svc.Invite(ctx, f.admin, InviteInput{Email: "  NOVI@example.com "})
	require.NoError(t, err)
	assert.Equal(t, InvitePending, inv.Status)
	assert.Equal(t, "Radiona", inv.OrganizationName)
	assert.Equal(t, f.invitee, inv.UserID)

	list, err := f.svc.List(ctx, f.invitee, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, TypeOrganizationInvite, list[0].Type)
	assert.Equal(t, &inv.ID, list[0].RefID)

	pending, err := f.svc.PendingInvites(ctx, f.invitee)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	sent, err := f.svc.OrganizationInvites(ctx, f.orgID)
	require.NoError(t, err)
	assert.Len(t, sent, 1)
}

func TestService_InviteConflicts(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Invite(ctx, f.admin, InviteInput{Email: "novi@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Invite(ctx, f.admin, InviteInput{Email: "novi@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyInvited)

	_, err = f.svc.Invite(ctx, f.admin, InviteInput{Email: "sef@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyInOrg)

	_, err = f.svc.Invite(ctx, f.admin, InviteInput{Email: "nitko@example.com"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	member := tenant.Organization(f.inviter, f.orgID, tenant.OrgRoleMember)
	_, err = f.svc.Invite(ctx, member, InviteInput{Email: "novi@example.com"})
	assert.ErrorIs(t, err, ErrNotOrgAdmin)

	_, err = f.svc.Invite(ctx, f.admin, InviteInput{Email: "nije-adresa"})
	assert.Error(t, err)
}

func TestService_AcceptJoinsOrganization(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	inv, err := f.svc.Invite(ctx, f.admin, InviteInput{Email: "novi@example.com"})
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, inv.ID, f.inviter)
	assert.ErrorIs(t, err, ErrInviteNotFound, "only the invited user may answer")

	accepted, err := f.svc.Accept(ctx, inv.ID, f.invitee)
	require.NoError(t, err)
	assert.Equal(t, InviteAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	orgID, orgRole, role := f.membership(t, f.invitee)
	assert.Equal(t, f.orgID, orgID.Int64)
	assert.Equal(t, tenant.OrgRoleMember, orgRole)
	assert.Equal(t, tenant.RoleOrganization, role)

	unread, err := f.svc.List(ctx, f.invitee, true)
	require.NoError(t, err)
	assert.Empty(t, unread, "invite notification is marked read")

	adminNews, err := f.svc.List(ctx, f.inviter, false)
	require.NoError(t, err)
	require.Len(t, adminNews, 1)
	assert.Equal(t, TypeInviteAccepted, adminNews[0].Type)

	_, err = f.svc.Accept(ctx, inv.ID, f.invitee)
	assert.ErrorIs(t, err, ErrInviteNotPending)
	_, err = f.svc.Decline(ctx, inv.ID, f.invitee)
	assert.ErrorIs(t, err, ErrInviteNotPending)
}

func TestService_ConcurrentAcceptSucceedsOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	inv, err := f.svc.Invite(ctx, f.admin, InviteInput{Email: "novi@example.com"})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Accept(ctx, inv.ID, f.invitee); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else {
				assert.ErrorIs(t, err, ErrInviteNotPending)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

func TestService_Decline(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	inv, err := f.svc.Invite(ctx, f.admin, InviteInput{Email: "novi@example.com"})
	require.NoError(t, err)

	declined, err := f.svc.Decline(ctx, inv.ID, f.invitee)
	require.NoError(t, err)
	assert.Equal(t, InviteDeclined, declined.Status)

	orgID, _, role := f.membership(t, f.invitee)
	assert.False(t, orgID.Valid)
	assert.Equal(t, tenant.RoleUser, role)

	_, err = f.svc.Accept(ctx, inv.ID, f.invitee)
	assert.ErrorIs(t, err, ErrInviteNotPending)

	_, err = f.svc.Invite(ctx, f.admin, InviteInput{Email: "novi@example.com"})
	assert.NoError(t, err, "a declined invite does not block a new one")
}

func TestService_NotificationLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	ref := int64(7)
	created, err := f.svc.NotifyOnce(ctx, &Notification{UserID: f.invitee, Type: TypeLowStock, Title: "Niska zaliha", Message: "Filter", RefID: &ref})
	require.NoError(t, err)
	assert.True(t, created)

	created, err = f.svc.NotifyOnce(ctx, &Notification{UserID: f.invitee, Type: TypeLowStock, Title: "Niska zaliha", Message: "Filter", RefID: &ref})
	require.NoError(t, err)
	assert.False(t, created, "unread duplicate is skipped")

	require.NoError(t, Insert(ctx, f.db, &Notification{UserID: f.invitee, Type: TypeInvoiceOverdue, Title: "Dospjeli račun", Message: "FK-1"}))

	count, err := f.svc.UnreadCount(ctx, f.invitee)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	list, err := f.svc.List(ctx, f.invitee, false)
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.ErrorIs(t, f.svc.MarkRead(ctx, f.inviter, list[0].ID), ErrNotFound)
	require.NoError(t, f.svc.MarkRead(ctx, f.invitee, list[0].ID))

	n, err := f.svc.MarkAllRead(ctx, f.invitee)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	created, err = f.svc.NotifyOnce(ctx, &Notification{UserID: f.invitee, Type: TypeLowStock, Title: "Niska zaliha", Message: "Filter", RefID: &ref})
	require.NoError(t, err)
	assert.True(t, created, "a read notification no longer blocks")

	assert.ErrorIs(t, f.svc.Delete(ctx, f.inviter, list[1].ID), ErrNotFound)
	require.NoError(t, f.svc.Delete(ctx, f.invitee, list[1].ID))
}
