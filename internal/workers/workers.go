// Package workers holds the periodic jobs run by cmd/worker.
package workers

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"invostock/internal/engine/invoices"
	"invostock/internal/engine/notifications"
)

type Workers struct {
	db            *sql.DB
	notifications *notifications.Service
	now           func() time.Time
}

func New(db *sql.DB, n *notifications.Service) *Workers {
	return &Workers{db: db, notifications: n, now: time.Now}
}

// recipients returns who hears about a tenant's row: the organization's
// active admins, or the individual owner.
func (w *Workers) recipients(ctx context.Context, userID int64, orgID *int64) ([]int64, error) {
	if orgID == nil {
		return []int64{userID}, nil
	}

	rows, err := w.db.QueryContext(ctx, `
		SELECT id FROM users WHERE organization_id = ? AND org_role = 'admin' AND is_active = 1 ORDER BY id
	`, *orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (w *Workers) notify(ctx context.Context, userID int64, orgID *int64, n notifications.Notification) (int, error) {
	to, err := w.recipients(ctx, userID, orgID)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, uid := range to {
		n := n
		n.UserID = uid
		created, err := w.notifications.NotifyOnce(ctx, &n)
		if err != nil {
			return sent, err
		}
		if created {
			sent++
		}
	}
	return sent, nil
}

// LowStockAlerts notifies owners of items at or below their reorder level.
// An alert is repeated only after the previous one was read.
func (w *Workers) LowStockAlerts(ctx context.Context) (int, error) {
	rows, err := w.db.QueryContext(ctx, `
		SELECT id, user_id, organization_id, name, stock_quantity, reorder_level
		FROM inventory_items
		WHERE stock_quantity <= reorder_level
		ORDER BY id
	`)
	if err != nil {
		return 0, err
	}

	type lowItem struct {
		id, userID     int64
		orgID          sql.NullInt64
		name           string
		stock, reorder int
	}
	var items []lowItem
	for rows.Next() {
		var it lowItem
		if err := rows.Scan(&it.id, &it.userID, &it.orgID, &it.name, &it.stock, &it.reorder); err != nil {
			rows.Close()
			return 0, err
		}
		items = append(items, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	sent := 0
	for _, it := range items {
		var orgID *int64
		if it.orgID.Valid {
			orgID = &it.orgID.Int64
		}
		ref := it.id
		n, err := w.notify(ctx, it.userID, orgID, notifications.Notification{
			Type:    notifications.TypeLowStock,
			Title:   "Niska zaliha",
			Message: fmt.Sprintf("Artikl %s ima %d na zalihi (minimum %d).", it.name, it.stock, it.reorder),
			RefID:   &ref,
		})
		sent += n
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

// OverdueInvoiceReminders notifies owners of unpaid invoices past their due date.
func (w *Workers) OverdueInvoiceReminders(ctx context.Context) (int, error) {
	overdue, err := invoices.ListOverdue(ctx, w.db, w.now().Format(time.DateOnly))
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, o := range overdue {
		ref := o.InvoiceID
		n, err := w.notify(ctx, o.UserID, o.OrganizationID, notifications.Notification{
			Type:    notifications.TypeInvoiceOverdue,
			Title:   "Dospjeli račun",
			Message: fmt.Sprintf("Račun %s dospio je %s, preostalo za naplatu %s EUR.", o.Code, o.DueDate, o.Remaining),
			RefID:   &ref,
		})
		sent += n
		if err != nil {
			return sent, err
		}
	}
	return sent, nil
}

// Run calls job every interval until ctx is done. Failures are logged and
// the next tick tries again.
func Run(ctx context.Context, name string, interval time.Duration, job func(context.Context) (int, error)) {
	log := zerolog.Ctx(ctx).With().Str("worker", name).Logger()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		start := time.Now()
		n, err := job(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("job failed")
		} else {
			log.Debug().Int("notifications", n).Dur("took", time.Since(start)).Msg("job finished")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("worker stopped")
			return
		case <-ticker.C:
		}
	}
}
