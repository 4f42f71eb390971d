// Package sequence issues human-readable document codes of the form
// PREFIX-DDMMYYYY-OWNER-SEQ, e.g. FK-16102026-O3-17.
//
// The sequence number comes from a per-owner, per-kind counter row that is
// incremented with a single upsert inside the caller's transaction, so the
// code and the document row commit or roll back together.
package sequence

import (
	"context"
	"fmt"
	"time"

	"invostock/internal/pkg/metrics"
	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

type Kind string

const (
	KindInvoice Kind = "invoice"
	KindOrder   Kind = "order"
	KindExpense Kind = "expense"
	KindPayment Kind = "payment"
	KindPackage Kind = "package"
)

var prefixes = map[Kind]string{
	KindInvoice: "FK",
	KindOrder:   "NAR",
	KindExpense: "TR",
	KindPayment: "UPL",
	KindPackage: "PAK",
}

func (k Kind) Prefix() string {
	return prefixes[k]
}

// Format renders a document code. The date is written as DDMMYYYY.
func Format(prefix string, date time.Time, owner string, seq int64) string {
	return fmt.Sprintf("%s-%s-%s-%d", prefix, date.Format("02012006"), owner, seq)
}

type Generator struct {
	metrics *metrics.Metrics
}

func NewGenerator(m *metrics.Metrics) *Generator {
	return &Generator{metrics: m}
}

const nextQuery = `
	INSERT INTO document_sequences (scope_key, kind, last_value) VALUES (?, ?, 1)
	ON CONFLICT (scope_key, kind) DO UPDATE SET last_value = last_value + 1
	RETURNING last_value
`

// Next reserves the following sequence number for the scope and kind and
// returns the formatted code. tx must be the transaction that inserts the
// document.
func (g *Generator) Next(ctx context.Context, tx database.DBTX, scope tenant.Scope, kind Kind, date time.Time) (string, error) {
	prefix := kind.Prefix()
	if prefix == "" {
		return "", fmt.Errorf("unknown document kind %q", kind)
	}

	owner := scope.OwnerCode()
	var seq int64
	if err := tx.QueryRowContext(ctx, nextQuery, owner, string(kind)).Scan(&seq); err != nil {
		return "", fmt.Errorf("reserving %s sequence: %w", kind, err)
	}

	if g != nil {
		g.metrics.DocumentIssued(string(kind))
	}
	return Format(prefix, date, owner, seq), nil
}

// Current returns the last issued number without reserving one.
func Current(ctx context.Context, db database.DBTX, scope tenant.Scope, kind Kind) (int64, error) {
	var seq int64
	err := db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(last_value), 0) FROM document_sequences WHERE scope_key = ? AND kind = ?
	`, scope.OwnerCode(), string(kind)).Scan(&seq)
	return seq, err
}
