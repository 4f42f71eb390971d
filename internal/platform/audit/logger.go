package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"invostock/internal/pkg/parser"
	"invostock/internal/platform/database"
	"invostock/internal/platform/tenant"
)

type ActivityLog struct {
	ID             int64                  `json:"id"`
	UserID         int64                  `json:"user_id"`
	OrganizationID *int64                 `json:"organization_id"`
	Action         string                 `json:"action"`
	ResourceType   string                 `json:"resource_type"`
	ResourceID     string                 `json:"resource_id"`
	Metadata       map[string]interface{} `json:"metadata"`
	IPAddress      string                 `json:"ip_address"`
	UserAgent      string                 `json:"user_agent"`
	CreatedAt      int64                  `json:"created_at"`
}

// Entry is one mutating action to record.
type Entry struct {
	Action       string
	ResourceType string
	ResourceID   string
	Metadata     map[string]interface{}
	IPAddress    string
	UserAgent    string
}

// FromRequest fills the client fields of an entry from r. The address is
// the peer of the connection; forwarding headers are not trusted.
func FromRequest(r *http.Request, action, resourceType string, resourceID int64, metadata map[string]interface{}) Entry {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(ip); err == nil {
		ip = host
	}

	ua := r.UserAgent()
	if ua != "" {
		os, browser := parser.ParseUserAgent(ua)
		if metadata == nil {
			metadata = map[string]interface{}{}
		}
		metadata["client"] = browser + "/" + os
	}

	return Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   strconv.FormatInt(resourceID, 10),
		Metadata:     metadata,
		IPAddress:    ip,
		UserAgent:    ua,
	}
}

type Logger struct {
	db *sql.DB
	wg sync.WaitGroup
}

func NewLogger(db *sql.DB) *Logger {
	return &Logger{db: db}
}

// Log records the entry in the background. Failures are logged, never
// returned, so an audit problem does not fail the request that caused it.
func (l *Logger) Log(ctx context.Context, scope tenant.Scope, e Entry) {
	if l == nil {
		return
	}
	logger := zerolog.Ctx(ctx)
	ctx = context.WithoutCancel(ctx)

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.Record(ctx, l.db, scope, e); err != nil {
			logger.Warn().Err(err).Str("action", e.Action).Msg("activity log write failed")
		}
	}()
}

// Record writes the entry synchronously through db, which may be a transaction.
func (l *Logger) Record(ctx context.Context, db database.DBTX, scope tenant.Scope, e Entry) error {
	metadata := e.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO activity_logs (user_id, organization_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, scope.UserID, scope.OrgArg(), e.Action, e.ResourceType, e.ResourceID, string(metaJSON), e.IPAddress, e.UserAgent, time.Now().Unix())
	return err
}

// Wait blocks until background writes have finished.
func (l *Logger) Wait() {
	if l != nil {
		l.wg.Wait()
	}
}

func (l *Logger) List(ctx context.Context, scope tenant.Scope, limit int) ([]ActivityLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id, user_id, organization_id, action, resource_type, resource_id, metadata, ip_address, user_agent, created_at
		FROM activity_logs
		WHERE `+scope.Where("")+`
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, append(scope.Args(), limit)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []ActivityLog{}
	for rows.Next() {
		var (
			entry   ActivityLog
			orgID   sql.NullInt64
			metaStr string
		)
		if err := rows.Scan(&entry.ID, &entry.UserID, &orgID, &entry.Action, &entry.ResourceType, &entry.ResourceID, &metaStr, &entry.IPAddress, &entry.UserAgent, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if orgID.Valid {
			entry.OrganizationID = &orgID.Int64
		}
		if err := json.Unmarshal([]byte(metaStr), &entry.Metadata); err != nil {
			entry.Metadata = map[string]interface{}{}
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}
