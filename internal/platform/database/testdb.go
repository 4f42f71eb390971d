package database

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"invostock/internal/platform/config"
)

// NewTestDB opens a migrated SQLite file under t.TempDir. A file is used
// instead of :memory: so that concurrent connections share one database.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	db, err := Open(config.DatabaseConfig{
		Path:           filepath.Join(t.TempDir(), "invostock.db"),
		MaxConnections: 8,
		BusyTimeout:    10 * time.Second,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := Migrate(db); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

// CreateTestUser inserts an active individual user and returns its id.
func CreateTestUser(t testing.TB, db *sql.DB, email string) int64 {
	t.Helper()

	now := time.Now().Unix()
	res, err := db.Exec(`
		INSERT INTO users (name, email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, 'x', 'user', ?, ?)
	`, email, email, now, now)
	if err != nil {
		t.Fatalf("create test user: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

func CreateTestOrganization(t testing.TB, db *sql.DB, name string) int64 {
	t.Helper()

	now := time.Now().Unix()
	res, err := db.Exec(`
		INSERT INTO organizations (name, created_at, updated_at) VALUES (?, ?, ?)
	`, name, now, now)
	if err != nil {
		t.Fatalf("create test organization: %v", err)
	}
	id, _ := res.LastInsertId()
	return id
}

// AddTestMember moves userID into orgID with the given org role.
func AddTestMember(t testing.TB, db *sql.DB, userID, orgID int64, orgRole string) {
	t.Helper()

	if _, err := db.Exec(`
		UPDATE users SET organization_id = ?, org_role = ?, role = 'organization' WHERE id = ?
	`, orgID, orgRole, userID); err != nil {
		t.Fatalf("add test member: %v", err)
	}
}
