// Package tenant resolves who owns the rows a request may see.
//
// A request acts either for an individual user (rows with
// organization_id IS NULL and user_id = the user) or for an organization
// (rows with organization_id = the organization). Every scoped query in the
// service builds its filter through Scope.Where so the two cases are decided
// in exactly one place.
package tenant

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

const (
	RoleSystemAdmin  = "systemadmin"
	RoleOrganization = "organization"
	RoleUser         = "user"

	OrgRoleAdmin  = "admin"
	OrgRoleMember = "member"
)

// Scope is the acting context of one request. It is built from the
// authenticated user's row, never from request input.
type Scope struct {
	UserID         int64
	OrganizationID *int64
	Role           string
	OrgRole        string
}

func Individual(userID int64) Scope {
	return Scope{UserID: userID, Role: RoleUser}
}

func Organization(userID, orgID int64, orgRole string) Scope {
	return Scope{UserID: userID, OrganizationID: &orgID, Role: RoleOrganization, OrgRole: orgRole}
}

func (s Scope) IsOrganization() bool {
	return s.OrganizationID != nil
}

func (s Scope) IsOrgAdmin() bool {
	return s.IsOrganization() && s.OrgRole == OrgRoleAdmin
}

func (s Scope) IsSystemAdmin() bool {
	return s.Role == RoleSystemAdmin
}

// Where returns the ownership predicate for a table alias ("" for none).
// It always consumes exactly one placeholder; pass Args to fill it.
func (s Scope) Where(alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	if s.IsOrganization() {
		return prefix + "organization_id = ?"
	}
	return "(" + prefix + "organization_id IS NULL AND " + prefix + "user_id = ?)"
}

// Args appends the predicate argument after the leading query arguments.
// The predicate must therefore come last in the WHERE clause.
func (s Scope) Args(leading ...any) []any {
	if s.IsOrganization() {
		return append(leading, *s.OrganizationID)
	}
	return append(leading, s.UserID)
}

// OrgArg is the organization_id column value for inserts.
func (s Scope) OrgArg() any {
	if s.OrganizationID == nil {
		return nil
	}
	return *s.OrganizationID
}

// OwnerCode identifies the owner inside document codes and counters:
// "O{orgID}" for organizations, "U{userID}" for individuals.
func (s Scope) OwnerCode() string {
	if s.IsOrganization() {
		return "O" + strconv.FormatInt(*s.OrganizationID, 10)
	}
	return "U" + strconv.FormatInt(s.UserID, 10)
}

// ParseOrgID validates a raw organization id coming from request input.
// nil, empty, "null", non-numeric, non-finite, fractional and non-positive
// values are rejected.
func ParseOrgID(v any) (int64, bool) {
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		return positive(int64(t))
	case int64:
		return positive(t)
	case *int64:
		if t == nil {
			return 0, false
		}
		return positive(*t)
	case float64:
		return fromFloat(t)
	case json.Number:
		return ParseOrgID(string(t))
	case string:
		s := strings.TrimSpace(t)
		if s == "" || strings.EqualFold(s, "null") || strings.EqualFold(s, "undefined") {
			return 0, false
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return positive(n)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return fromFloat(f)
	}
	return 0, false
}

func positive(n int64) (int64, bool) {
	if n <= 0 {
		return 0, false
	}
	return n, true
}

func fromFloat(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return positive(int64(f))
}

type ctxKey struct{}

func NewContext(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(ctxKey{}).(Scope)
	return s, ok
}
