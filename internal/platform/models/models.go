package models

type Organization struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Address     string `json:"address"`
	IsActive    bool   `json:"is_active"`
	MemberCount int    `json:"member_count,omitempty"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

type User struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	PasswordHash   string `json:"-"`
	Role           string `json:"role"`
	OrganizationID *int64 `json:"organization_id"`
	OrgRole        string `json:"org_role,omitempty"`
	IsActive       bool   `json:"is_active"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`

	Organization *Organization `json:"organization,omitempty"`
}

// UserFilter narrows the admin user listing.
type UserFilter struct {
	OrganizationID *int64
	Role           string
	Search         string
	Active         *bool
}
