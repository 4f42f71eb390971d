package suppliers

import "invostock/internal/pkg/errors"

var ErrNotFound = errors.NotFound("Dobavljač nije pronađen")

type Supplier struct {
	ID             int64  `json:"id"`
	UserID         int64  `json:"user_id"`
	OrganizationID *int64 `json:"organization_id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	OIB            string `json:"oib"`
	ContactPerson  string `json:"contact_person"`
	CreatedAt      int64  `json:"created_at"`
	UpdatedAt      int64  `json:"updated_at"`
}

type Input struct {
	Name          string `json:"name" validate:"required,max=200"`
	Email         string `json:"email" validate:"omitempty,email"`
	Phone         string `json:"phone" validate:"max=50"`
	Address       string `json:"address" validate:"max=500"`
	OIB           string `json:"oib" validate:"omitempty,len=11,numeric"`
	ContactPerson string `json:"contact_person" validate:"max=200"`
}
