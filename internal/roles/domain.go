package roles

import (
	"time"

	"github.com/google/uuid"
)

// Permission is the populated view of a permission referenced by a role.
type Permission struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Module      string    `json:"module,omitempty"`
}

// Role is a named, reusable bundle of permissions.
type Role struct {
	ID          uuid.UUID    `json:"_id"`
	Name        string       `json:"name"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}
