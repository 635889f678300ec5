package permissions

import (
	"time"

	"github.com/google/uuid"
)

// Permission represents an atomic named capability, optionally grouped by
// module. Names follow the `<module>.<action>` convention (e.g. "post.create")
// and are globally unique.
type Permission struct {
	ID          uuid.UUID `json:"_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Module      string    `json:"module,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
