package posts

import (
	"time"

	"github.com/google/uuid"
)

// Post is a content record whose writes are gated by post.* permissions.
type Post struct {
	ID        uuid.UUID `json:"_id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Author    uuid.UUID `json:"author"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
