package domain

import (
	"time"

	"github.com/google/uuid"
)

// CommentMaxLength caps comment text.
const CommentMaxLength = 500

// Comment is an immutable note on an incident. There is no edit or delete
// path; the thread is append-only.
type Comment struct {
	ID         uuid.UUID
	IncidentID uuid.UUID
	Text       string
	CreatorID  uuid.UUID
	CreatedAt  time.Time
}
