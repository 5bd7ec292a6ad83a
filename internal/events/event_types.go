package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/incident-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventIncidentCreated            EventType = "incident_created"
	EventIncidentUpdated            EventType = "incident_updated"
	EventIncidentAssigned           EventType = "incident_assigned"
	EventIncidentClosed             EventType = "incident_closed"
	EventIncidentCommentAdded       EventType = "incident_comment_added"
	EventIncidentAttachmentsChanged EventType = "incident_attachments_changed"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID         string      `json:"id"`
	Type       EventType   `json:"type"`
	IncidentID uuid.UUID   `json:"incident_id"`
	ActorID    uuid.UUID   `json:"actor_id"`
	Timestamp  time.Time   `json:"timestamp"`
	Payload    interface{} `json:"payload"`
}

// IncidentCreatedPayload payload.
type IncidentCreatedPayload struct {
	CallRef  string          `json:"call_ref"`
	CallType domain.CallType `json:"call_type"`
	Module   domain.Module   `json:"module"`
	Priority domain.Priority `json:"priority"`
	Subject  string          `json:"subject"`
}

// IncidentUpdatedPayload lists which field groups changed.
type IncidentUpdatedPayload struct {
	ChangedFields []string                   `json:"changed_fields"`
	SupportStatus *domain.SupportStatus      `json:"support_status,omitempty"`
	UserStatus    *domain.IncidentUserStatus `json:"user_status,omitempty"`
}

// IncidentAssignedPayload payload.
type IncidentAssignedPayload struct {
	AssignedToId uuid.UUID `json:"assigned_to_id"`
}

// IncidentClosedPayload payload.
type IncidentClosedPayload struct {
	ClosedDate time.Time `json:"closed_date"`
}

// IncidentCommentAddedPayload payload.
type IncidentCommentAddedPayload struct {
	CommentIDs []uuid.UUID `json:"comment_ids"`
}

// IncidentAttachmentsChangedPayload payload.
type IncidentAttachmentsChangedPayload struct {
	Action string `json:"action"` // added, replaced, removed
	Count  int    `json:"count"`
}
