// Package policy holds the pure authorization decisions for incident
// mutations. Every rule is a function of the actor's role set, the actor's
// user id and the incident's creator; nothing here touches storage or
// ambient request state.
package policy

import (
	"github.com/google/uuid"

	"github.com/spec-kit/incident-service/internal/domain"
)

// FieldGroup identifies an independently gated set of incident fields.
type FieldGroup string

const (
	FieldGroupSuggestionUserStatus FieldGroup = "suggestion_user_status"
	FieldGroupSupportStatus        FieldGroup = "support_status"
	FieldGroupAssignedTo           FieldGroup = "assigned_to"
	FieldGroupDeliveryDate         FieldGroup = "delivery_date"
)

// CanEditField decides whether the actor may change the given field group on
// an incident created by loggedByID.
func CanEditField(actor domain.Actor, loggedByID uuid.UUID, group FieldGroup) bool {
	isOwner := actor.UserID == loggedByID
	switch group {
	case FieldGroupSuggestionUserStatus, FieldGroupDeliveryDate:
		return isOwner || actor.IsERP() || actor.IsAdmin()
	case FieldGroupSupportStatus:
		return actor.IsERP() || actor.IsAdmin()
	case FieldGroupAssignedTo:
		return actor.IsAdmin()
	default:
		return false
	}
}

// CanComment decides comment creation: owner, ERP or Admin.
func CanComment(actor domain.Actor, loggedByID uuid.UUID) bool {
	return actor.UserID == loggedByID || actor.IsERP() || actor.IsAdmin()
}

// CanManageAttachments decides attachment add/replace/remove. Attachments are
// owner-only, deliberately narrower than the comment rule: staff annotate
// incidents through comments, while uploaded evidence stays under the
// reporter's control.
func CanManageAttachments(actor domain.Actor, loggedByID uuid.UUID) bool {
	return actor.UserID == loggedByID
}

// CanRead decides full-detail read access: owner, ERP or Admin.
func CanRead(actor domain.Actor, loggedByID uuid.UUID) bool {
	return actor.UserID == loggedByID || actor.IsERP() || actor.IsAdmin()
}

// SeesAllIncidents reports whether list/paged queries are unscoped for the
// actor. Everyone else sees only incidents they logged.
func SeesAllIncidents(actor domain.Actor) bool {
	return actor.IsERP() || actor.IsAdmin()
}
