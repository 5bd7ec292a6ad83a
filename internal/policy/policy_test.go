package policy

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/spec-kit/incident-service/internal/domain"
)

func TestCanEditField(t *testing.T) {
	ownerID := uuid.New()
	owner := domain.Actor{UserID: ownerID, Roles: []string{domain.RoleEmployee}}
	stranger := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleEmployee}}
	erp := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleERP}}
	admin := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleAdmin}}

	cases := []struct {
		name  string
		actor domain.Actor
		group FieldGroup
		want  bool
	}{
		{"owner edits suggestion/user status", owner, FieldGroupSuggestionUserStatus, true},
		{"stranger cannot edit suggestion/user status", stranger, FieldGroupSuggestionUserStatus, false},
		{"erp edits suggestion/user status", erp, FieldGroupSuggestionUserStatus, true},
		{"admin edits suggestion/user status", admin, FieldGroupSuggestionUserStatus, true},

		{"owner cannot edit support status", owner, FieldGroupSupportStatus, false},
		{"erp edits support status", erp, FieldGroupSupportStatus, true},
		{"admin edits support status", admin, FieldGroupSupportStatus, true},

		{"owner cannot assign", owner, FieldGroupAssignedTo, false},
		{"erp cannot assign", erp, FieldGroupAssignedTo, false},
		{"admin assigns", admin, FieldGroupAssignedTo, true},

		{"owner edits delivery date", owner, FieldGroupDeliveryDate, true},
		{"stranger cannot edit delivery date", stranger, FieldGroupDeliveryDate, false},
		{"erp edits delivery date", erp, FieldGroupDeliveryDate, true},
		{"admin edits delivery date", admin, FieldGroupDeliveryDate, true},

		{"unknown group always denied", admin, FieldGroup("something_else"), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CanEditField(tc.actor, ownerID, tc.group))
		})
	}
}

func TestCommentAndAttachmentRules(t *testing.T) {
	ownerID := uuid.New()
	owner := domain.Actor{UserID: ownerID, Roles: []string{domain.RoleEmployee}}
	stranger := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleEmployee}}
	erp := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleERP}}
	admin := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleAdmin}}

	assert.True(t, CanComment(owner, ownerID))
	assert.True(t, CanComment(erp, ownerID))
	assert.True(t, CanComment(admin, ownerID))
	assert.False(t, CanComment(stranger, ownerID))

	// Attachments are narrower: staff roles do not qualify.
	assert.True(t, CanManageAttachments(owner, ownerID))
	assert.False(t, CanManageAttachments(erp, ownerID))
	assert.False(t, CanManageAttachments(admin, ownerID))
	assert.False(t, CanManageAttachments(stranger, ownerID))
}

func TestReadAndListScoping(t *testing.T) {
	ownerID := uuid.New()
	owner := domain.Actor{UserID: ownerID, Roles: []string{domain.RoleEmployee}}
	stranger := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleEmployee}}
	erp := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleERP}}
	admin := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleAdmin}}

	assert.True(t, CanRead(owner, ownerID))
	assert.False(t, CanRead(stranger, ownerID))
	assert.True(t, CanRead(erp, ownerID))

	assert.False(t, SeesAllIncidents(owner))
	assert.True(t, SeesAllIncidents(erp))
	assert.True(t, SeesAllIncidents(admin))
}
