package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	apperrors "github.com/spec-kit/incident-service/pkg/util"
)

type commentFixture struct {
	svc        *CommentService
	incidents  *fakeIncidentRepo
	comments   *fakeCommentRepo
	dispatcher *recordingDispatcher
	owner      domain.Actor
	erp        domain.Actor
	incident   *domain.Incident
}

func newCommentFixture(t *testing.T) *commentFixture {
	t.Helper()

	incidents := newFakeIncidentRepo()
	comments := &fakeCommentRepo{}
	dispatcher := &recordingDispatcher{}

	owner := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleEmployee}}
	incident := &domain.Incident{
		ID:          uuid.New(),
		CallRef:     "INC-AA11BB22",
		LoggedById:  owner.UserID,
		CallType:    domain.CallTypeBug,
		Module:      domain.ModuleFinance,
		Priority:    domain.PriorityMedium,
		Subject:     "ledger mismatch",
		Description: "totals differ after import",
		CreatedDate: time.Now().UTC(),
	}
	require.NoError(t, incidents.Create(context.Background(), incident))

	return &commentFixture{
		svc:        NewCommentService(incidents, comments, dispatcher, zap.NewNop()),
		incidents:  incidents,
		comments:   comments,
		dispatcher: dispatcher,
		owner:      owner,
		erp:        domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleERP}},
		incident:   incident,
	}
}

func TestAddCommentsBatch(t *testing.T) {
	fx := newCommentFixture(t)

	created, err := fx.svc.Add(context.Background(), fx.erp, fx.incident.ID, []string{
		"checked the import logs",
		"  rerunning with verbose tracing  ",
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "rerunning with verbose tracing", created[1].Text)
	assert.Equal(t, fx.erp.UserID, created[0].CreatorID)
	assert.Equal(t, []events.EventType{events.EventIncidentCommentAdded}, fx.dispatcher.typesSeen())
}

func TestAddCommentsRejectsWholeBatchOnOneBadText(t *testing.T) {
	fx := newCommentFixture(t)

	tooLong := strings.Repeat("x", domain.CommentMaxLength+1)
	_, err := fx.svc.Add(context.Background(), fx.owner, fx.incident.ID, []string{"fine", tooLong})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	assert.Empty(t, fx.comments.comments)

	_, err = fx.svc.Add(context.Background(), fx.owner, fx.incident.ID, []string{"fine", "   "})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
	assert.Empty(t, fx.comments.comments)
}

func TestCommentLengthCountsCharacters(t *testing.T) {
	fx := newCommentFixture(t)

	atLimit := strings.Repeat("ü", domain.CommentMaxLength)
	created, err := fx.svc.Add(context.Background(), fx.owner, fx.incident.ID, []string{atLimit})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, atLimit, created[0].Text)

	overLimit := strings.Repeat("ü", domain.CommentMaxLength+1)
	_, err = fx.svc.Add(context.Background(), fx.owner, fx.incident.ID, []string{overLimit})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
}

func TestAddCommentsAuthorization(t *testing.T) {
	fx := newCommentFixture(t)

	stranger := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleEmployee}}
	_, err := fx.svc.Add(context.Background(), stranger, fx.incident.ID, []string{"drive-by note"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	_, err = fx.svc.Add(context.Background(), fx.owner, uuid.New(), []string{"anyone home"})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "NOT_FOUND"))
}

func TestListCommentsRequiresReadAccess(t *testing.T) {
	fx := newCommentFixture(t)

	_, err := fx.svc.Add(context.Background(), fx.owner, fx.incident.ID, []string{"first"})
	require.NoError(t, err)

	thread, err := fx.svc.List(context.Background(), fx.erp, fx.incident.ID)
	require.NoError(t, err)
	assert.Len(t, thread, 1)

	stranger := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleEmployee}}
	_, err = fx.svc.List(context.Background(), stranger, fx.incident.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}
