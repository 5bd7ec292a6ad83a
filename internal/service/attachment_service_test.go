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
	apperrors "github.com/spec-kit/incident-service/pkg/util"
)

const testMaxFileSize = 5 * 1024 * 1024

type attachmentFixture struct {
	svc         *AttachmentService
	attachments *fakeAttachmentRepo
	store       *fakeFileStore
	owner       domain.Actor
	erp         domain.Actor
	incident    *domain.Incident
}

func newAttachmentFixture(t *testing.T) *attachmentFixture {
	t.Helper()

	incidents := newFakeIncidentRepo()
	attachments := &fakeAttachmentRepo{}
	store := &fakeFileStore{}
	dispatcher := &recordingDispatcher{}

	owner := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleEmployee}}
	incident := &domain.Incident{
		ID:          uuid.New(),
		CallRef:     "INC-CC33DD44",
		LoggedById:  owner.UserID,
		CallType:    domain.CallTypeBug,
		Module:      domain.ModuleInventory,
		Priority:    domain.PriorityHigh,
		Subject:     "scanner rejects barcodes",
		Description: "new labels fail to scan at goods-in",
		CreatedDate: time.Now().UTC(),
	}
	require.NoError(t, incidents.Create(context.Background(), incident))

	return &attachmentFixture{
		svc:         NewAttachmentService(incidents, attachments, store, dispatcher, testMaxFileSize, zap.NewNop()),
		attachments: attachments,
		store:       store,
		owner:       owner,
		erp:         domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleERP}},
		incident:    incident,
	}
}

func upload(name string, size int64) FileUpload {
	return FileUpload{FileName: name, Size: size, Content: strings.NewReader("payload")}
}

func TestAddAttachments(t *testing.T) {
	fx := newAttachmentFixture(t)

	created, err := fx.svc.Add(context.Background(), fx.owner, fx.incident.ID, []FileUpload{
		upload("label.png", 1024),
		upload("report.pdf", 2048),
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Len(t, fx.store.saved, 2)
	assert.Equal(t, fx.owner.UserID, created[0].UploaderID)
	assert.NotEmpty(t, created[0].StoragePath)
}

func TestAddRejectsWholeBatchOnInvalidFile(t *testing.T) {
	fx := newAttachmentFixture(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		files []FileUpload
	}{
		{"disallowed extension", []FileUpload{upload("ok.png", 100), upload("b.exe", 100)}},
		{"empty file", []FileUpload{upload("ok.pdf", 100), upload("empty.pdf", 0)}},
		{"oversized file", []FileUpload{upload("huge.xlsx", testMaxFileSize+1)}},
		{"no files", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.svc.Add(ctx, fx.owner, fx.incident.ID, tc.files)
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, "VALIDATION_FAILED"))
		})
	}
	// Nothing was written or stored for any of the rejected batches.
	assert.Empty(t, fx.store.saved)
	assert.Empty(t, fx.attachments.attachments)
}

func TestAttachmentsAreOwnerOnly(t *testing.T) {
	fx := newAttachmentFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Add(ctx, fx.erp, fx.incident.ID, []FileUpload{upload("note.pdf", 100)})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))

	admin := domain.Actor{UserID: uuid.New(), Roles: []string{domain.RoleAdmin}}
	err = fx.svc.Remove(ctx, admin, fx.incident.ID, []uuid.UUID{uuid.New()})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, "FORBIDDEN"))
}

func TestReplaceSwapsSetAndRemovesOldFiles(t *testing.T) {
	fx := newAttachmentFixture(t)
	ctx := context.Background()

	first, err := fx.svc.Add(ctx, fx.owner, fx.incident.ID, []FileUpload{upload("old.png", 100)})
	require.NoError(t, err)

	replaced, err := fx.svc.Replace(ctx, fx.owner, fx.incident.ID, []FileUpload{
		upload("new1.jpg", 100),
		upload("new2.jpg", 100),
	})
	require.NoError(t, err)
	require.Len(t, replaced, 2)

	remaining, err := fx.attachments.ListByIncident(ctx, fx.incident.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
	assert.Equal(t, []string{first[0].StoragePath}, fx.store.removed)
}

func TestRemoveIgnoresUnknownIDs(t *testing.T) {
	fx := newAttachmentFixture(t)
	ctx := context.Background()

	created, err := fx.svc.Add(ctx, fx.owner, fx.incident.ID, []FileUpload{upload("keep.pdf", 100), upload("drop.pdf", 100)})
	require.NoError(t, err)

	// Unknown ids alone are a no-op success.
	require.NoError(t, fx.svc.Remove(ctx, fx.owner, fx.incident.ID, []uuid.UUID{uuid.New()}))
	remaining, err := fx.attachments.ListByIncident(ctx, fx.incident.ID)
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
	assert.Empty(t, fx.store.removed)

	// A mixed request removes the known id and skips the rest.
	require.NoError(t, fx.svc.Remove(ctx, fx.owner, fx.incident.ID, []uuid.UUID{created[1].ID, uuid.New()}))
	remaining, err = fx.attachments.ListByIncident(ctx, fx.incident.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, created[0].ID, remaining[0].ID)
	assert.Equal(t, []string{created[1].StoragePath}, fx.store.removed)

	// Removing the same id again still succeeds.
	require.NoError(t, fx.svc.Remove(ctx, fx.owner, fx.incident.ID, []uuid.UUID{created[1].ID}))
}
