package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/storage"
	apperrors "github.com/spec-kit/incident-service/pkg/util"
)

// allowedAttachmentExtensions is the accept list for uploads; anything else
// rejects the whole batch.
var allowedAttachmentExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".pdf": {}, ".docx": {}, ".xlsx": {},
}

// FileUpload is one file in an upload request. Size must be known up front so
// the batch can be validated before any bytes are written.
type FileUpload struct {
	FileName string
	Size     int64
	Content  io.Reader
}

// AttachmentService manages evidence files on an incident. Only the reporter
// who logged the incident may add, replace or remove attachments. Files are
// written to storage before their rows are inserted; a crash between the two
// leaves an orphaned file, never a dangling row.
type AttachmentService struct {
	incidents   repository.IncidentRepository
	attachments repository.AttachmentRepository
	store       storage.FileStore
	dispatcher  events.Dispatcher
	maxFileSize int64
	logger      *zap.Logger
	now         func() time.Time
}

// NewAttachmentService wires the service.
func NewAttachmentService(
	incidents repository.IncidentRepository,
	attachments repository.AttachmentRepository,
	store storage.FileStore,
	dispatcher events.Dispatcher,
	maxFileSize int64,
	logger *zap.Logger,
) *AttachmentService {
	return &AttachmentService{
		incidents:   incidents,
		attachments: attachments,
		store:       store,
		dispatcher:  dispatcher,
		maxFileSize: maxFileSize,
		logger:      logger,
		now:         time.Now,
	}
}

// Add appends attachments to an incident. Every file in the request is
// validated before any file is written; one invalid file rejects the batch.
func (s *AttachmentService) Add(ctx context.Context, actor domain.Actor, incidentID uuid.UUID, files []FileUpload) ([]domain.Attachment, error) {
	incident, err := s.authorize(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	if err := s.validateFiles(files); err != nil {
		return nil, err
	}

	created, err := s.persistFiles(ctx, actor, incident.ID, files)
	if err != nil {
		return nil, err
	}
	if err := s.attachments.CreateBatch(ctx, created); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publishChange(ctx, actor, incidentID, "added", len(created))
	return created, nil
}

// Replace swaps the full attachment set: the new files are validated and
// written, the rows are replaced in one transaction, and the old files are
// deleted best-effort afterwards. A failed file deletion is logged and never
// aborts the replacement.
func (s *AttachmentService) Replace(ctx context.Context, actor domain.Actor, incidentID uuid.UUID, files []FileUpload) ([]domain.Attachment, error) {
	incident, err := s.authorize(ctx, actor, incidentID)
	if err != nil {
		return nil, err
	}
	if err := s.validateFiles(files); err != nil {
		return nil, err
	}

	existing, err := s.attachments.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	created, err := s.persistFiles(ctx, actor, incident.ID, files)
	if err != nil {
		return nil, err
	}
	if err := s.attachments.ReplaceForIncident(ctx, incidentID, created); err != nil {
		return nil, apperrors.MapError(err)
	}

	for _, old := range existing {
		s.store.Remove(old.StoragePath)
	}

	s.publishChange(ctx, actor, incidentID, "replaced", len(created))
	return created, nil
}

// Remove deletes the named attachments. IDs that match nothing are ignored;
// removing an already-removed attachment succeeds.
func (s *AttachmentService) Remove(ctx context.Context, actor domain.Actor, incidentID uuid.UUID, ids []uuid.UUID) error {
	if _, err := s.authorize(ctx, actor, incidentID); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	existing, err := s.attachments.ListByIncident(ctx, incidentID)
	if err != nil {
		return apperrors.MapError(err)
	}
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	var matched []domain.Attachment
	for _, attachment := range existing {
		if _, ok := wanted[attachment.ID]; ok {
			matched = append(matched, attachment)
		}
	}
	if len(matched) == 0 {
		return nil
	}

	matchedIDs := make([]uuid.UUID, 0, len(matched))
	for _, attachment := range matched {
		matchedIDs = append(matchedIDs, attachment.ID)
	}
	if err := s.attachments.DeleteByIDs(ctx, incidentID, matchedIDs); err != nil {
		return apperrors.MapError(err)
	}
	for _, attachment := range matched {
		s.store.Remove(attachment.StoragePath)
	}

	s.publishChange(ctx, actor, incidentID, "removed", len(matched))
	return nil
}

// List returns attachment metadata for the incident.
func (s *AttachmentService) List(ctx context.Context, actor domain.Actor, incidentID uuid.UUID) ([]domain.Attachment, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("incident", map[string]any{"id": incidentID.String()})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.CanRead(actor, incident.LoggedById) {
		return nil, apperrors.NewForbidden("not allowed to view this incident")
	}
	result, err := s.attachments.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}

func (s *AttachmentService) authorize(ctx context.Context, actor domain.Actor, incidentID uuid.UUID) (*domain.Incident, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("incident", map[string]any{"id": incidentID.String()})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.CanManageAttachments(actor, incident.LoggedById) {
		return nil, apperrors.NewForbidden("only the reporter may manage attachments")
	}
	return incident, nil
}

func (s *AttachmentService) validateFiles(files []FileUpload) error {
	if len(files) == 0 {
		return apperrors.NewValidationError("at least one file is required", nil)
	}
	for _, file := range files {
		ext := strings.ToLower(filepath.Ext(file.FileName))
		if _, ok := allowedAttachmentExtensions[ext]; !ok {
			return apperrors.NewValidationError("file type is not allowed", map[string]any{
				"file_name": file.FileName,
			})
		}
		if file.Size <= 0 {
			return apperrors.NewValidationError("file is empty", map[string]any{
				"file_name": file.FileName,
			})
		}
		if file.Size > s.maxFileSize {
			return apperrors.NewValidationError("file exceeds maximum size", map[string]any{
				"file_name":      file.FileName,
				"max_size_bytes": s.maxFileSize,
			})
		}
	}
	return nil
}

func (s *AttachmentService) persistFiles(ctx context.Context, actor domain.Actor, incidentID uuid.UUID, files []FileUpload) ([]domain.Attachment, error) {
	now := s.now().UTC()
	created := make([]domain.Attachment, 0, len(files))
	for _, file := range files {
		storagePath, err := s.store.Save(ctx, incidentID, file.FileName, file.Content)
		if err != nil {
			s.logger.Error("failed to store attachment file",
				zap.String("incident_id", incidentID.String()),
				zap.String("file_name", file.FileName),
				zap.Error(err))
			return nil, apperrors.NewInternalError(err)
		}
		created = append(created, domain.Attachment{
			ID:          uuid.New(),
			IncidentID:  incidentID,
			FileName:    file.FileName,
			StoragePath: storagePath,
			UploaderID:  actor.UserID,
			UploadedAt:  now,
		})
	}
	return created, nil
}

func (s *AttachmentService) publishChange(ctx context.Context, actor domain.Actor, incidentID uuid.UUID, action string, count int) {
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventIncidentAttachmentsChanged,
		IncidentID: incidentID,
		ActorID:    actor.UserID,
		Timestamp:  s.now().UTC(),
		Payload:    events.IncidentAttachmentsChangedPayload{Action: action, Count: count},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(events.EventIncidentAttachmentsChanged)),
			zap.Error(err))
	}

	s.logger.Info("attachments changed",
		zap.String("incident_id", incidentID.String()),
		zap.String("actor_id", actor.UserID.String()),
		zap.String("action", action),
		zap.Int("count", count))
}
