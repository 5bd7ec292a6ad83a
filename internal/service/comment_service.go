package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/policy"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util"
)

// CommentService manages the append-only comment thread on an incident.
type CommentService struct {
	incidents  repository.IncidentRepository
	comments   repository.CommentRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// NewCommentService wires the service.
func NewCommentService(
	incidents repository.IncidentRepository,
	comments repository.CommentRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *CommentService {
	return &CommentService{
		incidents:  incidents,
		comments:   comments,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Add appends one or more comments to an incident. The whole batch is
// validated before anything is persisted; one bad text rejects all of them.
func (s *CommentService) Add(ctx context.Context, actor domain.Actor, incidentID uuid.UUID, texts []string) ([]domain.Comment, error) {
	incident, err := s.incidents.GetByID(ctx, incidentID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("incident", map[string]any{"id": incidentID.String()})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.CanComment(actor, incident.LoggedById) {
		return nil, apperrors.NewForbidden("not allowed to comment on this incident")
	}

	if len(texts) == 0 {
		return nil, apperrors.NewValidationError("at least one comment is required", nil)
	}
	trimmed := make([]string, 0, len(texts))
	for i, text := range texts {
		t := strings.TrimSpace(text)
		if t == "" {
			return nil, apperrors.NewValidationError("comment text cannot be empty", map[string]any{"index": i})
		}
		if utf8.RuneCountInString(t) > domain.CommentMaxLength {
			return nil, apperrors.NewValidationError("comment text exceeds maximum length", map[string]any{
				"index":      i,
				"max_length": domain.CommentMaxLength,
			})
		}
		trimmed = append(trimmed, t)
	}

	now := s.now().UTC()
	batch := make([]domain.Comment, 0, len(trimmed))
	ids := make([]uuid.UUID, 0, len(trimmed))
	for _, text := range trimmed {
		comment := domain.Comment{
			ID:         uuid.New(),
			IncidentID: incidentID,
			Text:       text,
			CreatorID:  actor.UserID,
			CreatedAt:  now,
		}
		batch = append(batch, comment)
		ids = append(ids, comment.ID)
	}

	if err := s.comments.CreateBatch(ctx, batch); err != nil {
		return nil, apperrors.MapError(err)
	}

	event := events.Event{
		ID:         uuid.NewString(),
		Type:       events.EventIncidentCommentAdded,
		IncidentID: incidentID,
		ActorID:    actor.UserID,
		Timestamp:  now,
		Payload:    events.IncidentCommentAddedPayload{CommentIDs: ids},
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(events.EventIncidentCommentAdded)),
			zap.Error(err))
	}

	s.logger.Info("comments added",
		zap.String("incident_id", incidentID.String()),
		zap.String("actor_id", actor.UserID.String()),
		zap.Int("count", len(batch)))
	return batch, nil
}

// List returns the comment thread, oldest first.
func (s *CommentService) List(ctx context.Context, actor domain.Actor, incidentID uuid.UUID) ([]repository.CommentWithCreator, error) {
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
	result, err := s.comments.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return result, nil
}
