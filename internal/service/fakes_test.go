package service

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/repository"
)

type fakeIncidentRepo struct {
	incidents   map[uuid.UUID]*domain.Incident
	updateCalls int
}

func newFakeIncidentRepo() *fakeIncidentRepo {
	return &fakeIncidentRepo{incidents: make(map[uuid.UUID]*domain.Incident)}
}

func (r *fakeIncidentRepo) Create(_ context.Context, incident *domain.Incident) error {
	clone := *incident
	r.incidents[incident.ID] = &clone
	return nil
}

func (r *fakeIncidentRepo) Update(_ context.Context, incident *domain.Incident) error {
	existing, ok := r.incidents[incident.ID]
	if !ok || existing.IsDeleted {
		return pgx.ErrNoRows
	}
	r.updateCalls++
	existing.Suggestion = incident.Suggestion
	existing.UserStatus = incident.UserStatus
	existing.SupportStatus = incident.SupportStatus
	existing.AssignedToId = incident.AssignedToId
	existing.DeliveryDate = incident.DeliveryDate
	existing.StatusUpdatedDate = incident.StatusUpdatedDate
	existing.ClosedDate = incident.ClosedDate
	return nil
}

func (r *fakeIncidentRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Incident, error) {
	incident, ok := r.incidents[id]
	if !ok || incident.IsDeleted {
		return nil, pgx.ErrNoRows
	}
	clone := *incident
	return &clone, nil
}

func (r *fakeIncidentRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	incident, ok := r.incidents[id]
	return ok && !incident.IsDeleted, nil
}

func (r *fakeIncidentRepo) ListWithFilter(_ context.Context, filter repository.IncidentFilter) ([]repository.IncidentSummary, error) {
	var result []repository.IncidentSummary
	for _, incident := range r.incidents {
		if incident.IsDeleted {
			continue
		}
		if filter.LoggedById != nil && incident.LoggedById != *filter.LoggedById {
			continue
		}
		result = append(result, repository.IncidentSummary{Incident: *incident})
	}
	return result, nil
}

func (r *fakeIncidentRepo) CountWithFilter(ctx context.Context, filter repository.IncidentFilter) (int, error) {
	items, err := r.ListWithFilter(ctx, filter)
	return len(items), err
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) add(user *domain.User) {
	r.users[user.ID] = user
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByUserName(_ context.Context, userName string) (*domain.User, error) {
	for _, user := range r.users {
		if user.UserName == userName {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.users[id]
	return ok, nil
}

func (r *fakeUserRepo) List(_ context.Context, role *string) ([]domain.User, error) {
	var result []domain.User
	for _, user := range r.users {
		if role != nil && !hasRole(user.Roles, *role) {
			continue
		}
		result = append(result, *user)
	}
	return result, nil
}

func (r *fakeUserRepo) SaveRefreshToken(_ context.Context, userID uuid.UUID, token string, expiry time.Time) error {
	user, ok := r.users[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.RefreshToken = &token
	user.RefreshTokenExpiryDate = &expiry
	return nil
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type fakeCommentRepo struct {
	comments []domain.Comment
}

func (r *fakeCommentRepo) CreateBatch(_ context.Context, comments []domain.Comment) error {
	r.comments = append(r.comments, comments...)
	return nil
}

func (r *fakeCommentRepo) ListByIncident(_ context.Context, incidentID uuid.UUID) ([]repository.CommentWithCreator, error) {
	var result []repository.CommentWithCreator
	for _, comment := range r.comments {
		if comment.IncidentID == incidentID {
			result = append(result, repository.CommentWithCreator{Comment: comment})
		}
	}
	return result, nil
}

type fakeAttachmentRepo struct {
	attachments []domain.Attachment
}

func (r *fakeAttachmentRepo) CreateBatch(_ context.Context, attachments []domain.Attachment) error {
	r.attachments = append(r.attachments, attachments...)
	return nil
}

func (r *fakeAttachmentRepo) ListByIncident(_ context.Context, incidentID uuid.UUID) ([]domain.Attachment, error) {
	var result []domain.Attachment
	for _, attachment := range r.attachments {
		if attachment.IncidentID == incidentID {
			result = append(result, attachment)
		}
	}
	return result, nil
}

func (r *fakeAttachmentRepo) DeleteByIDs(_ context.Context, incidentID uuid.UUID, ids []uuid.UUID) error {
	wanted := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	kept := r.attachments[:0]
	for _, attachment := range r.attachments {
		if _, ok := wanted[attachment.ID]; ok && attachment.IncidentID == incidentID {
			continue
		}
		kept = append(kept, attachment)
	}
	r.attachments = kept
	return nil
}

func (r *fakeAttachmentRepo) ReplaceForIncident(ctx context.Context, incidentID uuid.UUID, attachments []domain.Attachment) error {
	kept := r.attachments[:0]
	for _, attachment := range r.attachments {
		if attachment.IncidentID != incidentID {
			kept = append(kept, attachment)
		}
	}
	r.attachments = kept
	return r.CreateBatch(ctx, attachments)
}

type fakeFileStore struct {
	saved   []string
	removed []string
}

func (s *fakeFileStore) Save(_ context.Context, incidentID uuid.UUID, originalName string, content io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, content); err != nil {
		return "", err
	}
	path := "uploads/incidents/" + incidentID.String() + "/" + uuid.NewString() + "-" + originalName
	s.saved = append(s.saved, path)
	return path, nil
}

func (s *fakeFileStore) Remove(relativePath string) {
	s.removed = append(s.removed, relativePath)
}

type recordingDispatcher struct {
	published []events.Event
}

func (d *recordingDispatcher) Publish(_ context.Context, event events.Event) error {
	d.published = append(d.published, event)
	return nil
}

func (d *recordingDispatcher) Subscribe(events.EventType, events.EventHandler) {}

func (d *recordingDispatcher) typesSeen() []events.EventType {
	types := make([]events.EventType, 0, len(d.published))
	for _, event := range d.published {
		types = append(types, event.Type)
	}
	return types
}
