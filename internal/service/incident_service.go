package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
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

const (
	subjectMaxLength    = 200
	urlMaxLength        = 200
	suggestionMaxLength = 500
	defaultPageSize     = 20
	maxPageSize         = 100
)

// CreateIncidentInput carries the creation-time fields. Everything here is
// immutable once the incident exists.
type CreateIncidentInput struct {
	CallType        domain.CallType
	Module          domain.Module
	Priority        domain.Priority
	UrlOrFormName   string
	IsRecurring     bool
	RecurringCallId *uuid.UUID
	Subject         string
	Description     string
	Suggestion      *string
}

// UpdateIncidentInput is a mutation batch: every non-nil field is requested
// to change. The batch applies all-or-nothing.
type UpdateIncidentInput struct {
	Suggestion    *string
	UserStatus    *domain.IncidentUserStatus
	SupportStatus *domain.SupportStatus
	AssignedToId  *uuid.UUID
	DeliveryDate  *time.Time
}

// IsEmpty reports whether the batch requests no changes.
func (in UpdateIncidentInput) IsEmpty() bool {
	return in.Suggestion == nil && in.UserStatus == nil && in.SupportStatus == nil &&
		in.AssignedToId == nil && in.DeliveryDate == nil
}

// IncidentDetail is the full read model: the incident plus resolved usernames
// and the comment/attachment collections.
type IncidentDetail struct {
	Incident           domain.Incident
	LoggedByUserName   string
	AssignedToUserName *string
	Comments           []repository.CommentWithCreator
	Attachments        []domain.Attachment
}

// PagedIncidents is the pagination envelope for list queries.
type PagedIncidents struct {
	Items      []repository.IncidentSummary
	PageNumber int
	PageSize   int
	TotalCount int
	TotalPages int
}

// IncidentService implements incident creation and the role-gated mutation
// engine. An update request either applies every requested field change or
// none of them.
type IncidentService struct {
	incidents   repository.IncidentRepository
	users       repository.UserRepository
	comments    repository.CommentRepository
	attachments repository.AttachmentRepository
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         func() time.Time
}

// NewIncidentService wires the service.
func NewIncidentService(
	incidents repository.IncidentRepository,
	users repository.UserRepository,
	comments repository.CommentRepository,
	attachments repository.AttachmentRepository,
	dispatcher events.Dispatcher,
	logger *zap.Logger,
) *IncidentService {
	return &IncidentService{
		incidents:   incidents,
		users:       users,
		comments:    comments,
		attachments: attachments,
		dispatcher:  dispatcher,
		logger:      logger,
		now:         time.Now,
	}
}

// Create logs a new incident for the acting user. Both lifecycle statuses
// start at PENDING and the recurring reference, when present, must point at
// an existing non-deleted incident.
func (s *IncidentService) Create(ctx context.Context, actor domain.Actor, input CreateIncidentInput) (*domain.Incident, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	if input.IsRecurring && input.RecurringCallId != nil {
		exists, err := s.incidents.Exists(ctx, *input.RecurringCallId)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !exists {
			return nil, apperrors.NewNotFound("recurring incident", map[string]any{
				"recurring_call_id": input.RecurringCallId.String(),
			})
		}
	}

	now := s.now().UTC()
	incident := &domain.Incident{
		ID:                uuid.New(),
		CallRef:           generateCallRef(),
		LoggedById:        actor.UserID,
		CallType:          input.CallType,
		Module:            input.Module,
		Priority:          input.Priority,
		UrlOrFormName:     strings.TrimSpace(input.UrlOrFormName),
		IsRecurring:       input.IsRecurring,
		RecurringCallId:   input.RecurringCallId,
		Subject:           strings.TrimSpace(input.Subject),
		Description:       strings.TrimSpace(input.Description),
		Suggestion:        input.Suggestion,
		SupportStatus:     domain.SupportStatusPending,
		UserStatus:        domain.IncidentUserStatusPending,
		CreatedDate:       now,
		StatusUpdatedDate: now,
	}

	if err := s.incidents.Create(ctx, incident); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventIncidentCreated, incident.ID, actor.UserID, events.IncidentCreatedPayload{
		CallRef:  incident.CallRef,
		CallType: incident.CallType,
		Module:   incident.Module,
		Priority: incident.Priority,
		Subject:  incident.Subject,
	})

	s.logger.Info("incident created",
		zap.String("incident_id", incident.ID.String()),
		zap.String("call_ref", incident.CallRef),
		zap.String("logged_by", actor.UserID.String()))
	return incident, nil
}

// Update applies a mutation batch. Authorization for every requested field
// group is evaluated before any state changes; a single denial rejects the
// whole batch and leaves the incident untouched.
func (s *IncidentService) Update(ctx context.Context, actor domain.Actor, id uuid.UUID, input UpdateIncidentInput) (*domain.Incident, error) {
	if input.IsEmpty() {
		return nil, apperrors.NewValidationError("update requires at least one field", nil)
	}
	if err := validateUpdateInput(input); err != nil {
		return nil, err
	}

	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("incident", map[string]any{"id": id.String()})
		}
		return nil, apperrors.MapError(err)
	}

	for _, group := range requestedFieldGroups(input) {
		if !policy.CanEditField(actor, incident.LoggedById, group) {
			s.logger.Warn("incident update denied",
				zap.String("incident_id", id.String()),
				zap.String("actor_id", actor.UserID.String()),
				zap.String("field_group", string(group)))
			return nil, apperrors.NewForbidden("not allowed to modify " + string(group))
		}
	}

	if input.DeliveryDate != nil && input.DeliveryDate.Before(incident.CreatedDate) {
		return nil, apperrors.NewValidationError("delivery date cannot precede creation date", map[string]any{
			"delivery_date": input.DeliveryDate.Format(time.RFC3339),
			"created_date":  incident.CreatedDate.Format(time.RFC3339),
		})
	}

	if input.AssignedToId != nil {
		exists, err := s.users.Exists(ctx, *input.AssignedToId)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		if !exists {
			return nil, apperrors.NewNotFound("user", map[string]any{"id": input.AssignedToId.String()})
		}
	}

	now := s.now().UTC()
	changed := make([]string, 0, 5)
	wasClosed := incident.ClosedDate != nil

	if input.Suggestion != nil {
		incident.Suggestion = input.Suggestion
		changed = append(changed, "suggestion")
	}
	if input.UserStatus != nil {
		if *input.UserStatus == domain.IncidentUserStatusClosed {
			incident.Close(now)
		} else {
			incident.UserStatus = *input.UserStatus
		}
		changed = append(changed, "user_status")
	}
	if input.SupportStatus != nil {
		incident.SupportStatus = *input.SupportStatus
		changed = append(changed, "support_status")
	}
	if input.AssignedToId != nil {
		incident.AssignedToId = input.AssignedToId
		changed = append(changed, "assigned_to_id")
	}
	if input.DeliveryDate != nil {
		incident.DeliveryDate = input.DeliveryDate
		changed = append(changed, "delivery_date")
	}
	incident.StatusUpdatedDate = now

	if err := s.incidents.Update(ctx, incident); err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("incident", map[string]any{"id": id.String()})
		}
		return nil, apperrors.MapError(err)
	}

	s.publish(ctx, events.EventIncidentUpdated, incident.ID, actor.UserID, events.IncidentUpdatedPayload{
		ChangedFields: changed,
		SupportStatus: input.SupportStatus,
		UserStatus:    input.UserStatus,
	})
	if input.AssignedToId != nil {
		s.publish(ctx, events.EventIncidentAssigned, incident.ID, actor.UserID, events.IncidentAssignedPayload{
			AssignedToId: *input.AssignedToId,
		})
	}
	if !wasClosed && incident.ClosedDate != nil {
		s.publish(ctx, events.EventIncidentClosed, incident.ID, actor.UserID, events.IncidentClosedPayload{
			ClosedDate: *incident.ClosedDate,
		})
	}

	s.logger.Info("incident updated",
		zap.String("incident_id", incident.ID.String()),
		zap.String("actor_id", actor.UserID.String()),
		zap.Strings("changed_fields", changed))
	return incident, nil
}

// GetDetail returns the full read model. Employees may only read incidents
// they logged.
func (s *IncidentService) GetDetail(ctx context.Context, actor domain.Actor, id uuid.UUID) (*IncidentDetail, error) {
	incident, err := s.incidents.GetByID(ctx, id)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, apperrors.NewNotFound("incident", map[string]any{"id": id.String()})
		}
		return nil, apperrors.MapError(err)
	}
	if !policy.CanRead(actor, incident.LoggedById) {
		return nil, apperrors.NewForbidden("not allowed to view this incident")
	}

	detail := &IncidentDetail{Incident: *incident}

	loggedBy, err := s.users.GetByID(ctx, incident.LoggedById)
	if err != nil && err != pgx.ErrNoRows {
		return nil, apperrors.MapError(err)
	}
	if loggedBy != nil {
		detail.LoggedByUserName = loggedBy.UserName
	}
	if incident.AssignedToId != nil {
		assignee, err := s.users.GetByID(ctx, *incident.AssignedToId)
		if err != nil && err != pgx.ErrNoRows {
			return nil, apperrors.MapError(err)
		}
		if assignee != nil {
			detail.AssignedToUserName = &assignee.UserName
		}
	}

	if detail.Comments, err = s.comments.ListByIncident(ctx, id); err != nil {
		return nil, apperrors.MapError(err)
	}
	if detail.Attachments, err = s.attachments.ListByIncident(ctx, id); err != nil {
		return nil, apperrors.MapError(err)
	}
	return detail, nil
}

// Paged returns a page of incident summaries. Non-privileged actors are
// scoped to their own incidents regardless of the requested filter.
func (s *IncidentService) Paged(ctx context.Context, actor domain.Actor, filter repository.IncidentFilter, page, pageSize int) (*PagedIncidents, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	if !policy.SeesAllIncidents(actor) {
		scoped := actor.UserID
		filter.LoggedById = &scoped
	}
	filter.Limit = pageSize
	filter.Offset = (page - 1) * pageSize

	total, err := s.incidents.CountWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	items, err := s.incidents.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	totalPages := 0
	if total > 0 {
		totalPages = (total + pageSize - 1) / pageSize
	}
	return &PagedIncidents{
		Items:      items,
		PageNumber: page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages,
	}, nil
}

// List returns incident summaries without pagination metadata, scoped the
// same way as Paged.
func (s *IncidentService) List(ctx context.Context, actor domain.Actor, filter repository.IncidentFilter) ([]repository.IncidentSummary, error) {
	if !policy.SeesAllIncidents(actor) {
		scoped := actor.UserID
		filter.LoggedById = &scoped
	}
	items, err := s.incidents.ListWithFilter(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return items, nil
}

func (s *IncidentService) publish(ctx context.Context, eventType events.EventType, incidentID, actorID uuid.UUID, payload any) {
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		IncidentID: incidentID,
		ActorID:    actorID,
		Timestamp:  s.now().UTC(),
		Payload:    payload,
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed",
			zap.String("event_type", string(eventType)),
			zap.String("incident_id", incidentID.String()),
			zap.Error(err))
	}
}

func requestedFieldGroups(input UpdateIncidentInput) []policy.FieldGroup {
	groups := make([]policy.FieldGroup, 0, 4)
	if input.Suggestion != nil || input.UserStatus != nil {
		groups = append(groups, policy.FieldGroupSuggestionUserStatus)
	}
	if input.SupportStatus != nil {
		groups = append(groups, policy.FieldGroupSupportStatus)
	}
	if input.AssignedToId != nil {
		groups = append(groups, policy.FieldGroupAssignedTo)
	}
	if input.DeliveryDate != nil {
		groups = append(groups, policy.FieldGroupDeliveryDate)
	}
	return groups
}

func validateCreateInput(input CreateIncidentInput) error {
	details := map[string]any{}
	if !input.CallType.Valid() {
		details["call_type"] = "unknown call type"
	}
	if !input.Module.Valid() {
		details["module"] = "unknown module"
	}
	if !input.Priority.Valid() {
		details["priority"] = "unknown priority"
	}
	if subject := strings.TrimSpace(input.Subject); subject == "" {
		details["subject"] = "subject is required"
	} else if utf8.RuneCountInString(subject) > subjectMaxLength {
		details["subject"] = "subject exceeds maximum length"
	}
	if url := strings.TrimSpace(input.UrlOrFormName); url == "" {
		details["url_or_form_name"] = "url or form name is required"
	} else if utf8.RuneCountInString(url) > urlMaxLength {
		details["url_or_form_name"] = "url or form name exceeds maximum length"
	}
	if strings.TrimSpace(input.Description) == "" {
		details["description"] = "description is required"
	}
	if input.Suggestion != nil && utf8.RuneCountInString(*input.Suggestion) > suggestionMaxLength {
		details["suggestion"] = "suggestion exceeds maximum length"
	}
	if input.IsRecurring && input.RecurringCallId == nil {
		details["recurring_call_id"] = "recurring incidents must reference a prior incident"
	}
	if !input.IsRecurring && input.RecurringCallId != nil {
		details["recurring_call_id"] = "recurring reference requires is_recurring"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("incident failed validation", details)
	}
	return nil
}

func validateUpdateInput(input UpdateIncidentInput) error {
	details := map[string]any{}
	if input.UserStatus != nil && !input.UserStatus.Valid() {
		details["user_status"] = "unknown user status"
	}
	if input.SupportStatus != nil && !input.SupportStatus.Valid() {
		details["support_status"] = "unknown support status"
	}
	if input.Suggestion != nil && utf8.RuneCountInString(*input.Suggestion) > suggestionMaxLength {
		details["suggestion"] = "suggestion exceeds maximum length"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("update failed validation", details)
	}
	return nil
}

// generateCallRef produces a human-facing reference like INC-3F92A1C4.
func generateCallRef() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "INC-" + strings.ToUpper(uuid.NewString()[:8])
	}
	return "INC-" + strings.ToUpper(hex.EncodeToString(buf))
}
