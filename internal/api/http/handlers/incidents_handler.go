package handlers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/incident-service/internal/api/dto"
	"github.com/spec-kit/incident-service/internal/auth"
	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/service"
	apperrors "github.com/spec-kit/incident-service/pkg/util"
)

// IncidentsHandler manages incident endpoints including the comment thread
// and attachment collections.
type IncidentsHandler struct {
	incidents   *service.IncidentService
	comments    *service.CommentService
	attachments *service.AttachmentService
}

// NewIncidentsHandler constructs handler.
func NewIncidentsHandler(
	incidents *service.IncidentService,
	comments *service.CommentService,
	attachments *service.AttachmentService,
) *IncidentsHandler {
	return &IncidentsHandler{incidents: incidents, comments: comments, attachments: attachments}
}

// Create POST /incidents.
func (h *IncidentsHandler) Create(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.CreateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.CreateIncidentInput{
		CallType:      req.CallType,
		Module:        req.Module,
		Priority:      req.Priority,
		UrlOrFormName: req.UrlOrFormName,
		IsRecurring:   req.IsRecurring,
		Subject:       req.Subject,
		Description:   req.Description,
		Suggestion:    req.Suggestion,
	}
	if req.RecurringCallId != nil {
		id, err := uuid.Parse(*req.RecurringCallId)
		if err != nil {
			return apperrors.NewValidationError("invalid recurring_call_id", nil)
		}
		input.RecurringCallId = &id
	}

	incident, err := h.incidents.Create(c.UserContext(), actor, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": incidentDetailResponse(&service.IncidentDetail{Incident: *incident})})
}

// Update PATCH /incidents/:id.
func (h *IncidentsHandler) Update(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incidentID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var req dto.UpdateIncidentRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	input := service.UpdateIncidentInput{
		Suggestion:    req.Suggestion,
		UserStatus:    req.UserStatus,
		SupportStatus: req.SupportStatus,
		DeliveryDate:  req.DeliveryDate,
	}
	if req.AssignedToId != nil {
		id, err := uuid.Parse(*req.AssignedToId)
		if err != nil {
			return apperrors.NewValidationError("invalid assigned_to_id", nil)
		}
		input.AssignedToId = &id
	}

	incident, err := h.incidents.Update(c.UserContext(), actor, incidentID, input)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidentDetailResponse(&service.IncidentDetail{Incident: *incident})})
}

// Get GET /incidents/:id.
func (h *IncidentsHandler) Get(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incidentID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	detail, err := h.incidents.GetDetail(c.UserContext(), actor, incidentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": incidentDetailResponse(detail)})
}

// List GET /incidents.
func (h *IncidentsHandler) List(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	filter := parseIncidentQuery(c)
	page := parseInt(c.Query("page"), 1)
	pageSize := parseInt(c.Query("page_size"), 20)

	result, err := h.incidents.Paged(c.UserContext(), actor, filter, page, pageSize)
	if err != nil {
		return err
	}

	items := make([]dto.IncidentSummary, 0, len(result.Items))
	for i := range result.Items {
		items = append(items, incidentSummary(&result.Items[i]))
	}
	return c.JSON(fiber.Map{"data": dto.PagedIncidentsResponse{
		Items:      items,
		PageNumber: result.PageNumber,
		PageSize:   result.PageSize,
		TotalCount: result.TotalCount,
		TotalPages: result.TotalPages,
	}})
}

// AddComments POST /incidents/:id/comments.
func (h *IncidentsHandler) AddComments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incidentID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var req dto.AddCommentsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	created, err := h.comments.Add(c.UserContext(), actor, incidentID, req.Texts)
	if err != nil {
		return err
	}
	items := make([]dto.CommentResponse, 0, len(created))
	for _, comment := range created {
		items = append(items, dto.CommentResponse{
			ID:        comment.ID.String(),
			Text:      comment.Text,
			CreatorID: comment.CreatorID.String(),
			CreatedAt: comment.CreatedAt,
		})
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": items})
}

// ListComments GET /incidents/:id/comments.
func (h *IncidentsHandler) ListComments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incidentID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	thread, err := h.comments.List(c.UserContext(), actor, incidentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": commentResponses(thread)})
}

// AddAttachments POST /incidents/:id/attachments (multipart).
func (h *IncidentsHandler) AddAttachments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incidentID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	files, closeFiles, err := uploadsFromRequest(c)
	if err != nil {
		return err
	}
	defer closeFiles()

	created, err := h.attachments.Add(c.UserContext(), actor, incidentID, files)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": attachmentResponses(created)})
}

// ReplaceAttachments PUT /incidents/:id/attachments (multipart).
func (h *IncidentsHandler) ReplaceAttachments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incidentID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	files, closeFiles, err := uploadsFromRequest(c)
	if err != nil {
		return err
	}
	defer closeFiles()

	created, err := h.attachments.Replace(c.UserContext(), actor, incidentID, files)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": attachmentResponses(created)})
}

// RemoveAttachments DELETE /incidents/:id/attachments.
func (h *IncidentsHandler) RemoveAttachments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incidentID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	var req dto.RemoveAttachmentsRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	ids := make([]uuid.UUID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return apperrors.NewValidationError("invalid attachment id", map[string]any{"id": raw})
		}
		ids = append(ids, id)
	}

	if err := h.attachments.Remove(c.UserContext(), actor, incidentID, ids); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListAttachments GET /incidents/:id/attachments.
func (h *IncidentsHandler) ListAttachments(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	incidentID, err := parseIDParam(c)
	if err != nil {
		return err
	}
	attachments, err := h.attachments.List(c.UserContext(), actor, incidentID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": attachmentResponses(attachments)})
}

func parseIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, apperrors.NewValidationError("invalid incident id", nil)
	}
	return id, nil
}

func uploadsFromRequest(c *fiber.Ctx) ([]service.FileUpload, func(), error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, nil, apperrors.NewValidationError("multipart form required", nil)
	}
	headers := form.File["files"]

	var opened []multipart.File
	closeAll := func() {
		for _, f := range opened {
			f.Close()
		}
	}

	uploads := make([]service.FileUpload, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, nil, apperrors.NewValidationError("unreadable file in upload", map[string]any{
				"file_name": header.Filename,
			})
		}
		opened = append(opened, f)
		uploads = append(uploads, service.FileUpload{
			FileName: header.Filename,
			Size:     header.Size,
			Content:  f,
		})
	}
	return uploads, closeAll, nil
}

func parseIncidentQuery(c *fiber.Ctx) repository.IncidentFilter {
	filter := repository.IncidentFilter{}
	if val := c.Query("support_status"); val != "" {
		status := domain.SupportStatus(strings.ToUpper(strings.TrimSpace(val)))
		filter.SupportStatus = &status
	}
	if val := c.Query("user_status"); val != "" {
		status := domain.IncidentUserStatus(strings.ToUpper(strings.TrimSpace(val)))
		filter.UserStatus = &status
	}
	if val := c.Query("module"); val != "" {
		module := domain.Module(strings.ToUpper(strings.TrimSpace(val)))
		filter.Module = &module
	}
	if val := c.Query("priority"); val != "" {
		priority := domain.Priority(strings.ToUpper(strings.TrimSpace(val)))
		filter.Priority = &priority
	}
	if val := c.Query("assigned_to_id"); val != "" {
		if id, err := uuid.Parse(val); err == nil {
			filter.AssignedToId = &id
		}
	}
	if from := parseTime(c.Query("created_from")); from != nil {
		filter.FromDate = from
	}
	if to := parseTime(c.Query("created_to")); to != nil {
		filter.ToDate = to
	}
	return filter
}

func parseTime(val string) *time.Time {
	if val == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil
	}
	return &t
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func incidentSummary(row *repository.IncidentSummary) dto.IncidentSummary {
	incident := &row.Incident
	return dto.IncidentSummary{
		ID:                 incident.ID.String(),
		CallRef:            incident.CallRef,
		LoggedById:         incident.LoggedById.String(),
		LoggedByUserName:   row.LoggedByUserName,
		AssignedToId:       uuidString(incident.AssignedToId),
		AssignedToUserName: row.AssignedToUserName,
		CallType:           incident.CallType,
		Module:             incident.Module,
		Priority:           incident.Priority,
		Subject:            incident.Subject,
		SupportStatus:      incident.SupportStatus,
		UserStatus:         incident.UserStatus,
		CreatedDate:        incident.CreatedDate,
		DeliveryDate:       incident.DeliveryDate,
		StatusUpdatedDate:  incident.StatusUpdatedDate,
		ClosedDate:         incident.ClosedDate,
	}
}

func incidentDetailResponse(detail *service.IncidentDetail) dto.IncidentDetailResponse {
	incident := &detail.Incident
	return dto.IncidentDetailResponse{
		ID:                 incident.ID.String(),
		CallRef:            incident.CallRef,
		LoggedById:         incident.LoggedById.String(),
		LoggedByUserName:   detail.LoggedByUserName,
		AssignedToId:       uuidString(incident.AssignedToId),
		AssignedToUserName: detail.AssignedToUserName,
		CallType:           incident.CallType,
		Module:             incident.Module,
		Priority:           incident.Priority,
		UrlOrFormName:      incident.UrlOrFormName,
		IsRecurring:        incident.IsRecurring,
		RecurringCallId:    uuidString(incident.RecurringCallId),
		Subject:            incident.Subject,
		Description:        incident.Description,
		Suggestion:         incident.Suggestion,
		SupportStatus:      incident.SupportStatus,
		UserStatus:         incident.UserStatus,
		CreatedDate:        incident.CreatedDate,
		DeliveryDate:       incident.DeliveryDate,
		StatusUpdatedDate:  incident.StatusUpdatedDate,
		ClosedDate:         incident.ClosedDate,
		Comments:           commentResponses(detail.Comments),
		Attachments:        attachmentResponses(detail.Attachments),
	}
}

func commentResponses(thread []repository.CommentWithCreator) []dto.CommentResponse {
	items := make([]dto.CommentResponse, 0, len(thread))
	for _, row := range thread {
		items = append(items, dto.CommentResponse{
			ID:              row.Comment.ID.String(),
			Text:            row.Comment.Text,
			CreatorID:       row.Comment.CreatorID.String(),
			CreatorUserName: row.CreatorUserName,
			CreatedAt:       row.Comment.CreatedAt,
		})
	}
	return items
}

func attachmentResponses(attachments []domain.Attachment) []dto.AttachmentResponse {
	items := make([]dto.AttachmentResponse, 0, len(attachments))
	for _, attachment := range attachments {
		items = append(items, dto.AttachmentResponse{
			ID:         attachment.ID.String(),
			FileName:   attachment.FileName,
			URL:        "/files/" + attachment.StoragePath,
			UploadedAt: attachment.UploadedAt,
		})
	}
	return items
}

func uuidString(id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	s := id.String()
	return &s
}
