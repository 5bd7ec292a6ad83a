package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// CreateIncidentRequest payload.
type CreateIncidentRequest struct {
	CallType        domain.CallType `json:"call_type"`
	Module          domain.Module   `json:"module"`
	Priority        domain.Priority `json:"priority"`
	UrlOrFormName   string          `json:"url_or_form_name"`
	IsRecurring     bool            `json:"is_recurring"`
	RecurringCallId *string         `json:"recurring_call_id"`
	Subject         string          `json:"subject"`
	Description     string          `json:"description"`
	Suggestion      *string         `json:"suggestion"`
}

// UpdateIncidentRequest is a mutation batch; absent fields are untouched.
type UpdateIncidentRequest struct {
	Suggestion    *string                    `json:"suggestion"`
	UserStatus    *domain.IncidentUserStatus `json:"user_status"`
	SupportStatus *domain.SupportStatus      `json:"support_status"`
	AssignedToId  *string                    `json:"assigned_to_id"`
	DeliveryDate  *time.Time                 `json:"delivery_date"`
}

// IncidentSummary response row for list endpoints.
type IncidentSummary struct {
	ID                 string                    `json:"id"`
	CallRef            string                    `json:"call_ref"`
	LoggedById         string                    `json:"logged_by_id"`
	LoggedByUserName   string                    `json:"logged_by_user_name"`
	AssignedToId       *string                   `json:"assigned_to_id"`
	AssignedToUserName *string                   `json:"assigned_to_user_name"`
	CallType           domain.CallType           `json:"call_type"`
	Module             domain.Module             `json:"module"`
	Priority           domain.Priority           `json:"priority"`
	Subject            string                    `json:"subject"`
	SupportStatus      domain.SupportStatus      `json:"support_status"`
	UserStatus         domain.IncidentUserStatus `json:"user_status"`
	CreatedDate        time.Time                 `json:"created_date"`
	DeliveryDate       *time.Time                `json:"delivery_date"`
	StatusUpdatedDate  time.Time                 `json:"status_updated_date"`
	ClosedDate         *time.Time                `json:"closed_date"`
}

// IncidentDetailResponse provides full incident info.
type IncidentDetailResponse struct {
	ID                 string                    `json:"id"`
	CallRef            string                    `json:"call_ref"`
	LoggedById         string                    `json:"logged_by_id"`
	LoggedByUserName   string                    `json:"logged_by_user_name"`
	AssignedToId       *string                   `json:"assigned_to_id"`
	AssignedToUserName *string                   `json:"assigned_to_user_name"`
	CallType           domain.CallType           `json:"call_type"`
	Module             domain.Module             `json:"module"`
	Priority           domain.Priority           `json:"priority"`
	UrlOrFormName      string                    `json:"url_or_form_name"`
	IsRecurring        bool                      `json:"is_recurring"`
	RecurringCallId    *string                   `json:"recurring_call_id"`
	Subject            string                    `json:"subject"`
	Description        string                    `json:"description"`
	Suggestion         *string                   `json:"suggestion"`
	SupportStatus      domain.SupportStatus      `json:"support_status"`
	UserStatus         domain.IncidentUserStatus `json:"user_status"`
	CreatedDate        time.Time                 `json:"created_date"`
	DeliveryDate       *time.Time                `json:"delivery_date"`
	StatusUpdatedDate  time.Time                 `json:"status_updated_date"`
	ClosedDate         *time.Time                `json:"closed_date"`
	Comments           []CommentResponse         `json:"comments"`
	Attachments        []AttachmentResponse      `json:"attachments"`
}

// CommentResponse represents one thread entry.
type CommentResponse struct {
	ID              string    `json:"id"`
	Text            string    `json:"text"`
	CreatorID       string    `json:"creator_id"`
	CreatorUserName string    `json:"creator_user_name"`
	CreatedAt       time.Time `json:"created_at"`
}

// AddCommentsRequest payload; one or more texts in a single batch.
type AddCommentsRequest struct {
	Texts []string `json:"texts"`
}

// AttachmentResponse metadata plus the download URL.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"file_name"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// RemoveAttachmentsRequest payload for deleting by id.
type RemoveAttachmentsRequest struct {
	IDs []string `json:"ids"`
}

// PagedIncidentsResponse is the pagination envelope.
type PagedIncidentsResponse struct {
	Items      []IncidentSummary `json:"items"`
	PageNumber int               `json:"page_number"`
	PageSize   int               `json:"page_size"`
	TotalCount int               `json:"total_count"`
	TotalPages int               `json:"total_pages"`
}
