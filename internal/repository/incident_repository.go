package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// IncidentFilter captures paged query parameters. LoggedById scopes the
// result set for non-privileged actors.
type IncidentFilter struct {
	LoggedById    *uuid.UUID
	SupportStatus *domain.SupportStatus
	UserStatus    *domain.IncidentUserStatus
	Module        *domain.Module
	Priority      *domain.Priority
	AssignedToId  *uuid.UUID
	FromDate      *time.Time
	ToDate        *time.Time
	Limit         int
	Offset        int
}

// IncidentSummary is the joined row shape for list/paged queries: the
// incident plus creator/assignee usernames resolved in SQL.
type IncidentSummary struct {
	Incident           domain.Incident
	LoggedByUserName   string
	AssignedToUserName *string
}

// IncidentRepository encapsulates incident persistence. Updates are a single
// statement, so concurrent writers to the same incident resolve
// last-writer-wins; there is no version column.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	Update(ctx context.Context, incident *domain.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	ListWithFilter(ctx context.Context, filter IncidentFilter) ([]IncidentSummary, error)
	CountWithFilter(ctx context.Context, filter IncidentFilter) (int, error)
}

type incidentRepository struct {
	pool *pgxpool.Pool
}

// NewIncidentRepository instantiates repository.
func NewIncidentRepository(pool *pgxpool.Pool) IncidentRepository {
	return &incidentRepository{pool: pool}
}

const incidentColumns = `id, call_ref, logged_by_id, assigned_to_id, call_type, module, priority,
               url_or_form_name, is_recurring, recurring_call_id, subject, description, suggestion,
               support_status, user_status, created_date, delivery_date, status_updated_date, closed_date`

func (r *incidentRepository) Create(ctx context.Context, incident *domain.Incident) error {
	const query = `
        INSERT INTO incidents (id, call_ref, logged_by_id, assigned_to_id, call_type, module, priority,
            url_or_form_name, is_recurring, recurring_call_id, subject, description, suggestion,
            support_status, user_status, created_date, delivery_date, status_updated_date, closed_date)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)`
	_, err := r.pool.Exec(ctx, query,
		incident.ID,
		incident.CallRef,
		incident.LoggedById,
		incident.AssignedToId,
		incident.CallType,
		incident.Module,
		incident.Priority,
		incident.UrlOrFormName,
		incident.IsRecurring,
		incident.RecurringCallId,
		incident.Subject,
		incident.Description,
		incident.Suggestion,
		incident.SupportStatus,
		incident.UserStatus,
		incident.CreatedDate,
		incident.DeliveryDate,
		incident.StatusUpdatedDate,
		incident.ClosedDate,
	)
	return err
}

// Update persists the mutable field set in one statement; the immutable
// creation-time fields are never touched.
func (r *incidentRepository) Update(ctx context.Context, incident *domain.Incident) error {
	const query = `
        UPDATE incidents SET suggestion=$1, user_status=$2, support_status=$3, assigned_to_id=$4,
            delivery_date=$5, status_updated_date=$6, closed_date=$7
        WHERE id=$8 AND is_deleted=FALSE`
	cmd, err := r.pool.Exec(ctx, query,
		incident.Suggestion,
		incident.UserStatus,
		incident.SupportStatus,
		incident.AssignedToId,
		incident.DeliveryDate,
		incident.StatusUpdatedDate,
		incident.ClosedDate,
		incident.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *incidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id=$1 AND is_deleted=FALSE`
	var incident domain.Incident
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&incident.ID,
		&incident.CallRef,
		&incident.LoggedById,
		&incident.AssignedToId,
		&incident.CallType,
		&incident.Module,
		&incident.Priority,
		&incident.UrlOrFormName,
		&incident.IsRecurring,
		&incident.RecurringCallId,
		&incident.Subject,
		&incident.Description,
		&incident.Suggestion,
		&incident.SupportStatus,
		&incident.UserStatus,
		&incident.CreatedDate,
		&incident.DeliveryDate,
		&incident.StatusUpdatedDate,
		&incident.ClosedDate,
	); err != nil {
		return nil, err
	}
	return &incident, nil
}

func (r *incidentRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM incidents WHERE id=$1 AND is_deleted=FALSE)`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *incidentRepository) ListWithFilter(ctx context.Context, filter IncidentFilter) ([]IncidentSummary, error) {
	base := `SELECT i.id, i.call_ref, i.logged_by_id, i.assigned_to_id, i.call_type, i.module, i.priority,
                    i.url_or_form_name, i.is_recurring, i.recurring_call_id, i.subject, i.description, i.suggestion,
                    i.support_status, i.user_status, i.created_date, i.delivery_date, i.status_updated_date, i.closed_date,
                    lb.user_name, au.user_name
             FROM incidents i
             JOIN users lb ON lb.id = i.logged_by_id
             LEFT JOIN users au ON au.id = i.assigned_to_id`
	clauses, args := filterClauses(filter)

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY i.created_date DESC LIMIT %d OFFSET %d`,
		base, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []IncidentSummary
	for rows.Next() {
		var summary IncidentSummary
		if err := rows.Scan(
			&summary.Incident.ID,
			&summary.Incident.CallRef,
			&summary.Incident.LoggedById,
			&summary.Incident.AssignedToId,
			&summary.Incident.CallType,
			&summary.Incident.Module,
			&summary.Incident.Priority,
			&summary.Incident.UrlOrFormName,
			&summary.Incident.IsRecurring,
			&summary.Incident.RecurringCallId,
			&summary.Incident.Subject,
			&summary.Incident.Description,
			&summary.Incident.Suggestion,
			&summary.Incident.SupportStatus,
			&summary.Incident.UserStatus,
			&summary.Incident.CreatedDate,
			&summary.Incident.DeliveryDate,
			&summary.Incident.StatusUpdatedDate,
			&summary.Incident.ClosedDate,
			&summary.LoggedByUserName,
			&summary.AssignedToUserName,
		); err != nil {
			return nil, err
		}
		result = append(result, summary)
	}
	return result, rows.Err()
}

func (r *incidentRepository) CountWithFilter(ctx context.Context, filter IncidentFilter) (int, error) {
	clauses, args := filterClauses(filter)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM incidents i WHERE %s`, strings.Join(clauses, " AND "))
	var count int
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func filterClauses(filter IncidentFilter) ([]string, []any) {
	clauses := []string{"i.is_deleted=FALSE"}
	args := []any{}

	if filter.LoggedById != nil {
		args = append(args, *filter.LoggedById)
		clauses = append(clauses, fmt.Sprintf("i.logged_by_id=$%d", len(args)))
	}
	if filter.SupportStatus != nil {
		args = append(args, *filter.SupportStatus)
		clauses = append(clauses, fmt.Sprintf("i.support_status=$%d", len(args)))
	}
	if filter.UserStatus != nil {
		args = append(args, *filter.UserStatus)
		clauses = append(clauses, fmt.Sprintf("i.user_status=$%d", len(args)))
	}
	if filter.Module != nil {
		args = append(args, *filter.Module)
		clauses = append(clauses, fmt.Sprintf("i.module=$%d", len(args)))
	}
	if filter.Priority != nil {
		args = append(args, *filter.Priority)
		clauses = append(clauses, fmt.Sprintf("i.priority=$%d", len(args)))
	}
	if filter.AssignedToId != nil {
		args = append(args, *filter.AssignedToId)
		clauses = append(clauses, fmt.Sprintf("i.assigned_to_id=$%d", len(args)))
	}
	if filter.FromDate != nil {
		args = append(args, *filter.FromDate)
		clauses = append(clauses, fmt.Sprintf("i.created_date >= $%d", len(args)))
	}
	if filter.ToDate != nil {
		args = append(args, *filter.ToDate)
		clauses = append(clauses, fmt.Sprintf("i.created_date <= $%d", len(args)))
	}
	return clauses, args
}
