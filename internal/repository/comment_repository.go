package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// CommentWithCreator is the joined row shape for listing a thread.
type CommentWithCreator struct {
	Comment         domain.Comment
	CreatorUserName string
}

// CommentRepository persists incident comments. Comments are append-only;
// there is no update or delete.
type CommentRepository interface {
	CreateBatch(ctx context.Context, comments []domain.Comment) error
	ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]CommentWithCreator, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository constructs repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) CreateBatch(ctx context.Context, comments []domain.Comment) error {
	batch := &pgx.Batch{}
	const query = `
        INSERT INTO incident_comments (id, incident_id, text, creator_id, created_at)
        VALUES ($1,$2,$3,$4,$5)`
	for _, comment := range comments {
		batch.Queue(query,
			comment.ID,
			comment.IncidentID,
			comment.Text,
			comment.CreatorID,
			comment.CreatedAt,
		)
	}
	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()
	for range comments {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *commentRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]CommentWithCreator, error) {
	const query = `
        SELECT c.id, c.incident_id, c.text, c.creator_id, c.created_at, u.user_name
        FROM incident_comments c
        JOIN users u ON u.id = c.creator_id
        WHERE c.incident_id=$1
        ORDER BY c.created_at ASC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CommentWithCreator
	for rows.Next() {
		var row CommentWithCreator
		if err := rows.Scan(
			&row.Comment.ID,
			&row.Comment.IncidentID,
			&row.Comment.Text,
			&row.Comment.CreatorID,
			&row.Comment.CreatedAt,
			&row.CreatorUserName,
		); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
