package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/incident-service/internal/domain"
)

// AttachmentRepository persists attachment metadata. Batch operations run in
// a transaction so a request's rows commit or roll back together; the backing
// files are handled separately by the storage layer.
type AttachmentRepository interface {
	CreateBatch(ctx context.Context, attachments []domain.Attachment) error
	ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]domain.Attachment, error)
	DeleteByIDs(ctx context.Context, incidentID uuid.UUID, ids []uuid.UUID) error
	ReplaceForIncident(ctx context.Context, incidentID uuid.UUID, attachments []domain.Attachment) error
}

type attachmentRepository struct {
	pool *pgxpool.Pool
}

// NewAttachmentRepository constructs repository.
func NewAttachmentRepository(pool *pgxpool.Pool) AttachmentRepository {
	return &attachmentRepository{pool: pool}
}

const insertAttachmentQuery = `
        INSERT INTO incident_attachments (id, incident_id, file_name, storage_path, uploader_id, uploaded_at)
        VALUES ($1,$2,$3,$4,$5,$6)`

func (r *attachmentRepository) CreateBatch(ctx context.Context, attachments []domain.Attachment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for _, attachment := range attachments {
		if _, err := tx.Exec(ctx, insertAttachmentQuery,
			attachment.ID,
			attachment.IncidentID,
			attachment.FileName,
			attachment.StoragePath,
			attachment.UploaderID,
			attachment.UploadedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *attachmentRepository) ListByIncident(ctx context.Context, incidentID uuid.UUID) ([]domain.Attachment, error) {
	const query = `
        SELECT id, incident_id, file_name, storage_path, uploader_id, uploaded_at
        FROM incident_attachments WHERE incident_id=$1 ORDER BY uploaded_at ASC`
	rows, err := r.pool.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Attachment
	for rows.Next() {
		var attachment domain.Attachment
		if err := rows.Scan(
			&attachment.ID,
			&attachment.IncidentID,
			&attachment.FileName,
			&attachment.StoragePath,
			&attachment.UploaderID,
			&attachment.UploadedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, attachment)
	}
	return result, rows.Err()
}

func (r *attachmentRepository) DeleteByIDs(ctx context.Context, incidentID uuid.UUID, ids []uuid.UUID) error {
	const query = `DELETE FROM incident_attachments WHERE incident_id=$1 AND id = ANY($2)`
	_, err := r.pool.Exec(ctx, query, incidentID, ids)
	return err
}

// ReplaceForIncident swaps the full attachment set in one transaction.
func (r *attachmentRepository) ReplaceForIncident(ctx context.Context, incidentID uuid.UUID, attachments []domain.Attachment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx, `DELETE FROM incident_attachments WHERE incident_id=$1`, incidentID); err != nil {
		return err
	}
	for _, attachment := range attachments {
		if _, err := tx.Exec(ctx, insertAttachmentQuery,
			attachment.ID,
			attachment.IncidentID,
			attachment.FileName,
			attachment.StoragePath,
			attachment.UploaderID,
			attachment.UploadedAt,
		); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
