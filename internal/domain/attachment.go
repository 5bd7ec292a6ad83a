package domain

import (
	"time"

	"github.com/google/uuid"
)

// Attachment stores metadata for a file uploaded against an incident.
// StoragePath is relative to the upload root
// (uploads/incidents/{incidentId}/{randomId}{ext}); FileName keeps the
// original name for display.
type Attachment struct {
	ID          uuid.UUID
	IncidentID  uuid.UUID
	FileName    string
	StoragePath string
	UploaderID  uuid.UUID
	UploadedAt  time.Time
}
