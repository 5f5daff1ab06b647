package content

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// PortalRecordUID is the record UID under which the portal root is stored
var PortalRecordUID = uuid.Nil

// Record is the persisted form of a content object
type Record struct {
	UID        uuid.UUID
	ID         string
	PortalType string
	Path       string
	Owner      string
	Values     map[string]any
	Created    time.Time
	Modified   time.Time
}

// Repository persists records
type Repository interface {
	// GetRecord returns jsonapi.ErrObjectNotFound when uid is unknown
	GetRecord(ctx context.Context, uid uuid.UUID) (*Record, error)

	// SaveRecord inserts or replaces a record
	SaveRecord(ctx context.Context, record *Record) error

	// DeleteRecord removes a record
	DeleteRecord(ctx context.Context, uid uuid.UUID) error
}
