package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/content"
)

// Repository implements content.Repository using in-memory storage
type Repository struct {
	mu      sync.RWMutex
	records map[uuid.UUID]*content.Record
}

// New creates a new in-memory repository
func New() *Repository {
	return &Repository{
		records: make(map[uuid.UUID]*content.Record),
	}
}

func (r *Repository) GetRecord(ctx context.Context, uid uuid.UUID) (*content.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[uid]
	if !exists {
		return nil, jsonapi.ErrObjectNotFound
	}
	// Return a copy to prevent external modifications
	return copyRecord(rec), nil
}

func (r *Repository) SaveRecord(ctx context.Context, record *content.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.UID] = copyRecord(record)
	return nil
}

func (r *Repository) DeleteRecord(ctx context.Context, uid uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[uid]; !exists {
		return jsonapi.ErrObjectNotFound
	}
	delete(r.records, uid)
	return nil
}

func copyRecord(rec *content.Record) *content.Record {
	recCopy := *rec
	recCopy.Values = make(map[string]any, len(rec.Values))
	for k, v := range rec.Values {
		if lines, ok := v.([]string); ok {
			v = append([]string(nil), lines...)
		}
		recCopy.Values[k] = v
	}
	return &recCopy
}
