package jsonapi

import (
	"context"
	"log/slog"
)

// CatalogDataManager reads values off catalog rows. Rows come pre-filtered by
// the query layer, so reads are not permission checked, and rows are never
// written.
type CatalogDataManager struct {
	row    AttributeSource
	logger *slog.Logger
}

// NewCatalogDataManager creates a data manager for a catalog row
func NewCatalogDataManager(row AttributeSource, logger *slog.Logger) *CatalogDataManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatalogDataManager{row: row, logger: logger}
}

// Get returns the column value, invoking accessor columns.
func (m *CatalogDataManager) Get(ctx context.Context, name string) (any, error) {
	attr, ok := m.row.Attribute(name)
	if !ok {
		return nil, nil
	}
	return Resolve(attr)
}

// Set is not supported on catalog rows; the attempt is logged and ignored.
func (m *CatalogDataManager) Set(ctx context.Context, name string, value any, siblings map[string]any) (bool, error) {
	m.logger.Warn("Setting is not allowed on catalog rows", "object_id", m.row.ID(), "name", name)
	return false, nil
}

// JSONData returns def in place of the Missing sentinel.
func (m *CatalogDataManager) JSONData(ctx context.Context, name string, def any) (any, error) {
	value, err := m.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	if IsMissing(value) {
		return def, nil
	}
	return value, nil
}
