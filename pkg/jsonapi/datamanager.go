package jsonapi

import (
	"context"
	"fmt"
)

// DataManager reads and writes named values of a single content object.
type DataManager interface {
	// Get returns the raw value for name
	Get(ctx context.Context, name string) (any, error)

	// Set writes value to name. siblings holds the other values submitted in
	// the same request so that constraints between fields can be checked.
	Set(ctx context.Context, name string, value any, siblings map[string]any) (bool, error)

	// JSONData returns a JSON compatible value for name
	JSONData(ctx context.Context, name string, def any) (any, error)
}

// UnimplementedDataManager can be embedded to satisfy DataManager while a
// variant is being written. Every method panics.
type UnimplementedDataManager struct{}

func (UnimplementedDataManager) Get(ctx context.Context, name string) (any, error) {
	panic(fmt.Errorf("getter must be implemented by data manager: %w", ErrNotImplemented))
}

func (UnimplementedDataManager) Set(ctx context.Context, name string, value any, siblings map[string]any) (bool, error) {
	panic(fmt.Errorf("setter must be implemented by data manager: %w", ErrNotImplemented))
}

func (UnimplementedDataManager) JSONData(ctx context.Context, name string, def any) (any, error) {
	panic(fmt.Errorf("json data must be implemented by data manager: %w", ErrNotImplemented))
}
