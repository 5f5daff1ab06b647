package fields

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/storage"
)

// Adapter builds field managers for *Field descriptors
type Adapter struct {
	blobs  storage.BlobStore
	logger *slog.Logger
}

// AdapterOption configures an Adapter
type AdapterOption func(*Adapter)

// WithBlobStore sets the store used by file fields
func WithBlobStore(store storage.BlobStore) AdapterOption {
	return func(a *Adapter) {
		a.blobs = store
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) AdapterOption {
	return func(a *Adapter) {
		a.logger = logger
	}
}

// NewAdapter creates an adapter
func NewAdapter(opts ...AdapterOption) *Adapter {
	a := &Adapter{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Adapt returns the manager for field bound to the caller's security context
func (a *Adapter) Adapt(field jsonapi.Field, sec jsonapi.Security) (jsonapi.FieldManager, error) {
	f, ok := field.(*Field)
	if !ok {
		return nil, fmt.Errorf("unsupported field descriptor %T", field)
	}

	b := base{field: f, sec: sec}
	if f.kind == KindFile {
		if a.blobs == nil {
			return nil, &jsonapi.FieldError{Field: f.name, Op: "adapt", Err: errors.New("file fields require a blob store")}
		}
		return &fileManager{base: b, blobs: a.blobs, logger: a.logger}, nil
	}

	c, ok := codecs[f.kind]
	if !ok {
		return nil, &jsonapi.FieldError{Field: f.name, Op: "adapt", Err: errUnknownKind(f.kind)}
	}
	return &valueManager{base: b, codec: c}, nil
}

type base struct {
	field *Field
	sec   jsonapi.Security
}

func (b base) checkRead(ctx context.Context, obj jsonapi.Object) error {
	if b.field.readPermission == "" {
		return nil
	}
	return b.sec.Require(ctx, b.field.readPermission, obj, "read "+b.field.name, "not allowed to read field")
}

func (b base) checkWrite(ctx context.Context, obj jsonapi.Object) error {
	if b.field.readOnly {
		return &jsonapi.FieldError{Field: b.field.name, Op: "set", Err: jsonapi.ErrReadOnly}
	}
	if b.field.writePermission == "" {
		return nil
	}
	return b.sec.Require(ctx, b.field.writePermission, obj, "write "+b.field.name, "not allowed to write field")
}

func (b base) storage(obj jsonapi.Object, op string) (Storage, error) {
	s, ok := obj.(Storage)
	if !ok {
		return nil, &jsonapi.FieldError{Field: b.field.name, Op: op, Err: fmt.Errorf("%T does not store field values", obj)}
	}
	return s, nil
}

func (b base) raw(obj jsonapi.Object) (any, error) {
	s, err := b.storage(obj, "get")
	if err != nil {
		return nil, err
	}
	if v, ok := s.Value(b.field.name); ok {
		return v, nil
	}
	return b.field.def, nil
}

func (b base) validate(value any, siblings map[string]any) error {
	if b.field.required && isEmpty(value) {
		return &jsonapi.FieldError{Field: b.field.name, Op: "set", Err: jsonapi.ErrFieldRequired}
	}
	if b.field.validator != nil {
		if err := b.field.validator(value, siblings); err != nil {
			return &jsonapi.FieldError{Field: b.field.name, Op: "validate", Err: fmt.Errorf("%w: %v", jsonapi.ErrInvalidValue, err)}
		}
	}
	return nil
}

type valueManager struct {
	base
	codec codec
}

func (m *valueManager) Get(ctx context.Context, obj jsonapi.Object) (any, error) {
	if err := m.checkRead(ctx, obj); err != nil {
		return nil, err
	}
	return m.raw(obj)
}

func (m *valueManager) Set(ctx context.Context, obj jsonapi.Object, value any, siblings map[string]any) (bool, error) {
	if err := m.checkWrite(ctx, obj); err != nil {
		return false, err
	}
	s, err := m.storage(obj, "set")
	if err != nil {
		return false, err
	}

	converted, err := m.codec.convert(value)
	if err != nil {
		return false, &jsonapi.FieldError{Field: m.field.name, Op: "set", Err: fmt.Errorf("%w: %v", jsonapi.ErrInvalidValue, err)}
	}
	if err := m.validate(converted, siblings); err != nil {
		return false, err
	}

	s.SetValue(m.field.name, converted)
	return true, nil
}

func (m *valueManager) JSONData(ctx context.Context, obj jsonapi.Object) (any, error) {
	v, err := m.Get(ctx, obj)
	if err != nil {
		return nil, err
	}
	return m.codec.render(v), nil
}
