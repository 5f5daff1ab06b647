package jsonapi

import "context"

// Field describes how one named attribute of an object is stored.
type Field interface {
	Name() string
	Type() string
}

// FieldResolver locates the field descriptor for a name on an object.
type FieldResolver interface {
	// Field returns the descriptor or false if the object has no such field.
	Field(obj Object, name string) (Field, bool)
}

// FieldManager reads, writes and serializes one field on an object.
type FieldManager interface {
	Get(ctx context.Context, obj Object) (any, error)
	Set(ctx context.Context, obj Object, value any, siblings map[string]any) (bool, error)
	JSONData(ctx context.Context, obj Object) (any, error)
}

// FieldAdapter produces the manager for a field descriptor.
type FieldAdapter interface {
	Adapt(field Field, sec Security) (FieldManager, error)
}
