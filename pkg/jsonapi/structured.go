package jsonapi

import (
	"context"
	"unicode"
	"unicode/utf8"
)

// StructuredDataManager serves schema-described objects that may declare
// dedicated setters. Reads and writes both require Modify portal content.
type StructuredDataManager struct {
	obj      Object
	resolver FieldResolver
	adapter  FieldAdapter
	sec      Security
}

// NewStructuredDataManager creates a data manager for schema-described objects
func NewStructuredDataManager(obj Object, resolver FieldResolver, adapter FieldAdapter, sec Security) *StructuredDataManager {
	return &StructuredDataManager{obj: obj, resolver: resolver, adapter: adapter, sec: sec}
}

// requireWrite gates reads as well as writes; existing clients rely on
// structured content being unreadable without Modify portal content.
func (m *StructuredDataManager) requireWrite(ctx context.Context, op string) error {
	if m.CanWrite(ctx) {
		return nil
	}
	return &AccessError{
		Permission: PermissionModifyPortalContent,
		ObjectID:   m.obj.ID(),
		Op:         op,
		Reason:     "not allowed to modify this content",
	}
}

func (m *StructuredDataManager) Get(ctx context.Context, name string) (any, error) {
	if err := m.requireWrite(ctx, "get"); err != nil {
		return nil, err
	}
	fm, err := fieldManager(m.obj, name, m.resolver, m.adapter, m.sec)
	if err != nil || fm == nil {
		return nil, err
	}
	return fm.Get(ctx, m.obj)
}

// Set prefers a setter declared by the object over the field manager.
func (m *StructuredDataManager) Set(ctx context.Context, name string, value any, siblings map[string]any) (bool, error) {
	if err := m.requireWrite(ctx, "set"); err != nil {
		return false, err
	}

	if src, ok := m.obj.(SetterSource); ok {
		if setter, ok := src.Setter(SetterName(name)); ok && setter != nil {
			return setter(value)
		}
	}

	fm, err := fieldManager(m.obj, name, m.resolver, m.adapter, m.sec)
	if err != nil || fm == nil {
		return false, err
	}
	return fm.Set(ctx, m.obj, value, siblings)
}

func (m *StructuredDataManager) JSONData(ctx context.Context, name string, def any) (any, error) {
	if err := m.requireWrite(ctx, "json_data"); err != nil {
		return nil, err
	}
	fm, err := fieldManager(m.obj, name, m.resolver, m.adapter, m.sec)
	if err != nil || fm == nil {
		return nil, err
	}
	return fm.JSONData(ctx, m.obj)
}

// CanWrite reports whether the caller may modify the object
func (m *StructuredDataManager) CanWrite(ctx context.Context) bool {
	return m.sec.Check(ctx, PermissionModifyPortalContent, m.obj)
}

// CanRead reports whether the caller may view the object
func (m *StructuredDataManager) CanRead(ctx context.Context) bool {
	return m.sec.Check(ctx, PermissionView, m.obj)
}

// SetterName returns the conventional setter for an attribute, "title" ->
// "setTitle".
func SetterName(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if r == utf8.RuneError {
		return "set" + name
	}
	return "set" + string(unicode.ToUpper(r)) + name[size:]
}
