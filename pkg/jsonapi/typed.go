package jsonapi

import "context"

// TypedDataManager delegates every access to the field manager of the named
// field. Field managers enforce field level permissions themselves.
type TypedDataManager struct {
	obj      Object
	resolver FieldResolver
	adapter  FieldAdapter
	sec      Security
}

// NewTypedDataManager creates a data manager for field-described objects
func NewTypedDataManager(obj Object, resolver FieldResolver, adapter FieldAdapter, sec Security) *TypedDataManager {
	return &TypedDataManager{obj: obj, resolver: resolver, adapter: adapter, sec: sec}
}

// manager returns nil when the object has no field called name.
func (m *TypedDataManager) manager(name string) (FieldManager, error) {
	return fieldManager(m.obj, name, m.resolver, m.adapter, m.sec)
}

func (m *TypedDataManager) Get(ctx context.Context, name string) (any, error) {
	fm, err := m.manager(name)
	if err != nil || fm == nil {
		return nil, err
	}
	return fm.Get(ctx, m.obj)
}

func (m *TypedDataManager) Set(ctx context.Context, name string, value any, siblings map[string]any) (bool, error) {
	fm, err := m.manager(name)
	if err != nil || fm == nil {
		return false, err
	}
	return fm.Set(ctx, m.obj, value, siblings)
}

// JSONData ignores def; an absent field yields nil.
func (m *TypedDataManager) JSONData(ctx context.Context, name string, def any) (any, error) {
	fm, err := m.manager(name)
	if err != nil || fm == nil {
		return nil, err
	}
	return fm.JSONData(ctx, m.obj)
}

func fieldManager(obj Object, name string, resolver FieldResolver, adapter FieldAdapter, sec Security) (FieldManager, error) {
	if resolver == nil || adapter == nil {
		return nil, nil
	}
	field, ok := resolver.Field(obj, name)
	if !ok || field == nil {
		return nil, nil
	}
	return adapter.Adapt(field, sec)
}
