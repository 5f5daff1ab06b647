package jsonapi_test

import (
	"context"
	"errors"

	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

// object is an in-memory content object. attrs backs the catalog and portal
// variants, store backs fields served through the fake adapter.
type object struct {
	id      string
	tech    jsonapi.Technology
	attrs   map[string]jsonapi.Attribute
	store   map[string]any
	setters map[string]jsonapi.Setter
}

func newObject(id string, tech jsonapi.Technology) *object {
	return &object{
		id:      id,
		tech:    tech,
		attrs:   make(map[string]jsonapi.Attribute),
		store:   make(map[string]any),
		setters: make(map[string]jsonapi.Setter),
	}
}

func (o *object) ID() string                     { return o.id }
func (o *object) Technology() jsonapi.Technology { return o.tech }

func (o *object) Attribute(name string) (jsonapi.Attribute, bool) {
	attr, ok := o.attrs[name]
	return attr, ok
}

func (o *object) SetItem(name string, value any) error {
	o.attrs[name] = jsonapi.Value{V: value}
	return nil
}

func (o *object) Setter(name string) (jsonapi.Setter, bool) {
	s, ok := o.setters[name]
	return s, ok
}

type field struct{ name string }

func (f field) Name() string { return f.name }
func (f field) Type() string { return "string" }

// resolver knows the fields listed in it, for every object
type resolver map[string]bool

func (r resolver) Field(obj jsonapi.Object, name string) (jsonapi.Field, bool) {
	if !r[name] {
		return nil, false
	}
	return field{name: name}, true
}

// adapter serves fields out of object.store. Writes need the write
// permission when one is set; transform rewrites stored values.
type adapter struct {
	write     jsonapi.Permission
	transform func(any) any
	calls     []string
}

func (a *adapter) Adapt(f jsonapi.Field, sec jsonapi.Security) (jsonapi.FieldManager, error) {
	return &fieldManager{adapter: a, name: f.Name(), sec: sec}, nil
}

type fieldManager struct {
	adapter *adapter
	name    string
	sec     jsonapi.Security
}

func (m *fieldManager) Get(ctx context.Context, obj jsonapi.Object) (any, error) {
	m.adapter.calls = append(m.adapter.calls, "get:"+m.name)
	return obj.(*object).store[m.name], nil
}

func (m *fieldManager) Set(ctx context.Context, obj jsonapi.Object, value any, siblings map[string]any) (bool, error) {
	m.adapter.calls = append(m.adapter.calls, "set:"+m.name)
	if m.adapter.write != "" {
		if err := m.sec.Require(ctx, m.adapter.write, obj, "set", "field not writable"); err != nil {
			return false, err
		}
	}
	if limit, ok := siblings["limit"].(int); ok {
		if n, isInt := value.(int); isInt && n > limit {
			return false, errors.New("over limit")
		}
	}
	if m.adapter.transform != nil {
		value = m.adapter.transform(value)
	}
	obj.(*object).store[m.name] = value
	return true, nil
}

func (m *fieldManager) JSONData(ctx context.Context, obj jsonapi.Object) (any, error) {
	m.adapter.calls = append(m.adapter.calls, "json:"+m.name)
	return obj.(*object).store[m.name], nil
}

// grant returns a security context holding exactly perms
func grant(perms ...jsonapi.Permission) jsonapi.Security {
	granted := make(map[jsonapi.Permission]bool, len(perms))
	for _, p := range perms {
		granted[p] = true
	}
	return jsonapi.Security{
		Principal: jsonapi.Principal{ID: "alice"},
		Oracle: jsonapi.OracleFunc(func(ctx context.Context, principal jsonapi.Principal, permission jsonapi.Permission, obj jsonapi.Object) bool {
			return granted[permission]
		}),
	}
}
