package fields

import (
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

// Schema is an ordered set of field descriptors for one portal type
type Schema struct {
	name   string
	fields []*Field
	index  map[string]*Field
}

// NewSchema creates a schema. A later field replaces an earlier one with the
// same name in place.
func NewSchema(name string, fields ...*Field) *Schema {
	s := &Schema{
		name:  name,
		index: make(map[string]*Field, len(fields)),
	}
	for _, f := range fields {
		if _, exists := s.index[f.name]; exists {
			for i := range s.fields {
				if s.fields[i].name == f.name {
					s.fields[i] = f
				}
			}
		} else {
			s.fields = append(s.fields, f)
		}
		s.index[f.name] = f
	}
	return s
}

func (s *Schema) Name() string { return s.name }

// Field returns the named field
func (s *Schema) Field(name string) (*Field, bool) {
	f, ok := s.index[name]
	return f, ok
}

// Fields returns the fields in declaration order
func (s *Schema) Fields() []*Field {
	out := make([]*Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// Names returns the field names in declaration order
func (s *Schema) Names() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.name
	}
	return names
}

// SchemaProvider is implemented by objects described by a schema
type SchemaProvider interface {
	Schema() *Schema
}

// Storage is implemented by objects that hold field values
type Storage interface {
	Value(name string) (any, bool)
	SetValue(name string, value any)
}

// SchemaResolver resolves fields from the schema of the object
type SchemaResolver struct{}

func (SchemaResolver) Field(obj jsonapi.Object, name string) (jsonapi.Field, bool) {
	p, ok := obj.(SchemaProvider)
	if !ok {
		return nil, false
	}
	schema := p.Schema()
	if schema == nil {
		return nil, false
	}
	f, ok := schema.Field(name)
	if !ok {
		return nil, false
	}
	return f, true
}
