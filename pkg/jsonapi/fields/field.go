package fields

import (
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

// Kind is the storage kind of a field
type Kind string

const (
	KindString    Kind = "string"
	KindText      Kind = "text"
	KindInteger   Kind = "integer"
	KindFloat     Kind = "float"
	KindBoolean   Kind = "boolean"
	KindDateTime  Kind = "datetime"
	KindLines     Kind = "lines"
	KindReference Kind = "reference"
	KindFile      Kind = "file"
)

// Validator checks a converted value against the other values submitted in
// the same request.
type Validator func(value any, siblings map[string]any) error

// Field is a field descriptor of a schema
type Field struct {
	name            string
	kind            Kind
	required        bool
	readOnly        bool
	def             any
	readPermission  jsonapi.Permission
	writePermission jsonapi.Permission
	validator       Validator
}

// Option configures a Field
type Option func(*Field)

// Required rejects empty values on write
func Required() Option {
	return func(f *Field) {
		f.required = true
	}
}

// ReadOnly rejects every write
func ReadOnly() Option {
	return func(f *Field) {
		f.readOnly = true
	}
}

// WithDefault sets the value returned while the object stores none
func WithDefault(v any) Option {
	return func(f *Field) {
		f.def = v
	}
}

// WithReadPermission guards reads of the field
func WithReadPermission(p jsonapi.Permission) Option {
	return func(f *Field) {
		f.readPermission = p
	}
}

// WithWritePermission guards writes of the field
func WithWritePermission(p jsonapi.Permission) Option {
	return func(f *Field) {
		f.writePermission = p
	}
}

// WithValidator adds a cross-field validator
func WithValidator(v Validator) Option {
	return func(f *Field) {
		f.validator = v
	}
}

// New creates a field descriptor
func New(name string, kind Kind, opts ...Option) *Field {
	f := &Field{name: name, kind: kind}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Field) Name() string { return f.name }

func (f *Field) Type() string { return string(f.kind) }

func (f *Field) Kind() Kind { return f.kind }

func (f *Field) IsRequired() bool { return f.required }

func (f *Field) IsReadOnly() bool { return f.readOnly }

func (f *Field) Default() any { return f.def }

// Decode converts a value loaded from a repository into the field's native
// representation.
func (f *Field) Decode(stored any) (any, error) {
	if f.kind == KindFile {
		return decodeFileRef(stored)
	}
	c, ok := codecs[f.kind]
	if !ok {
		return nil, &jsonapi.FieldError{Field: f.name, Op: "decode", Err: errUnknownKind(f.kind)}
	}
	return c.convert(stored)
}
