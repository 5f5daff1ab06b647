package jsonapi

// Technology identifies the content technology backing an object.
type Technology string

const (
	TechnologyCatalog    Technology = "catalog"
	TechnologyPortal     Technology = "portal"
	TechnologyTyped      Technology = "typed"
	TechnologyStructured Technology = "structured"
)

// IsValid reports whether the technology is one of the known values
func (t Technology) IsValid() bool {
	switch t {
	case TechnologyCatalog, TechnologyPortal, TechnologyTyped, TechnologyStructured:
		return true
	}
	return false
}

// Object is a content object handed to a data manager for one request.
type Object interface {
	ID() string
	Technology() Technology
}

// AttributeSource is an object exposing plain named attributes.
type AttributeSource interface {
	Object
	// Attribute returns the declared attribute for name, or false if the
	// object has no such attribute.
	Attribute(name string) (Attribute, bool)
}

// ItemAssigner is an attribute source that allows overwriting existing
// attributes by item assignment.
type ItemAssigner interface {
	AttributeSource
	SetItem(name string, value any) error
}

// Setter is a dedicated write method declared by an object.
type Setter func(value any) (bool, error)

// SetterSource is implemented by objects that declare setter methods.
type SetterSource interface {
	Setter(name string) (Setter, bool)
}

// Attribute is either a literal Value or an Accessor. The shape is declared by
// the object, it is never inferred at runtime.
type Attribute interface {
	resolve() (any, error)
}

// Value is a literal attribute value.
type Value struct {
	V any
}

func (v Value) resolve() (any, error) {
	return v.V, nil
}

// Accessor is a zero-argument method whose result is the attribute value.
type Accessor func() (any, error)

func (a Accessor) resolve() (any, error) {
	if a == nil {
		return nil, nil
	}
	return a()
}

// Resolve returns the value of an attribute, invoking it if it is an accessor.
func Resolve(attr Attribute) (any, error) {
	if attr == nil {
		return nil, nil
	}
	return attr.resolve()
}

type missingValue struct{}

func (missingValue) String() string { return "Missing.Value" }

// MarshalJSON renders the sentinel as null should it escape to a response.
func (missingValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Missing marks a catalog metadata column that was never computed for a row.
// It is distinct from nil.
var Missing any = missingValue{}

// IsMissing reports whether v is the Missing sentinel.
func IsMissing(v any) bool {
	_, ok := v.(missingValue)
	return ok
}
