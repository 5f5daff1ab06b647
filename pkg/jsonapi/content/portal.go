package content

import (
	"fmt"
	"sort"
	"time"

	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

// Portal is the site root
type Portal struct {
	id        string
	attrs     map[string]any
	accessors map[string]jsonapi.Accessor
	created   time.Time
	dirty     bool
}

// NewPortal creates a portal root with the given plain attributes
func NewPortal(id string, attrs map[string]any) *Portal {
	p := &Portal{
		id:    id,
		attrs: make(map[string]any, len(attrs)),
	}
	for k, v := range attrs {
		p.attrs[k] = v
	}
	p.accessors = map[string]jsonapi.Accessor{
		"getId": func() (any, error) { return p.id, nil },
		"Title": func() (any, error) { return p.attrs["title"], nil },
		"Description": func() (any, error) {
			return p.attrs["description"], nil
		},
	}
	return p
}

func (p *Portal) ID() string { return p.id }

func (p *Portal) Technology() jsonapi.Technology { return jsonapi.TechnologyPortal }

func (p *Portal) Attribute(name string) (jsonapi.Attribute, bool) {
	if fn, ok := p.accessors[name]; ok {
		return fn, true
	}
	v, ok := p.attrs[name]
	if !ok {
		return nil, false
	}
	return jsonapi.Value{V: v}, true
}

// SetItem overwrites a plain attribute. Accessors cannot be assigned.
func (p *Portal) SetItem(name string, value any) error {
	if _, ok := p.accessors[name]; ok {
		return fmt.Errorf("%s: %w", name, jsonapi.ErrReadOnly)
	}
	p.attrs[name] = value
	p.dirty = true
	return nil
}

// Attributes returns the plain attribute names in sorted order
func (p *Portal) Attributes() []string {
	names := make([]string, 0, len(p.attrs))
	for k := range p.attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Dirty reports whether an attribute was assigned since the portal was loaded
func (p *Portal) Dirty() bool { return p.dirty }

func (p *Portal) values() map[string]any {
	out := make(map[string]any, len(p.attrs))
	for k, v := range p.attrs {
		out[k] = v
	}
	return out
}
