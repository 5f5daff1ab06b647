package content

import (
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/fields"
)

// SetterFunc is a setter declared by a content type
type SetterFunc func(item *Item, value any) (bool, error)

// TypeInfo describes a portal type
type TypeInfo struct {
	PortalType string
	Technology jsonapi.Technology
	Schema     *fields.Schema
	// Setters are keyed by method name, e.g. "setTitle"
	Setters map[string]SetterFunc
}

// Item is a schema-described content object
type Item struct {
	uid      uuid.UUID
	id       string
	path     string
	owner    string
	info     *TypeInfo
	values   map[string]any
	created  time.Time
	modified time.Time
	dirty    bool

	// blob keys uploaded or superseded since the last save
	addedBlobs    []string
	replacedBlobs []string
}

// NewItem creates an empty item of the given type
func NewItem(info *TypeInfo, uid uuid.UUID, id, path string) *Item {
	now := time.Now().UTC()
	return &Item{
		uid:      uid,
		id:       id,
		path:     path,
		info:     info,
		values:   make(map[string]any),
		created:  now,
		modified: now,
	}
}

func (i *Item) ID() string { return i.id }

func (i *Item) UID() string { return i.uid.String() }

func (i *Item) Technology() jsonapi.Technology { return i.info.Technology }

func (i *Item) PortalType() string { return i.info.PortalType }

func (i *Item) Path() string { return i.path }

// Owner returns the id of the principal that created the item
func (i *Item) Owner() string { return i.owner }

func (i *Item) Schema() *fields.Schema { return i.info.Schema }

func (i *Item) Modified() time.Time { return i.modified }

// Dirty reports whether a value changed since the item was loaded
func (i *Item) Dirty() bool { return i.dirty }

func (i *Item) Value(name string) (any, bool) {
	v, ok := i.values[name]
	return v, ok
}

func (i *Item) SetValue(name string, value any) {
	i.values[name] = value
	i.modified = time.Now().UTC()
	i.dirty = true
}

// Setter binds a setter declared by the item's type
func (i *Item) Setter(name string) (jsonapi.Setter, bool) {
	fn, ok := i.info.Setters[name]
	if !ok || fn == nil {
		return nil, false
	}
	return func(value any) (bool, error) {
		return fn(i, value)
	}, true
}

// Record returns the persisted form of the item
func (i *Item) Record() *Record {
	values := make(map[string]any, len(i.values))
	for k, v := range i.values {
		values[k] = v
	}
	return &Record{
		UID:        i.uid,
		ID:         i.id,
		PortalType: i.info.PortalType,
		Path:       i.path,
		Owner:      i.owner,
		Values:     values,
		Created:    i.created,
		Modified:   i.modified,
	}
}

// TrackBlobs records file payloads changed by a pending field update
func (i *Item) TrackBlobs(added, replaced string) {
	if added != "" {
		i.addedBlobs = append(i.addedBlobs, added)
	}
	if replaced != "" {
		i.replacedBlobs = append(i.replacedBlobs, replaced)
	}
}

// FileKeys returns the blob keys referenced by the item's file fields
func (i *Item) FileKeys() []string {
	var keys []string
	for _, f := range i.info.Schema.Fields() {
		if f.Kind() != fields.KindFile {
			continue
		}
		if ref, ok := i.values[f.Name()].(*fields.FileRef); ok && ref != nil && ref.Key != "" {
			keys = append(keys, ref.Key)
		}
	}
	return keys
}
