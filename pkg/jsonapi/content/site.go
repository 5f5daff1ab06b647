package content

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/storage"
)

// DefaultCatalogColumns are the metadata columns projected into catalog rows
var DefaultCatalogColumns = []string{
	"UID", "getId", "portal_type", "Title", "Description",
	"review_state", "created", "modified", "getPath", "getURL",
}

// Site loads and stores the content objects of one portal
type Site struct {
	repo        Repository
	blobs       storage.BlobStore
	types       map[string]*TypeInfo
	portalID    string
	portalTitle string
	columns     []string
	baseURL     string
}

// SiteOption configures a Site
type SiteOption func(*Site)

// WithType registers a portal type
func WithType(info *TypeInfo) SiteOption {
	return func(s *Site) {
		s.types[info.PortalType] = info
	}
}

// WithPortal sets the id and title of a portal that has never been saved
func WithPortal(id, title string) SiteOption {
	return func(s *Site) {
		s.portalID = id
		s.portalTitle = title
	}
}

// WithBlobStore sets the store holding file field payloads. Without it
// replaced and deleted payloads are left in place.
func WithBlobStore(store storage.BlobStore) SiteOption {
	return func(s *Site) {
		s.blobs = store
	}
}

// WithCatalogColumns replaces the catalog metadata columns
func WithCatalogColumns(columns ...string) SiteOption {
	return func(s *Site) {
		s.columns = columns
	}
}

// WithBaseURL sets the URL prefix used by the getURL catalog column
func WithBaseURL(u string) SiteOption {
	return func(s *Site) {
		s.baseURL = strings.TrimSuffix(u, "/")
	}
}

// NewSite creates a site on top of repo
func NewSite(repo Repository, opts ...SiteOption) (*Site, error) {
	s := &Site{
		repo:        repo,
		types:       make(map[string]*TypeInfo),
		portalID:    "portal",
		portalTitle: "Portal",
		columns:     DefaultCatalogColumns,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.repo == nil {
		return nil, fmt.Errorf("repository is required")
	}
	for name, info := range s.types {
		if !info.Technology.IsValid() || info.Technology == jsonapi.TechnologyCatalog || info.Technology == jsonapi.TechnologyPortal {
			return nil, fmt.Errorf("portal type %s: unsupported technology %q", name, info.Technology)
		}
		if info.Schema == nil {
			return nil, fmt.Errorf("portal type %s: schema is required", name)
		}
	}
	return s, nil
}

// TypeInfo returns the registered portal type
func (s *Site) TypeInfo(portalType string) (*TypeInfo, bool) {
	info, ok := s.types[portalType]
	return info, ok
}

// New returns an unsaved item of portalType owned by owner
func (s *Site) New(portalType, id, owner string) (*Item, error) {
	info, ok := s.types[portalType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown portal type %q", jsonapi.ErrInvalidValue, portalType)
	}
	if id == "" || strings.Contains(id, "/") {
		return nil, fmt.Errorf("%w: invalid id %q", jsonapi.ErrInvalidValue, id)
	}

	item := NewItem(info, uuid.New(), id, "/"+s.portalID+"/"+id)
	item.owner = owner
	return item, nil
}

// Create adds a new item of portalType owned by owner and stores it. Values
// are stored as given; callers enforcing field permissions set them through a
// data manager instead.
func (s *Site) Create(ctx context.Context, portalType, id, owner string, values map[string]any) (*Item, error) {
	item, err := s.New(portalType, id, owner)
	if err != nil {
		return nil, err
	}
	if err := s.decodeInto(item, values); err != nil {
		return nil, err
	}
	if err := s.Save(ctx, item); err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the item stored under uid together with its file payloads
func (s *Site) Delete(ctx context.Context, uid uuid.UUID) error {
	if uid == PortalRecordUID {
		return fmt.Errorf("%w: the portal root cannot be deleted", jsonapi.ErrInvalidValue)
	}
	item, err := s.Item(ctx, uid)
	if err != nil {
		return err
	}
	keys := item.FileKeys()

	if err := s.repo.DeleteRecord(ctx, uid); err != nil {
		return &jsonapi.ObjectError{UID: uid.String(), Op: "delete", Err: err}
	}
	s.removeBlobs(ctx, keys)
	return nil
}

// Item loads the item stored under uid
func (s *Site) Item(ctx context.Context, uid uuid.UUID) (*Item, error) {
	if uid == PortalRecordUID {
		return nil, &jsonapi.ObjectError{UID: uid.String(), Op: "load", Err: jsonapi.ErrObjectNotFound}
	}
	rec, err := s.repo.GetRecord(ctx, uid)
	if err != nil {
		return nil, &jsonapi.ObjectError{UID: uid.String(), Op: "load", Err: err}
	}
	info, ok := s.types[rec.PortalType]
	if !ok {
		return nil, &jsonapi.ObjectError{UID: uid.String(), Op: "load", Err: fmt.Errorf("unknown portal type %q", rec.PortalType)}
	}

	item := NewItem(info, rec.UID, rec.ID, rec.Path)
	if err := s.decodeInto(item, rec.Values); err != nil {
		return nil, err
	}
	item.owner = rec.Owner
	item.created = rec.Created
	item.modified = rec.Modified
	item.dirty = false
	return item, nil
}

// Discard drops the pending changes of obj, removing file payloads uploaded
// since it was loaded. The object must not be saved afterwards.
func (s *Site) Discard(ctx context.Context, obj jsonapi.Object) {
	item, ok := obj.(*Item)
	if !ok {
		return
	}
	s.removeBlobs(ctx, item.addedBlobs)
	item.addedBlobs = nil
	item.replacedBlobs = nil
}

func (s *Site) removeBlobs(ctx context.Context, keys []string) {
	if s.blobs == nil {
		return
	}
	for _, key := range keys {
		if err := s.blobs.Delete(ctx, key); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
			slog.Warn("Failed to delete file payload", "key", key, "error", err)
		}
	}
}

func (s *Site) decodeInto(item *Item, values map[string]any) error {
	for name, v := range values {
		if f, ok := item.info.Schema.Field(name); ok {
			decoded, err := f.Decode(v)
			if err != nil {
				return &jsonapi.ObjectError{UID: item.UID(), Op: "decode " + name, Err: err}
			}
			v = decoded
		}
		item.values[name] = v
	}
	return nil
}

// Portal loads the portal root
func (s *Site) Portal(ctx context.Context) (*Portal, error) {
	rec, err := s.repo.GetRecord(ctx, PortalRecordUID)
	if errors.Is(err, jsonapi.ErrObjectNotFound) {
		return NewPortal(s.portalID, map[string]any{
			"title":              s.portalTitle,
			"description":        "",
			"email_from_address": "",
			"email_from_name":    "",
		}), nil
	}
	if err != nil {
		return nil, &jsonapi.ObjectError{UID: jsonapi.PortalUID, Op: "load", Err: err}
	}
	p := NewPortal(rec.ID, rec.Values)
	p.created = rec.Created
	return p, nil
}

// Object loads the item or, for the portal uid "0", the portal root
func (s *Site) Object(ctx context.Context, uid string) (jsonapi.Object, error) {
	if uid == jsonapi.PortalUID {
		return s.Portal(ctx)
	}
	id, err := uuid.Parse(uid)
	if err != nil {
		return nil, &jsonapi.ObjectError{UID: uid, Op: "load", Err: jsonapi.ErrObjectNotFound}
	}
	return s.Item(ctx, id)
}

// Save stores an item or the portal root
func (s *Site) Save(ctx context.Context, obj jsonapi.Object) error {
	switch o := obj.(type) {
	case *Item:
		if err := s.repo.SaveRecord(ctx, o.Record()); err != nil {
			return &jsonapi.ObjectError{UID: o.UID(), Op: "save", Err: err}
		}
		s.removeBlobs(ctx, o.replacedBlobs)
		o.addedBlobs = nil
		o.replacedBlobs = nil
		o.dirty = false
	case *Portal:
		now := time.Now().UTC()
		created := o.created
		if created.IsZero() {
			created = now
		}
		rec := &Record{
			UID:        PortalRecordUID,
			ID:         o.id,
			PortalType: "Portal",
			Path:       "/" + o.id,
			Values:     o.values(),
			Created:    created,
			Modified:   now,
		}
		if err := s.repo.SaveRecord(ctx, rec); err != nil {
			return &jsonapi.ObjectError{UID: jsonapi.PortalUID, Op: "save", Err: err}
		}
		o.created = created
		o.dirty = false
	default:
		return fmt.Errorf("cannot save %T", obj)
	}
	return nil
}

// CatalogRow projects the item stored under uid onto the metadata columns.
// The portal root has no catalog row.
func (s *Site) CatalogRow(ctx context.Context, uid uuid.UUID) (*CatalogRow, error) {
	if uid == PortalRecordUID {
		return nil, &jsonapi.ObjectError{UID: uid.String(), Op: "catalog", Err: jsonapi.ErrObjectNotFound}
	}
	rec, err := s.repo.GetRecord(ctx, uid)
	if err != nil {
		return nil, &jsonapi.ObjectError{UID: uid.String(), Op: "catalog", Err: err}
	}
	return s.project(rec), nil
}

// RowOf projects a loaded item onto the metadata columns
func (s *Site) RowOf(item *Item) *CatalogRow {
	return s.project(item.Record())
}

func (s *Site) project(rec *Record) *CatalogRow {
	row := &CatalogRow{
		id:      rec.ID,
		columns: make(map[string]jsonapi.Attribute, len(s.columns)),
		order:   s.columns,
	}

	for _, col := range s.columns {
		switch col {
		case "UID":
			row.columns[col] = jsonapi.Value{V: rec.UID.String()}
		case "getId", "id":
			row.columns[col] = jsonapi.Value{V: rec.ID}
		case "portal_type":
			row.columns[col] = jsonapi.Value{V: rec.PortalType}
		case "created":
			row.columns[col] = jsonapi.Value{V: rec.Created.UTC().Format(time.RFC3339)}
		case "modified":
			row.columns[col] = jsonapi.Value{V: rec.Modified.UTC().Format(time.RFC3339)}
		case "getPath":
			path := rec.Path
			row.columns[col] = jsonapi.Accessor(func() (any, error) { return path, nil })
		case "getURL":
			u := s.baseURL + rec.Path
			row.columns[col] = jsonapi.Accessor(func() (any, error) { return u, nil })
		default:
			row.columns[col] = columnValue(rec.Values, col)
		}
	}
	return row
}

// columnValue maps a column to the record value of the same name, accepting
// the capitalized metadata spelling ("Title" for "title").
func columnValue(values map[string]any, col string) jsonapi.Attribute {
	v, ok := values[col]
	if !ok && col != "" {
		v, ok = values[strings.ToLower(col[:1])+col[1:]]
	}
	if !ok {
		return jsonapi.Value{V: jsonapi.Missing}
	}
	if t, isTime := v.(time.Time); isTime {
		v = t.UTC().Format(time.RFC3339)
	}
	return jsonapi.Value{V: v}
}
