package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/google/uuid"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/content"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/fields"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/storage"
)

// CreateRequest is the request body of a create
type CreateRequest struct {
	PortalType string         `json:"portal_type"`
	ID         string         `json:"id"`
	Values     map[string]any `json:"values"`
}

// UpdateResponse is the response body of an update
type UpdateResponse struct {
	UID     string   `json:"uid"`
	Updated []string `json:"updated"`
	Ignored []string `json:"ignored"`
}

// Handler serves named values of content objects over HTTP
type Handler struct {
	site     *content.Site
	registry *jsonapi.Registry
	oracle   jsonapi.Oracle
	blobs    storage.BlobStore
}

// NewHandler creates a new handler. blobs may be nil when no file fields are
// served.
func NewHandler(site *content.Site, registry *jsonapi.Registry, oracle jsonapi.Oracle, blobs storage.BlobStore) *Handler {
	return &Handler{
		site:     site,
		registry: registry,
		oracle:   oracle,
		blobs:    blobs,
	}
}

// Routes returns the routes of the JSON API
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/portal", h.GetPortal)
	r.Post("/portal/update", h.UpdatePortal)

	r.Post("/objects", h.CreateObject)
	r.Get("/objects/{uid}", h.GetObject)
	r.Delete("/objects/{uid}", h.DeleteObject)
	r.Get("/objects/{uid}/{field}", h.GetField)
	r.Post("/objects/{uid}/update", h.UpdateObject)

	r.Get("/catalog/{uid}", h.GetCatalogRow)

	r.Get("/files/{uid}/{field}", h.DownloadFile)
	r.Get("/files/{uid}/{field}/{version}", h.DownloadFile)

	return r
}

func (h *Handler) security(r *http.Request) jsonapi.Security {
	return jsonapi.Security{
		Principal: PrincipalFromContext(r.Context()),
		Oracle:    h.oracle,
	}
}

func (h *Handler) load(r *http.Request) (jsonapi.Object, jsonapi.DataManager, error) {
	obj, err := h.site.Object(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		return nil, nil, err
	}
	dm, err := h.registry.DataManager(obj, h.security(r))
	if err != nil {
		return nil, nil, err
	}
	return obj, dm, nil
}

// GetObject returns every field of an object. Fields the caller may not read
// are left out; the request fails only when no field is readable.
func (h *Handler) GetObject(w http.ResponseWriter, r *http.Request) {
	obj, dm, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := collect(r.Context(), dm, fieldNames(obj))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if item, ok := obj.(*content.Item); ok {
		data["uid"] = item.UID()
		data["id"] = item.ID()
		data["portal_type"] = item.PortalType()
		data["path"] = item.Path()
	}

	render.JSON(w, r, data)
}

// GetField returns a single named value
func (h *Handler) GetField(w http.ResponseWriter, r *http.Request) {
	_, dm, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	name := chi.URLParam(r, "field")
	value, err := dm.JSONData(r.Context(), name, nil)
	if err != nil {
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, map[string]any{
		"uid": chi.URLParam(r, "uid"),
		name:  value,
	})
}

// UpdateObject sets every member of the request body on the object
func (h *Handler) UpdateObject(w http.ResponseWriter, r *http.Request) {
	obj, dm, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.update(w, r, obj, dm, chi.URLParam(r, "uid"))
}

// CreateObject adds an item to the portal. Values are set through the new
// item's data manager so field permissions and validators apply.
func (h *Handler) CreateObject(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", jsonapi.ErrInvalidValue, err))
		return
	}

	portal, err := h.site.Portal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	sec := h.security(r)
	if err := sec.Require(r.Context(), jsonapi.PermissionModifyPortalContent, portal, "create", "not allowed to add content"); err != nil {
		writeError(w, r, err)
		return
	}

	item, err := h.site.New(req.PortalType, req.ID, sec.Principal.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	dm, err := h.registry.DataManager(item, sec)
	if err != nil {
		writeError(w, r, err)
		return
	}

	names := make([]string, 0, len(req.Values))
	for name := range req.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := UpdateResponse{UID: item.UID(), Updated: []string{}, Ignored: []string{}}
	for _, name := range names {
		ok, err := dm.Set(r.Context(), name, req.Values[name], req.Values)
		if err != nil {
			h.site.Discard(r.Context(), item)
			writeError(w, r, err)
			return
		}
		if ok {
			resp.Updated = append(resp.Updated, name)
		} else {
			resp.Ignored = append(resp.Ignored, name)
		}
	}

	if err := h.site.Save(r.Context(), item); err != nil {
		h.site.Discard(r.Context(), item)
		writeError(w, r, err)
		return
	}
	slog.Info("Object created", "uid", item.UID(), "portal_type", req.PortalType, "owner", sec.Principal.ID)

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, resp)
}

// DeleteObject removes an item
func (h *Handler) DeleteObject(w http.ResponseWriter, r *http.Request) {
	obj, err := h.site.Object(r.Context(), chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	item, ok := obj.(*content.Item)
	if !ok {
		writeError(w, r, fmt.Errorf("%w: only items can be deleted", jsonapi.ErrInvalidValue))
		return
	}
	if err := h.security(r).Require(r.Context(), jsonapi.PermissionModifyPortalContent, item, "delete", "not allowed to delete this object"); err != nil {
		writeError(w, r, err)
		return
	}

	uid, _ := uuid.Parse(item.UID())
	if err := h.site.Delete(r.Context(), uid); err != nil {
		writeError(w, r, err)
		return
	}
	slog.Info("Object deleted", "uid", item.UID())
	w.WriteHeader(http.StatusNoContent)
}

// GetPortal returns the attributes of the portal root
func (h *Handler) GetPortal(w http.ResponseWriter, r *http.Request) {
	portal, err := h.site.Portal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	dm, err := h.registry.DataManager(portal, h.security(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	data, err := collect(r.Context(), dm, fieldNames(portal))
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, data)
}

// UpdatePortal sets attributes of the portal root
func (h *Handler) UpdatePortal(w http.ResponseWriter, r *http.Request) {
	portal, err := h.site.Portal(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	dm, err := h.registry.DataManager(portal, h.security(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.update(w, r, portal, dm, jsonapi.PortalUID)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request, obj jsonapi.Object, dm jsonapi.DataManager, uid string) {
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, fmt.Errorf("%w: %v", jsonapi.ErrInvalidValue, err))
		return
	}

	names := make([]string, 0, len(body))
	for name := range body {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := UpdateResponse{UID: uid, Updated: []string{}, Ignored: []string{}}
	for _, name := range names {
		ok, err := dm.Set(r.Context(), name, body[name], body)
		if err != nil {
			h.site.Discard(r.Context(), obj)
			writeError(w, r, err)
			return
		}
		if ok {
			resp.Updated = append(resp.Updated, name)
		} else {
			resp.Ignored = append(resp.Ignored, name)
		}
	}

	if len(resp.Updated) > 0 {
		if err := h.site.Save(r.Context(), obj); err != nil {
			h.site.Discard(r.Context(), obj)
			writeError(w, r, err)
			return
		}
		slog.Info("Object updated", "uid", uid, "fields", resp.Updated)
	}

	render.JSON(w, r, resp)
}

// GetCatalogRow returns the catalog metadata of an object. Rows are only
// listed to callers who may view the object or access its contents
// information.
func (h *Handler) GetCatalogRow(w http.ResponseWriter, r *http.Request) {
	uid, err := uuid.Parse(chi.URLParam(r, "uid"))
	if err != nil {
		writeError(w, r, jsonapi.ErrObjectNotFound)
		return
	}
	item, err := h.site.Item(r.Context(), uid)
	if err != nil {
		writeError(w, r, err)
		return
	}
	sec := h.security(r)
	if !sec.Check(r.Context(), jsonapi.PermissionView, item) {
		if err := sec.Require(r.Context(), jsonapi.PermissionAccessContentsInformation, item, "catalog", "not allowed to list this object"); err != nil {
			writeError(w, r, err)
			return
		}
	}

	row := h.site.RowOf(item)
	dm, err := h.registry.DataManager(row, sec)
	if err != nil {
		writeError(w, r, err)
		return
	}

	data := make(map[string]any)
	for _, col := range row.Columns() {
		v, err := dm.JSONData(r.Context(), col, nil)
		if err != nil {
			writeError(w, r, err)
			return
		}
		data[col] = v
	}
	render.JSON(w, r, data)
}

// DownloadFile streams the payload of a file field after a read through the
// object's data manager.
func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	if h.blobs == nil {
		writeError(w, r, jsonapi.ErrObjectNotFound)
		return
	}
	_, dm, err := h.load(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	value, err := dm.Get(r.Context(), chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, ok := value.(*fields.FileRef)
	if !ok || ref == nil {
		writeError(w, r, jsonapi.ErrObjectNotFound)
		return
	}
	if version := chi.URLParam(r, "version"); version != "" && path.Base(ref.Key) != version {
		writeError(w, r, jsonapi.ErrObjectNotFound)
		return
	}

	reader, err := h.blobs.Download(r.Context(), ref.Key)
	if errors.Is(err, storage.ErrBlobNotFound) {
		writeError(w, r, jsonapi.ErrObjectNotFound)
		return
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	defer reader.Close()

	w.Header().Set("Content-Type", ref.ContentType)
	if meta, err := h.blobs.GetObjectMeta(r.Context(), ref.Key); err == nil && meta.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	}
	if ref.Filename != "" {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ref.Filename))
	}
	if _, err := io.Copy(w, reader); err != nil {
		slog.Error("Failed to stream file", "key", ref.Key, "error", err)
	}
}

func fieldNames(obj jsonapi.Object) []string {
	switch o := obj.(type) {
	case *content.Item:
		return o.Schema().Names()
	case *content.Portal:
		return append([]string{"uid", "path", "getId", "Title"}, o.Attributes()...)
	case *content.CatalogRow:
		return o.Columns()
	}
	return nil
}

// collect reads names through dm, skipping names the caller may not read.
func collect(ctx context.Context, dm jsonapi.DataManager, names []string) (map[string]any, error) {
	data := make(map[string]any, len(names))
	var denied error
	for _, name := range names {
		v, err := dm.JSONData(ctx, name, nil)
		if errors.Is(err, jsonapi.ErrUnauthorized) {
			denied = err
			continue
		}
		if err != nil {
			return nil, err
		}
		data[name] = v
	}
	if len(data) == 0 && denied != nil {
		return nil, denied
	}
	return data, nil
}
