package fields

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/storage"
)

// FileRef is the stored value of a file field; the payload lives in the
// blob store under Key.
type FileRef struct {
	Key         string `json:"key"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

type uidProvider interface {
	UID() string
}

// BlobTracker is implemented by objects that settle blob changes when their
// values are stored. Added keys are removed if the change is discarded and
// replaced keys once it is saved.
type BlobTracker interface {
	TrackBlobs(added, replaced string)
}

// blobKey returns a fresh key under <uid>/<field>/ so a pending upload never
// overwrites the payload the stored reference points at.
func blobKey(obj jsonapi.Object, field string) string {
	id := obj.ID()
	if p, ok := obj.(uidProvider); ok && p.UID() != "" {
		id = p.UID()
	}
	return id + "/" + field + "/" + uuid.NewString()
}

func decodeFileRef(stored any) (any, error) {
	switch t := stored.(type) {
	case nil:
		return nil, nil
	case *FileRef:
		return t, nil
	case FileRef:
		return &t, nil
	case map[string]any:
		ref := &FileRef{}
		ref.Key, _ = t["key"].(string)
		ref.Filename, _ = t["filename"].(string)
		ref.ContentType, _ = t["content_type"].(string)
		switch size := t["size"].(type) {
		case float64:
			ref.Size = int64(size)
		case int64:
			ref.Size = size
		case int:
			ref.Size = int64(size)
		}
		if ref.Key == "" {
			return nil, errors.New("file reference without key")
		}
		return ref, nil
	}
	return nil, fmt.Errorf("cannot use %T as file reference", stored)
}

type fileUpload struct {
	filename    string
	contentType string
	data        []byte
}

// parseUpload accepts base64 data or an object with filename, content_type
// and data members.
func parseUpload(v any) (*fileUpload, error) {
	var up fileUpload
	var encoded string

	switch t := v.(type) {
	case string:
		encoded = t
	case map[string]any:
		up.filename, _ = t["filename"].(string)
		up.contentType, _ = t["content_type"].(string)
		data, ok := t["data"].(string)
		if !ok {
			return nil, errors.New("file upload requires base64 data")
		}
		encoded = data
	default:
		return nil, fmt.Errorf("cannot use %T as file upload", v)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 data: %w", err)
	}
	up.data = data
	if up.contentType == "" {
		up.contentType = "application/octet-stream"
	}
	return &up, nil
}

type fileManager struct {
	base
	blobs  storage.BlobStore
	logger *slog.Logger
}

func (m *fileManager) ref(obj jsonapi.Object) (*FileRef, error) {
	v, err := m.raw(obj)
	if err != nil {
		return nil, err
	}
	decoded, err := decodeFileRef(v)
	if err != nil || decoded == nil {
		return nil, err
	}
	return decoded.(*FileRef), nil
}

func (m *fileManager) Get(ctx context.Context, obj jsonapi.Object) (any, error) {
	if err := m.checkRead(ctx, obj); err != nil {
		return nil, err
	}
	ref, err := m.ref(obj)
	if err != nil || ref == nil {
		return nil, err
	}
	return ref, nil
}

// Set uploads the payload and stores the reference. An empty value removes
// the file.
func (m *fileManager) Set(ctx context.Context, obj jsonapi.Object, value any, siblings map[string]any) (bool, error) {
	if err := m.checkWrite(ctx, obj); err != nil {
		return false, err
	}
	s, err := m.storage(obj, "set")
	if err != nil {
		return false, err
	}

	var previous string
	if ref, err := m.ref(obj); err == nil && ref != nil {
		previous = ref.Key
	}

	if value == nil || value == "" {
		if err := m.validate(nil, siblings); err != nil {
			return false, err
		}
		s.SetValue(m.field.name, nil)
		m.settle(ctx, obj, "", previous)
		return true, nil
	}

	up, err := parseUpload(value)
	if err != nil {
		return false, &jsonapi.FieldError{Field: m.field.name, Op: "set", Err: fmt.Errorf("%w: %v", jsonapi.ErrInvalidValue, err)}
	}

	ref := &FileRef{
		Key:         blobKey(obj, m.field.name),
		Filename:    up.filename,
		ContentType: up.contentType,
		Size:        int64(len(up.data)),
	}
	if err := m.validate(ref, siblings); err != nil {
		return false, err
	}

	params := storage.UploadParams{ContentType: up.contentType, Filename: up.filename}
	if err := m.blobs.Upload(ctx, ref.Key, bytes.NewReader(up.data), params); err != nil {
		return false, &jsonapi.FieldError{Field: m.field.name, Op: "upload", Err: err}
	}

	s.SetValue(m.field.name, ref)
	m.settle(ctx, obj, ref.Key, previous)
	return true, nil
}

// settle hands the blob change to a tracking object. Objects without
// tracking drop the replaced blob at once.
func (m *fileManager) settle(ctx context.Context, obj jsonapi.Object, added, replaced string) {
	if t, ok := obj.(BlobTracker); ok {
		t.TrackBlobs(added, replaced)
		return
	}
	if replaced == "" {
		return
	}
	if err := m.blobs.Delete(ctx, replaced); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		m.logger.Warn("Failed to delete replaced file", "field", m.field.name, "key", replaced, "error", err)
	}
}

func (m *fileManager) JSONData(ctx context.Context, obj jsonapi.Object) (any, error) {
	if err := m.checkRead(ctx, obj); err != nil {
		return nil, err
	}
	ref, err := m.ref(obj)
	if err != nil || ref == nil {
		return nil, err
	}

	data := map[string]any{
		"filename":     ref.Filename,
		"content_type": ref.ContentType,
		"size":         ref.Size,
	}
	if u, err := m.blobs.GetDownloadURL(ctx, ref.Key, ref.Filename); err == nil {
		data["download"] = u
	} else {
		m.logger.Debug("No download URL for file field", "field", m.field.name, "key", ref.Key, "error", err)
	}
	return data, nil
}
