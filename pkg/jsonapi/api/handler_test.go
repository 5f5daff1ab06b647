package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/jwtauth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/api"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/authz"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/content"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/fields"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/repo/memory"
	memorystorage "github.com/tendant/simple-jsonapi/pkg/jsonapi/storage/memory"
)

type testServer struct {
	*httptest.Server
	tokenAuth *jwtauth.JWTAuth
	site      *content.Site
	blobs     *memorystorage.Backend
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	blobs := memorystorage.New("")
	site, err := content.NewSite(memory.New(),
		content.WithType(content.DocumentType()),
		content.WithType(content.ClientType()),
		content.WithPortal("portal", "Portal"),
		content.WithBlobStore(blobs),
	)
	require.NoError(t, err)

	registry := jsonapi.NewDefaultRegistry(fields.SchemaResolver{}, fields.NewAdapter(fields.WithBlobStore(blobs)), nil)
	handler := api.NewHandler(site, registry, authz.NewRoleOracle(authz.Config{}), blobs)

	tokenAuth := jwtauth.New("HS256", []byte("test-secret"), nil)
	srv := httptest.NewServer(api.NewRouter(handler, tokenAuth))
	t.Cleanup(srv.Close)

	return &testServer{Server: srv, tokenAuth: tokenAuth, site: site, blobs: blobs}
}

func (s *testServer) token(t *testing.T, sub string, roles ...string) string {
	t.Helper()
	if roles == nil {
		roles = []string{}
	}
	_, token, err := s.tokenAuth.Encode(map[string]interface{}{"sub": sub, "roles": roles})
	require.NoError(t, err)
	return token
}

// call sends body as JSON and decodes the JSON response into a map
func (s *testServer) call(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func (s *testServer) createDocument(t *testing.T, token string, values map[string]any) string {
	t.Helper()
	status, out := s.call(t, http.MethodPost, "/objects", token, map[string]any{
		"portal_type": "Document",
		"id":          "report",
		"values":      values,
	})
	require.Equal(t, http.StatusCreated, status, out)
	return out["uid"].(string)
}

func TestCreateObject(t *testing.T) {
	s := newTestServer(t)
	editor := s.token(t, "erin", jsonapi.RoleEditor)

	t.Run("anonymous is rejected", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects", "", map[string]any{"portal_type": "Document", "id": "x"})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("member is forbidden", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects", s.token(t, "mia", jsonapi.RoleMember), map[string]any{"portal_type": "Document", "id": "x"})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("unknown type", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects", editor, map[string]any{"portal_type": "Nope", "id": "x"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("editor creates", func(t *testing.T) {
		status, out := s.call(t, http.MethodPost, "/objects", editor, map[string]any{
			"portal_type": "Document",
			"id":          "report",
			"values":      map[string]any{"title": "Annual report", "bogus": 1},
		})
		require.Equal(t, http.StatusCreated, status)
		assert.Equal(t, []any{"title"}, out["updated"])
		assert.Equal(t, []any{"bogus"}, out["ignored"])

		obj, err := s.site.Object(t.Context(), out["uid"].(string))
		require.NoError(t, err)
		assert.Equal(t, "erin", obj.(*content.Item).Owner())
	})
}

func TestGetObject(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, "olga", jsonapi.RoleEditor)
	uid := s.createDocument(t, owner, map[string]any{"title": "Annual report", "effective": "2024-01-01"})

	t.Run("owner reads every field", func(t *testing.T) {
		status, out := s.call(t, http.MethodGet, "/objects/"+uid, s.token(t, "olga"), nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Annual report", out["title"])
		assert.Equal(t, "2024-01-01T00:00:00Z", out["effective"])
		assert.Equal(t, "private", out["review_state"])
		assert.Equal(t, uid, out["uid"])
		assert.Equal(t, "/portal/report", out["path"])
	})

	t.Run("structured content needs modify permission to read", func(t *testing.T) {
		status, _ := s.call(t, http.MethodGet, "/objects/"+uid, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)

		status, _ = s.call(t, http.MethodGet, "/objects/"+uid, s.token(t, "mia", jsonapi.RoleMember), nil)
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("single field", func(t *testing.T) {
		status, out := s.call(t, http.MethodGet, "/objects/"+uid+"/title", owner, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "Annual report", out["title"])

		status, out = s.call(t, http.MethodGet, "/objects/"+uid+"/nope", owner, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Nil(t, out["nope"])
	})

	t.Run("not found", func(t *testing.T) {
		status, _ := s.call(t, http.MethodGet, "/objects/"+uuid.New().String(), owner, nil)
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = s.call(t, http.MethodGet, "/objects/garbage", owner, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestUpdateObject(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, "olga", jsonapi.RoleEditor)
	uid := s.createDocument(t, owner, map[string]any{"title": "Annual report"})

	t.Run("setter trims the title", func(t *testing.T) {
		status, out := s.call(t, http.MethodPost, "/objects/"+uid+"/update", owner, map[string]any{
			"title":   "  Revised  ",
			"unknown": "x",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, []any{"title"}, out["updated"])
		assert.Equal(t, []any{"unknown"}, out["ignored"])

		_, got := s.call(t, http.MethodGet, "/objects/"+uid+"/title", owner, nil)
		assert.Equal(t, "Revised", got["title"])
	})

	t.Run("cross field validation", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects/"+uid+"/update", owner, map[string]any{
			"effective": "2024-06-01",
			"expires":   "2024-01-01",
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("read only field", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects/"+uid+"/update", owner, map[string]any{"review_state": "published"})
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("non owner member cannot write", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects/"+uid+"/update", s.token(t, "mia", jsonapi.RoleMember), map[string]any{"title": "Hijacked"})
		assert.Equal(t, http.StatusForbidden, status)

		_, got := s.call(t, http.MethodGet, "/objects/"+uid+"/title", owner, nil)
		assert.Equal(t, "Revised", got["title"])
	})

	t.Run("invalid body", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodPost, s.URL+"/objects/"+uid+"/update", bytes.NewBufferString("{"))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+owner)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTypedObject(t *testing.T) {
	s := newTestServer(t)
	editor := s.token(t, "erin", jsonapi.RoleEditor)

	status, out := s.call(t, http.MethodPost, "/objects", editor, map[string]any{
		"portal_type": "Client",
		"id":          "acme",
		"values":      map[string]any{"Name": "ACME", "Remarks": "pays late"},
	})
	require.Equal(t, http.StatusCreated, status, out)
	uid := out["uid"].(string)

	t.Run("viewer sees fields without remarks", func(t *testing.T) {
		status, out := s.call(t, http.MethodGet, "/objects/"+uid, s.token(t, "mia", jsonapi.RoleMember), nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "ACME", out["Name"])
		assert.Equal(t, float64(3), out["DefaultPriority"])
		assert.NotContains(t, out, "Remarks")
	})

	t.Run("anonymous sees nothing", func(t *testing.T) {
		status, _ := s.call(t, http.MethodGet, "/objects/"+uid, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("sibling constraint", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects/"+uid+"/update", editor, map[string]any{
			"BulkDiscount":   true,
			"MemberDiscount": 10,
		})
		assert.Equal(t, http.StatusBadRequest, status)
	})
}

func TestCatalog(t *testing.T) {
	s := newTestServer(t)
	uid := s.createDocument(t, s.token(t, "erin", jsonapi.RoleEditor), map[string]any{
		"title":       "Secret merger",
		"description": "confidential",
	})
	member := s.token(t, "mia", jsonapi.RoleMember)

	t.Run("viewer reads the row", func(t *testing.T) {
		status, out := s.call(t, http.MethodGet, "/catalog/"+uid, member, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, uid, out["UID"])
		assert.Equal(t, "Secret merger", out["Title"])
		assert.Equal(t, "Document", out["portal_type"])
		assert.Equal(t, "/portal/report", out["getPath"])
		assert.Contains(t, out, "review_state")
		assert.Nil(t, out["review_state"])
	})

	t.Run("anonymous gets no metadata", func(t *testing.T) {
		status, out := s.call(t, http.MethodGet, "/catalog/"+uid, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
		assert.NotContains(t, out, "Title")
		assert.NotContains(t, out, "Description")
	})

	t.Run("contents information grants the row", func(t *testing.T) {
		oracle := authz.NewRoleOracle(authz.Config{Policy: authz.Policy{
			jsonapi.PermissionAccessContentsInformation: {"Auditor"},
		}})
		registry := jsonapi.NewDefaultRegistry(fields.SchemaResolver{}, fields.NewAdapter(fields.WithBlobStore(s.blobs)), nil)
		srv := httptest.NewServer(api.NewRouter(api.NewHandler(s.site, registry, oracle, s.blobs), s.tokenAuth))
		defer srv.Close()

		req, err := http.NewRequest(http.MethodGet, srv.URL+"/catalog/"+uid, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+s.token(t, "ada", "Auditor"))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		req.Header.Set("Authorization", "Bearer "+member)
		resp, err = http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("portal record has no row", func(t *testing.T) {
		manager := s.token(t, "max", jsonapi.RoleManager)
		status, _ := s.call(t, http.MethodPost, "/portal/update", manager, map[string]any{"title": "Intranet"})
		require.Equal(t, http.StatusOK, status)

		status, _ = s.call(t, http.MethodGet, "/catalog/"+uuid.Nil.String(), manager, nil)
		assert.Equal(t, http.StatusNotFound, status)
		status, _ = s.call(t, http.MethodGet, "/objects/"+uuid.Nil.String(), manager, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	status, _ := s.call(t, http.MethodGet, "/catalog/"+uuid.New().String(), member, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestPortal(t *testing.T) {
	s := newTestServer(t)
	manager := s.token(t, "max", jsonapi.RoleManager)

	t.Run("anonymous cannot view", func(t *testing.T) {
		status, _ := s.call(t, http.MethodGet, "/portal", "", nil)
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("authenticated view", func(t *testing.T) {
		status, out := s.call(t, http.MethodGet, "/portal", s.token(t, "mia"), nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "0", out["uid"])
		assert.Equal(t, "/portal", out["path"])
		assert.Equal(t, "portal", out["getId"])
		assert.Equal(t, "Portal", out["Title"])
	})

	t.Run("editor cannot manage the portal", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/portal/update", s.token(t, "erin", jsonapi.RoleEditor), map[string]any{"title": "Hijacked"})
		assert.Equal(t, http.StatusForbidden, status)
	})

	t.Run("manager updates existing attributes only", func(t *testing.T) {
		status, out := s.call(t, http.MethodPost, "/portal/update", manager, map[string]any{
			"title":     "Intranet",
			"new_thing": "x",
		})
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "0", out["uid"])
		assert.Equal(t, []any{"title"}, out["updated"])
		assert.Equal(t, []any{"new_thing"}, out["ignored"])

		_, got := s.call(t, http.MethodGet, "/portal", manager, nil)
		assert.Equal(t, "Intranet", got["Title"])
		assert.NotContains(t, got, "new_thing")
	})

	t.Run("portal through the objects route", func(t *testing.T) {
		status, out := s.call(t, http.MethodGet, "/objects/0/uid", manager, nil)
		require.Equal(t, http.StatusOK, status)
		assert.Equal(t, "0", out["uid"])
	})
}

func TestFiles(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, "olga", jsonapi.RoleEditor)
	uid := s.createDocument(t, owner, map[string]any{"title": "Annual report"})

	status, out := s.call(t, http.MethodPost, "/objects/"+uid+"/update", owner, map[string]any{
		"attachment": map[string]any{"filename": "notes.txt", "content_type": "text/plain", "data": "aGVsbG8="},
	})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, []any{"attachment"}, out["updated"])

	_, got := s.call(t, http.MethodGet, "/objects/"+uid+"/attachment", owner, nil)
	attachment, ok := got["attachment"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "notes.txt", attachment["filename"])
	assert.Equal(t, float64(5), attachment["size"])
	assert.NotContains(t, attachment, "download")

	req, err := http.NewRequest(http.MethodGet, s.URL+"/files/"+uid+"/attachment", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+owner)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "notes.txt")
	assert.Equal(t, int64(5), resp.ContentLength)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(payload))

	status, _ = s.call(t, http.MethodGet, "/files/"+uid+"/attachment", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.call(t, http.MethodGet, "/files/"+uid+"/title", owner, nil)
	assert.Equal(t, http.StatusNotFound, status)

	item, err := s.site.Object(t.Context(), uid)
	require.NoError(t, err)
	ref, ok := item.(*content.Item).Value("attachment")
	require.True(t, ok)
	key := ref.(*fields.FileRef).Key

	t.Run("versioned download", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, s.URL+"/files/"+key, nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+owner)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		status, _ := s.call(t, http.MethodGet, "/files/"+uid+"/attachment/"+uuid.NewString(), owner, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("failed update keeps the stored file", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects/"+uid+"/update", owner, map[string]any{
			"attachment": "Z29vZGJ5ZQ==",
			"title":      "   ",
		})
		require.Equal(t, http.StatusBadRequest, status)

		_, got := s.call(t, http.MethodGet, "/objects/"+uid+"/attachment", owner, nil)
		assert.Equal(t, "notes.txt", got["attachment"].(map[string]any)["filename"])
		assert.Equal(t, []string{key}, s.blobs.Keys())

		req, err := http.NewRequest(http.MethodGet, s.URL+"/files/"+uid+"/attachment", nil)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+owner)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		payload, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(payload))
	})

	t.Run("failed removal keeps the payload", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects/"+uid+"/update", owner, map[string]any{
			"attachment": nil,
			"title":      "   ",
		})
		require.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, []string{key}, s.blobs.Keys())
	})

	t.Run("replacing drops the old payload after save", func(t *testing.T) {
		status, _ := s.call(t, http.MethodPost, "/objects/"+uid+"/update", owner, map[string]any{
			"attachment": "Z29vZGJ5ZQ==",
		})
		require.Equal(t, http.StatusOK, status)

		keys := s.blobs.Keys()
		require.Len(t, keys, 1)
		assert.NotEqual(t, key, keys[0])
	})
}

func TestDeleteObject(t *testing.T) {
	s := newTestServer(t)
	owner := s.token(t, "olga", jsonapi.RoleEditor)
	uid := s.createDocument(t, owner, map[string]any{
		"title":      "Annual report",
		"attachment": map[string]any{"filename": "notes.txt", "data": "aGVsbG8="},
	})
	require.Len(t, s.blobs.Keys(), 1)

	status, _ := s.call(t, http.MethodDelete, "/objects/"+uid, s.token(t, "mia", jsonapi.RoleMember), nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Len(t, s.blobs.Keys(), 1)

	status, _ = s.call(t, http.MethodDelete, "/objects/"+uid, owner, nil)
	assert.Equal(t, http.StatusNoContent, status)
	assert.Empty(t, s.blobs.Keys())

	status, _ = s.call(t, http.MethodGet, "/objects/"+uid, owner, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = s.call(t, http.MethodDelete, "/objects/0", s.token(t, "max", jsonapi.RoleManager), nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestInvalidToken(t *testing.T) {
	s := newTestServer(t)
	status, out := s.call(t, http.MethodGet, "/portal", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "invalid token", out["error"])
}
