package api

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

func TestPrincipalFromClaims(t *testing.T) {
	p := principalFromClaims(map[string]interface{}{
		"sub":   "alice",
		"roles": []interface{}{"Editor", 7, "Member"},
	})
	assert.Equal(t, "alice", p.ID)
	assert.Equal(t, []string{"Editor", "Member"}, p.Roles)

	p = principalFromClaims(map[string]interface{}{"sub": "bob", "roles": "Manager"})
	assert.Equal(t, []string{"Manager"}, p.Roles)

	assert.True(t, principalFromClaims(map[string]interface{}{}).IsAnonymous())
}

func TestPrincipalFromContext(t *testing.T) {
	assert.True(t, PrincipalFromContext(context.Background()).IsAnonymous())

	ctx := WithPrincipal(context.Background(), jsonapi.Principal{ID: "alice"})
	assert.Equal(t, "alice", PrincipalFromContext(ctx).ID)
}

func TestAuthenticator(t *testing.T) {
	tokenAuth := jwtauth.New("HS256", []byte("secret"), nil)
	var seen jsonapi.Principal
	handler := jwtauth.Verifier(tokenAuth)(Authenticator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFromContext(r.Context())
	})))

	t.Run("no token is anonymous", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, seen.IsAnonymous())
	})

	t.Run("valid token", func(t *testing.T) {
		_, token, err := tokenAuth.Encode(map[string]interface{}{"sub": "alice", "roles": []string{"Editor"}})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "alice", seen.ID)
		assert.True(t, seen.HasRole("Editor"))
	})

	t.Run("token signed with another key", func(t *testing.T) {
		_, token, err := jwtauth.New("HS256", []byte("other"), nil).Encode(map[string]interface{}{"sub": "mallory"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	handler := RequestLogger(logger)(Authenticator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})))

	req := httptest.NewRequest(http.MethodGet, "/portal", nil)
	req = req.WithContext(WithPrincipal(req.Context(), jsonapi.Principal{ID: "ignored"}))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	assert.Contains(t, out, "path=/portal")
	assert.Contains(t, out, "status=418")
	assert.Contains(t, out, "method=GET")
}

func TestRequestSizeLimit(t *testing.T) {
	handler := RequestSizeLimit(4)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
		}
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("too large")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}
