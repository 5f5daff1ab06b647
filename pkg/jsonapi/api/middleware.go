package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"
	"github.com/go-chi/render"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
)

type contextKey string

const (
	principalKey     contextKey = "principal"
	principalSlotKey contextKey = "principal-slot"
)

// WithPrincipal returns a copy of ctx carrying principal
func WithPrincipal(ctx context.Context, principal jsonapi.Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext returns the caller, or the anonymous principal when the
// request was not authenticated.
func PrincipalFromContext(ctx context.Context) jsonapi.Principal {
	if p, ok := ctx.Value(principalKey).(jsonapi.Principal); ok {
		return p
	}
	return jsonapi.AnonymousPrincipal()
}

// Authenticator resolves the principal from the token placed in the context
// by jwtauth.Verifier. Requests without a token continue as anonymous; an
// invalid token is rejected.
func Authenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil && !errors.Is(err, jwtauth.ErrNoTokenFound) {
			slog.Warn("Rejected token", "error", err)
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, ErrorResponse{Error: "invalid token"})
			return
		}

		principal := jsonapi.AnonymousPrincipal()
		if token != nil {
			principal = principalFromClaims(claims)
		}
		if slot, ok := r.Context().Value(principalSlotKey).(*jsonapi.Principal); ok {
			*slot = principal
		}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

func principalFromClaims(claims map[string]interface{}) jsonapi.Principal {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return jsonapi.AnonymousPrincipal()
	}

	p := jsonapi.Principal{ID: sub}
	switch roles := claims["roles"].(type) {
	case []interface{}:
		for _, r := range roles {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	case []string:
		p.Roles = append(p.Roles, roles...)
	case string:
		p.Roles = append(p.Roles, roles)
	}
	return p
}

// MaxBodyBytes limits request bodies; file fields arrive base64 encoded.
const MaxBodyBytes = 32 << 20

// RequestLogger logs each request once it completes, with the principal that
// made it.
func RequestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			var principal jsonapi.Principal
			next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), principalSlotKey, &principal)))

			logger.InfoContext(r.Context(), "request",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"principal", principal.ID,
			)
		})
	}
}

// RequestSizeLimit caps the size of request bodies
func RequestSizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// NewRouter mounts the handler behind token verification. With a nil
// tokenAuth every caller is anonymous.
func NewRouter(h *Handler, tokenAuth *jwtauth.JWTAuth) chi.Router {
	r := chi.NewRouter()
	r.Use(RequestLogger(nil))
	r.Use(RequestSizeLimit(MaxBodyBytes))
	if tokenAuth != nil {
		r.Use(jwtauth.Verifier(tokenAuth))
	}
	r.Use(Authenticator)
	r.Mount("/", h.Routes())
	return r
}
