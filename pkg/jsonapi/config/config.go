package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/jwtauth"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/api"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/authz"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/content"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/fields"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/repo/memory"
	repopg "github.com/tendant/simple-jsonapi/pkg/jsonapi/repo/postgres"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/storage"
	memorystorage "github.com/tendant/simple-jsonapi/pkg/jsonapi/storage/memory"
	s3storage "github.com/tendant/simple-jsonapi/pkg/jsonapi/storage/s3"
)

// APIPrefix is the path the JSON API is mounted under
const APIPrefix = "/api/v1"

// Option applies configuration to a ServerConfig instance.
type Option func(*ServerConfig) error

// Load constructs a ServerConfig by applying the supplied options on top of library defaults.
func Load(opts ...Option) (*ServerConfig, error) {
	cfg := defaults()

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(&cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func defaults() ServerConfig {
	return ServerConfig{
		Port:           "8080",
		Environment:    "development",
		DatabaseType:   "memory",
		StorageType:    "memory",
		BaseURL:        "http://localhost:8080",
		PortalID:       "portal",
		PortalTitle:    "Portal",
		CatalogColumns: append([]string(nil), content.DefaultCatalogColumns...),
	}
}

// ServerConfig represents server configuration for the JSON API
type ServerConfig struct {
	Port        string `env:"PORT" env-default:"8080"`
	Environment string `env:"ENVIRONMENT" env-default:"development"` // development, production, testing
	BaseURL     string `env:"BASE_URL" env-default:"http://localhost:8080"`

	// Database configuration
	DatabaseURL  string `env:"DATABASE_URL"`
	DatabaseType string // "memory", "postgres"

	// Blob storage configuration
	StorageURL  string `env:"STORAGE_URL"`
	StorageType string // "memory", "s3"
	S3          s3storage.Config

	// Authentication
	JWTSecret string `env:"JWT_SECRET"`

	// Portal
	PortalID       string   `env:"PORTAL_ID" env-default:"portal"`
	PortalTitle    string   `env:"PORTAL_TITLE" env-default:"Portal"`
	CatalogColumns []string `env:"CATALOG_COLUMNS" env-separator:","`
}

// Validate validates the server configuration
func (c *ServerConfig) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}

	if c.DatabaseType != "memory" && c.DatabaseType != "postgres" {
		return errors.New("database_type must be 'memory' or 'postgres'")
	}
	if c.DatabaseType == "postgres" && c.DatabaseURL == "" {
		return errors.New("database_url is required when using postgres")
	}

	switch c.StorageType {
	case "memory":
	case "s3":
		if c.S3.Bucket == "" {
			return errors.New("s3 bucket is required when using s3 storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.StorageType)
	}

	if c.PortalID == "" || strings.Contains(c.PortalID, "/") {
		return fmt.Errorf("invalid portal id %q", c.PortalID)
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("jwt_secret is required in production")
	}
	return nil
}

// App holds the components built from a ServerConfig
type App struct {
	Site      *content.Site
	Registry  *jsonapi.Registry
	Oracle    *authz.RoleOracle
	Blobs     storage.BlobStore
	Handler   *api.Handler
	TokenAuth *jwtauth.JWTAuth

	pool *pgxpool.Pool
}

// Router returns the JSON API router with token verification applied
func (a *App) Router() chi.Router {
	return api.NewRouter(a.Handler, a.TokenAuth)
}

// Close releases the database pool, if any
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

// Build wires repository, blob store, site, oracle, registry and handler
func (c *ServerConfig) Build(ctx context.Context) (*App, error) {
	app := &App{}

	repo, err := c.buildRepository(ctx, app)
	if err != nil {
		return nil, fmt.Errorf("failed to build repository: %w", err)
	}

	app.Blobs, err = c.buildBlobStore(ctx)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to build blob store: %w", err)
	}

	siteOpts := []content.SiteOption{
		content.WithPortal(c.PortalID, c.PortalTitle),
		content.WithBaseURL(c.BaseURL),
		content.WithBlobStore(app.Blobs),
	}
	if len(c.CatalogColumns) > 0 {
		siteOpts = append(siteOpts, content.WithCatalogColumns(c.CatalogColumns...))
	}
	for _, info := range content.DefaultTypes() {
		siteOpts = append(siteOpts, content.WithType(info))
	}
	app.Site, err = content.NewSite(repo, siteOpts...)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Oracle = authz.NewRoleOracle(authz.Config{})
	adapter := fields.NewAdapter(fields.WithBlobStore(app.Blobs))
	app.Registry = jsonapi.NewDefaultRegistry(fields.SchemaResolver{}, adapter, slog.Default())
	app.Handler = api.NewHandler(app.Site, app.Registry, app.Oracle, app.Blobs)

	if c.JWTSecret != "" {
		app.TokenAuth = jwtauth.New("HS256", []byte(c.JWTSecret), nil)
	}
	return app, nil
}

func (c *ServerConfig) buildRepository(ctx context.Context, app *App) (content.Repository, error) {
	switch c.DatabaseType {
	case "memory":
		return memory.New(), nil
	case "postgres":
		pool, err := pgxpool.New(ctx, c.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create pgx pool: %w", err)
		}
		app.pool = pool
		repo := repopg.NewWithPool(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			app.pool = nil
			return nil, err
		}
		return repo, nil
	}
	return nil, fmt.Errorf("unsupported database type: %s", c.DatabaseType)
}

func (c *ServerConfig) buildBlobStore(ctx context.Context) (storage.BlobStore, error) {
	switch c.StorageType {
	case "memory":
		prefix, err := url.JoinPath(c.BaseURL, APIPrefix, "files")
		if err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
		return memorystorage.New(prefix), nil
	case "s3":
		return s3storage.New(ctx, c.S3)
	}
	return nil, fmt.Errorf("unsupported storage type: %s", c.StorageType)
}
