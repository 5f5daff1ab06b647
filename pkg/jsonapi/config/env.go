package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/content"
)

// WithEnv reads the process environment into the configuration. Apply it
// before programmatic options; it resets every field that has an env tag.
//
// Environment variables:
//
//	PORT, ENVIRONMENT, BASE_URL
//	DATABASE_URL    - "memory" (default) or "postgres://..."
//	STORAGE_URL     - "memory://" (default) or "s3://bucket?region=..&endpoint=..&prefix=..&path_style=true"
//	JWT_SECRET      - HS256 secret; empty disables authentication
//	PORTAL_ID, PORTAL_TITLE
//	CATALOG_COLUMNS - comma separated metadata columns
func WithEnv() Option {
	return func(c *ServerConfig) error {
		if err := cleanenv.ReadEnv(c); err != nil {
			return fmt.Errorf("failed to read environment: %w", err)
		}
		if len(c.CatalogColumns) == 0 {
			c.CatalogColumns = append([]string(nil), content.DefaultCatalogColumns...)
		}
		if err := applyDatabaseURL(c, c.DatabaseURL); err != nil {
			return err
		}
		return applyStorageURL(c, c.StorageURL)
	}
}

func applyDatabaseURL(c *ServerConfig, dbURL string) error {
	switch {
	case dbURL == "" || dbURL == "memory":
		c.DatabaseType = "memory"
		c.DatabaseURL = ""
	case strings.HasPrefix(dbURL, "postgresql://"), strings.HasPrefix(dbURL, "postgres://"):
		c.DatabaseType = "postgres"
		c.DatabaseURL = dbURL
	default:
		return fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", dbURL)
	}
	return nil
}

func applyStorageURL(c *ServerConfig, storageURL string) error {
	if storageURL == "" || storageURL == "memory" || storageURL == "memory://" {
		c.StorageType = "memory"
		return nil
	}

	u, err := url.Parse(storageURL)
	if err != nil {
		return fmt.Errorf("invalid STORAGE_URL: %w", err)
	}
	if u.Scheme != "s3" {
		return fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://' or 's3://...')", storageURL)
	}
	if u.Host == "" {
		return fmt.Errorf("bucket name cannot be empty in STORAGE_URL")
	}

	q := u.Query()
	c.StorageType = "s3"
	c.S3.Bucket = u.Host
	c.S3.Prefix = strings.Trim(u.Path, "/")
	if v := q.Get("region"); v != "" {
		c.S3.Region = v
	}
	if v := q.Get("endpoint"); v != "" {
		c.S3.Endpoint = v
	}
	if v := q.Get("prefix"); v != "" {
		c.S3.Prefix = v
	}
	c.S3.UsePathStyle = q.Get("path_style") == "true"
	c.S3.CreateBucketIfNotExist = q.Get("create_bucket") == "true"
	return nil
}
