package config

import (
	"fmt"
	"strings"

	s3storage "github.com/tendant/simple-jsonapi/pkg/jsonapi/storage/s3"
)

// WithPort sets the server port
func WithPort(port string) Option {
	return func(c *ServerConfig) error {
		if port == "" {
			return fmt.Errorf("port cannot be empty")
		}
		c.Port = port
		return nil
	}
}

// WithEnvironment sets the environment (development, production, testing)
func WithEnvironment(env string) Option {
	return func(c *ServerConfig) error {
		if env == "" {
			return fmt.Errorf("environment cannot be empty")
		}
		c.Environment = env
		return nil
	}
}

// WithBaseURL sets the public URL of the server
func WithBaseURL(u string) Option {
	return func(c *ServerConfig) error {
		c.BaseURL = strings.TrimSuffix(u, "/")
		return nil
	}
}

// WithDatabaseURL selects the repository from a connection string: "memory"
// or a postgres URL.
func WithDatabaseURL(u string) Option {
	return func(c *ServerConfig) error {
		return applyDatabaseURL(c, u)
	}
}

// WithMemoryStorage keeps file field payloads in memory
func WithMemoryStorage() Option {
	return func(c *ServerConfig) error {
		c.StorageType = "memory"
		return nil
	}
}

// WithS3Storage keeps file field payloads in an S3 bucket
func WithS3Storage(cfg s3storage.Config) Option {
	return func(c *ServerConfig) error {
		if cfg.Bucket == "" {
			return fmt.Errorf("s3 bucket cannot be empty")
		}
		c.StorageType = "s3"
		c.S3 = cfg
		return nil
	}
}

// WithJWTSecret enables bearer token authentication
func WithJWTSecret(secret string) Option {
	return func(c *ServerConfig) error {
		c.JWTSecret = secret
		return nil
	}
}

// WithPortal sets the id and title of the portal root
func WithPortal(id, title string) Option {
	return func(c *ServerConfig) error {
		if id == "" {
			return fmt.Errorf("portal id cannot be empty")
		}
		c.PortalID = id
		c.PortalTitle = title
		return nil
	}
}

// WithCatalogColumns sets the catalog metadata columns
func WithCatalogColumns(columns ...string) Option {
	return func(c *ServerConfig) error {
		c.CatalogColumns = columns
		return nil
	}
}
