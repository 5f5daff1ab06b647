package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi"
	"github.com/tendant/simple-jsonapi/pkg/jsonapi/content"
)

// Schema creates the records table
const Schema = `
CREATE TABLE IF NOT EXISTS content_record (
	uid         UUID PRIMARY KEY,
	id          TEXT NOT NULL,
	portal_type TEXT NOT NULL,
	path        TEXT NOT NULL,
	owner       TEXT NOT NULL DEFAULT '',
	data        JSONB NOT NULL DEFAULT '{}'::jsonb,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Repository implements content.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// EnsureSchema creates the records table if it does not exist
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.Exec(ctx, Schema); err != nil {
		return r.handlePostgresError("ensure schema", err)
	}
	return nil
}

func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("record already exists")
		case "23502": // not_null_violation
			return fmt.Errorf("required column %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return jsonapi.ErrObjectNotFound
	}
	return fmt.Errorf("database error in %s: %w", operation, err)
}

func (r *Repository) GetRecord(ctx context.Context, uid uuid.UUID) (*content.Record, error) {
	query := `
		SELECT uid, id, portal_type, path, owner, data, created_at, updated_at
		FROM content_record WHERE uid = $1`

	var rec content.Record
	var data []byte
	err := r.db.QueryRow(ctx, query, uid).Scan(
		&rec.UID, &rec.ID, &rec.PortalType, &rec.Path, &rec.Owner, &data, &rec.Created, &rec.Modified)
	if err != nil {
		return nil, r.handlePostgresError("get record", err)
	}

	rec.Values = make(map[string]any)
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rec.Values); err != nil {
			return nil, fmt.Errorf("failed to decode record data: %w", err)
		}
	}
	return &rec, nil
}

func (r *Repository) SaveRecord(ctx context.Context, record *content.Record) error {
	data, err := json.Marshal(record.Values)
	if err != nil {
		return fmt.Errorf("failed to encode record data: %w", err)
	}

	query := `
		INSERT INTO content_record (uid, id, portal_type, path, owner, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (uid) DO UPDATE SET
			id = EXCLUDED.id,
			portal_type = EXCLUDED.portal_type,
			path = EXCLUDED.path,
			owner = EXCLUDED.owner,
			data = EXCLUDED.data,
			updated_at = EXCLUDED.updated_at`

	_, err = r.db.Exec(ctx, query,
		record.UID, record.ID, record.PortalType, record.Path, record.Owner, data, record.Created, record.Modified)
	if err != nil {
		return r.handlePostgresError("save record", err)
	}
	return nil
}

func (r *Repository) DeleteRecord(ctx context.Context, uid uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM content_record WHERE uid = $1`, uid)
	if err != nil {
		return r.handlePostgresError("delete record", err)
	}
	if tag.RowsAffected() == 0 {
		return jsonapi.ErrObjectNotFound
	}
	return nil
}
