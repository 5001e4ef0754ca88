package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func ConnectPostgres(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_URL not set")
	}

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse DATABASE_URL: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres connection failed: %w", err)
	}

	slog.Info("✅ Connected to PostgreSQL")

	if err := initSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return pool, nil
}

// schema is applied in order on every start; each statement is idempotent.
var schema = []string{
	// -------------------------------
	// USERS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		email VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		role VARCHAR(50) NOT NULL DEFAULT 'USER',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	// -------------------------------
	// DOCUMENT UPLOADS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS document_uploads (
		id UUID PRIMARY KEY,
		user_id UUID NOT NULL REFERENCES users(id),
		file_name VARCHAR(500) NOT NULL,
		original_file_name VARCHAR(500) NOT NULL,
		file_size BIGINT NOT NULL DEFAULT 0,
		file_type VARCHAR(50) NOT NULL,
		storage_key VARCHAR(1000) NOT NULL,
		upload_status VARCHAR(50) NOT NULL DEFAULT 'pending',
		extracted_files JSONB NOT NULL DEFAULT '[]',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE document_uploads ADD COLUMN IF NOT EXISTS error_message TEXT NULL`,

	// -------------------------------
	// DOCUMENT ANALYSES
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS document_analyses (
		id UUID PRIMARY KEY,
		upload_id UUID NOT NULL REFERENCES document_uploads(id) ON DELETE CASCADE,
		file_name VARCHAR(500) NOT NULL,
		storage_key VARCHAR(1000) NOT NULL DEFAULT '',
		file_type VARCHAR(50) NOT NULL DEFAULT '',
		worksheet_name VARCHAR(255) NULL,
		analysis_type VARCHAR(100) NOT NULL,
		status VARCHAR(50) NOT NULL DEFAULT 'pending',
		extracted_text TEXT NULL,
		insights JSONB NULL,
		price_data JSONB NOT NULL DEFAULT '[]',
		processing_time_ms BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`ALTER TABLE document_analyses ADD COLUMN IF NOT EXISTS error_message TEXT NULL`,
	`CREATE INDEX IF NOT EXISTS document_analyses_status_idx ON document_analyses (status, updated_at)`,
	`CREATE INDEX IF NOT EXISTS document_analyses_file_idx ON document_analyses (file_name, analysis_type)`,

	// -------------------------------
	// DOCUMENT INSIGHTS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS document_insights (
		id UUID PRIMARY KEY,
		upload_id UUID NULL REFERENCES document_uploads(id) ON DELETE CASCADE,
		user_id UUID NULL REFERENCES users(id) ON DELETE SET NULL,
		insight_type VARCHAR(100) NOT NULL,
		title VARCHAR(500) NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		data JSONB NULL,
		visualization_data JSONB NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,

	`ALTER TABLE document_insights
		ADD COLUMN IF NOT EXISTS user_id UUID NULL REFERENCES users(id) ON DELETE SET NULL`,

	// -------------------------------
	// APPROVAL REQUESTS
	// -------------------------------
	`CREATE TABLE IF NOT EXISTS approval_requests (
		id UUID PRIMARY KEY,
		created_by_user_id UUID NOT NULL REFERENCES users(id),
		approved_by_user_id UUID NULL REFERENCES users(id),
		status VARCHAR(50) NOT NULL DEFAULT 'pending',
		star_category INT NOT NULL DEFAULT 0,
		input_snapshot JSONB NOT NULL DEFAULT '{}',
		calculation_snapshot JSONB NOT NULL DEFAULT '{}',
		reasons JSONB NOT NULL DEFAULT '[]',
		admin_comment TEXT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// initSchema creates or updates the database schema
func initSchema(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return err
		}
	}

	slog.Info("✅ Schema initialized successfully", "statements", len(schema))
	return nil
}
