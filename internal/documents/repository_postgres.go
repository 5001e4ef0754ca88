package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const uploadColumns = `
	id, user_id, file_name, original_file_name, file_size, file_type,
	storage_key, upload_status, error_message, extracted_files,
	created_at, updated_at`

func scanUpload(row pgx.Row) (*Upload, error) {
	var u Upload
	if err := row.Scan(
		&u.ID,
		&u.UserID,
		&u.FileName,
		&u.OriginalFileName,
		&u.FileSize,
		&u.FileType,
		&u.StorageKey,
		&u.UploadStatus,
		&u.ErrorMessage,
		&u.ExtractedFiles,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if u.ExtractedFiles == nil {
		u.ExtractedFiles = []ExtractedFile{}
	}
	return &u, nil
}

// --------------------------------------------------
// CREATE UPLOAD
// --------------------------------------------------
func (r *PostgresRepository) Create(ctx context.Context, u *Upload) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if u.UploadStatus == "" {
		u.UploadStatus = StatusPending
	}
	if u.ExtractedFiles == nil {
		u.ExtractedFiles = []ExtractedFile{}
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO document_uploads (
			id,
			user_id,
			file_name,
			original_file_name,
			file_size,
			file_type,
			storage_key,
			upload_status,
			extracted_files
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`,
		u.ID,
		u.UserID,
		u.FileName,
		u.OriginalFileName,
		u.FileSize,
		u.FileType,
		u.StorageKey,
		u.UploadStatus,
		u.ExtractedFiles,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Upload, error) {
	if !validID(id) {
		return nil, ErrUploadNotFound
	}
	u, err := scanUpload(r.db.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM document_uploads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUploadNotFound
	}
	return u, err
}

func (r *PostgresRepository) List(ctx context.Context, userID string) ([]Upload, error) {
	query := `SELECT ` + uploadColumns + ` FROM document_uploads`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Upload{}
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// --------------------------------------------------
// STATUS TRANSITIONS
// --------------------------------------------------
// exec runs a statement keyed by id in $1.
func (r *PostgresRepository) exec(ctx context.Context, sql string, id string, args ...any) error {
	if !validID(id) {
		return ErrUploadNotFound
	}
	cmd, err := r.db.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUploadNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkProcessing(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE document_uploads
		SET upload_status = 'processing',
		    error_message = NULL,
		    updated_at = now()
		WHERE id = $1
	`, id)
}

func (r *PostgresRepository) MarkCompleted(ctx context.Context, id string, files []ExtractedFile) error {
	if files == nil {
		files = []ExtractedFile{}
	}
	return r.exec(ctx, `
		UPDATE document_uploads
		SET upload_status = 'completed',
		    extracted_files = $2,
		    error_message = NULL,
		    updated_at = now()
		WHERE id = $1
	`, id, files)
}

// MarkFailed keeps whatever was extracted before the failure.
func (r *PostgresRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.exec(ctx, `
		UPDATE document_uploads
		SET upload_status = 'failed',
		    error_message = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, reason)
}

// --------------------------------------------------
// RETRY FAILED UPLOAD (SAFE RESET)
// --------------------------------------------------
func (r *PostgresRepository) RetryFailed(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrUploadNotFound
	}
	cmd, err := r.db.Exec(ctx, `
		UPDATE document_uploads
		SET upload_status = 'pending',
		    error_message = NULL,
		    extracted_files = '[]',
		    updated_at = now()
		WHERE id = $1
		  AND upload_status = 'failed'
	`, id)
	if err != nil {
		return err
	}

	if cmd.RowsAffected() == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotRetryable
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM document_uploads WHERE id = $1`, id)
}

func (r *PostgresRepository) FailStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE document_uploads
		SET upload_status = 'failed',
		    error_message = $2,
		    updated_at = now()
		WHERE upload_status = 'processing'
		  AND updated_at < $1
	`, before, reason)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
