package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
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

const analysisColumns = `
	id, upload_id, file_name, storage_key, file_type, worksheet_name,
	analysis_type, status, extracted_text, insights, price_data,
	processing_time_ms, error_message, created_at, updated_at`

func scanAnalysis(row pgx.Row) (*Analysis, error) {
	var a Analysis
	err := row.Scan(
		&a.ID,
		&a.UploadID,
		&a.FileName,
		&a.StorageKey,
		&a.FileType,
		&a.WorksheetName,
		&a.AnalysisType,
		&a.Status,
		&a.ExtractedText,
		&a.Insights,
		&a.PriceData,
		&a.ProcessingTime,
		&a.ErrorMessage,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.PriceData == nil {
		a.PriceData = []PricePoint{}
	}
	return &a, nil
}

// --------------------------------------------------
// CREATE
// --------------------------------------------------
func (r *PostgresRepository) Create(ctx context.Context, a *Analysis) error {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.Status == "" {
		a.Status = StatusPending
	}
	if a.PriceData == nil {
		a.PriceData = []PricePoint{}
	}

	return r.db.QueryRow(ctx, `
		INSERT INTO document_analyses (
			id, upload_id, file_name, storage_key, file_type,
			worksheet_name, analysis_type, status, price_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`,
		a.ID,
		a.UploadID,
		a.FileName,
		a.StorageKey,
		a.FileType,
		a.WorksheetName,
		a.AnalysisType,
		a.Status,
		a.PriceData,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
}

// validID guards uuid columns; Postgres rejects malformed ids with an
// error instead of matching nothing.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*Analysis, error) {
	if !validID(id) {
		return nil, ErrAnalysisNotFound
	}
	a, err := scanAnalysis(r.db.QueryRow(ctx,
		`SELECT `+analysisColumns+` FROM document_analyses WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAnalysisNotFound
	}
	return a, err
}

func (r *PostgresRepository) List(ctx context.Context, f Filter) ([]Analysis, error) {
	if f.UploadID != "" && !validID(f.UploadID) {
		return []Analysis{}, nil
	}

	var (
		where []string
		args  []any
	)
	add := func(col, val string) {
		if val == "" {
			return
		}
		args = append(args, val)
		where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	add("upload_id", f.UploadID)
	add("analysis_type", f.AnalysisType)
	add("status", f.Status)
	if ids, ok := f.Scope.UploadIDs(); ok {
		args = append(args, ids)
		where = append(where, fmt.Sprintf("upload_id::text = ANY($%d::text[])", len(args)))
	}

	query := `SELECT ` + analysisColumns + ` FROM document_analyses`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Analysis{}
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	return r.exec(ctx, `DELETE FROM document_analyses WHERE id = $1`, id)
}

func (r *PostgresRepository) DeleteByUpload(ctx context.Context, uploadID string) error {
	if !validID(uploadID) {
		return nil
	}
	_, err := r.db.Exec(ctx, `DELETE FROM document_analyses WHERE upload_id = $1`, uploadID)
	return err
}

// --------------------------------------------------
// STATUS TRANSITIONS
// --------------------------------------------------
// exec runs an update keyed by id in $1.
func (r *PostgresRepository) exec(ctx context.Context, sql string, id string, args ...any) error {
	if !validID(id) {
		return ErrAnalysisNotFound
	}
	cmd, err := r.db.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAnalysisNotFound
	}
	return nil
}

func (r *PostgresRepository) Requeue(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE document_analyses
		SET status = 'pending',
		    error_message = NULL,
		    updated_at = now()
		WHERE id = $1
	`, id)
}

func (r *PostgresRepository) Complete(ctx context.Context, id, text string, prices []PricePoint, elapsed time.Duration) error {
	if prices == nil {
		prices = []PricePoint{}
	}
	return r.exec(ctx, `
		UPDATE document_analyses
		SET status = 'completed',
		    extracted_text = $2,
		    price_data = $3,
		    processing_time_ms = $4,
		    error_message = NULL,
		    updated_at = now()
		WHERE id = $1
	`, id, text, prices, elapsed.Milliseconds())
}

func (r *PostgresRepository) Fail(ctx context.Context, id, reason string, elapsed time.Duration) error {
	return r.exec(ctx, `
		UPDATE document_analyses
		SET status = 'failed',
		    error_message = $2,
		    processing_time_ms = $3,
		    updated_at = now()
		WHERE id = $1
	`, id, reason, elapsed.Milliseconds())
}

func (r *PostgresRepository) UpdateInsights(ctx context.Context, id string, insights json.RawMessage) error {
	return r.exec(ctx, `
		UPDATE document_analyses
		SET insights = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, insights)
}

// ClaimPending claims the oldest pending analysis for this worker.
func (r *PostgresRepository) ClaimPending(ctx context.Context) (*Analysis, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	a, err := scanAnalysis(tx.QueryRow(ctx, `
		SELECT `+analysisColumns+`
		FROM document_analyses
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	`))

	// No pending jobs is NOT an error
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `
		UPDATE document_analyses
		SET status = 'processing', updated_at = now()
		WHERE id = $1
	`, a.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	a.Status = StatusProcessing
	return a, nil
}

func (r *PostgresRepository) FailStale(ctx context.Context, before time.Time, reason string) (int64, error) {
	cmd, err := r.db.Exec(ctx, `
		UPDATE document_analyses
		SET status = 'failed',
		    error_message = $2,
		    updated_at = now()
		WHERE status = 'processing'
		  AND updated_at < $1
	`, before, reason)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// --------------------------------------------------
// INSIGHTS
// --------------------------------------------------

type PostgresInsightRepository struct {
	db *pgxpool.Pool
}

func NewPostgresInsightRepository(db *pgxpool.Pool) *PostgresInsightRepository {
	return &PostgresInsightRepository{db: db}
}

func (r *PostgresInsightRepository) Create(ctx context.Context, in *Insight) error {
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	return r.db.QueryRow(ctx, `
		INSERT INTO document_insights (
			id, upload_id, user_id, insight_type, title, description, data, visualization_data
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`,
		in.ID,
		in.UploadID,
		in.UserID,
		in.InsightType,
		in.Title,
		in.Description,
		in.Data,
		in.VisualizationData,
	).Scan(&in.CreatedAt)
}

const insightColumns = `id, upload_id, user_id, insight_type, title, description, data, visualization_data, created_at`

func scanInsight(row pgx.Row) (*Insight, error) {
	var in Insight
	err := row.Scan(
		&in.ID,
		&in.UploadID,
		&in.UserID,
		&in.InsightType,
		&in.Title,
		&in.Description,
		&in.Data,
		&in.VisualizationData,
		&in.CreatedAt,
	)
	return &in, err
}

func (r *PostgresInsightRepository) Get(ctx context.Context, id string) (*Insight, error) {
	if !validID(id) {
		return nil, ErrInsightNotFound
	}
	in, err := scanInsight(r.db.QueryRow(ctx,
		`SELECT `+insightColumns+` FROM document_insights WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInsightNotFound
	}
	if err != nil {
		return nil, err
	}
	return in, nil
}

func (r *PostgresInsightRepository) List(ctx context.Context, uploadID string) ([]Insight, error) {
	if uploadID != "" && !validID(uploadID) {
		return []Insight{}, nil
	}

	query := `SELECT ` + insightColumns + ` FROM document_insights`
	var args []any
	if uploadID != "" {
		query += ` WHERE upload_id = $1`
		args = append(args, uploadID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Insight{}
	for rows.Next() {
		in, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	return out, rows.Err()
}

func (r *PostgresInsightRepository) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return ErrInsightNotFound
	}
	cmd, err := r.db.Exec(ctx, `DELETE FROM document_insights WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrInsightNotFound
	}
	return nil
}

func (r *PostgresInsightRepository) DeleteByUpload(ctx context.Context, uploadID string) error {
	if !validID(uploadID) {
		return nil
	}
	_, err := r.db.Exec(ctx, `DELETE FROM document_insights WHERE upload_id = $1`, uploadID)
	return err
}
