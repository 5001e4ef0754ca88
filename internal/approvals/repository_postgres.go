package approvals

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

const requestColumns = `
	id, created_by_user_id, approved_by_user_id, status, star_category,
	input_snapshot, calculation_snapshot, reasons, admin_comment,
	created_at, updated_at`

func scanRequest(row pgx.Row) (*Request, error) {
	var r Request
	if err := row.Scan(
		&r.ID,
		&r.CreatedByUserID,
		&r.ApprovedByUserID,
		&r.Status,
		&r.StarCategory,
		&r.InputSnapshot,
		&r.CalculationSnapshot,
		&r.Reasons,
		&r.AdminComment,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRequestNotFound
		}
		return nil, err
	}
	if r.Reasons == nil {
		r.Reasons = []string{}
	}
	return &r, nil
}

// --------------------------------------------------
// CREATE REQUEST
// --------------------------------------------------
func (p *PostgresRepository) Create(ctx context.Context, r *Request) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	r.Status = StatusPending
	if r.Reasons == nil {
		r.Reasons = []string{}
	}

	return p.db.QueryRow(ctx, `
		INSERT INTO approval_requests (
			id,
			created_by_user_id,
			status,
			star_category,
			input_snapshot,
			calculation_snapshot,
			reasons
		)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at
	`,
		r.ID,
		r.CreatedByUserID,
		r.Status,
		r.StarCategory,
		r.InputSnapshot,
		r.CalculationSnapshot,
		r.Reasons,
	).Scan(&r.CreatedAt, &r.UpdatedAt)
}

func (p *PostgresRepository) Get(ctx context.Context, id string) (*Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRequestNotFound
	}
	return scanRequest(p.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM approval_requests WHERE id = $1`, id))
}

func (p *PostgresRepository) List(ctx context.Context, f Filter) ([]Request, error) {
	var (
		where []string
		args  []any
	)
	if f.CreatedBy != "" {
		args = append(args, f.CreatedBy)
		where = append(where, fmt.Sprintf("created_by_user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	sql := `SELECT ` + requestColumns + ` FROM approval_requests`
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY created_at DESC"

	rows, err := p.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (p *PostgresRepository) Stats(ctx context.Context, createdBy string) (Stats, error) {
	var s Stats
	err := p.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*)
		FROM approval_requests
		WHERE $1 = '' OR created_by_user_id::text = $1
	`, createdBy).Scan(&s.Pending, &s.Approved, &s.Rejected, &s.Total)
	return s, err
}

// --------------------------------------------------
// APPROVE / REJECT (only from pending)
// --------------------------------------------------
func (p *PostgresRepository) Decide(ctx context.Context, id, status, adminID string, comment *string) (*Request, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrRequestNotFound
	}

	r, err := scanRequest(p.db.QueryRow(ctx, `
		UPDATE approval_requests
		SET status = $2,
		    approved_by_user_id = $3,
		    admin_comment = $4,
		    updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING `+requestColumns,
		id, status, adminID, comment,
	))
	if errors.Is(err, ErrRequestNotFound) {
		// distinguish a missing row from one that was already decided
		if _, getErr := p.Get(ctx, id); getErr == nil {
			return nil, ErrNotPending
		}
	}
	return r, err
}

func (p *PostgresRepository) DeletePending(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrRequestNotFound
	}

	tag, err := p.db.Exec(ctx,
		`DELETE FROM approval_requests WHERE id = $1 AND status = 'pending'`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		if _, err := p.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotPending
	}
	return nil
}
