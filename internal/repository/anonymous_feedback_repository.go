package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// FeedbackFilter narrows staff listings of anonymous feedback.
type FeedbackFilter struct {
	Status   *domain.FeedbackStatus
	Category *domain.ComplaintCategory
	Limit    int
	Offset   int
}

// AnonymousFeedbackRepository stores anonymous feedback keyed by a hashed lookup token.
type AnonymousFeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.AnonymousFeedback) error
	Update(ctx context.Context, feedback *domain.AnonymousFeedback) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.AnonymousFeedback, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*domain.AnonymousFeedback, error)
	List(ctx context.Context, filter FeedbackFilter) ([]domain.AnonymousFeedback, error)
}

type anonymousFeedbackRepository struct {
	pool *pgxpool.Pool
}

// NewAnonymousFeedbackRepository builds repository.
func NewAnonymousFeedbackRepository(pool *pgxpool.Pool) AnonymousFeedbackRepository {
	return &anonymousFeedbackRepository{pool: pool}
}

const feedbackColumns = `id, token_hash, category, body, status, response, responded_at, created_at, updated_at`

func (r *anonymousFeedbackRepository) Create(ctx context.Context, f *domain.AnonymousFeedback) error {
	const query = `
        INSERT INTO anonymous_feedback (id, token_hash, category, body, status, response, responded_at, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		f.ID,
		f.TokenHash,
		f.Category,
		f.Body,
		f.Status,
		f.Response,
		f.RespondedAt,
		f.CreatedAt,
		f.UpdatedAt,
	)
	return translate(err)
}

func (r *anonymousFeedbackRepository) Update(ctx context.Context, f *domain.AnonymousFeedback) error {
	const query = `
        UPDATE anonymous_feedback SET status=$1, response=$2, responded_at=$3, updated_at=$4
        WHERE id=$5`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, f.Status, f.Response, f.RespondedAt, f.UpdatedAt, f.ID)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *anonymousFeedbackRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM anonymous_feedback WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *anonymousFeedbackRepository) GetByID(ctx context.Context, id string) (*domain.AnonymousFeedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM anonymous_feedback WHERE id=$1`
	f, err := scanFeedback(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (r *anonymousFeedbackRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*domain.AnonymousFeedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM anonymous_feedback WHERE token_hash=$1`
	f, err := scanFeedback(conn(ctx, r.pool).QueryRow(ctx, query, tokenHash))
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (r *anonymousFeedbackRepository) List(ctx context.Context, filter FeedbackFilter) ([]domain.AnonymousFeedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM anonymous_feedback WHERE 1=1`
	args := []any{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status=$%d", len(args))
	}
	if filter.Category != nil {
		args = append(args, *filter.Category)
		query += fmt.Sprintf(" AND category=$%d", len(args))
	}
	query += " ORDER BY created_at DESC, id" + pageBounds(filter.Limit, filter.Offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.AnonymousFeedback
	for rows.Next() {
		f, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *f)
	}
	return result, rows.Err()
}

func scanFeedback(row pgx.Row) (*domain.AnonymousFeedback, error) {
	var f domain.AnonymousFeedback
	if err := row.Scan(
		&f.ID,
		&f.TokenHash,
		&f.Category,
		&f.Body,
		&f.Status,
		&f.Response,
		&f.RespondedAt,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}
