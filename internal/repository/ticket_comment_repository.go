package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// CommentRepository manages the comment thread of a ticket.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.ComplaintComment) error
	GetByID(ctx context.Context, id string) (*domain.ComplaintComment, error)
	Delete(ctx context.Context, id string) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.ComplaintComment, error)
}

type commentRepository struct {
	pool *pgxpool.Pool
}

// NewCommentRepository builds repository.
func NewCommentRepository(pool *pgxpool.Pool) CommentRepository {
	return &commentRepository{pool: pool}
}

func (r *commentRepository) Create(ctx context.Context, comment *domain.ComplaintComment) error {
	const query = `
        INSERT INTO complaint_comments (id, ticket_id, author_id, body, internal, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		comment.ID,
		comment.TicketID,
		comment.AuthorID,
		comment.Body,
		comment.Internal,
		comment.CreatedAt,
	)
	return translate(err)
}

func (r *commentRepository) GetByID(ctx context.Context, id string) (*domain.ComplaintComment, error) {
	const query = `SELECT id, ticket_id, author_id, body, internal, created_at FROM complaint_comments WHERE id=$1`
	var c domain.ComplaintComment
	if err := conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.TicketID,
		&c.AuthorID,
		&c.Body,
		&c.Internal,
		&c.CreatedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (r *commentRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM complaint_comments WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *commentRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.ComplaintComment, error) {
	const query = `
        SELECT id, ticket_id, author_id, body, internal, created_at
        FROM complaint_comments WHERE ticket_id=$1 ORDER BY created_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.ComplaintComment
	for rows.Next() {
		var c domain.ComplaintComment
		if err := rows.Scan(
			&c.ID,
			&c.TicketID,
			&c.AuthorID,
			&c.Body,
			&c.Internal,
			&c.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
