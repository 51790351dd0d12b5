package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// StatusChangeRepository stores the append-only audit log of a ticket.
type StatusChangeRepository interface {
	Create(ctx context.Context, change *domain.StatusChange) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChange, error)
}

type statusChangeRepository struct {
	pool *pgxpool.Pool
}

// NewStatusChangeRepository builds repository.
func NewStatusChangeRepository(pool *pgxpool.Pool) StatusChangeRepository {
	return &statusChangeRepository{pool: pool}
}

func (r *statusChangeRepository) Create(ctx context.Context, change *domain.StatusChange) error {
	const query = `
        INSERT INTO status_changes (id, ticket_id, kind, from_status, to_status, actor_id, actor_role, note, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		change.ID,
		change.TicketID,
		change.Kind,
		change.FromStatus,
		change.ToStatus,
		change.ActorID,
		change.ActorRole,
		change.Note,
		change.Metadata,
		change.CreatedAt,
	)
	return translate(err)
}

func (r *statusChangeRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.StatusChange, error) {
	const query = `
        SELECT id, ticket_id, kind, from_status, to_status, actor_id, actor_role, note, metadata, created_at
        FROM status_changes WHERE ticket_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.StatusChange
	for rows.Next() {
		var change domain.StatusChange
		if err := rows.Scan(
			&change.ID,
			&change.TicketID,
			&change.Kind,
			&change.FromStatus,
			&change.ToStatus,
			&change.ActorID,
			&change.ActorRole,
			&change.Note,
			&change.Metadata,
			&change.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, change)
	}
	return result, rows.Err()
}
