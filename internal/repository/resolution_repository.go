package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// ResolutionRepository stores resolution records. At most one per ticket is active.
type ResolutionRepository interface {
	Create(ctx context.Context, resolution *domain.Resolution) error
	Update(ctx context.Context, resolution *domain.Resolution) error
	GetActive(ctx context.Context, ticketID string) (*domain.Resolution, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.Resolution, error)
}

type resolutionRepository struct {
	pool *pgxpool.Pool
}

// NewResolutionRepository builds repository.
func NewResolutionRepository(pool *pgxpool.Pool) ResolutionRepository {
	return &resolutionRepository{pool: pool}
}

const resolutionColumns = `id, ticket_id, resolved_by, summary, actions_taken, submitted_at, verification,
               verified_by, verified_at, rejection_reason, active`

func (r *resolutionRepository) Create(ctx context.Context, res *domain.Resolution) error {
	const query = `
        INSERT INTO resolutions (id, ticket_id, resolved_by, summary, actions_taken, submitted_at, verification,
            verified_by, verified_at, rejection_reason, active)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		res.ID,
		res.TicketID,
		res.ResolvedBy,
		res.Summary,
		res.ActionsTaken,
		res.SubmittedAt,
		res.Verification,
		res.VerifiedBy,
		res.VerifiedAt,
		res.RejectionReason,
		res.Active,
	)
	return translate(err)
}

func (r *resolutionRepository) Update(ctx context.Context, res *domain.Resolution) error {
	const query = `
        UPDATE resolutions SET verification=$1, verified_by=$2, verified_at=$3, rejection_reason=$4, active=$5
        WHERE id=$6`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		res.Verification,
		res.VerifiedBy,
		res.VerifiedAt,
		res.RejectionReason,
		res.Active,
		res.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *resolutionRepository) GetActive(ctx context.Context, ticketID string) (*domain.Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions WHERE ticket_id=$1 AND active`
	res, err := scanResolution(conn(ctx, r.pool).QueryRow(ctx, query, ticketID))
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

func (r *resolutionRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.Resolution, error) {
	query := `SELECT ` + resolutionColumns + ` FROM resolutions WHERE ticket_id=$1 ORDER BY submitted_at ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.Resolution
	for rows.Next() {
		res, err := scanResolution(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *res)
	}
	return result, rows.Err()
}

func scanResolution(row pgx.Row) (*domain.Resolution, error) {
	var res domain.Resolution
	if err := row.Scan(
		&res.ID,
		&res.TicketID,
		&res.ResolvedBy,
		&res.Summary,
		&res.ActionsTaken,
		&res.SubmittedAt,
		&res.Verification,
		&res.VerifiedBy,
		&res.VerifiedAt,
		&res.RejectionReason,
		&res.Active,
	); err != nil {
		return nil, err
	}
	return &res, nil
}
