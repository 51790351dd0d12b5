package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// SLAConfigRepository stores response/resolution targets. At most one enabled
// config exists per (category, priority).
type SLAConfigRepository interface {
	Create(ctx context.Context, cfg *domain.SLAConfig) error
	Update(ctx context.Context, cfg *domain.SLAConfig) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.SLAConfig, error)
	List(ctx context.Context) ([]domain.SLAConfig, error)
	FindEnabled(ctx context.Context, category domain.ComplaintCategory, priority domain.ComplaintPriority) (*domain.SLAConfig, error)
}

// BreachFilter narrows breach listings. Limit < 0 disables paging.
type BreachFilter struct {
	TicketID     *string
	Statuses     []domain.BreachStatus
	Types        []domain.BreachType
	DetectedFrom *time.Time
	DetectedTo   *time.Time
	Limit        int
	Offset       int
}

// BreachRepository stores SLA breaches. A breach is unique per (ticket, type, dueAt).
type BreachRepository interface {
	Create(ctx context.Context, breach *domain.SLABreach) error
	Update(ctx context.Context, breach *domain.SLABreach) error
	GetByID(ctx context.Context, id string) (*domain.SLABreach, error)
	Find(ctx context.Context, ticketID string, breachType domain.BreachType, dueAt time.Time) (*domain.SLABreach, error)
	ListByTicket(ctx context.Context, ticketID string) ([]domain.SLABreach, error)
	List(ctx context.Context, filter BreachFilter) ([]domain.SLABreach, error)
}

type slaConfigRepository struct {
	pool *pgxpool.Pool
}

// NewSLAConfigRepository builds repository.
func NewSLAConfigRepository(pool *pgxpool.Pool) SLAConfigRepository {
	return &slaConfigRepository{pool: pool}
}

const slaConfigColumns = `id, category, priority, response_minutes, resolution_minutes, enabled, created_at, updated_at`

func (r *slaConfigRepository) Create(ctx context.Context, cfg *domain.SLAConfig) error {
	const query = `
        INSERT INTO sla_configs (id, category, priority, response_minutes, resolution_minutes, enabled, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		cfg.ID,
		cfg.Category,
		cfg.Priority,
		cfg.ResponseMinutes,
		cfg.ResolutionMinutes,
		cfg.Enabled,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)
	return translate(err)
}

func (r *slaConfigRepository) Update(ctx context.Context, cfg *domain.SLAConfig) error {
	const query = `
        UPDATE sla_configs SET category=$1, priority=$2, response_minutes=$3, resolution_minutes=$4, enabled=$5, updated_at=$6
        WHERE id=$7`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		cfg.Category,
		cfg.Priority,
		cfg.ResponseMinutes,
		cfg.ResolutionMinutes,
		cfg.Enabled,
		cfg.UpdatedAt,
		cfg.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *slaConfigRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM sla_configs WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *slaConfigRepository) GetByID(ctx context.Context, id string) (*domain.SLAConfig, error) {
	query := `SELECT ` + slaConfigColumns + ` FROM sla_configs WHERE id=$1`
	cfg, err := scanSLAConfig(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return cfg, nil
}

func (r *slaConfigRepository) List(ctx context.Context) ([]domain.SLAConfig, error) {
	query := `SELECT ` + slaConfigColumns + ` FROM sla_configs ORDER BY category, priority, created_at`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.SLAConfig
	for rows.Next() {
		cfg, err := scanSLAConfig(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *cfg)
	}
	return result, rows.Err()
}

func (r *slaConfigRepository) FindEnabled(ctx context.Context, category domain.ComplaintCategory, priority domain.ComplaintPriority) (*domain.SLAConfig, error) {
	query := `SELECT ` + slaConfigColumns + ` FROM sla_configs WHERE category=$1 AND priority=$2 AND enabled`
	cfg, err := scanSLAConfig(conn(ctx, r.pool).QueryRow(ctx, query, category, priority))
	if err != nil {
		return nil, translate(err)
	}
	return cfg, nil
}

func scanSLAConfig(row pgx.Row) (*domain.SLAConfig, error) {
	var cfg domain.SLAConfig
	if err := row.Scan(
		&cfg.ID,
		&cfg.Category,
		&cfg.Priority,
		&cfg.ResponseMinutes,
		&cfg.ResolutionMinutes,
		&cfg.Enabled,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type breachRepository struct {
	pool *pgxpool.Pool
}

// NewBreachRepository builds repository.
func NewBreachRepository(pool *pgxpool.Pool) BreachRepository {
	return &breachRepository{pool: pool}
}

const breachColumns = `id, ticket_id, breach_type, detected_at, due_at, status, note, escalated_at, closed_by, closed_at`

func (r *breachRepository) Create(ctx context.Context, b *domain.SLABreach) error {
	const query = `
        INSERT INTO sla_breaches (id, ticket_id, breach_type, detected_at, due_at, status, note, escalated_at, closed_by, closed_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
        ON CONFLICT (ticket_id, breach_type, due_at) DO NOTHING`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		b.ID,
		b.TicketID,
		b.BreachType,
		b.DetectedAt,
		b.DueAt,
		b.Status,
		b.Note,
		b.EscalatedAt,
		b.ClosedBy,
		b.ClosedAt,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

func (r *breachRepository) Update(ctx context.Context, b *domain.SLABreach) error {
	const query = `
        UPDATE sla_breaches SET status=$1, note=$2, escalated_at=$3, closed_by=$4, closed_at=$5
        WHERE id=$6`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		b.Status,
		b.Note,
		b.EscalatedAt,
		b.ClosedBy,
		b.ClosedAt,
		b.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *breachRepository) GetByID(ctx context.Context, id string) (*domain.SLABreach, error) {
	query := `SELECT ` + breachColumns + ` FROM sla_breaches WHERE id=$1`
	b, err := scanBreach(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

func (r *breachRepository) Find(ctx context.Context, ticketID string, breachType domain.BreachType, dueAt time.Time) (*domain.SLABreach, error) {
	query := `SELECT ` + breachColumns + ` FROM sla_breaches WHERE ticket_id=$1 AND breach_type=$2 AND due_at=$3`
	b, err := scanBreach(conn(ctx, r.pool).QueryRow(ctx, query, ticketID, breachType, dueAt))
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

func (r *breachRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.SLABreach, error) {
	return r.List(ctx, BreachFilter{TicketID: &ticketID, Limit: -1})
}

func (r *breachRepository) List(ctx context.Context, filter BreachFilter) ([]domain.SLABreach, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.TicketID != nil {
		args = append(args, *filter.TicketID)
		clauses = append(clauses, fmt.Sprintf("ticket_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, toStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Types) > 0 {
		args = append(args, toStrings(filter.Types))
		clauses = append(clauses, fmt.Sprintf("breach_type = ANY($%d)", len(args)))
	}
	if filter.DetectedFrom != nil {
		args = append(args, *filter.DetectedFrom)
		clauses = append(clauses, fmt.Sprintf("detected_at >= $%d", len(args)))
	}
	if filter.DetectedTo != nil {
		args = append(args, *filter.DetectedTo)
		clauses = append(clauses, fmt.Sprintf("detected_at <= $%d", len(args)))
	}

	query := fmt.Sprintf(`SELECT %s FROM sla_breaches WHERE %s ORDER BY detected_at ASC, id%s`,
		breachColumns, strings.Join(clauses, " AND "), pageBounds(filter.Limit, filter.Offset))
	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.SLABreach
	for rows.Next() {
		b, err := scanBreach(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}
	return result, rows.Err()
}

func scanBreach(row pgx.Row) (*domain.SLABreach, error) {
	var b domain.SLABreach
	if err := row.Scan(
		&b.ID,
		&b.TicketID,
		&b.BreachType,
		&b.DetectedAt,
		&b.DueAt,
		&b.Status,
		&b.Note,
		&b.EscalatedAt,
		&b.ClosedBy,
		&b.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &b, nil
}
