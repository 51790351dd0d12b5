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

// ComplaintFilter is the single query-parameter set for ticket listing. Nil or
// empty fields apply no filter. Limit < 0 disables paging.
type ComplaintFilter struct {
	SubmitterID *string
	AssigneeID  *string
	Statuses    []domain.ComplaintStatus
	Categories  []domain.ComplaintCategory
	Priorities  []domain.ComplaintPriority
	Escalated   *bool
	Breached    *bool
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// TicketRepository encapsulates complaint persistence.
type TicketRepository interface {
	Create(ctx context.Context, complaint *domain.Complaint) error
	// Update persists the complaint if its Version still matches and bumps it.
	Update(ctx context.Context, complaint *domain.Complaint) error
	GetByID(ctx context.Context, id string) (*domain.Complaint, error)
	List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error)
	// ListActive pages through non-terminal complaints in id order.
	ListActive(ctx context.Context, afterID string, limit int) ([]domain.Complaint, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const complaintColumns = `id, key, title, description, category, priority, status, submitter_id, submitter_type,
               assignee_id, tags, escalation_level, reopen_count, created_at, updated_at, due_at,
               resolution_due_at, responded_at, resolved_at, closed_at, version`

func (r *ticketRepository) Create(ctx context.Context, c *domain.Complaint) error {
	const query = `
        INSERT INTO complaints (id, key, title, description, category, priority, status, submitter_id, submitter_type,
            assignee_id, tags, escalation_level, reopen_count, created_at, updated_at, due_at, resolution_due_at, version)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		c.ID,
		c.Key,
		c.Title,
		c.Description,
		c.Category,
		c.Priority,
		c.Status,
		c.SubmitterID,
		c.SubmitterType,
		c.AssigneeID,
		c.Tags,
		c.EscalationLevel,
		c.ReopenCount,
		c.CreatedAt,
		c.UpdatedAt,
		c.DueAt,
		c.ResolutionDueAt,
		c.Version,
	)
	return translate(err)
}

func (r *ticketRepository) Update(ctx context.Context, c *domain.Complaint) error {
	const query = `
        UPDATE complaints SET title=$1, description=$2, category=$3, priority=$4, status=$5, assignee_id=$6, tags=$7,
            escalation_level=$8, reopen_count=$9, updated_at=$10, due_at=$11, resolution_due_at=$12,
            responded_at=$13, resolved_at=$14, closed_at=$15, version=version+1
        WHERE id=$16 AND version=$17`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		c.Title,
		c.Description,
		c.Category,
		c.Priority,
		c.Status,
		c.AssigneeID,
		c.Tags,
		c.EscalationLevel,
		c.ReopenCount,
		c.UpdatedAt,
		c.DueAt,
		c.ResolutionDueAt,
		c.RespondedAt,
		c.ResolvedAt,
		c.ClosedAt,
		c.ID,
		c.Version,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionConflict
	}
	c.Version++
	return nil
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints WHERE id=$1`
	c, err := scanComplaint(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (r *ticketRepository) List(ctx context.Context, filter ComplaintFilter) ([]domain.Complaint, error) {
	base := `SELECT ` + complaintColumns + ` FROM complaints c`
	clauses := []string{"1=1"}
	args := []any{}

	if filter.SubmitterID != nil {
		args = append(args, *filter.SubmitterID)
		clauses = append(clauses, fmt.Sprintf("submitter_id=$%d", len(args)))
	}
	if filter.AssigneeID != nil {
		args = append(args, *filter.AssigneeID)
		clauses = append(clauses, fmt.Sprintf("assignee_id=$%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		args = append(args, toStrings(filter.Statuses))
		clauses = append(clauses, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	if len(filter.Categories) > 0 {
		args = append(args, toStrings(filter.Categories))
		clauses = append(clauses, fmt.Sprintf("category = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		args = append(args, toStrings(filter.Priorities))
		clauses = append(clauses, fmt.Sprintf("priority = ANY($%d)", len(args)))
	}
	if filter.Escalated != nil {
		if *filter.Escalated {
			clauses = append(clauses, "escalation_level > 0")
		} else {
			clauses = append(clauses, "escalation_level = 0")
		}
	}
	if filter.Breached != nil {
		exists := "EXISTS (SELECT 1 FROM sla_breaches b WHERE b.ticket_id = c.id)"
		if !*filter.Breached {
			exists = "NOT " + exists
		}
		clauses = append(clauses, exists)
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(description) LIKE %s OR LOWER(key) LIKE %s)", placeholder, placeholder, placeholder))
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY created_at DESC, id%s`, base, strings.Join(clauses, " AND "), pageBounds(filter.Limit, filter.Offset))

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func (r *ticketRepository) ListActive(ctx context.Context, afterID string, limit int) ([]domain.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints
        WHERE status NOT IN ('closed','withdrawn') AND id > $1 ORDER BY id LIMIT $2`
	rows, err := conn(ctx, r.pool).Query(ctx, query, afterID, limit)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()
	return scanComplaints(rows)
}

func scanComplaint(row pgx.Row) (*domain.Complaint, error) {
	var c domain.Complaint
	if err := row.Scan(
		&c.ID,
		&c.Key,
		&c.Title,
		&c.Description,
		&c.Category,
		&c.Priority,
		&c.Status,
		&c.SubmitterID,
		&c.SubmitterType,
		&c.AssigneeID,
		&c.Tags,
		&c.EscalationLevel,
		&c.ReopenCount,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DueAt,
		&c.ResolutionDueAt,
		&c.RespondedAt,
		&c.ResolvedAt,
		&c.ClosedAt,
		&c.Version,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanComplaints(rows pgx.Rows) ([]domain.Complaint, error) {
	var result []domain.Complaint
	for rows.Next() {
		c, err := scanComplaint(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *c)
	}
	return result, rows.Err()
}
