package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// AssignmentRuleRepository stores routing rules ordered by PriorityOrder.
type AssignmentRuleRepository interface {
	Create(ctx context.Context, rule *domain.AssignmentRule) error
	Update(ctx context.Context, rule *domain.AssignmentRule) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.AssignmentRule, error)
	// List returns every rule in ascending PriorityOrder.
	List(ctx context.Context) ([]domain.AssignmentRule, error)
	// Reorder sets PriorityOrder to 1..N following ids.
	Reorder(ctx context.Context, ids []string) error
}

type assignmentRuleRepository struct {
	pool *pgxpool.Pool
}

// NewAssignmentRuleRepository builds repository.
func NewAssignmentRuleRepository(pool *pgxpool.Pool) AssignmentRuleRepository {
	return &assignmentRuleRepository{pool: pool}
}

const ruleColumns = `id, name, priority_order, categories, priorities, tags, assignee_id, enabled, created_at, updated_at`

func (r *assignmentRuleRepository) Create(ctx context.Context, rule *domain.AssignmentRule) error {
	const query = `
        INSERT INTO assignment_rules (id, name, priority_order, categories, priorities, tags, assignee_id, enabled, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		rule.ID,
		rule.Name,
		rule.PriorityOrder,
		toStrings(rule.Conditions.Categories),
		toStrings(rule.Conditions.Priorities),
		rule.Conditions.Tags,
		rule.AssigneeID,
		rule.Enabled,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	return translate(err)
}

func (r *assignmentRuleRepository) Update(ctx context.Context, rule *domain.AssignmentRule) error {
	const query = `
        UPDATE assignment_rules SET name=$1, categories=$2, priorities=$3, tags=$4, assignee_id=$5, enabled=$6, updated_at=$7
        WHERE id=$8`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query,
		rule.Name,
		toStrings(rule.Conditions.Categories),
		toStrings(rule.Conditions.Priorities),
		rule.Conditions.Tags,
		rule.AssigneeID,
		rule.Enabled,
		rule.UpdatedAt,
		rule.ID,
	)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *assignmentRuleRepository) Delete(ctx context.Context, id string) error {
	cmd, err := conn(ctx, r.pool).Exec(ctx, `DELETE FROM assignment_rules WHERE id=$1`, id)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *assignmentRuleRepository) GetByID(ctx context.Context, id string) (*domain.AssignmentRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM assignment_rules WHERE id=$1`
	rule, err := scanRule(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return rule, nil
}

func (r *assignmentRuleRepository) List(ctx context.Context) ([]domain.AssignmentRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM assignment_rules ORDER BY priority_order ASC`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.AssignmentRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *rule)
	}
	return result, rows.Err()
}

// Reorder must run inside a transaction. Orders are first moved to negative
// values so the unique index never sees two rules on the same slot.
func (r *assignmentRuleRepository) Reorder(ctx context.Context, ids []string) error {
	db := conn(ctx, r.pool)
	if _, err := db.Exec(ctx, `UPDATE assignment_rules SET priority_order = -priority_order`); err != nil {
		return translate(err)
	}
	for i, id := range ids {
		cmd, err := db.Exec(ctx, `UPDATE assignment_rules SET priority_order=$1 WHERE id=$2`, i+1, id)
		if err != nil {
			return translate(err)
		}
		if cmd.RowsAffected() == 0 {
			return ErrNotFound
		}
	}
	return nil
}

func scanRule(row pgx.Row) (*domain.AssignmentRule, error) {
	var (
		rule       domain.AssignmentRule
		categories []string
		priorities []string
	)
	if err := row.Scan(
		&rule.ID,
		&rule.Name,
		&rule.PriorityOrder,
		&categories,
		&priorities,
		&rule.Conditions.Tags,
		&rule.AssigneeID,
		&rule.Enabled,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	); err != nil {
		return nil, err
	}
	rule.Conditions.Categories = fromStrings[domain.ComplaintCategory](categories)
	rule.Conditions.Priorities = fromStrings[domain.ComplaintPriority](priorities)
	return &rule, nil
}
