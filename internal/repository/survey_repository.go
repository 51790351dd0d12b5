package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/grievance-service/internal/domain"
)

// SurveyRepository stores satisfaction surveys (one per ticket) and their single response.
type SurveyRepository interface {
	Create(ctx context.Context, survey *domain.SatisfactionSurvey) error
	Update(ctx context.Context, survey *domain.SatisfactionSurvey) error
	GetByID(ctx context.Context, id string) (*domain.SatisfactionSurvey, error)
	GetByTicket(ctx context.Context, ticketID string) (*domain.SatisfactionSurvey, error)
	// CreateResponse returns ErrDuplicate when the survey already has a response.
	CreateResponse(ctx context.Context, response *domain.SurveyResponse) error
	GetResponse(ctx context.Context, surveyID string) (*domain.SurveyResponse, error)
	ListResponses(ctx context.Context) ([]domain.SurveyResponse, error)
}

type surveyRepository struct {
	pool *pgxpool.Pool
}

// NewSurveyRepository builds repository.
func NewSurveyRepository(pool *pgxpool.Pool) SurveyRepository {
	return &surveyRepository{pool: pool}
}

const surveyColumns = `id, ticket_id, recipient_id, status, sent_at, reminder_count, last_reminder_at`

func (r *surveyRepository) Create(ctx context.Context, s *domain.SatisfactionSurvey) error {
	const query = `
        INSERT INTO satisfaction_surveys (id, ticket_id, recipient_id, status, sent_at, reminder_count, last_reminder_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		s.ID,
		s.TicketID,
		s.RecipientID,
		s.Status,
		s.SentAt,
		s.ReminderCount,
		s.LastReminderAt,
	)
	return translate(err)
}

func (r *surveyRepository) Update(ctx context.Context, s *domain.SatisfactionSurvey) error {
	const query = `UPDATE satisfaction_surveys SET status=$1, reminder_count=$2, last_reminder_at=$3 WHERE id=$4`
	cmd, err := conn(ctx, r.pool).Exec(ctx, query, s.Status, s.ReminderCount, s.LastReminderAt, s.ID)
	if err != nil {
		return translate(err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *surveyRepository) GetByID(ctx context.Context, id string) (*domain.SatisfactionSurvey, error) {
	query := `SELECT ` + surveyColumns + ` FROM satisfaction_surveys WHERE id=$1`
	s, err := scanSurvey(conn(ctx, r.pool).QueryRow(ctx, query, id))
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

func (r *surveyRepository) GetByTicket(ctx context.Context, ticketID string) (*domain.SatisfactionSurvey, error) {
	query := `SELECT ` + surveyColumns + ` FROM satisfaction_surveys WHERE ticket_id=$1`
	s, err := scanSurvey(conn(ctx, r.pool).QueryRow(ctx, query, ticketID))
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

func (r *surveyRepository) CreateResponse(ctx context.Context, resp *domain.SurveyResponse) error {
	const query = `
        INSERT INTO survey_responses (survey_id, respondent_id, rating, comment, submitted_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := conn(ctx, r.pool).Exec(ctx, query,
		resp.SurveyID,
		resp.RespondentID,
		resp.Rating,
		resp.Comment,
		resp.SubmittedAt,
	)
	return translate(err)
}

func (r *surveyRepository) GetResponse(ctx context.Context, surveyID string) (*domain.SurveyResponse, error) {
	const query = `SELECT survey_id, respondent_id, rating, comment, submitted_at FROM survey_responses WHERE survey_id=$1`
	var resp domain.SurveyResponse
	if err := conn(ctx, r.pool).QueryRow(ctx, query, surveyID).Scan(
		&resp.SurveyID,
		&resp.RespondentID,
		&resp.Rating,
		&resp.Comment,
		&resp.SubmittedAt,
	); err != nil {
		return nil, translate(err)
	}
	return &resp, nil
}

func (r *surveyRepository) ListResponses(ctx context.Context) ([]domain.SurveyResponse, error) {
	const query = `SELECT survey_id, respondent_id, rating, comment, submitted_at FROM survey_responses ORDER BY submitted_at`
	rows, err := conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, translate(err)
	}
	defer rows.Close()

	var result []domain.SurveyResponse
	for rows.Next() {
		var resp domain.SurveyResponse
		if err := rows.Scan(&resp.SurveyID, &resp.RespondentID, &resp.Rating, &resp.Comment, &resp.SubmittedAt); err != nil {
			return nil, err
		}
		result = append(result, resp)
	}
	return result, rows.Err()
}

func scanSurvey(row pgx.Row) (*domain.SatisfactionSurvey, error) {
	var s domain.SatisfactionSurvey
	if err := row.Scan(
		&s.ID,
		&s.TicketID,
		&s.RecipientID,
		&s.Status,
		&s.SentAt,
		&s.ReminderCount,
		&s.LastReminderAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}
