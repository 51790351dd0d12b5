package repository

import "github.com/jackc/pgx/v5/pgxpool"

// Set bundles every repository with the transactor that scopes them.
type Set struct {
	Tx            Transactor
	Tickets       TicketRepository
	StatusChanges StatusChangeRepository
	Comments      CommentRepository
	Resolutions   ResolutionRepository
	SLAConfigs    SLAConfigRepository
	Breaches      BreachRepository
	Rules         AssignmentRuleRepository
	Surveys       SurveyRepository
	Feedback      AnonymousFeedbackRepository
}

// NewPostgresSet builds pgx-backed repositories sharing pool.
func NewPostgresSet(pool *pgxpool.Pool) Set {
	return Set{
		Tx:            NewTransactor(pool),
		Tickets:       NewTicketRepository(pool),
		StatusChanges: NewStatusChangeRepository(pool),
		Comments:      NewCommentRepository(pool),
		Resolutions:   NewResolutionRepository(pool),
		SLAConfigs:    NewSLAConfigRepository(pool),
		Breaches:      NewBreachRepository(pool),
		Rules:         NewAssignmentRuleRepository(pool),
		Surveys:       NewSurveyRepository(pool),
		Feedback:      NewAnonymousFeedbackRepository(pool),
	}
}
