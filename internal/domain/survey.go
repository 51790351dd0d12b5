package domain

import "time"

// SurveyStatus tracks survey completion.
type SurveyStatus string

const (
	SurveyPending   SurveyStatus = "pending"
	SurveyCompleted SurveyStatus = "completed"
)

// SatisfactionSurvey is sent once per closed ticket.
type SatisfactionSurvey struct {
	ID             string
	TicketID       string
	RecipientID    string
	Status         SurveyStatus
	SentAt         time.Time
	ReminderCount  int
	LastReminderAt *time.Time
}

// SurveyResponse is a single-write answer keyed by survey.
type SurveyResponse struct {
	SurveyID     string
	RespondentID string
	Rating       int
	Comment      string
	SubmittedAt  time.Time
}
