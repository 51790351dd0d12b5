package domain

import "time"

// FeedbackStatus tracks handling of anonymous feedback.
type FeedbackStatus string

const (
	FeedbackReceived    FeedbackStatus = "received"
	FeedbackUnderReview FeedbackStatus = "under_review"
	FeedbackResponded   FeedbackStatus = "responded"
	FeedbackClosed      FeedbackStatus = "closed"
)

// Valid reports whether s is a known feedback status.
func (s FeedbackStatus) Valid() bool {
	switch s {
	case FeedbackReceived, FeedbackUnderReview, FeedbackResponded, FeedbackClosed:
		return true
	}
	return false
}

// AnonymousFeedback carries no submitter identity. TokenHash is a keyed hash of
// the lookup token; the token itself is never stored.
type AnonymousFeedback struct {
	ID          string
	TokenHash   string
	Category    ComplaintCategory
	Body        string
	Status      FeedbackStatus
	Response    *string
	RespondedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
