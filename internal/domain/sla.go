package domain

import "time"

// SLAConfig holds response and resolution targets for a category/priority pair.
type SLAConfig struct {
	ID                string
	Category          ComplaintCategory
	Priority          ComplaintPriority
	ResponseMinutes   int
	ResolutionMinutes int
	Enabled           bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// SLATargets are the minutes used to compute deadlines.
type SLATargets struct {
	ResponseMinutes   int
	ResolutionMinutes int
	Source            string
}

// DefaultSLATargets apply when no enabled config matches. Every priority has a
// finite target.
var DefaultSLATargets = map[ComplaintPriority]SLATargets{
	PriorityUrgent: {ResponseMinutes: 30, ResolutionMinutes: 240, Source: "system_default"},
	PriorityHigh:   {ResponseMinutes: 60, ResolutionMinutes: 1440, Source: "system_default"},
	PriorityMedium: {ResponseMinutes: 240, ResolutionMinutes: 4320, Source: "system_default"},
	PriorityLow:    {ResponseMinutes: 480, ResolutionMinutes: 10080, Source: "system_default"},
}

// Deadlines computes response and resolution deadlines from base. The
// resolution deadline never precedes the response deadline.
func (t SLATargets) Deadlines(base time.Time) (time.Time, time.Time) {
	due := base.Add(time.Duration(t.ResponseMinutes) * time.Minute)
	resolutionDue := base.Add(time.Duration(t.ResolutionMinutes) * time.Minute)
	if resolutionDue.Before(due) {
		resolutionDue = due
	}
	return due, resolutionDue
}

// BreachType distinguishes the violated deadline.
type BreachType string

const (
	BreachResponse   BreachType = "response"
	BreachResolution BreachType = "resolution"
)

// BreachStatus tracks follow-up on a breach.
type BreachStatus string

const (
	BreachOpen      BreachStatus = "open"
	BreachAddressed BreachStatus = "addressed"
	BreachExcused   BreachStatus = "excused"
)

// SLABreach records a detected deadline violation. At most one breach exists
// per (ticket, type, due) triple.
type SLABreach struct {
	ID          string
	TicketID    string
	BreachType  BreachType
	DetectedAt  time.Time
	DueAt       time.Time
	Status      BreachStatus
	Note        *string
	EscalatedAt *time.Time
	ClosedBy    *string
	ClosedAt    *time.Time
}
