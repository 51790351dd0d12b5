package domain

import (
	"slices"
	"time"
)

// ComplaintCategory classifies a grievance.
type ComplaintCategory string

const (
	CategoryAcademic     ComplaintCategory = "academic"
	CategoryFacilities   ComplaintCategory = "facilities"
	CategoryTransport    ComplaintCategory = "transport"
	CategoryStaffConduct ComplaintCategory = "staff_conduct"
	CategoryBullying     ComplaintCategory = "bullying"
	CategoryFees         ComplaintCategory = "fees"
	CategoryFood         ComplaintCategory = "food"
	CategorySafety       ComplaintCategory = "safety"
	CategoryOther        ComplaintCategory = "other"

	// CategoryAny is the wildcard used by priority-only SLA configs.
	CategoryAny ComplaintCategory = "*"
)

// Categories lists the concrete categories.
var Categories = []ComplaintCategory{
	CategoryAcademic, CategoryFacilities, CategoryTransport, CategoryStaffConduct,
	CategoryBullying, CategoryFees, CategoryFood, CategorySafety, CategoryOther,
}

// Valid reports whether c is a concrete category.
func (c ComplaintCategory) Valid() bool {
	return slices.Contains(Categories, c)
}

// ComplaintPriority enumerates SLA urgency.
type ComplaintPriority string

const (
	PriorityLow    ComplaintPriority = "low"
	PriorityMedium ComplaintPriority = "medium"
	PriorityHigh   ComplaintPriority = "high"
	PriorityUrgent ComplaintPriority = "urgent"
)

// Priorities lists priorities from least to most urgent.
var Priorities = []ComplaintPriority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// Valid reports whether p is a known priority.
func (p ComplaintPriority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// SubmitterType differentiates who raised the complaint.
type SubmitterType string

const (
	SubmitterStudent SubmitterType = "student"
	SubmitterParent  SubmitterType = "parent"
	SubmitterStaff   SubmitterType = "staff"
)

// Valid reports whether s is a known submitter type.
func (s SubmitterType) Valid() bool {
	return s == SubmitterStudent || s == SubmitterParent || s == SubmitterStaff
}

// Complaint is the aggregate root for grievance tickets.
type Complaint struct {
	ID              string
	Key             string
	Title           string
	Description     string
	Category        ComplaintCategory
	Priority        ComplaintPriority
	Status          ComplaintStatus
	SubmitterID     string
	SubmitterType   SubmitterType
	AssigneeID      *string
	Tags            []string
	EscalationLevel int
	ReopenCount     int
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DueAt           time.Time
	ResolutionDueAt time.Time
	RespondedAt     *time.Time
	ResolvedAt      *time.Time
	ClosedAt        *time.Time
	Version         int64
}

// Escalated reports the escalation flag shown next to the status.
func (c *Complaint) Escalated() bool {
	return c.EscalationLevel > 0
}

// HasTag reports tag membership.
func (c *Complaint) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// Clone returns a deep copy.
func (c Complaint) Clone() Complaint {
	out := c
	out.Tags = slices.Clone(c.Tags)
	out.AssigneeID = clonePtr(c.AssigneeID)
	out.RespondedAt = clonePtr(c.RespondedAt)
	out.ResolvedAt = clonePtr(c.ResolvedAt)
	out.ClosedAt = clonePtr(c.ClosedAt)
	return out
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
