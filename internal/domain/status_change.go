package domain

import "time"

// StatusChangeKind captures what an audit entry records.
type StatusChangeKind string

const (
	ChangeKindStatus       StatusChangeKind = "status"
	ChangeKindEscalation   StatusChangeKind = "escalation"
	ChangeKindAssignment   StatusChangeKind = "assignment"
	ChangeKindPriority     StatusChangeKind = "priority"
	ChangeKindSLARecompute StatusChangeKind = "sla_recompute"
)

// StatusChange is an immutable, append-only audit entry. FromStatus is empty
// for the creation entry.
type StatusChange struct {
	ID         string
	TicketID   string
	Kind       StatusChangeKind
	FromStatus ComplaintStatus
	ToStatus   ComplaintStatus
	ActorID    string
	ActorRole  Role
	Note       string
	Metadata   map[string]any
	CreatedAt  time.Time
}

// HistoryEntry is one element of a ticket timeline.
type HistoryEntry struct {
	At           time.Time
	StatusChange *StatusChange
	Comment      *ComplaintComment
}
