package domain

import "time"

// ComplaintComment is a note on a ticket thread. Internal comments are hidden
// from submitters.
type ComplaintComment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Body      string
	Internal  bool
	CreatedAt time.Time
}
