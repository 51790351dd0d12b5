package domain

// ComplaintStatus enumerates lifecycle states.
type ComplaintStatus string

const (
	StatusSubmitted    ComplaintStatus = "submitted"
	StatusAcknowledged ComplaintStatus = "acknowledged"
	StatusInProgress   ComplaintStatus = "in_progress"
	StatusResolved     ComplaintStatus = "resolved"
	StatusVerified     ComplaintStatus = "verified"
	StatusClosed       ComplaintStatus = "closed"
	StatusReopened     ComplaintStatus = "reopened"
	StatusWithdrawn    ComplaintStatus = "withdrawn"
)

// Statuses lists every status.
var Statuses = []ComplaintStatus{
	StatusSubmitted, StatusAcknowledged, StatusInProgress, StatusResolved,
	StatusVerified, StatusClosed, StatusReopened, StatusWithdrawn,
}

// Valid reports whether s is a known status.
func (s ComplaintStatus) Valid() bool {
	for _, candidate := range Statuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports states that accept no further lifecycle work. A closed
// ticket may still be reopened within the grace window.
func (s ComplaintStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusWithdrawn
}

// IsResolvedState reports states in which the resolution deadline is satisfied.
func (s ComplaintStatus) IsResolvedState() bool {
	return s == StatusResolved || s == StatusVerified || s == StatusClosed
}

var allowedTransitions = map[ComplaintStatus][]ComplaintStatus{
	StatusSubmitted:    {StatusAcknowledged, StatusWithdrawn},
	StatusAcknowledged: {StatusInProgress, StatusWithdrawn},
	StatusInProgress:   {StatusResolved, StatusWithdrawn},
	StatusResolved:     {StatusVerified, StatusReopened, StatusWithdrawn},
	StatusVerified:     {StatusClosed, StatusWithdrawn},
	StatusReopened:     {StatusInProgress, StatusWithdrawn},
	StatusClosed:       {StatusReopened},
	StatusWithdrawn:    {},
}

// workflowTargets are only reachable through their dedicated operation.
var workflowTargets = map[ComplaintStatus]string{
	StatusAcknowledged: "acknowledge",
	StatusResolved:     "submitResolution",
	StatusVerified:     "verifyResolution",
	StatusClosed:       "verifyResolution",
	StatusReopened:     "reopen",
	StatusWithdrawn:    "withdraw",
}

// IsValidTransition reports whether the edge exists in the lifecycle table.
func IsValidTransition(current, next ComplaintStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the outgoing edges of a status.
func AllowedTransitions(current ComplaintStatus) []ComplaintStatus {
	return append([]ComplaintStatus(nil), allowedTransitions[current]...)
}

// WorkflowOperation names the operation that owns a target status, if any.
func WorkflowOperation(target ComplaintStatus) (string, bool) {
	op, ok := workflowTargets[target]
	return op, ok
}
