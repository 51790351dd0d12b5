package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const (
	maxTitleLength       = 200
	maxDescriptionLength = 5000
	maxCommentLength     = 5000
	maxTags              = 10
	maxPageSize          = 100
)

// TicketService coordinates the complaint lifecycle.
type TicketService struct {
	core
	policy      *SLAPolicyService
	assignment  *AssignmentService
	reopenGrace time.Duration
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	CoreDependencies
	Policy      *SLAPolicyService
	Assignment  *AssignmentService
	ReopenGrace time.Duration
}

// CreateComplaintInput describes complaint creation payload.
type CreateComplaintInput struct {
	Title       string
	Description string
	Category    domain.ComplaintCategory
	Priority    domain.ComplaintPriority
	Tags        []string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		core:        newCore(deps.CoreDependencies),
		policy:      deps.Policy,
		assignment:  deps.Assignment,
		reopenGrace: deps.ReopenGrace,
	}
}

// Create validates the request, routes it through the rule engine and fixes
// the SLA deadlines.
func (s *TicketService) Create(ctx context.Context, actor domain.Actor, input CreateComplaintInput) (*domain.Complaint, error) {
	submitterType, err := submitterTypeFor(actor)
	if err != nil {
		return nil, err
	}
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Tags = normalizeTags(input.Tags)
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	complaint := &domain.Complaint{
		ID:            uuid.NewString(),
		Key:           generateComplaintKey(),
		Title:         input.Title,
		Description:   input.Description,
		Category:      input.Category,
		Priority:      input.Priority,
		Status:        domain.StatusSubmitted,
		SubmitterID:   actor.ID,
		SubmitterType: submitterType,
		Tags:          input.Tags,
		CreatedAt:     now,
		UpdatedAt:     now,
		Version:       1,
	}

	var selection Selection
	err = s.atomically(ctx, func(ctx context.Context) error {
		due, resolutionDue, targets, err := s.policy.ComputeDeadlines(ctx, complaint.Category, complaint.Priority, now)
		if err != nil {
			return err
		}
		complaint.DueAt = due
		complaint.ResolutionDueAt = resolutionDue

		selection, err = s.assignment.SelectAssignee(ctx, domain.RuleSubject{
			Category: complaint.Category,
			Priority: complaint.Priority,
			Tags:     complaint.Tags,
		})
		if err != nil {
			return err
		}
		if selection.AssigneeID != "" {
			complaint.AssigneeID = strPtr(selection.AssigneeID)
		}

		if err := s.repos.Tickets.Create(ctx, complaint); err != nil {
			return err
		}
		return s.record(ctx, complaint, domain.ChangeKindStatus, "", domain.StatusSubmitted, actor, "complaint submitted", map[string]any{
			"sla_source":        targets.Source,
			"due_at":            complaint.DueAt,
			"resolution_due_at": complaint.ResolutionDueAt,
		})
	})
	if err != nil {
		return nil, storeError(err, "ticket", complaint.ID)
	}

	s.logger.Info("complaint created",
		zap.String("ticket_id", complaint.ID),
		zap.String("key", complaint.Key),
		zap.String("category", string(complaint.Category)),
		zap.String("priority", string(complaint.Priority)))

	evs := []events.Event{s.event(events.EventComplaintCreated, complaint.ID, actor, events.ComplaintCreatedPayload{
		Key:             complaint.Key,
		Category:        complaint.Category,
		Priority:        complaint.Priority,
		AssigneeID:      complaint.AssigneeID,
		DueAt:           complaint.DueAt,
		ResolutionDueAt: complaint.ResolutionDueAt,
	})}
	if complaint.AssigneeID != nil {
		evs = append(evs, s.event(events.EventComplaintAssigned, complaint.ID, actor, events.ComplaintAssignedPayload{
			AssigneeID: complaint.AssigneeID,
			RuleID:     selection.RuleID,
		}))
	}
	s.publish(ctx, evs...)
	return complaint, nil
}

// Get fetches a ticket the actor may see.
func (s *TicketService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.Complaint, error) {
	complaint, err := s.repos.Tickets.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "ticket", id)
	}
	if !canView(actor, complaint) {
		return nil, apperrors.NewForbidden("access denied")
	}
	return complaint, nil
}

// List returns tickets matching filter. Submitters only see their own tickets.
func (s *TicketService) List(ctx context.Context, actor domain.Actor, filter repository.ComplaintFilter) ([]domain.Complaint, error) {
	if err := validateFilter(&filter); err != nil {
		return nil, err
	}
	if !actor.IsHandler() {
		filter.SubmitterID = strPtr(actor.ID)
	}
	list, err := s.repos.Tickets.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "ticket", "")
	}
	return list, nil
}

// Acknowledge records the first response and satisfies the response SLA.
func (s *TicketService) Acknowledge(ctx context.Context, actor domain.Actor, id, note string) (*domain.Complaint, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	var evs []events.Event
	complaint, err := s.mutate(ctx, id, func(ctx context.Context, t *domain.Complaint) error {
		if t.Status != domain.StatusSubmitted {
			return apperrors.NewInvalidTransition("only submitted tickets can be acknowledged", map[string]any{
				"from": t.Status,
				"to":   domain.StatusAcknowledged,
			})
		}
		now := s.clock.Now()
		t.RespondedAt = &now
		ev, err := s.transition(ctx, t, domain.StatusAcknowledged, actor, note)
		if err != nil {
			return err
		}
		evs = append(evs, ev)
		return s.closeBreaches(ctx, t.ID, domain.BreachResponse, domain.BreachAddressed, actor, "acknowledged")
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return complaint, nil
}

// UpdateStatus applies a transition that has no dedicated workflow operation.
func (s *TicketService) UpdateStatus(ctx context.Context, actor domain.Actor, id string, next domain.ComplaintStatus, note string) (*domain.Complaint, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": "unknown status " + string(next)})
	}
	var evs []events.Event
	complaint, err := s.mutate(ctx, id, func(ctx context.Context, t *domain.Complaint) error {
		if !domain.IsValidTransition(t.Status, next) {
			return invalidTransition(t.Status, next)
		}
		if op, ok := domain.WorkflowOperation(next); ok {
			return apperrors.NewInvalidTransition("transition requires a dedicated operation", map[string]any{
				"from":      t.Status,
				"to":        next,
				"operation": op,
			})
		}
		ev, err := s.transition(ctx, t, next, actor, note)
		if err != nil {
			return err
		}
		evs = append(evs, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return complaint, nil
}

// Comment appends to the thread. Withdrawn tickets accept no comments.
func (s *TicketService) Comment(ctx context.Context, actor domain.Actor, id, body string, internal bool) (*domain.ComplaintComment, error) {
	body = strings.TrimSpace(body)
	if body == "" || len([]rune(body)) > maxCommentLength {
		return nil, apperrors.NewValidationError("invalid comment", map[string]any{"body": "required, at most 5000 characters"})
	}
	if internal && !actor.IsHandler() {
		return nil, apperrors.NewForbidden("only staff can post internal comments")
	}

	var comment *domain.ComplaintComment
	_, err := s.mutate(ctx, id, func(ctx context.Context, t *domain.Complaint) error {
		if !canView(actor, t) {
			return apperrors.NewForbidden("access denied")
		}
		if t.Status == domain.StatusWithdrawn {
			return apperrors.NewInvalidTransition("withdrawn tickets accept no comments", map[string]any{"status": t.Status})
		}
		comment = &domain.ComplaintComment{
			ID:        uuid.NewString(),
			TicketID:  t.ID,
			AuthorID:  actor.ID,
			Body:      body,
			Internal:  internal,
			CreatedAt: s.clock.Now(),
		}
		if err := s.repos.Comments.Create(ctx, comment); err != nil {
			return err
		}
		return errNoChange
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, s.event(events.EventCommentAdded, id, actor, events.CommentAddedPayload{
		CommentID:   comment.ID,
		AuthorID:    comment.AuthorID,
		Internal:    comment.Internal,
		BodyPreview: stringPreview(comment.Body, 120),
	}))
	return comment, nil
}

// DeleteComment removes a comment. Only its author or an admin may do so.
func (s *TicketService) DeleteComment(ctx context.Context, actor domain.Actor, commentID string) error {
	err := s.atomically(ctx, func(ctx context.Context) error {
		comment, err := s.repos.Comments.GetByID(ctx, commentID)
		if err != nil {
			return err
		}
		if comment.AuthorID != actor.ID && !actor.IsAdmin() {
			return apperrors.NewForbidden("only the author or an admin can delete a comment")
		}
		return s.repos.Comments.Delete(ctx, commentID)
	})
	return storeError(err, "comment", commentID)
}

// Reopen moves a resolved ticket, or a closed one inside the grace window,
// back to reopened.
func (s *TicketService) Reopen(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Complaint, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.NewValidationError("reason required", map[string]any{"reason": "required"})
	}
	var evs []events.Event
	complaint, err := s.mutate(ctx, id, func(ctx context.Context, t *domain.Complaint) error {
		if !canView(actor, t) {
			return apperrors.NewForbidden("access denied")
		}
		now := s.clock.Now()
		switch t.Status {
		case domain.StatusResolved:
		case domain.StatusClosed:
			if t.ClosedAt == nil || now.Sub(*t.ClosedAt) > s.reopenGrace {
				return apperrors.NewInvalidTransition("reopen window has passed", map[string]any{
					"closed_at":    t.ClosedAt,
					"grace_period": s.reopenGrace.String(),
				})
			}
		default:
			return invalidTransition(t.Status, domain.StatusReopened)
		}

		if err := s.retireResolution(ctx, t.ID, reason); err != nil {
			return err
		}
		ev, err := s.transition(ctx, t, domain.StatusReopened, actor, reason)
		if err != nil {
			return err
		}
		t.ReopenCount++
		t.ResolvedAt = nil
		t.ClosedAt = nil
		evs = append(evs, ev)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return complaint, nil
}

// Withdraw lets the submitter pull a ticket from any non-terminal state.
func (s *TicketService) Withdraw(ctx context.Context, actor domain.Actor, id, reason string) (*domain.Complaint, error) {
	var evs []events.Event
	complaint, err := s.mutate(ctx, id, func(ctx context.Context, t *domain.Complaint) error {
		if t.SubmitterID != actor.ID && !actor.IsAdmin() {
			return apperrors.NewForbidden("only the submitter can withdraw a ticket")
		}
		ev, err := s.transition(ctx, t, domain.StatusWithdrawn, actor, reason)
		if err != nil {
			return err
		}
		evs = append(evs, ev)
		note := "ticket withdrawn"
		for _, bt := range []domain.BreachType{domain.BreachResponse, domain.BreachResolution} {
			if err := s.closeBreaches(ctx, t.ID, bt, domain.BreachExcused, actor, note); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return complaint, nil
}

// UpdatePriority changes priority and recomputes deadlines from creation time.
func (s *TicketService) UpdatePriority(ctx context.Context, actor domain.Actor, id string, priority domain.ComplaintPriority) (*domain.Complaint, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": "unknown priority " + string(priority)})
	}
	return s.mutate(ctx, id, func(ctx context.Context, t *domain.Complaint) error {
		if t.Status.IsTerminal() {
			return apperrors.NewInvalidTransition("ticket is closed", map[string]any{"status": t.Status})
		}
		if t.Priority == priority {
			return errNoChange
		}
		old := t.Priority
		t.Priority = priority
		if err := s.record(ctx, t, domain.ChangeKindPriority, t.Status, t.Status, actor, "priority changed", map[string]any{
			"old_priority": old,
			"new_priority": priority,
		}); err != nil {
			return err
		}
		return s.recomputeDeadlines(ctx, t, t.CreatedAt, actor, "priority change")
	})
}

// Reassign hands the ticket to another assignee and restarts its SLA clock.
func (s *TicketService) Reassign(ctx context.Context, actor domain.Actor, id, assigneeID, note string) (*domain.Complaint, error) {
	if err := requireElevated(actor); err != nil {
		return nil, err
	}
	assigneeID = strings.TrimSpace(assigneeID)
	if assigneeID == "" {
		return nil, apperrors.NewValidationError("assignee required", map[string]any{"assignee_id": "required"})
	}
	var evs []events.Event
	complaint, err := s.mutate(ctx, id, func(ctx context.Context, t *domain.Complaint) error {
		if t.Status.IsTerminal() {
			return apperrors.NewInvalidTransition("ticket is closed", map[string]any{"status": t.Status})
		}
		old := t.AssigneeID
		t.AssigneeID = strPtr(assigneeID)
		if err := s.record(ctx, t, domain.ChangeKindAssignment, t.Status, t.Status, actor, note, map[string]any{
			"old_assignee_id": old,
			"new_assignee_id": assigneeID,
		}); err != nil {
			return err
		}
		if err := s.recomputeDeadlines(ctx, t, s.clock.Now(), actor, "reassignment"); err != nil {
			return err
		}
		evs = append(evs, s.event(events.EventComplaintAssigned, t.ID, actor, events.ComplaintAssignedPayload{
			OldAssigneeID: old,
			AssigneeID:    t.AssigneeID,
		}))
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, evs...)
	return complaint, nil
}

// History merges status changes and comments in time order. Internal
// comments are hidden from submitters.
func (s *TicketService) History(ctx context.Context, actor domain.Actor, id string) ([]domain.HistoryEntry, error) {
	complaint, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	changes, err := s.repos.StatusChanges.ListByTicket(ctx, complaint.ID)
	if err != nil {
		return nil, storeError(err, "ticket history", id)
	}
	comments, err := s.repos.Comments.ListByTicket(ctx, complaint.ID)
	if err != nil {
		return nil, storeError(err, "ticket history", id)
	}

	entries := make([]domain.HistoryEntry, 0, len(changes)+len(comments))
	for i := range changes {
		entries = append(entries, domain.HistoryEntry{At: changes[i].CreatedAt, StatusChange: &changes[i]})
	}
	for i := range comments {
		if comments[i].Internal && !actor.IsHandler() {
			continue
		}
		entries = append(entries, domain.HistoryEntry{At: comments[i].CreatedAt, Comment: &comments[i]})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].At.Before(entries[j].At) })
	return entries, nil
}

// Comments lists the thread visible to actor.
func (s *TicketService) Comments(ctx context.Context, actor domain.Actor, id string) ([]domain.ComplaintComment, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	comments, err := s.repos.Comments.ListByTicket(ctx, id)
	if err != nil {
		return nil, storeError(err, "comment", id)
	}
	visible := make([]domain.ComplaintComment, 0, len(comments))
	for _, c := range comments {
		if c.Internal && !actor.IsHandler() {
			continue
		}
		visible = append(visible, c)
	}
	return visible, nil
}

// Breaches lists SLA breaches recorded for a ticket.
func (s *TicketService) Breaches(ctx context.Context, actor domain.Actor, id string) ([]domain.SLABreach, error) {
	if _, err := s.Get(ctx, actor, id); err != nil {
		return nil, err
	}
	breaches, err := s.repos.Breaches.ListByTicket(ctx, id)
	if err != nil {
		return nil, storeError(err, "sla breach", id)
	}
	return breaches, nil
}

func (s *TicketService) recomputeDeadlines(ctx context.Context, t *domain.Complaint, base time.Time, actor domain.Actor, reason string) error {
	due, resolutionDue, targets, err := s.policy.ComputeDeadlines(ctx, t.Category, t.Priority, base)
	if err != nil {
		return err
	}
	metadata := map[string]any{
		"reason":                reason,
		"sla_source":            targets.Source,
		"old_due_at":            t.DueAt,
		"new_due_at":            due,
		"old_resolution_due_at": t.ResolutionDueAt,
		"new_resolution_due_at": resolutionDue,
	}
	t.DueAt = due
	t.ResolutionDueAt = resolutionDue
	return s.record(ctx, t, domain.ChangeKindSLARecompute, t.Status, t.Status, actor, "sla deadlines recomputed", metadata)
}

func submitterTypeFor(actor domain.Actor) (domain.SubmitterType, error) {
	if actor.ID == "" {
		return "", apperrors.NewUnauthorized("actor required")
	}
	switch actor.Role {
	case domain.RoleStudent:
		return domain.SubmitterStudent, nil
	case domain.RoleParent:
		return domain.SubmitterParent, nil
	case domain.RoleStaff, domain.RoleSupervisor, domain.RoleAdmin:
		return domain.SubmitterStaff, nil
	}
	return "", apperrors.NewForbidden("role cannot submit complaints")
}

func validateCreate(input CreateComplaintInput) error {
	fields := map[string]any{}
	if input.Title == "" {
		fields["title"] = "required"
	} else if len([]rune(input.Title)) > maxTitleLength {
		fields["title"] = "at most 200 characters"
	}
	if input.Description == "" {
		fields["description"] = "required"
	} else if len([]rune(input.Description)) > maxDescriptionLength {
		fields["description"] = "at most 5000 characters"
	}
	if input.Category == "" {
		fields["category"] = "required"
	} else if !input.Category.Valid() {
		fields["category"] = "unknown category"
	}
	if input.Priority == "" {
		fields["priority"] = "required"
	} else if !input.Priority.Valid() {
		fields["priority"] = "unknown priority"
	}
	if len(input.Tags) > maxTags {
		fields["tags"] = "at most 10 tags"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid complaint", fields)
	}
	return nil
}

func validateFilter(f *repository.ComplaintFilter) error {
	fields := map[string]any{}
	for _, st := range f.Statuses {
		if !st.Valid() {
			fields["status"] = "unknown status " + string(st)
		}
	}
	for _, c := range f.Categories {
		if !c.Valid() {
			fields["category"] = "unknown category " + string(c)
		}
	}
	for _, p := range f.Priorities {
		if !p.Valid() {
			fields["priority"] = "unknown priority " + string(p)
		}
	}
	if f.CreatedFrom != nil && f.CreatedTo != nil && f.CreatedTo.Before(*f.CreatedFrom) {
		fields["created_to"] = "must not be before created_from"
	}
	if f.Offset < 0 {
		fields["offset"] = "must not be negative"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError("invalid filter", fields)
	}
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return nil
}

func generateComplaintKey() string {
	return "CMP-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
