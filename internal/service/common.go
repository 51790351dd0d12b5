package service

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/clock"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/lock"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// CoreDependencies are shared by every service that touches tickets.
type CoreDependencies struct {
	Repos        repository.Set
	Locker       lock.Locker
	Clock        clock.Clock
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	StoreTimeout time.Duration
}

// errNoChange lets a mutation finish without writing the ticket.
var errNoChange = errors.New("no change")

type core struct {
	repos      repository.Set
	locker     lock.Locker
	clock      clock.Clock
	dispatcher events.Dispatcher
	logger     *zap.Logger
	timeout    time.Duration
}

func newCore(deps CoreDependencies) core {
	c := core{
		repos:      deps.Repos,
		locker:     deps.Locker,
		clock:      deps.Clock,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		timeout:    deps.StoreTimeout,
	}
	if c.locker == nil {
		c.locker = lock.NewLocal()
	}
	if c.clock == nil {
		c.clock = clock.Real{}
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

func (c core) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// mutate loads the ticket under its lock and inside a transaction, applies fn
// and writes the result back with a version check. Returning errNoChange from
// fn commits any other writes without touching the ticket row.
func (c core) mutate(ctx context.Context, ticketID string, fn func(ctx context.Context, t *domain.Complaint) error) (*domain.Complaint, error) {
	ctx, cancel := c.bounded(ctx)
	defer cancel()

	release, err := c.locker.Acquire(ctx, "ticket:"+ticketID)
	if err != nil {
		c.logger.Warn("ticket lock not acquired", zap.String("ticket_id", ticketID), zap.Error(err))
		return nil, storeError(err, "ticket", ticketID)
	}
	defer release()

	var out *domain.Complaint
	err = c.repos.Tx.WithinTx(ctx, func(ctx context.Context) error {
		ticket, err := c.repos.Tickets.GetByID(ctx, ticketID)
		if err != nil {
			return err
		}
		if err := fn(ctx, ticket); err != nil {
			if errors.Is(err, errNoChange) {
				out = ticket
				return nil
			}
			return err
		}
		ticket.UpdatedAt = c.clock.Now()
		if err := c.repos.Tickets.Update(ctx, ticket); err != nil {
			return err
		}
		out = ticket
		return nil
	})
	if err != nil {
		return nil, storeError(err, "ticket", ticketID)
	}
	return out, nil
}

// atomically runs fn in a bounded transaction without a ticket lock.
func (c core) atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, cancel := c.bounded(ctx)
	defer cancel()
	return c.repos.Tx.WithinTx(ctx, fn)
}

func (c core) record(ctx context.Context, t *domain.Complaint, kind domain.StatusChangeKind, from, to domain.ComplaintStatus, actor domain.Actor, note string, metadata map[string]any) error {
	change := &domain.StatusChange{
		ID:         uuid.NewString(),
		TicketID:   t.ID,
		Kind:       kind,
		FromStatus: from,
		ToStatus:   to,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Note:       note,
		Metadata:   metadata,
		CreatedAt:  c.clock.Now(),
	}
	return c.repos.StatusChanges.Create(ctx, change)
}

// transition moves t to next and appends the matching audit entry.
func (c core) transition(ctx context.Context, t *domain.Complaint, next domain.ComplaintStatus, actor domain.Actor, note string) (events.Event, error) {
	if !domain.IsValidTransition(t.Status, next) {
		return events.Event{}, invalidTransition(t.Status, next)
	}
	from := t.Status
	t.Status = next
	if err := c.record(ctx, t, domain.ChangeKindStatus, from, next, actor, note, nil); err != nil {
		return events.Event{}, err
	}
	return c.event(events.EventStatusChanged, t.ID, actor, events.StatusChangedPayload{
		OldStatus: from,
		NewStatus: next,
		Note:      note,
	}), nil
}

// closeBreaches moves every open breach of the given type to status.
func (c core) closeBreaches(ctx context.Context, ticketID string, breachType domain.BreachType, status domain.BreachStatus, actor domain.Actor, note string) error {
	breaches, err := c.repos.Breaches.List(ctx, repository.BreachFilter{
		TicketID: &ticketID,
		Statuses: []domain.BreachStatus{domain.BreachOpen},
		Types:    []domain.BreachType{breachType},
		Limit:    -1,
	})
	if err != nil {
		return err
	}
	now := c.clock.Now()
	for i := range breaches {
		b := breaches[i]
		b.Status = status
		b.Note = &note
		b.ClosedBy = &actor.ID
		b.ClosedAt = &now
		if err := c.repos.Breaches.Update(ctx, &b); err != nil {
			return err
		}
	}
	return nil
}

// retireResolution deactivates the active resolution, if any.
func (c core) retireResolution(ctx context.Context, ticketID, reason string) error {
	res, err := c.repos.Resolutions.GetActive(ctx, ticketID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	res.Active = false
	if res.Verification == domain.VerificationPending {
		res.Verification = domain.VerificationRejected
		res.RejectionReason = &reason
	}
	return c.repos.Resolutions.Update(ctx, res)
}

func (c core) event(eventType events.EventType, ticketID string, actor domain.Actor, payload any) events.Event {
	return events.Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		TicketID:  ticketID,
		Actor:     events.ActorFrom(actor),
		Timestamp: c.clock.Now(),
		Payload:   payload,
	}
}

// publish runs after commit. Handler failures never fail the operation.
func (c core) publish(ctx context.Context, evs ...events.Event) {
	if c.dispatcher == nil {
		return
	}
	for _, ev := range evs {
		if ev.Type == "" {
			continue
		}
		if err := c.dispatcher.Publish(ctx, ev); err != nil {
			c.logger.Warn("event handler failed",
				zap.String("event_type", string(ev.Type)),
				zap.String("ticket_id", ev.TicketID),
				zap.Error(err))
		}
	}
}

func storeError(err error, resource, id string) error {
	if err == nil {
		return nil
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	details := map[string]any{"id": id}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict(resource+" was modified concurrently; refetch and retry", details)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", details)
	case errors.Is(err, lock.ErrLockTimeout):
		return apperrors.NewConflict(resource+" is busy; retry", details)
	}
	return apperrors.NewInternalError(err)
}

func invalidTransition(from, to domain.ComplaintStatus) error {
	return apperrors.NewInvalidTransition("status transition not allowed", map[string]any{
		"from":    from,
		"to":      to,
		"allowed": domain.AllowedTransitions(from),
	})
}

func requireHandler(actor domain.Actor) error {
	if actor.ID == "" {
		return apperrors.NewUnauthorized("actor required")
	}
	if !actor.IsHandler() {
		return apperrors.NewForbidden("staff role required")
	}
	return nil
}

func requireElevated(actor domain.Actor) error {
	if actor.ID == "" {
		return apperrors.NewUnauthorized("actor required")
	}
	if !actor.IsElevated() {
		return apperrors.NewForbidden("supervisor role required")
	}
	return nil
}

func canView(actor domain.Actor, t *domain.Complaint) bool {
	return actor.IsHandler() || t.SubmitterID == actor.ID
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || slices.Contains(out, tag) {
			continue
		}
		out = append(out, tag)
	}
	return out
}

func stringPreview(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

func strPtr(s string) *string {
	return &s
}
