package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/events"
	"github.com/spec-kit/grievance-service/internal/observability"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

// SLAMonitor detects missed deadlines and hands new breaches to the
// escalation coordinator.
type SLAMonitor struct {
	core
	escalation    *EscalationService
	metrics       *observability.Metrics
	workers       int
	batchSize     int
	ticketTimeout time.Duration
}

// MonitorDependencies configures the sweep.
type MonitorDependencies struct {
	CoreDependencies
	Escalation    *EscalationService
	Metrics       *observability.Metrics
	Workers       int
	BatchSize     int
	TicketTimeout time.Duration
}

// SweepError reports a ticket the sweep could not evaluate.
type SweepError struct {
	TicketID string `json:"ticket_id"`
	Error    string `json:"error"`
}

// SweepReport summarizes one sweep.
type SweepReport struct {
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      time.Time    `json:"finished_at"`
	Scanned         int          `json:"scanned"`
	BreachesCreated int          `json:"breaches_created"`
	Escalations     int          `json:"escalations"`
	Errors          []SweepError `json:"errors,omitempty"`
	Cancelled       bool         `json:"cancelled"`
}

type ticketOutcome struct {
	breaches    int
	escalations int
}

// NewSLAMonitor constructs the monitor.
func NewSLAMonitor(deps MonitorDependencies) *SLAMonitor {
	m := &SLAMonitor{
		core:          newCore(deps.CoreDependencies),
		escalation:    deps.Escalation,
		metrics:       deps.Metrics,
		workers:       deps.Workers,
		batchSize:     deps.BatchSize,
		ticketTimeout: deps.TicketTimeout,
	}
	if m.workers <= 0 {
		m.workers = 4
	}
	if m.batchSize <= 0 {
		m.batchSize = 200
	}
	if m.ticketTimeout <= 0 {
		m.ticketTimeout = 5 * time.Second
	}
	return m
}

// Sweep evaluates every non-terminal ticket. Per-ticket failures are collected
// in the report and never stop the sweep.
func (m *SLAMonitor) Sweep(ctx context.Context) SweepReport {
	report := SweepReport{StartedAt: m.clock.Now()}
	var mu sync.Mutex

	afterID := ""
	for {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}
		batch, err := m.listBatch(ctx, afterID)
		if err != nil {
			m.logger.Warn("sla sweep listing failed", zap.String("after_id", afterID), zap.Error(err))
			report.Cancelled = errors.Is(err, context.Canceled)
			report.Errors = append(report.Errors, SweepError{Error: "listing active tickets failed"})
			break
		}
		if len(batch) == 0 {
			break
		}

		var g errgroup.Group
		g.SetLimit(m.workers)
		for i := range batch {
			ticketID := batch[i].ID
			g.Go(func() error {
				out, err := m.evaluate(ctx, ticketID)
				mu.Lock()
				defer mu.Unlock()
				report.Scanned++
				if err != nil {
					report.Errors = append(report.Errors, SweepError{TicketID: ticketID, Error: apperrors.ToDomainError(err).Message})
					return nil
				}
				report.BreachesCreated += out.breaches
				report.Escalations += out.escalations
				return nil
			})
		}
		_ = g.Wait()

		afterID = batch[len(batch)-1].ID
		if len(batch) < m.batchSize {
			break
		}
	}

	report.FinishedAt = m.clock.Now()
	m.metrics.RecordSweep(report.FinishedAt.Sub(report.StartedAt), len(report.Errors))

	fields := []zap.Field{
		zap.Int("scanned", report.Scanned),
		zap.Int("breaches_created", report.BreachesCreated),
		zap.Int("escalations", report.Escalations),
		zap.Int("errors", len(report.Errors)),
		zap.Bool("cancelled", report.Cancelled),
	}
	if len(report.Errors) > 0 || report.Cancelled {
		m.logger.Warn("sla sweep finished with errors", fields...)
	} else {
		m.logger.Info("sla sweep finished", fields...)
	}
	return report
}

func (m *SLAMonitor) listBatch(ctx context.Context, afterID string) ([]domain.Complaint, error) {
	ctx, cancel := m.bounded(ctx)
	defer cancel()
	return m.repos.Tickets.ListActive(ctx, afterID, m.batchSize)
}

// evaluate checks one ticket under its lock. Breach creation is keyed by
// (ticket, type, dueAt), so re-running it over unchanged state is a no-op.
func (m *SLAMonitor) evaluate(ctx context.Context, ticketID string) (ticketOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, m.ticketTimeout)
	defer cancel()

	var (
		out ticketOutcome
		evs []events.Event
	)
	_, err := m.mutate(ctx, ticketID, func(ctx context.Context, t *domain.Complaint) error {
		out = ticketOutcome{}
		evs = evs[:0]
		if t.Status.IsTerminal() {
			return errNoChange
		}
		now := m.clock.Now()
		changed := false

		if t.RespondedAt == nil && now.After(t.DueAt) {
			created, err := m.ensureBreach(ctx, t, domain.BreachResponse, t.DueAt, now)
			if err != nil {
				return err
			}
			if created != nil {
				out.breaches++
				evs = append(evs, m.breachEvent(t, created))
			}
		}
		if !t.Status.IsResolvedState() && now.After(t.ResolutionDueAt) {
			created, err := m.ensureBreach(ctx, t, domain.BreachResolution, t.ResolutionDueAt, now)
			if err != nil {
				return err
			}
			if created != nil {
				out.breaches++
				evs = append(evs, m.breachEvent(t, created))
			}
		}

		if m.escalation != nil {
			open, err := m.repos.Breaches.List(ctx, repository.BreachFilter{
				TicketID: &t.ID,
				Statuses: []domain.BreachStatus{domain.BreachOpen},
				Limit:    -1,
			})
			if err != nil {
				return err
			}
			for i := range open {
				if open[i].EscalatedAt != nil {
					continue
				}
				level := t.EscalationLevel
				escalationEvents, err := m.escalation.escalateBreach(ctx, t, &open[i])
				if err != nil {
					return err
				}
				evs = append(evs, escalationEvents...)
				if t.EscalationLevel != level {
					out.escalations++
					changed = true
				}
			}
		}

		if !changed {
			return errNoChange
		}
		return nil
	})
	if err != nil {
		m.logger.Warn("sla evaluation failed", zap.String("ticket_id", ticketID), zap.Error(err))
		return ticketOutcome{}, err
	}
	m.publish(ctx, evs...)
	return out, nil
}

// ensureBreach creates the breach for the given deadline unless an open
// breach of the same type is already on the ticket or this deadline cycle was
// already recorded. It returns nil when nothing was created.
func (m *SLAMonitor) ensureBreach(ctx context.Context, t *domain.Complaint, breachType domain.BreachType, dueAt, now time.Time) (*domain.SLABreach, error) {
	open, err := m.repos.Breaches.List(ctx, repository.BreachFilter{
		TicketID: &t.ID,
		Statuses: []domain.BreachStatus{domain.BreachOpen},
		Types:    []domain.BreachType{breachType},
		Limit:    1,
	})
	if err != nil {
		return nil, err
	}
	if len(open) > 0 {
		return nil, nil
	}

	_, err = m.repos.Breaches.Find(ctx, t.ID, breachType, dueAt)
	if err == nil {
		return nil, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	breach := &domain.SLABreach{
		ID:         uuid.NewString(),
		TicketID:   t.ID,
		BreachType: breachType,
		DetectedAt: now,
		DueAt:      dueAt,
		Status:     domain.BreachOpen,
	}
	if err := m.repos.Breaches.Create(ctx, breach); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, nil
		}
		return nil, err
	}
	m.metrics.RecordBreach(string(breachType))
	m.logger.Info("sla breach detected",
		zap.String("ticket_id", t.ID),
		zap.String("breach_type", string(breachType)),
		zap.Time("due_at", dueAt))
	return breach, nil
}

func (m *SLAMonitor) breachEvent(t *domain.Complaint, b *domain.SLABreach) events.Event {
	return m.event(events.EventSLABreached, t.ID, domain.SystemActor, events.SLABreachedPayload{
		BreachID:   b.ID,
		BreachType: b.BreachType,
		DueAt:      b.DueAt,
		AssigneeID: t.AssigneeID,
	})
}
