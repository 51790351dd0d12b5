// Package memory provides in-process implementations of the repository
// interfaces. Writes are expected to run inside WithinTx; a failed transaction
// restores the snapshot taken when it began.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
)

type state struct {
	complaints  map[string]domain.Complaint
	changes     map[string][]domain.StatusChange
	comments    map[string][]domain.ComplaintComment
	resolutions map[string][]domain.Resolution
	slaConfigs  map[string]domain.SLAConfig
	breaches    map[string]domain.SLABreach
	rules       map[string]domain.AssignmentRule
	surveys     map[string]domain.SatisfactionSurvey
	responses   map[string]domain.SurveyResponse
	feedback    map[string]domain.AnonymousFeedback
}

func newState() *state {
	return &state{
		complaints:  make(map[string]domain.Complaint),
		changes:     make(map[string][]domain.StatusChange),
		comments:    make(map[string][]domain.ComplaintComment),
		resolutions: make(map[string][]domain.Resolution),
		slaConfigs:  make(map[string]domain.SLAConfig),
		breaches:    make(map[string]domain.SLABreach),
		rules:       make(map[string]domain.AssignmentRule),
		surveys:     make(map[string]domain.SatisfactionSurvey),
		responses:   make(map[string]domain.SurveyResponse),
		feedback:    make(map[string]domain.AnonymousFeedback),
	}
}

func (s *state) clone() *state {
	out := newState()
	for id, c := range s.complaints {
		out.complaints[id] = c.Clone()
	}
	for id, list := range s.changes {
		out.changes[id] = slices.Clone(list)
	}
	for id, list := range s.comments {
		out.comments[id] = slices.Clone(list)
	}
	for id, list := range s.resolutions {
		out.resolutions[id] = slices.Clone(list)
	}
	for id, r := range s.rules {
		out.rules[id] = r.Clone()
	}
	out.slaConfigs = maps.Clone(s.slaConfigs)
	out.breaches = maps.Clone(s.breaches)
	out.surveys = maps.Clone(s.surveys)
	out.responses = maps.Clone(s.responses)
	out.feedback = maps.Clone(s.feedback)
	return out
}

// Store holds every aggregate in memory.
type Store struct {
	mu   sync.RWMutex
	txCh chan struct{}
	data *state
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState(), txCh: make(chan struct{}, 1)}
}

type txKey struct{}

// WithinTx serializes transactions and rolls back on error or panic. Waiting
// for another transaction gives up when ctx is done.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case s.txCh <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-s.txCh }()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	committed := false
	defer func() {
		if !committed {
			s.mu.Lock()
			s.data = snapshot
			s.mu.Unlock()
		}
	}()

	if err = fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) read(ctx context.Context, fn func(d *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(s.data)
}

func (s *Store) write(ctx context.Context, fn func(d *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.data)
}

// Tickets returns the complaint repository view.
func (s *Store) Tickets() repository.TicketRepository { return &ticketRepo{s: s} }

// StatusChanges returns the audit log view.
func (s *Store) StatusChanges() repository.StatusChangeRepository { return &statusChangeRepo{s: s} }

// Comments returns the comment view.
func (s *Store) Comments() repository.CommentRepository { return &commentRepo{s: s} }

// Resolutions returns the resolution view.
func (s *Store) Resolutions() repository.ResolutionRepository { return &resolutionRepo{s: s} }

// SLAConfigs returns the SLA policy view.
func (s *Store) SLAConfigs() repository.SLAConfigRepository { return &slaConfigRepo{s: s} }

// Breaches returns the breach view.
func (s *Store) Breaches() repository.BreachRepository { return &breachRepo{s: s} }

// Rules returns the assignment rule view.
func (s *Store) Rules() repository.AssignmentRuleRepository { return &ruleRepo{s: s} }

// Surveys returns the survey view.
func (s *Store) Surveys() repository.SurveyRepository { return &surveyRepo{s: s} }

// Feedback returns the anonymous feedback view.
func (s *Store) Feedback() repository.AnonymousFeedbackRepository { return &feedbackRepo{s: s} }

func page[T any](items []T, limit, offset int) []T {
	if limit < 0 {
		return items
	}
	if limit == 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := min(offset+limit, len(items))
	return items[offset:end]
}

// Set exposes the store through the repository bundle.
func (s *Store) Set() repository.Set {
	return repository.Set{
		Tx:            s,
		Tickets:       s.Tickets(),
		StatusChanges: s.StatusChanges(),
		Comments:      s.Comments(),
		Resolutions:   s.Resolutions(),
		SLAConfigs:    s.SLAConfigs(),
		Breaches:      s.Breaches(),
		Rules:         s.Rules(),
		Surveys:       s.Surveys(),
		Feedback:      s.Feedback(),
	}
}
