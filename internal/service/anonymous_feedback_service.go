package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/blake2b"

	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const (
	lookupTokenBytes    = 32
	maxFeedbackLength   = 5000
	maxFeedbackResponse = 5000
)

// AnonymousFeedbackService stores feedback with no link to its author. The
// lookup token is returned once and only its keyed hash is kept.
type AnonymousFeedbackService struct {
	core
	hashKey [32]byte
}

// AnonymousFeedbackDependencies configures the service.
type AnonymousFeedbackDependencies struct {
	CoreDependencies
	TokenPepper string
}

// FeedbackInput is the anonymous submission payload.
type FeedbackInput struct {
	Category domain.ComplaintCategory
	Body     string
}

// NewAnonymousFeedbackService constructs the service.
func NewAnonymousFeedbackService(deps AnonymousFeedbackDependencies) *AnonymousFeedbackService {
	return &AnonymousFeedbackService{
		core:    newCore(deps.CoreDependencies),
		hashKey: blake2b.Sum256([]byte(deps.TokenPepper)),
	}
}

// Create stores the feedback and returns the lookup token.
func (s *AnonymousFeedbackService) Create(ctx context.Context, input FeedbackInput) (*domain.AnonymousFeedback, string, error) {
	input.Body = strings.TrimSpace(input.Body)
	fields := map[string]any{}
	if input.Body == "" || len([]rune(input.Body)) > maxFeedbackLength {
		fields["body"] = "required, at most 5000 characters"
	}
	if input.Category == "" {
		input.Category = domain.CategoryOther
	}
	if !input.Category.Valid() {
		fields["category"] = "unknown category"
	}
	if len(fields) > 0 {
		return nil, "", apperrors.NewValidationError("invalid feedback", fields)
	}

	token, err := newLookupToken()
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}
	hash, err := s.hashToken(token)
	if err != nil {
		return nil, "", apperrors.NewInternalError(err)
	}

	now := s.clock.Now()
	feedback := &domain.AnonymousFeedback{
		ID:        uuid.NewString(),
		TokenHash: hash,
		Category:  input.Category,
		Body:      input.Body,
		Status:    domain.FeedbackReceived,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.atomically(ctx, func(ctx context.Context) error {
		return s.repos.Feedback.Create(ctx, feedback)
	}); err != nil {
		return nil, "", storeError(err, "feedback", feedback.ID)
	}
	s.logger.Info("anonymous feedback received", zap.String("feedback_id", feedback.ID))
	return feedback, token, nil
}

// Lookup is the only retrieval path for submitters. Unknown, malformed and
// purged tokens all produce the same NotFound.
func (s *AnonymousFeedbackService) Lookup(ctx context.Context, token string) (*domain.AnonymousFeedback, error) {
	hash, err := s.hashToken(strings.TrimSpace(token))
	if err != nil {
		return nil, feedbackNotFound()
	}
	feedback, err := s.repos.Feedback.GetByTokenHash(ctx, hash)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, feedbackNotFound()
	}
	if err != nil {
		return nil, storeError(err, "feedback", "")
	}
	return feedback, nil
}

// List returns feedback for staff triage.
func (s *AnonymousFeedbackService) List(ctx context.Context, actor domain.Actor, filter repository.FeedbackFilter) ([]domain.AnonymousFeedback, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, apperrors.NewValidationError("invalid filter", map[string]any{"status": "unknown status"})
	}
	if filter.Category != nil && !filter.Category.Valid() {
		return nil, apperrors.NewValidationError("invalid filter", map[string]any{"category": "unknown category"})
	}
	if filter.Limit <= 0 || filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	list, err := s.repos.Feedback.List(ctx, filter)
	if err != nil {
		return nil, storeError(err, "feedback", "")
	}
	return list, nil
}

// Get returns one feedback entry for staff.
func (s *AnonymousFeedbackService) Get(ctx context.Context, actor domain.Actor, id string) (*domain.AnonymousFeedback, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	feedback, err := s.repos.Feedback.GetByID(ctx, id)
	if err != nil {
		return nil, storeError(err, "feedback", id)
	}
	return feedback, nil
}

// Respond attaches a staff response visible through the lookup token.
func (s *AnonymousFeedbackService) Respond(ctx context.Context, actor domain.Actor, id, response string) (*domain.AnonymousFeedback, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	response = strings.TrimSpace(response)
	if response == "" || len([]rune(response)) > maxFeedbackResponse {
		return nil, apperrors.NewValidationError("invalid response", map[string]any{"response": "required, at most 5000 characters"})
	}
	return s.update(ctx, id, func(f *domain.AnonymousFeedback) error {
		if f.Status == domain.FeedbackClosed {
			return apperrors.NewInvalidTransition("feedback is closed", map[string]any{"status": f.Status})
		}
		now := s.clock.Now()
		f.Response = &response
		f.RespondedAt = &now
		f.Status = domain.FeedbackResponded
		return nil
	})
}

// UpdateStatus moves feedback through triage. Closed feedback is final.
func (s *AnonymousFeedbackService) UpdateStatus(ctx context.Context, actor domain.Actor, id string, status domain.FeedbackStatus) (*domain.AnonymousFeedback, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": "unknown status " + string(status)})
	}
	return s.update(ctx, id, func(f *domain.AnonymousFeedback) error {
		if f.Status == domain.FeedbackClosed && status != domain.FeedbackClosed {
			return apperrors.NewInvalidTransition("feedback is closed", map[string]any{"from": f.Status, "to": status})
		}
		f.Status = status
		return nil
	})
}

// Purge deletes feedback permanently. Its token then behaves like one that
// never existed.
func (s *AnonymousFeedbackService) Purge(ctx context.Context, actor domain.Actor, id string) error {
	if actor.ID == "" {
		return apperrors.NewUnauthorized("actor required")
	}
	if !actor.IsAdmin() {
		return apperrors.NewForbidden("admin role required")
	}
	err := s.atomically(ctx, func(ctx context.Context) error {
		return s.repos.Feedback.Delete(ctx, id)
	})
	if err != nil {
		return storeError(err, "feedback", id)
	}
	s.logger.Info("anonymous feedback purged", zap.String("feedback_id", id))
	return nil
}

func (s *AnonymousFeedbackService) update(ctx context.Context, id string, fn func(f *domain.AnonymousFeedback) error) (*domain.AnonymousFeedback, error) {
	var out *domain.AnonymousFeedback
	err := s.atomically(ctx, func(ctx context.Context) error {
		f, err := s.repos.Feedback.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(f); err != nil {
			return err
		}
		f.UpdatedAt = s.clock.Now()
		if err := s.repos.Feedback.Update(ctx, f); err != nil {
			return err
		}
		out = f
		return nil
	})
	if err != nil {
		return nil, storeError(err, "feedback", id)
	}
	return out, nil
}

func (s *AnonymousFeedbackService) hashToken(token string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != lookupTokenBytes {
		return "", errors.New("malformed lookup token")
	}
	h, err := blake2b.New256(s.hashKey[:])
	if err != nil {
		return "", err
	}
	h.Write(raw)
	return hex.EncodeToString(h.Sum(nil)), nil
}

func newLookupToken() (string, error) {
	buf := make([]byte, lookupTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate lookup token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func feedbackNotFound() error {
	return apperrors.NewNotFound("feedback", nil)
}
