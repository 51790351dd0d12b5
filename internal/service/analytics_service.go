package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/grievance-service/internal/cache"
	"github.com/spec-kit/grievance-service/internal/domain"
	"github.com/spec-kit/grievance-service/internal/repository"
	apperrors "github.com/spec-kit/grievance-service/pkg/util/errorutil"
)

const maxTrendBuckets = 400

// AnalyticsService computes read-only projections over tickets and breaches.
type AnalyticsService struct {
	core
	cache cache.Cache
	ttl   time.Duration
}

// AnalyticsDependencies configures the analytics service.
type AnalyticsDependencies struct {
	CoreDependencies
	Cache    cache.Cache
	CacheTTL time.Duration
}

// AnalyticsRange bounds the tickets considered by creation time.
type AnalyticsRange struct {
	From *time.Time
	To   *time.Time
}

// NewAnalyticsService constructs the service.
func NewAnalyticsService(deps AnalyticsDependencies) *AnalyticsService {
	c := deps.Cache
	if c == nil {
		c = cache.Noop{}
	}
	return &AnalyticsService{core: newCore(deps.CoreDependencies), cache: c, ttl: deps.CacheTTL}
}

// Stats summarizes open, breached and escalated tickets.
func (s *AnalyticsService) Stats(ctx context.Context, actor domain.Actor, r AnalyticsRange) (*domain.ComplaintStats, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	if err := validateRange(r); err != nil {
		return nil, err
	}
	var stats domain.ComplaintStats
	err := s.cached(ctx, "stats:"+rangeKey(r), &stats, func(ctx context.Context) (any, error) {
		tickets, breached, err := s.load(ctx, r, domain.BreachOpen)
		if err != nil {
			return nil, err
		}
		out := computeStats(tickets, breached)
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Trend counts ticket creation per period bucket.
func (s *AnalyticsService) Trend(ctx context.Context, actor domain.Actor, period domain.TrendPeriod, r AnalyticsRange) (*domain.ComplaintTrend, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	if period == "" {
		period = domain.PeriodDay
	}
	if period != domain.PeriodDay && period != domain.PeriodWeek && period != domain.PeriodMonth {
		return nil, apperrors.NewValidationError("invalid period", map[string]any{"period": "must be day, week or month"})
	}
	if err := validateRange(r); err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC().Truncate(time.Minute)
	if r.To == nil {
		r.To = &now
	}
	if r.From == nil {
		from := defaultTrendStart(period, *r.To)
		r.From = &from
	}
	if bucketCount(period, *r.From, *r.To) > maxTrendBuckets {
		return nil, apperrors.NewValidationError("range too large", map[string]any{"from": fmt.Sprintf("at most %d buckets", maxTrendBuckets)})
	}

	var trend domain.ComplaintTrend
	err := s.cached(ctx, "trend:"+string(period)+":"+rangeKey(r), &trend, func(ctx context.Context) (any, error) {
		tickets, _, err := s.load(ctx, r)
		if err != nil {
			return nil, err
		}
		out := computeTrend(period, *r.From, *r.To, tickets)
		return &out, nil
	})
	if err != nil {
		return nil, err
	}
	return &trend, nil
}

// Categories reports resolution time and breach rate per category.
func (s *AnalyticsService) Categories(ctx context.Context, actor domain.Actor, r AnalyticsRange) ([]domain.CategoryAnalytics, error) {
	if err := requireHandler(actor); err != nil {
		return nil, err
	}
	if err := validateRange(r); err != nil {
		return nil, err
	}
	var result []domain.CategoryAnalytics
	err := s.cached(ctx, "categories:"+rangeKey(r), &result, func(ctx context.Context) (any, error) {
		tickets, breached, err := s.load(ctx, r)
		if err != nil {
			return nil, err
		}
		return computeCategoryAnalytics(tickets, breached), nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// cached serves dst from the cache, falling back to compute. Cache failures
// are logged and never fail the read.
func (s *AnalyticsService) cached(ctx context.Context, key string, dst any, compute func(context.Context) (any, error)) error {
	if s.ttl > 0 {
		hit, err := s.cache.GetJSON(ctx, key, dst)
		if err != nil {
			s.logger.Warn("analytics cache read failed", zap.String("key", key),
				zap.Error(apperrors.NewDependencyFailure("analytics cache", err)))
		}
		if hit {
			return nil
		}
	}

	value, err := compute(ctx)
	if err != nil {
		return storeError(err, "analytics", key)
	}
	if err := assign(dst, value); err != nil {
		return apperrors.NewInternalError(err)
	}
	if s.ttl > 0 {
		if err := s.cache.SetJSON(ctx, key, value, s.ttl); err != nil {
			s.logger.Warn("analytics cache write failed", zap.String("key", key),
				zap.Error(apperrors.NewDependencyFailure("analytics cache", err)))
		}
	}
	return nil
}

// load returns tickets in range and the ids of tickets with a breach in one
// of the given statuses. No statuses means any breach counts.
func (s *AnalyticsService) load(ctx context.Context, r AnalyticsRange, statuses ...domain.BreachStatus) ([]domain.Complaint, map[string]bool, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	tickets, err := s.repos.Tickets.List(ctx, repository.ComplaintFilter{
		CreatedFrom: r.From,
		CreatedTo:   r.To,
		Limit:       -1,
	})
	if err != nil {
		return nil, nil, err
	}
	breaches, err := s.repos.Breaches.List(ctx, repository.BreachFilter{Statuses: statuses, Limit: -1})
	if err != nil {
		return nil, nil, err
	}
	breached := make(map[string]bool, len(breaches))
	for _, b := range breaches {
		breached[b.TicketID] = true
	}
	return tickets, breached, nil
}

func computeStats(tickets []domain.Complaint, breached map[string]bool) domain.ComplaintStats {
	byCategory := map[domain.ComplaintCategory]int{}
	byPriority := map[domain.ComplaintPriority]int{}
	var stats domain.ComplaintStats
	for i := range tickets {
		t := &tickets[i]
		byCategory[t.Category]++
		byPriority[t.Priority]++
		if t.Status.IsTerminal() || t.Status.IsResolvedState() {
			continue
		}
		stats.OpenCount++
		if breached[t.ID] {
			stats.BreachedCount++
		}
		if t.Escalated() {
			stats.EscalatedCount++
		}
	}
	stats.ByCategory = make([]domain.CategoryCount, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		stats.ByCategory = append(stats.ByCategory, domain.CategoryCount{Category: c, Count: byCategory[c]})
	}
	stats.ByPriority = make([]domain.PriorityCount, 0, len(domain.Priorities))
	for _, p := range domain.Priorities {
		stats.ByPriority = append(stats.ByPriority, domain.PriorityCount{Priority: p, Count: byPriority[p]})
	}
	return stats
}

func computeTrend(period domain.TrendPeriod, from, to time.Time, tickets []domain.Complaint) domain.ComplaintTrend {
	counts := map[time.Time]int{}
	for i := range tickets {
		counts[bucketStart(period, tickets[i].CreatedAt)]++
	}
	trend := domain.ComplaintTrend{Period: period, Counts: []domain.TrendPoint{}}
	for b := bucketStart(period, from); !b.After(to); b = nextBucket(period, b) {
		trend.Counts = append(trend.Counts, domain.TrendPoint{BucketStart: b, Count: counts[b]})
	}
	return trend
}

func computeCategoryAnalytics(tickets []domain.Complaint, breached map[string]bool) []domain.CategoryAnalytics {
	type acc struct {
		count, resolved, breached int
		minutes                   float64
	}
	per := map[domain.ComplaintCategory]*acc{}
	for i := range tickets {
		t := &tickets[i]
		a, ok := per[t.Category]
		if !ok {
			a = &acc{}
			per[t.Category] = a
		}
		a.count++
		if breached[t.ID] {
			a.breached++
		}
		if t.ResolvedAt != nil {
			a.resolved++
			a.minutes += t.ResolvedAt.Sub(t.CreatedAt).Minutes()
		}
	}
	out := make([]domain.CategoryAnalytics, 0, len(domain.Categories))
	for _, c := range domain.Categories {
		a, ok := per[c]
		if !ok {
			out = append(out, domain.CategoryAnalytics{Category: c})
			continue
		}
		ca := domain.CategoryAnalytics{
			Category:    c,
			TicketCount: a.count,
			BreachRate:  float64(a.breached) / float64(a.count),
		}
		if a.resolved > 0 {
			ca.AvgResolutionMinutes = a.minutes / float64(a.resolved)
		}
		out = append(out, ca)
	}
	return out
}

func bucketStart(period domain.TrendPeriod, t time.Time) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case domain.PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset)
	case domain.PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return day
}

func nextBucket(period domain.TrendPeriod, b time.Time) time.Time {
	switch period {
	case domain.PeriodWeek:
		return b.AddDate(0, 0, 7)
	case domain.PeriodMonth:
		return b.AddDate(0, 1, 0)
	}
	return b.AddDate(0, 0, 1)
}

func bucketCount(period domain.TrendPeriod, from, to time.Time) int {
	n := 0
	for b := bucketStart(period, from); !b.After(to) && n <= maxTrendBuckets; b = nextBucket(period, b) {
		n++
	}
	return n
}

func defaultTrendStart(period domain.TrendPeriod, to time.Time) time.Time {
	switch period {
	case domain.PeriodWeek:
		return to.AddDate(0, 0, -7*11)
	case domain.PeriodMonth:
		return to.AddDate(0, -11, 0)
	}
	return to.AddDate(0, 0, -29)
}

func validateRange(r AnalyticsRange) error {
	if r.From != nil && r.To != nil && r.To.Before(*r.From) {
		return apperrors.NewValidationError("invalid range", map[string]any{"to": "must not be before from"})
	}
	return nil
}

func rangeKey(r AnalyticsRange) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.UTC().Format(time.RFC3339)
	}
	return format(r.From) + ":" + format(r.To)
}

func assign(dst, value any) error {
	switch d := dst.(type) {
	case *domain.ComplaintStats:
		*d = *value.(*domain.ComplaintStats)
	case *domain.ComplaintTrend:
		*d = *value.(*domain.ComplaintTrend)
	case *[]domain.CategoryAnalytics:
		*d = value.([]domain.CategoryAnalytics)
	default:
		return fmt.Errorf("unsupported analytics type %T", dst)
	}
	return nil
}
