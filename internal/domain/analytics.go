package domain

import "time"

// CategoryCount is one bucket of a breakdown.
type CategoryCount struct {
	Category ComplaintCategory `json:"category"`
	Count    int               `json:"count"`
}

// PriorityCount is one bucket of a breakdown.
type PriorityCount struct {
	Priority ComplaintPriority `json:"priority"`
	Count    int               `json:"count"`
}

// ComplaintStats summarizes the current ticket population.
type ComplaintStats struct {
	OpenCount      int             `json:"open_count"`
	BreachedCount  int             `json:"breached_count"`
	EscalatedCount int             `json:"escalated_count"`
	ByCategory     []CategoryCount `json:"by_category"`
	ByPriority     []PriorityCount `json:"by_priority"`
}

// TrendPeriod is the bucket width of a trend.
type TrendPeriod string

const (
	PeriodDay   TrendPeriod = "day"
	PeriodWeek  TrendPeriod = "week"
	PeriodMonth TrendPeriod = "month"
)

// TrendPoint is the number of tickets created in a bucket.
type TrendPoint struct {
	BucketStart time.Time `json:"bucket_start"`
	Count       int       `json:"count"`
}

// ComplaintTrend is a time series of ticket creation.
type ComplaintTrend struct {
	Period TrendPeriod  `json:"period"`
	Counts []TrendPoint `json:"counts"`
}

// CategoryAnalytics aggregates resolution performance per category.
type CategoryAnalytics struct {
	Category             ComplaintCategory `json:"category"`
	TicketCount          int               `json:"ticket_count"`
	AvgResolutionMinutes float64           `json:"avg_resolution_minutes"`
	BreachRate           float64           `json:"breach_rate"`
}
