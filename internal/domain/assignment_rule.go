package domain

import (
	"slices"
	"time"
)

// RuleConditions are AND-ed; empty fields match any ticket.
type RuleConditions struct {
	Categories []ComplaintCategory
	Priorities []ComplaintPriority
	Tags       []string
}

// AssignmentRule routes tickets to an assignee. Rules are evaluated in
// ascending PriorityOrder.
type AssignmentRule struct {
	ID            string
	Name          string
	PriorityOrder int
	Conditions    RuleConditions
	AssigneeID    string
	Enabled       bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// RuleSubject is the ticket view a rule is evaluated against.
type RuleSubject struct {
	Category ComplaintCategory
	Priority ComplaintPriority
	Tags     []string
}

// Matches evaluates the rule conditions. Disabled rules never match.
func (r *AssignmentRule) Matches(subject RuleSubject) bool {
	if !r.Enabled {
		return false
	}
	c := r.Conditions
	if len(c.Categories) > 0 && !slices.Contains(c.Categories, subject.Category) {
		return false
	}
	if len(c.Priorities) > 0 && !slices.Contains(c.Priorities, subject.Priority) {
		return false
	}
	for _, tag := range c.Tags {
		if !slices.Contains(subject.Tags, tag) {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (r AssignmentRule) Clone() AssignmentRule {
	out := r
	out.Conditions = RuleConditions{
		Categories: slices.Clone(r.Conditions.Categories),
		Priorities: slices.Clone(r.Conditions.Priorities),
		Tags:       slices.Clone(r.Conditions.Tags),
	}
	return out
}
