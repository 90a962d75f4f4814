// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for bill projection. Each
// recurrence that can be projected forward from its anchor date has a rule
// that decides whether a given calendar day is one of its occurrences.

package services

import (
	"budgetwise/internal/core"
	"fmt"
)

// ProjectionRule is the strategy interface for matching a calendar day
// against a bill's anchor date.
type ProjectionRule interface {
	// Matches returns true if day is an occurrence of a series anchored at
	// anchor. Callers guarantee day is not before anchor.
	Matches(anchor, day core.Date) bool
}

// MonthlyRule matches the same day of the month. Anchors on the 29th to
// 31st produce nothing in months that lack that day.
type MonthlyRule struct{}

func (MonthlyRule) Matches(anchor, day core.Date) bool {
	return anchor.Day() == day.Day()
}

// YearlyRule matches the same month and day.
type YearlyRule struct{}

func (YearlyRule) Matches(anchor, day core.Date) bool {
	return anchor.Month() == day.Month() && anchor.Day() == day.Day()
}

// WeeklyRule matches the same weekday.
type WeeklyRule struct{}

func (WeeklyRule) Matches(anchor, day core.Date) bool {
	return anchor.Weekday() == day.Weekday()
}

// projectionRules maps recurrences to their rules. QUARTERLY and ONE_TIME
// are absent on purpose: they are only shown on their next due date.
var projectionRules = map[core.Recurrence]ProjectionRule{
	core.Monthly: MonthlyRule{},
	core.Yearly:  YearlyRule{},
	core.Weekly:  WeeklyRule{},
}

// GetProjectionRule returns the rule for a recurrence.
// Returns an error if the recurrence has no projection.
func GetProjectionRule(recurrence core.Recurrence) (ProjectionRule, error) {
	rule, ok := projectionRules[recurrence]
	if !ok {
		return nil, fmt.Errorf("no projection rule for recurrence: %s", recurrence)
	}
	return rule, nil
}

// RegisterProjectionRule installs or replaces the rule for a recurrence.
// It must be called before the projector is used concurrently.
func RegisterProjectionRule(recurrence core.Recurrence, rule ProjectionRule) {
	projectionRules[recurrence] = rule
}
