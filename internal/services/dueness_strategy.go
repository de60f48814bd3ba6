// Package services holds the business logic: recurring item generation,
// item and task status transitions, and owner-scoped definition management.
package services

import (
	"fmt"
	"time"

	"finanzas/internal/core"
)

// DuenessChecker decides whether a definition needs a new item in the
// month containing now, given the payment date of its latest item.
type DuenessChecker interface {
	IsDue(latest, now time.Time) bool
}

// IntervalChecker is due when latest + Months lands in the current month.
// A zero latest means nothing was ever materialized, which is always due.
type IntervalChecker struct {
	Months int
}

func (c IntervalChecker) IsDue(latest, now time.Time) bool {
	if latest.IsZero() {
		return true
	}
	next := core.AddMonths(latest, c.Months)
	return core.MonthOf(now).Contains(next)
}

// Unique is deliberately absent: it has no interval.
var duenessStrategies = map[core.Frequency]DuenessChecker{
	core.SemiAnnual: IntervalChecker{Months: core.SemiAnnual.MonthsFor()},
	core.Quarterly:  IntervalChecker{Months: core.Quarterly.MonthsFor()},
	core.Monthly:    IntervalChecker{Months: core.Monthly.MonthsFor()},
	core.Annual:     IntervalChecker{Months: core.Annual.MonthsFor()},
}

// GetDuenessChecker returns the checker for a frequency.
func GetDuenessChecker(f core.Frequency) (DuenessChecker, error) {
	checker, ok := duenessStrategies[f]
	if !ok {
		return nil, fmt.Errorf("no recurring schedule for frequency %s", f)
	}
	return checker, nil
}

// RegisterDuenessChecker installs or replaces the checker for a frequency.
// Not safe for use while a Generator is running.
func RegisterDuenessChecker(f core.Frequency, checker DuenessChecker) {
	duenessStrategies[f] = checker
}
