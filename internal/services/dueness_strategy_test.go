package services

import (
	"testing"
	"time"

	"finanzas/internal/core"
)

func TestIntervalChecker_IsDue(t *testing.T) {
	now := time.Date(2024, 2, 20, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		months int
		latest time.Time
		want   bool
	}{
		{
			name:   "never materialized - is due",
			months: 1,
			latest: time.Time{},
			want:   true,
		},
		{
			name:   "monthly, next due this month",
			months: 1,
			latest: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			want:   true,
		},
		{
			name:   "monthly, next due next month",
			months: 1,
			latest: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			want:   false,
		},
		{
			name:   "quarterly, too early",
			months: 3,
			latest: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			want:   false,
		},
		{
			name:   "semi-annual, lands in february",
			months: 6,
			latest: time.Date(2023, 8, 31, 0, 0, 0, 0, time.UTC),
			want:   true,
		},
		{
			name:   "annual, lands in february",
			months: 12,
			latest: time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC),
			want:   true,
		},
		{
			name:   "monthly, period already missed",
			months: 1,
			latest: time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC),
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntervalChecker{Months: tt.months}.IsDue(tt.latest, now)
			if got != tt.want {
				t.Errorf("IntervalChecker.IsDue() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetDuenessChecker(t *testing.T) {
	tests := []struct {
		freq    core.Frequency
		months  int
		wantErr bool
	}{
		{core.SemiAnnual, 6, false},
		{core.Quarterly, 3, false},
		{core.Monthly, 1, false},
		{core.Annual, 12, false},
		{core.Unique, 0, true},
		{core.Frequency("x"), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.freq.String(), func(t *testing.T) {
			checker, err := GetDuenessChecker(tt.freq)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetDuenessChecker() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			ic, ok := checker.(IntervalChecker)
			if !ok || ic.Months != tt.months {
				t.Errorf("GetDuenessChecker() = %#v, want IntervalChecker{%d}", checker, tt.months)
			}
		})
	}
}

type alwaysDue struct{}

func (alwaysDue) IsDue(_, _ time.Time) bool { return true }

func TestRegisterDuenessChecker(t *testing.T) {
	custom := core.Frequency("9")
	RegisterDuenessChecker(custom, alwaysDue{})
	t.Cleanup(func() { delete(duenessStrategies, custom) })

	checker, err := GetDuenessChecker(custom)
	if err != nil {
		t.Fatalf("GetDuenessChecker() error = %v", err)
	}
	if !checker.IsDue(time.Now(), time.Now()) {
		t.Error("custom checker should report due")
	}
}
