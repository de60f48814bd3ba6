package core

import (
	"testing"
	"time"
)

func TestAddMonths(t *testing.T) {
	// Short months clamp to their last day. Overflow arithmetic (time.AddDate)
	// would roll Jan 31 + 1 month into Mar 2 and skip February entirely.
	tests := []struct {
		name string
		in   time.Time
		n    int
		want time.Time
	}{
		{"leap february clamps instead of overflowing to Mar 2", time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC)},
		{"february clamps instead of overflowing to Mar 3", time.Date(2023, 1, 31, 0, 0, 0, 0, time.UTC), 1, time.Date(2023, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"quarter keeps day and clock", time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC), 3, time.Date(2024, 6, 15, 9, 30, 0, 0, time.UTC)},
		{"half year across new year clamps", time.Date(2024, 8, 31, 0, 0, 0, 0, time.UTC), 6, time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)},
		{"full year", time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC), 12, time.Date(2025, 12, 10, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AddMonths(tt.in, tt.n); !got.Equal(tt.want) {
				t.Errorf("AddMonths(%v, %d) = %v, want %v", tt.in, tt.n, got, tt.want)
			}
			if tt.in.Day() > 28 && tt.in.AddDate(0, tt.n, 0).Equal(tt.want) {
				t.Errorf("AddMonths(%v, %d) matches overflow arithmetic", tt.in, tt.n)
			}
		})
	}
}

func TestMonthWindow(t *testing.T) {
	w := MonthOf(time.Date(2024, 2, 10, 15, 0, 0, 0, time.UTC))
	if !w.Start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Start = %v", w.Start)
	}
	if !w.End.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("End = %v", w.End)
	}
	if !w.Contains(w.Start) {
		t.Error("window should contain its start")
	}
	if w.Contains(w.End) {
		t.Error("window should not contain its end")
	}
	if !w.Contains(time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC)) {
		t.Error("window should contain the last second of the month")
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want Date
		ok   bool
	}{
		{"2024-05-01", NewDate(2024, 5, 1), true},
		{"2024-05-01 10:20:30", NewDate(2024, 5, 1), true},
		{"2024-05-01T10:20:30Z", NewDate(2024, 5, 1), true},
		{"", Date{}, true},
		{"01/05/2024", Date{}, false},
	}
	for _, tt := range tests {
		got, err := ParseDate(tt.in)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseDate(%q) err = %v, want ok=%v", tt.in, err, tt.ok)
		}
		if tt.ok && !got.Equal(tt.want.Time) {
			t.Errorf("ParseDate(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
