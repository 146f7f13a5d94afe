package usage

import (
	"testing"
	"time"
)

func TestRecord_EffectiveCount(t *testing.T) {
	tests := []struct {
		name  string
		rec   Record
		today string
		want  int64
	}{
		{"same day", Record{Date: "2025-11-11", Count: 42}, "2025-11-11", 42},
		{"previous day resets", Record{Date: "2025-11-10", Count: 999}, "2025-11-11", 0},
		{"empty record", Record{}, "2025-11-11", 0},
		{"negative count clamps", Record{Date: "2025-11-11", Count: -3}, "2025-11-11", 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.rec.EffectiveCount(tc.today); got != tc.want {
				t.Errorf("EffectiveCount() = %d, want %d", got, tc.want)
			}
		})
	}
}

func TestRecord_Increment(t *testing.T) {
	next := Record{Date: "2025-11-10", Count: 999}.Increment("2025-11-11")
	if next.Date != "2025-11-11" || next.Count != 1 {
		t.Errorf("increment across rollover = %+v, want {2025-11-11 1}", next)
	}

	next = Record{Date: "2025-11-11", Count: 5}.Increment("2025-11-11")
	if next.Count != 6 {
		t.Errorf("same-day increment = %d, want 6", next.Count)
	}
}

func TestCalendar_TodayUsesLocation(t *testing.T) {
	// 2025-11-11 03:00 UTC is still 2025-11-10 in Los Angeles.
	now := func() time.Time { return time.Date(2025, 11, 11, 3, 0, 0, 0, time.UTC) }

	if got := NewCalendar(nil, now).Today(); got != "2025-11-11" {
		t.Errorf("UTC today = %s", got)
	}

	la, err := time.LoadLocation("America/Los_Angeles")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	if got := NewCalendar(la, now).Today(); got != "2025-11-10" {
		t.Errorf("LA today = %s", got)
	}
}

func TestCalendar_NextReset(t *testing.T) {
	now := func() time.Time { return time.Date(2025, 12, 31, 23, 59, 0, 0, time.UTC) }
	got := NewCalendar(time.UTC, now).NextReset()
	want := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("NextReset() = %v, want %v", got, want)
	}
}

func TestSnapshot_Remaining(t *testing.T) {
	tests := []struct {
		current, limit, want int64
	}{
		{0, 1000, 1000},
		{1, 1000, 999},
		{1000, 1000, 0},
		{1003, 1000, 0},
	}
	for _, tc := range tests {
		s := NewSnapshot(tc.current, tc.limit, "2025-11-11", time.Time{})
		if s.Remaining() != tc.want {
			t.Errorf("Remaining(%d/%d) = %d, want %d", tc.current, tc.limit, s.Remaining(), tc.want)
		}
		if s.Exhausted() != (tc.want == 0) {
			t.Errorf("Exhausted(%d/%d) = %v", tc.current, tc.limit, s.Exhausted())
		}
	}
}
