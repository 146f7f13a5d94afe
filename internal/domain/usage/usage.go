// Package usage holds the daily usage counter model shared by the quota gate and the reporter.
package usage

import "time"

// DayLayout is the canonical day format stored in a Record.
const DayLayout = "2006-01-02"

// Record is the persisted daily counter. Count is only meaningful for Date.
type Record struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// EffectiveCount returns the count that applies to today.
// A record from another day is logically reset to zero.
func (r Record) EffectiveCount(today string) int64 {
	if r.Date != today || r.Count < 0 {
		return 0
	}
	return r.Count
}

// Increment returns the record for today after one more counted request.
func (r Record) Increment(today string) Record {
	return Record{Date: today, Count: r.EffectiveCount(today) + 1}
}

// Stored is a Record as loaded from the store.
// Revision is the raw stored encoding, used as the expected value for compare-and-swap.
type Stored struct {
	Record
	Exists   bool
	Revision []byte
}

// Calendar computes "today" in a fixed reference timezone.
type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// NewCalendar creates a Calendar. nil loc means UTC, nil now means time.Now.
func NewCalendar(loc *time.Location, now func() time.Time) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	return Calendar{loc: loc, now: now}
}

// Today returns the current day in the reference timezone.
func (c Calendar) Today() string {
	return c.now().In(c.loc).Format(DayLayout)
}

// NextReset returns the next midnight in the reference timezone.
func (c Calendar) NextReset() time.Time {
	t := c.now().In(c.loc)
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, c.loc)
}

// IsZero reports whether the Calendar was never initialized.
func (c Calendar) IsZero() bool { return c.now == nil }

// Snapshot is a read of today's usage against the limit.
type Snapshot struct {
	current   int64
	limit     int64
	resetDate string
	resetsAt  time.Time
}

// NewSnapshot creates a Snapshot.
func NewSnapshot(current, limit int64, resetDate string, resetsAt time.Time) Snapshot {
	return Snapshot{
		current:   current,
		limit:     limit,
		resetDate: resetDate,
		resetsAt:  resetsAt,
	}
}

// Current returns requests counted today.
func (s Snapshot) Current() int64 { return s.current }

// Limit returns the daily cap.
func (s Snapshot) Limit() int64 { return s.limit }

// Remaining returns max(0, limit-current).
func (s Snapshot) Remaining() int64 {
	if r := s.limit - s.current; r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether no requests are left today.
func (s Snapshot) Exhausted() bool { return s.current >= s.limit }

// ResetDate returns the day the counter belongs to.
func (s Snapshot) ResetDate() string { return s.resetDate }

// ResetsAt returns the next midnight in the reference timezone.
func (s Snapshot) ResetsAt() time.Time { return s.resetsAt }
