// Package program models the fixed-length challenge: the task list, day
// numbering relative to a start date, and navigation bounds.
package program

import (
	"fmt"
	"time"
)

const (
	// Length is the number of days in the program, inclusive of the start day.
	Length = 75

	DateLayout = "2006-01-02"

	// MetaStartDate is the meta key the start date is persisted under.
	MetaStartDate = "startDate"
)

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to its calendar date in t's own location and returns it as
// midnight UTC, so that day arithmetic never crosses a DST boundary.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today returns the current local calendar date.
func Today() time.Time {
	return Day(time.Now())
}

func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DaysBetween returns the number of whole calendar days from a to b
// (negative when b is before a).
func DaysBetween(a, b time.Time) int {
	return int(Day(b).Sub(Day(a)).Hours() / 24)
}

// Program holds the optional start date. The zero value is an unset program
// in which every date is day 1 and navigation is unbounded.
type Program struct {
	start time.Time
	set   bool
}

func New(start time.Time) Program {
	return Program{start: Day(start), set: true}
}

// Parse builds a Program from a stored start date; an empty string yields an
// unset program.
func Parse(startISO string) (Program, error) {
	if startISO == "" {
		return Program{}, nil
	}
	t, err := ParseDate(startISO)
	if err != nil {
		return Program{}, err
	}
	return New(t), nil
}

func (p Program) HasStart() bool { return p.set }

// Start returns the start date and whether it is set.
func (p Program) Start() (time.Time, bool) { return p.start, p.set }

// End returns the last day of the program (start + Length - 1).
func (p Program) End() (time.Time, bool) {
	if !p.set {
		return time.Time{}, false
	}
	return AddDays(p.start, Length-1), true
}

// DayNumber returns the 1-based day of date within the program. Dates before
// the start are clamped to day 1.
func (p Program) DayNumber(date time.Time) int {
	if !p.set {
		return 1
	}
	return max(0, DaysBetween(p.start, date)) + 1
}

func (p Program) CanGoPrev(date time.Time) bool {
	if !p.set {
		return true
	}
	return !AddDays(date, -1).Before(p.start)
}

func (p Program) CanGoNext(date time.Time) bool {
	if !p.set {
		return true
	}
	end, _ := p.End()
	return !AddDays(date, 1).After(end)
}

// Prev returns the previous day, or date itself when that would leave the
// program.
func (p Program) Prev(date time.Time) time.Time {
	if !p.CanGoPrev(date) {
		return Day(date)
	}
	return AddDays(date, -1)
}

// Next returns the following day, or date itself when that would leave the
// program.
func (p Program) Next(date time.Time) time.Time {
	if !p.CanGoNext(date) {
		return Day(date)
	}
	return AddDays(date, 1)
}

// InitialDate picks the day to show on startup: today, unless the program
// has not started yet.
func (p Program) InitialDate(today time.Time) time.Time {
	today = Day(today)
	if p.set && today.Before(p.start) {
		return p.start
	}
	return today
}

// Dates lists every date of the program in order. It is empty when no start
// date is set.
func (p Program) Dates() []time.Time {
	if !p.set {
		return nil
	}
	dates := make([]time.Time, 0, Length)
	for i := 0; i < Length; i++ {
		dates = append(dates, AddDays(p.start, i))
	}
	return dates
}

// MetaStore is the subset of the local cache that stores singleton values.
type MetaStore interface {
	GetMeta(key string) (string, bool, error)
	SetMeta(key, value string) error
}

// Load reads the persisted program from the meta store.
func Load(m MetaStore) (Program, error) {
	v, ok, err := m.GetMeta(MetaStartDate)
	if err != nil {
		return Program{}, fmt.Errorf("load start date: %w", err)
	}
	if !ok {
		return Program{}, nil
	}
	return Parse(v)
}

// SaveStart persists a new start date. Stored entries are left untouched.
func SaveStart(m MetaStore, start time.Time) (Program, error) {
	p := New(start)
	if err := m.SetMeta(MetaStartDate, FormatDate(p.start)); err != nil {
		return Program{}, fmt.Errorf("save start date: %w", err)
	}
	return p, nil
}
