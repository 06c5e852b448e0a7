package revenue

import (
	"fmt"
	"strings"
	"time"
)

const (
	periodLayout      = "2006-01-02"
	periodMonthLayout = "2006-01"
)

// Period identifies a revenue bucket: one calendar month.
// The zero value is not a valid period; use PeriodFor or ParsePeriod.
type Period struct {
	year  int
	month time.Month
}

// PeriodFor maps a business date to the first-of-month period that contains it.
// The date's own calendar fields are used, so the caller's location decides the month.
// Example: PeriodFor(2025-03-14T22:10:00Z) → 2025-03-01
func PeriodFor(t time.Time) Period {
	return Period{year: t.Year(), month: t.Month()}
}

// ParsePeriod accepts "2025-03" or a first-of-month "2025-03-01".
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Period{}, fmt.Errorf("period must not be empty")
	}

	layout := periodLayout
	if len(s) == len(periodMonthLayout) {
		layout = periodMonthLayout
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return Period{}, fmt.Errorf("invalid period %q: %w", s, err)
	}
	if t.Day() != 1 {
		return Period{}, fmt.Errorf("invalid period %q: must be the first day of a month", s)
	}
	return PeriodFor(t), nil
}

// MustParsePeriod is ParsePeriod for literals; it panics on bad input.
func MustParsePeriod(s string) Period {
	p, err := ParsePeriod(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Time returns the period start at midnight UTC.
func (p Period) Time() time.Time {
	return time.Date(p.year, p.month, 1, 0, 0, 0, 0, time.UTC)
}

func (p Period) Year() int           { return p.year }
func (p Period) Month() time.Month   { return p.month }
func (p Period) IsZero() bool        { return p.year == 0 && p.month == 0 }
func (p Period) Next() Period        { return PeriodFor(p.Time().AddDate(0, 1, 0)) }
func (p Period) Equal(o Period) bool { return p == o }

// Before orders periods chronologically. Bucket locks are taken in this order.
func (p Period) Before(o Period) bool {
	if p.year != o.year {
		return p.year < o.year
	}
	return p.month < o.month
}

func (p Period) String() string {
	if p.IsZero() {
		return ""
	}
	return p.Time().Format(periodLayout)
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
