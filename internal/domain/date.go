package domain

import (
	"time"

	"taxfolio/internal/errs"
)

// CivilDateFormat is the wire format for day-granular dates.
const CivilDateFormat = "2006-01-02"

// london is the civil calendar all day-level rules are computed in. HMRC
// share matching works on UK civil days, not UTC days.
var london *time.Location

func init() {
	loc, err := time.LoadLocation("Europe/London")
	if err != nil {
		panic("load Europe/London: " + err.Error())
	}
	london = loc
}

// CivilDate is a calendar day with no time-of-day component.
type CivilDate struct {
	Year  int
	Month time.Month
	Day   int
}

// NewCivilDate returns a normalized CivilDate.
func NewCivilDate(year int, month time.Month, day int) CivilDate {
	y, m, d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC).Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// CivilDateOf returns the London civil day containing t.
func CivilDateOf(t time.Time) CivilDate {
	y, m, d := t.In(london).Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// CivilDateOfMillis returns the London civil day containing the UTC millisecond instant.
func CivilDateOfMillis(ms int64) CivilDate {
	return CivilDateOf(time.UnixMilli(ms))
}

// ParseCivilDate parses a YYYY-MM-DD date.
func ParseCivilDate(s string) (CivilDate, error) {
	t, err := time.Parse(CivilDateFormat, s)
	if err != nil {
		return CivilDate{}, errs.Validation("invalid date %q, want YYYY-MM-DD", s)
	}
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}, nil
}

// String formats the date as YYYY-MM-DD.
func (d CivilDate) String() string { return d.canonical().Format(CivilDateFormat) }

// IsZero reports whether the date is the zero value.
func (d CivilDate) IsZero() bool { return d.Year == 0 && d.Month == 0 && d.Day == 0 }

// canonical is midnight UTC of that calendar day, used only for day arithmetic.
func (d CivilDate) canonical() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// DaysUntil returns the number of civil days from d to x (negative when x is earlier).
func (d CivilDate) DaysUntil(x CivilDate) int {
	return int(x.canonical().Sub(d.canonical()) / (24 * time.Hour))
}

// Add returns the date i days later.
func (d CivilDate) Add(i int) CivilDate {
	return NewCivilDate(d.Year, d.Month, d.Day+i)
}

// Before reports whether d is an earlier day than x.
func (d CivilDate) Before(x CivilDate) bool { return d.canonical().Before(x.canonical()) }

// After reports whether d is a later day than x.
func (d CivilDate) After(x CivilDate) bool { return d.canonical().After(x.canonical()) }

// StartMillis is the first UTC millisecond of the day in London time.
func (d CivilDate) StartMillis() int64 {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, london).UnixMilli()
}

// EndMillis is the last UTC millisecond of the day in London time.
func (d CivilDate) EndMillis() int64 {
	return time.Date(d.Year, d.Month, d.Day+1, 0, 0, 0, 0, london).UnixMilli() - 1
}
