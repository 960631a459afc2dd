package stats

import (
	"fmt"
	"time"
)

const DateLayout = "2006-01-02"

// Period is a date range, both ends included, whose deaths are compared
// against the age pyramid of PopulationYear.
type Period struct {
	Key            string
	Label          string
	Start          time.Time
	End            time.Time
	PopulationYear int
	Baseline       bool
}

func NewPeriod(key, label, start, end string, populationYear int) (Period, error) {
	s, err := time.Parse(DateLayout, start)
	if err != nil {
		return Period{}, fmt.Errorf("period %s: bad start date %q: %w", key, start, err)
	}
	e, err := time.Parse(DateLayout, end)
	if err != nil {
		return Period{}, fmt.Errorf("period %s: bad end date %q: %w", key, end, err)
	}
	if e.Before(s) {
		return Period{}, fmt.Errorf("period %s: end %s is before start %s", key, end, start)
	}
	return Period{
		Key:            key,
		Label:          label,
		Start:          s,
		End:            e,
		PopulationYear: populationYear,
	}, nil
}

// Contains reports whether t falls on a day of the period.
func (p Period) Contains(t time.Time) bool {
	d := truncateDay(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days is the number of calendar days in the period.
func (p Period) Days() int {
	return int(p.End.Sub(p.Start).Hours()/24) + 1
}

// Dates lists each day of the period.
func (p Period) Dates() []time.Time {
	res := make([]time.Time, 0, p.Days())
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		res = append(res, d)
	}
	return res
}

// Title is the legend used on charts, e.g. "Flu 2016/2017 (2017-01-01 to 2017-02-01)".
func (p Period) Title() string {
	return fmt.Sprintf("%s (%s to %s)", p.Label, p.Start.Format(DateLayout), p.End.Format(DateLayout))
}

// CheckSameDuration fails unless every period spans the same number of days.
func CheckSameDuration(periods []Period) error {
	for _, p := range periods[min(1, len(periods)):] {
		if p.Days() != periods[0].Days() {
			return fmt.Errorf("period %s lasts %d days but %s lasts %d days",
				p.Key, p.Days(), periods[0].Key, periods[0].Days())
		}
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
