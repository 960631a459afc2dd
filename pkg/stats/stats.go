package stats

import (
	"fmt"
	"time"
)

// AgeBracket is the lower bound, in years, of an age bracket.
type AgeBracket int

// Brackets partitions ages into brackets of Width years. Every age at or
// above Max falls in the open bracket Max+.
type Brackets struct {
	Width int
	Max   int
}

// DefaultBrackets are single-year ages with everyone aged 100 or more
// counted together, as in the INSEE age pyramids.
var DefaultBrackets = Brackets{Width: 1, Max: 100}

// Of returns the bracket holding age.
func (b Brackets) Of(age int) AgeBracket {
	if age >= b.Max {
		return AgeBracket(b.Max)
	}
	if age < 0 {
		age = 0
	}
	w := b.Width
	if w < 1 {
		w = 1
	}
	return AgeBracket(age - age%w)
}

// All lists every bracket of the partition in ascending order.
func (b Brackets) All() []AgeBracket {
	var res []AgeBracket
	seen := make(map[AgeBracket]bool)
	for age := 0; age <= b.Max; age++ {
		br := b.Of(age)
		if !seen[br] {
			seen[br] = true
			res = append(res, br)
		}
	}
	return res
}

// Label renders a bracket for charts and tables.
func (b Brackets) Label(br AgeBracket) string {
	lo := int(br)
	if lo >= b.Max {
		return fmt.Sprintf("%d+", b.Max)
	}
	hi := lo + b.Width - 1
	if hi >= b.Max {
		hi = b.Max - 1
	}
	if b.Width <= 1 || hi == lo {
		return fmt.Sprintf("%d", lo)
	}
	return fmt.Sprintf("%d-%d", lo, hi)
}

func (b Brackets) Validate() error {
	if b.Width < 1 {
		return fmt.Errorf("bracket width must be at least 1, got %d", b.Width)
	}
	if b.Max < 1 {
		return fmt.Errorf("max age must be at least 1, got %d", b.Max)
	}
	return nil
}

type Sex string

const (
	Male   Sex = "M"
	Female Sex = "F"
)

// Death is one row of a death register.
type Death struct {
	Sex       Sex
	BirthDate time.Time
	DeathDate time.Time
}

// AgeAtDeath counts whole years of 365.25 days between birth and death.
func (d Death) AgeAtDeath() int {
	days := d.DeathDate.Sub(d.BirthDate).Hours() / 24
	return int(days / 365.25)
}

type MortalityRecord struct {
	Date    time.Time
	Bracket AgeBracket
	Deaths  int64
}

type PopulationRecord struct {
	Year       int
	Bracket    AgeBracket
	Population int64
}

// AggregatedRate is the mortality rate of one bracket over one period.
type AggregatedRate struct {
	Period     string
	Bracket    AgeBracket
	Deaths     int64
	Population int64
	Rate       float64
}

// RateSet holds the rates of one period, ordered by bracket.
type RateSet struct {
	Period Period
	Rates  []AggregatedRate
}

// Get returns the rate of a bracket.
func (s RateSet) Get(br AgeBracket) (AggregatedRate, bool) {
	for _, r := range s.Rates {
		if r.Bracket == br {
			return r, true
		}
	}
	return AggregatedRate{}, false
}

// DailyDeaths is the death count of one day, Day being the offset from
// the period start.
type DailyDeaths struct {
	Day    int
	Date   time.Time
	Deaths int64
}
