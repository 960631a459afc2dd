package stats

import (
	"fmt"
	"math"
	"strings"
)

// Comparison aligns the rate sets of several periods bracket by bracket.
// Periods[0] is the baseline.
type Comparison struct {
	Periods []Period
	Rows    []ComparisonRow
}

// ComparisonRow holds one bracket; Rates is aligned with Comparison.Periods.
type ComparisonRow struct {
	Bracket AgeBracket
	Rates   []AggregatedRate
}

// RateRatio is the rate of period i over the baseline rate, NaN when the
// baseline saw no deaths.
func (r ComparisonRow) RateRatio(i int) float64 {
	base := r.Rates[0].Rate
	if base == 0 {
		return math.NaN()
	}
	return r.Rates[i].Rate / base
}

// ExpectedDeaths applies the baseline rate to the population of period i,
// which corrects for the age structure having changed between periods.
func (r ComparisonRow) ExpectedDeaths(i int) float64 {
	return r.Rates[0].Rate * float64(r.Rates[i].Population)
}

// ExcessDeaths is observed minus expected deaths for period i.
func (r ComparisonRow) ExcessDeaths(i int) float64 {
	return float64(r.Rates[i].Deaths) - r.ExpectedDeaths(i)
}

// Compare joins a baseline rate set with the others. Every bracket must
// be present in every set; missing ones are reported as a
// DataMismatchError, never dropped.
func Compare(baseline RateSet, others ...RateSet) (*Comparison, error) {
	if len(others) == 0 {
		return nil, &DataMismatchError{Dataset: baseline.Period.Key, Reason: "nothing to compare the baseline with"}
	}

	sets := append([]RateSet{baseline}, others...)
	index := make([]map[AgeBracket]AggregatedRate, len(sets))
	union := make(map[AgeBracket]bool)
	for i, s := range sets {
		index[i] = make(map[AgeBracket]AggregatedRate, len(s.Rates))
		for _, r := range s.Rates {
			index[i][r.Bracket] = r
			union[r.Bracket] = true
		}
	}

	var all []AgeBracket
	for br := range union {
		all = append(all, br)
	}
	sortBrackets(all)
	if len(all) == 0 {
		return nil, &DataMismatchError{Dataset: "comparison", Reason: "no brackets to compare"}
	}

	var problems []string
	var missingAll []AgeBracket
	for i, s := range sets {
		var missing []AgeBracket
		for _, br := range all {
			if _, ok := index[i][br]; !ok {
				missing = append(missing, br)
			}
		}
		if len(missing) > 0 {
			problems = append(problems, fmt.Sprintf("%s lacks %d brackets", s.Period.Key, len(missing)))
			missingAll = append(missingAll, missing...)
		}
	}
	if len(problems) > 0 {
		return nil, &DataMismatchError{
			Dataset:  "comparison",
			Reason:   strings.Join(problems, "; "),
			Brackets: dedupBrackets(missingAll),
		}
	}

	cmp := &Comparison{}
	for _, s := range sets {
		cmp.Periods = append(cmp.Periods, s.Period)
	}
	for _, br := range all {
		row := ComparisonRow{Bracket: br, Rates: make([]AggregatedRate, len(sets))}
		for i := range sets {
			row.Rates[i] = index[i][br]
		}
		cmp.Rows = append(cmp.Rows, row)
	}
	return cmp, nil
}

// ExcessSummary totals a period of a comparison over every bracket.
type ExcessSummary struct {
	Period     Period
	Observed   int64
	Population int64
	Expected   float64
	Excess     float64
	// CrudeRatio compares the all-ages rates, ignoring age structure.
	CrudeRatio float64
	// SMR is observed over expected deaths, the age-standardized ratio.
	SMR float64
}

// Summary totals period i against the baseline.
func (c *Comparison) Summary(i int) ExcessSummary {
	s := ExcessSummary{Period: c.Periods[i]}
	var baseDeaths, basePop int64
	for _, row := range c.Rows {
		s.Observed += row.Rates[i].Deaths
		s.Population += row.Rates[i].Population
		s.Expected += row.ExpectedDeaths(i)
		baseDeaths += row.Rates[0].Deaths
		basePop += row.Rates[0].Population
	}
	s.Excess = float64(s.Observed) - s.Expected

	s.CrudeRatio = math.NaN()
	if baseDeaths > 0 && s.Population > 0 {
		crude := float64(s.Observed) / float64(s.Population)
		s.CrudeRatio = crude / (float64(baseDeaths) / float64(basePop))
	}
	s.SMR = math.NaN()
	if s.Expected > 0 {
		s.SMR = float64(s.Observed) / s.Expected
	}
	return s
}

func dedupBrackets(b []AgeBracket) []AgeBracket {
	seen := make(map[AgeBracket]bool)
	var res []AgeBracket
	for _, br := range b {
		if !seen[br] {
			seen[br] = true
			res = append(res, br)
		}
	}
	sortBrackets(res)
	return res
}
