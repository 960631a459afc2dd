package stats

import (
	"fmt"
	"sort"
)

// MortalityRates computes, for each bracket of the partition, the deaths
// recorded during period divided by the population of
// period.PopulationYear. Brackets without deaths get a zero rate. A
// population that does not cover every bracket of the partition, or a
// bracket with zero population, is a DataMismatchError.
func MortalityRates(period Period, mortality []MortalityRecord, population []PopulationRecord, brackets Brackets) (RateSet, error) {
	var ofYear []PopulationRecord
	for _, p := range population {
		if p.Year == period.PopulationYear {
			ofYear = append(ofYear, p)
		}
	}
	if len(ofYear) == 0 {
		return RateSet{}, &DataMismatchError{
			Dataset: period.Key,
			Reason:  fmt.Sprintf("no population records for year %d", period.PopulationYear),
		}
	}

	pop := make(map[AgeBracket]int64)
	for _, p := range PopulationByBracket(ofYear, brackets) {
		pop[p.Bracket] = p.Population
	}

	var uncovered []AgeBracket
	for _, br := range brackets.All() {
		if _, ok := pop[br]; !ok {
			uncovered = append(uncovered, br)
		}
	}
	if len(uncovered) > 0 {
		return RateSet{}, &DataMismatchError{
			Dataset:  period.Key,
			Reason:   fmt.Sprintf("the %d population does not cover the age partition", period.PopulationYear),
			Brackets: uncovered,
		}
	}

	deaths := DeathsByBracket(period, mortality, brackets)

	var empty []AgeBracket
	set := RateSet{Period: period}
	for br, n := range pop {
		if n == 0 {
			empty = append(empty, br)
			continue
		}
		d := deaths[br]
		set.Rates = append(set.Rates, AggregatedRate{
			Period:     period.Key,
			Bracket:    br,
			Deaths:     d,
			Population: n,
			Rate:       float64(d) / float64(n),
		})
	}
	if len(empty) > 0 {
		sortBrackets(empty)
		return RateSet{}, &DataMismatchError{
			Dataset:  period.Key,
			Reason:   fmt.Sprintf("zero population in %d", period.PopulationYear),
			Brackets: empty,
		}
	}

	sort.Slice(set.Rates, func(i, j int) bool { return set.Rates[i].Bracket < set.Rates[j].Bracket })
	return set, nil
}

// DeathsByBracket sums the deaths recorded during period per bracket.
func DeathsByBracket(period Period, mortality []MortalityRecord, brackets Brackets) map[AgeBracket]int64 {
	res := make(map[AgeBracket]int64)
	for _, m := range mortality {
		if !period.Contains(m.Date) {
			continue
		}
		res[brackets.Of(int(m.Bracket))] += m.Deaths
	}
	return res
}

// DeathsByDay counts deaths for every day of period, days without a
// record included.
func DeathsByDay(period Period, mortality []MortalityRecord) []DailyDeaths {
	perDay := make(map[string]int64)
	for _, m := range mortality {
		if period.Contains(m.Date) {
			perDay[m.Date.Format(DateLayout)] += m.Deaths
		}
	}

	dates := period.Dates()
	res := make([]DailyDeaths, len(dates))
	for i, d := range dates {
		res[i] = DailyDeaths{Day: i, Date: d, Deaths: perDay[d.Format(DateLayout)]}
	}
	return res
}

func sortBrackets(b []AgeBracket) {
	sort.Slice(b, func(i, j int) bool { return b[i] < b[j] })
}
