package chart

import (
	"fmt"

	"github.com/anrid/france-mortality/pkg/stats"
)

// Output file names written to the results directory.
const (
	MortalityRateFile = "mortality_rate_by_age.png"
	DeathsByDateFile  = "deaths_by_date.png"
	PopulationFile    = "population_by_age.png"
)

// MortalityRateByAge plots the rate of every compared period per bracket.
func MortalityRateByAge(cmp *stats.Comparison, width, height int) *LineChart {
	c := &LineChart{
		Title:  "Mortality rate by age",
		XLabel: "Age",
		YLabel: "Deaths / population",
		Width:  width,
		Height: height,
	}
	for i, p := range cmp.Periods {
		s := Series{Label: p.Title()}
		for _, row := range cmp.Rows {
			s.Points = append(s.Points, Point{X: float64(row.Bracket), Y: row.Rates[i].Rate})
		}
		c.Series = append(c.Series, s)
	}
	return c
}

// DeathsByDate overlays the daily deaths of each period, aligned on the
// first day of the period. daily is aligned with periods.
func DeathsByDate(periods []stats.Period, daily [][]stats.DailyDeaths, width, height int) *LineChart {
	c := &LineChart{
		Title:  "Deaths by date",
		XLabel: "Days since period start",
		YLabel: "Deaths",
		Width:  width,
		Height: height,
	}
	for i, p := range periods {
		s := Series{Label: p.Title()}
		for _, d := range daily[i] {
			s.Points = append(s.Points, Point{X: float64(d.Day), Y: float64(d.Deaths)})
		}
		c.Series = append(c.Series, s)
	}
	return c
}

// PopulationByAge plots one age pyramid per year; pyramids must be sorted
// by year, each ordered by bracket.
func PopulationByAge(pyramids [][]stats.PopulationRecord, width, height int) *LineChart {
	c := &LineChart{
		Title:  "Population by age",
		XLabel: "Age",
		YLabel: "Population",
		Width:  width,
		Height: height,
	}
	for _, recs := range pyramids {
		if len(recs) == 0 {
			continue
		}
		s := Series{Label: fmt.Sprintf("%d", recs[0].Year)}
		for _, r := range recs {
			s.Points = append(s.Points, Point{X: float64(r.Bracket), Y: float64(r.Population)})
		}
		c.Series = append(c.Series, s)
	}
	return c
}
