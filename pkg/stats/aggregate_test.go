package stats

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var halfCentury = Brackets{Width: 50, Max: 100}

func pyramid(year int, counts ...int64) []PopulationRecord {
	var res []PopulationRecord
	for i, n := range counts {
		res = append(res, PopulationRecord{Year: year, Bracket: AgeBracket(i * 50), Population: n})
	}
	return res
}

func TestMortalityRatesFormula(t *testing.T) {
	period := mustPeriod(t, "covid", "2020-03-20", "2020-04-20", 2020)
	mortality := []MortalityRecord{
		{Date: date(2020, 3, 25), Bracket: 50, Deaths: 4},
		{Date: date(2020, 4, 1), Bracket: 50, Deaths: 6},
	}

	set, err := MortalityRates(period, mortality, pyramid(2020, 5000, 1000, 200), halfCentury)
	require.NoError(t, err)
	require.Len(t, set.Rates, 3)

	r, ok := set.Get(50)
	require.True(t, ok)
	assert.Equal(t, int64(10), r.Deaths)
	assert.Equal(t, int64(1000), r.Population)
	assert.InDelta(t, 0.01, r.Rate, 1e-12)
	assert.Equal(t, "covid", r.Period)

	r, _ = set.Get(0)
	assert.Equal(t, 0.0, r.Rate)
}

func TestMortalityRatesIgnoresOtherDatesAndYears(t *testing.T) {
	period := mustPeriod(t, "flu", "2017-01-01", "2017-02-01", 2017)
	mortality := []MortalityRecord{
		{Date: date(2016, 12, 31), Bracket: 100, Deaths: 50},
		{Date: date(2017, 1, 10), Bracket: 100, Deaths: 2},
		{Date: date(2017, 2, 2), Bracket: 100, Deaths: 50},
	}
	population := append(pyramid(2017, 10, 10, 100), pyramid(2020, 1, 1, 1)...)

	set, err := MortalityRates(period, mortality, population, halfCentury)
	require.NoError(t, err)

	r, _ := set.Get(100)
	assert.Equal(t, int64(2), r.Deaths)
	assert.InDelta(t, 0.02, r.Rate, 1e-12)
}

func TestMortalityRatesDeterministic(t *testing.T) {
	period := mustPeriod(t, "covid", "2020-03-20", "2020-04-20", 2020)
	var mortality []MortalityRecord
	for d := 0; d < 30; d++ {
		for _, br := range []AgeBracket{0, 50, 100} {
			mortality = append(mortality, MortalityRecord{
				Date:    date(2020, 3, 20).AddDate(0, 0, d),
				Bracket: br,
				Deaths:  int64(d%7) + int64(br),
			})
		}
	}
	pop := pyramid(2020, 30_000_000, 25_000_000, 20_000)

	first, err := MortalityRates(period, mortality, pop, halfCentury)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := MortalityRates(period, mortality, pop, halfCentury)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMortalityRatesZeroPopulation(t *testing.T) {
	period := mustPeriod(t, "covid", "2020-03-20", "2020-04-20", 2020)

	_, err := MortalityRates(period, nil, pyramid(2020, 100, 0, 10), halfCentury)
	var mismatch *DataMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []AgeBracket{50}, mismatch.Brackets)
}

func TestMortalityRatesUncoveredBrackets(t *testing.T) {
	period := mustPeriod(t, "covid", "2020-03-20", "2020-04-20", 2020)
	mortality := []MortalityRecord{{Date: date(2020, 3, 25), Bracket: 100, Deaths: 3}}

	_, err := MortalityRates(period, mortality, pyramid(2020, 100, 100), halfCentury)
	var mismatch *DataMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []AgeBracket{100}, mismatch.Brackets)
	assert.Equal(t, "covid", mismatch.Dataset)
}

func TestMortalityRatesNoPopulationYear(t *testing.T) {
	period := mustPeriod(t, "covid", "2020-03-20", "2020-04-20", 2020)

	_, err := MortalityRates(period, nil, pyramid(2017, 1, 1, 1), halfCentury)
	var mismatch *DataMismatchError
	assert.True(t, errors.As(err, &mismatch))
}

func TestDeathsByDay(t *testing.T) {
	period := mustPeriod(t, "covid", "2020-03-20", "2020-03-23", 2020)
	mortality := []MortalityRecord{
		{Date: date(2020, 3, 19), Bracket: 0, Deaths: 9},
		{Date: date(2020, 3, 20), Bracket: 0, Deaths: 1},
		{Date: date(2020, 3, 20), Bracket: 50, Deaths: 2},
		{Date: date(2020, 3, 22), Bracket: 100, Deaths: 4},
	}

	got := DeathsByDay(period, mortality)
	assert.Equal(t, []DailyDeaths{
		{Day: 0, Date: date(2020, 3, 20), Deaths: 3},
		{Day: 1, Date: date(2020, 3, 21), Deaths: 0},
		{Day: 2, Date: date(2020, 3, 22), Deaths: 4},
		{Day: 3, Date: date(2020, 3, 23), Deaths: 0},
	}, got)
}
