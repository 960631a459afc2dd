package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBracketsOf(t *testing.T) {
	tests := []struct {
		name     string
		brackets Brackets
		age      int
		want     AgeBracket
	}{
		{"single year", DefaultBrackets, 42, 42},
		{"open bracket", DefaultBrackets, 100, 100},
		{"beyond max", DefaultBrackets, 107, 100},
		{"negative age", DefaultBrackets, -1, 0},
		{"decades", Brackets{Width: 10, Max: 90}, 47, 40},
		{"decades open", Brackets{Width: 10, Max: 90}, 93, 90},
		{"zero width", Brackets{Width: 0, Max: 100}, 12, 12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.brackets.Of(tt.age))
		})
	}
}

func TestBracketsAll(t *testing.T) {
	assert.Equal(t, []AgeBracket{0, 50, 100}, Brackets{Width: 50, Max: 100}.All())
	assert.Equal(t, []AgeBracket{0, 30, 60, 90}, Brackets{Width: 30, Max: 90}.All())
	assert.Len(t, DefaultBrackets.All(), 101)
}

func TestBracketsLabel(t *testing.T) {
	b := Brackets{Width: 10, Max: 95}
	assert.Equal(t, "0-9", b.Label(0))
	assert.Equal(t, "90-94", b.Label(90))
	assert.Equal(t, "95+", b.Label(95))
	assert.Equal(t, "7", DefaultBrackets.Label(7))
	assert.Equal(t, "100+", DefaultBrackets.Label(100))
}

func TestBracketsValidate(t *testing.T) {
	assert.NoError(t, DefaultBrackets.Validate())
	assert.Error(t, Brackets{Width: 0, Max: 100}.Validate())
	assert.Error(t, Brackets{Width: 1, Max: 0}.Validate())
}

func TestAgeAtDeath(t *testing.T) {
	d := Death{
		BirthDate: time.Date(1940, 6, 15, 0, 0, 0, 0, time.UTC),
		DeathDate: time.Date(2020, 4, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 79, d.AgeAtDeath())

	d.DeathDate = time.Date(2020, 6, 16, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 80, d.AgeAtDeath())
}

func TestRateSetGet(t *testing.T) {
	s := RateSet{Rates: []AggregatedRate{{Bracket: 0, Rate: 0.1}, {Bracket: 50, Rate: 0.2}}}

	r, ok := s.Get(50)
	assert.True(t, ok)
	assert.Equal(t, 0.2, r.Rate)

	_, ok = s.Get(100)
	assert.False(t, ok)
}
