package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCatalog = `
bracket_width: 10
datasets:
  - name: deaths
    kind: deaths
    url: http://localhost/deaths.txt
    file: deaths.txt
    encoding: latin1
  - name: pop-2017
    kind: population
    url: http://localhost/2017.xlsx
    file: 2017.xlsx
    year: 2017
    layout: {first_row: 2, last_row: 4, age_col: 1, count_col: 2}
  - name: pop-2020
    kind: population
    url: http://localhost/2020.xlsx
    file: 2020.xlsx
    year: 2020
    layout: {first_row: 2, last_row: 4, age_col: 1, count_col: 2}
periods:
  - {key: flu, start: "2017-01-01", end: "2017-01-10", population_year: 2017, baseline: true}
  - {key: covid, start: "2020-03-20", end: "2020-03-29", population_year: 2020}
`

func TestDefaultCatalog(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	assert.Equal(t, 100, c.MaxAge)
	assert.Equal(t, 1, c.BracketWidth)
	assert.Len(t, c.DatasetsOfKind(KindDeaths), 2)
	assert.Len(t, c.DatasetsOfKind(KindPopulation), 2)
	require.Len(t, c.Periods, 2)
	assert.True(t, c.Periods[0].Baseline)
	assert.Equal(t, "2020-03-20", c.Periods[1].Start)

	for _, d := range c.DatasetsOfKind(KindPopulation) {
		assert.Equal(t, Layout{FirstRow: 7, LastRow: 107, AgeCol: 2, CountCol: 5}, *d.Layout)
	}
}

func TestLoadCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testCatalog), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxAge, c.MaxAge)
	assert.Equal(t, 10, c.BracketWidth)
	assert.Equal(t, "latin1", c.Datasets[0].Encoding)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestCatalogValidation(t *testing.T) {
	tests := []struct {
		name    string
		old     string
		new     string
		wantErr string
	}{
		{"two baselines", `population_year: 2020}`, `population_year: 2020, baseline: true}`, "exactly one baseline"},
		{"no baseline", `population_year: 2017, baseline: true}`, `population_year: 2017}`, "exactly one baseline"},
		{"unknown kind", `kind: deaths`, `kind: births`, "unknown kind"},
		{"bad encoding", `encoding: latin1`, `encoding: ebcdic`, "unsupported encoding"},
		{"missing population year", `population_year: 2020}`, `population_year: 2019}`, "no population dataset"},
		{"missing end", `, end: "2020-03-29"`, ``, "needs a start and an end"},
		{"duplicate dataset", `name: pop-2020`, `name: pop-2017`, "duplicate dataset"},
		{"bad layout", `{first_row: 2, last_row: 4, age_col: 1, count_col: 2}
  - name: pop-2020`, `{first_row: 5, last_row: 4, age_col: 1, count_col: 2}
  - name: pop-2020`, "bad row range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := strings.Replace(testCatalog, tt.old, tt.new, 1)
			require.NotEqual(t, testCatalog, data)

			_, err := ParseCatalog([]byte(data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
