package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/anrid/france-mortality/pkg/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "db", "mortality.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	assert.Error(t, err)
}

func TestMortalityBetween(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.InsertMortality(ctx, "deces-2020", []stats.MortalityRecord{
		{Date: day(2020, 3, 19), Bracket: 80, Deaths: 7},
		{Date: day(2020, 3, 20), Bracket: 80, Deaths: 2},
		{Date: day(2020, 3, 20), Bracket: 10, Deaths: 1},
		{Date: day(2020, 4, 20), Bracket: 80, Deaths: 3},
	}))
	// A death registered in a later file is summed with the others.
	require.NoError(t, s.InsertMortality(ctx, "deces-2021", []stats.MortalityRecord{
		{Date: day(2020, 3, 20), Bracket: 80, Deaths: 5},
	}))

	got, err := s.MortalityBetween(ctx, day(2020, 3, 20), day(2020, 4, 20))
	require.NoError(t, err)
	assert.Equal(t, []stats.MortalityRecord{
		{Date: day(2020, 3, 20), Bracket: 10, Deaths: 1},
		{Date: day(2020, 3, 20), Bracket: 80, Deaths: 7},
		{Date: day(2020, 4, 20), Bracket: 80, Deaths: 3},
	}, got)
}

func TestPopulation(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	require.NoError(t, s.InsertPopulation(ctx, "pyramide-2017", []stats.PopulationRecord{
		{Year: 2017, Bracket: 1, Population: 700},
		{Year: 2017, Bracket: 0, Population: 800},
	}))
	require.NoError(t, s.InsertPopulation(ctx, "pyramide-2020", []stats.PopulationRecord{
		{Year: 2020, Bracket: 0, Population: 750},
	}))

	got, err := s.Population(ctx, 2017)
	require.NoError(t, err)
	assert.Equal(t, []stats.PopulationRecord{
		{Year: 2017, Bracket: 0, Population: 800},
		{Year: 2017, Bracket: 1, Population: 700},
	}, got)

	got, err = s.Population(ctx, 2019)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestImportsAndReset(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	created := time.Date(2020, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, s.RecordImport(ctx, Import{RunID: "run-1", Dataset: "deces-2020", Rows: 100, Rejected: 2, CreatedAt: created}))
	require.NoError(t, s.RecordImport(ctx, Import{RunID: "run-1", Dataset: "deces-2017", Rows: 90, CreatedAt: created}))
	require.NoError(t, s.InsertPopulation(ctx, "pyramide-2020", []stats.PopulationRecord{{Year: 2020, Population: 1}}))

	imports, err := s.Imports(ctx)
	require.NoError(t, err)
	assert.Equal(t, []Import{
		{RunID: "run-1", Dataset: "deces-2017", Rows: 90, CreatedAt: created},
		{RunID: "run-1", Dataset: "deces-2020", Rows: 100, Rejected: 2, CreatedAt: created},
	}, imports)

	require.NoError(t, s.Reset(ctx))

	imports, err = s.Imports(ctx)
	require.NoError(t, err)
	assert.Empty(t, imports)
	pop, err := s.Population(ctx, 2020)
	require.NoError(t, err)
	assert.Empty(t, pop)
}

func TestReopenKeepsRecords(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mortality.sqlite")

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.InsertPopulation(ctx, "pyramide-2020", []stats.PopulationRecord{{Year: 2020, Bracket: 5, Population: 42}}))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	pop, err := s.Population(ctx, 2020)
	require.NoError(t, err)
	assert.Equal(t, []stats.PopulationRecord{{Year: 2020, Bracket: 5, Population: 42}}, pop)
}
