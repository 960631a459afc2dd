package stats

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// PyramidLayout locates the age and count columns of an age pyramid
// sheet. Rows and columns are 1-based.
type PyramidLayout struct {
	FirstRow int
	LastRow  int
	AgeCol   int
	CountCol int
}

var (
	// An age cell is a whole number, possibly a float cell like "12.0",
	// optionally followed by the open bracket marker of "100 et +".
	agePattern = regexp.MustCompile(`^(\d+)(?:\.0+)?\s*(?:et\s*\+|\+|et plus)?$`)
	// Counts grouped with dots, as in "1.234.567".
	dotPattern = regexp.MustCompile(`^\d{1,3}(?:\.\d{3})+$`)
)

// ReadPopulation reads the age pyramid of year from a XLS or XLSX file.
func ReadPopulation(dataset, path string, year int, layout PyramidLayout) ([]PopulationRecord, error) {
	var res []PopulationRecord
	err := ExtractDataFromFile(path, func(row int, cols []string) error {
		if row < layout.FirstRow || row > layout.LastRow {
			return nil
		}
		rec, perr := ParsePopulationRow(dataset, row, year, cols, layout)
		if perr != nil {
			return perr
		}
		res = append(res, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if want := layout.LastRow - layout.FirstRow + 1; len(res) != want {
		return nil, &ParseError{
			Dataset: dataset,
			Line:    layout.FirstRow + len(res),
			Field:   "row",
			Reason:  "sheet ends before the last pyramid row " + strconv.Itoa(layout.LastRow),
		}
	}
	return res, nil
}

// ParsePopulationRow reads the age and the population count of one row.
// The open bracket "100 et +" reads as 100.
func ParsePopulationRow(dataset string, row, year int, cols []string, layout PyramidLayout) (PopulationRecord, *ParseError) {
	fail := func(field, value, reason string) *ParseError {
		return &ParseError{Dataset: dataset, Line: row, Field: field, Value: value, Reason: reason}
	}

	rawAge := cell(cols, layout.AgeCol)
	if rawAge == "" {
		return PopulationRecord{}, fail("age", rawAge, "missing age")
	}
	m := agePattern.FindStringSubmatch(rawAge)
	if m == nil {
		return PopulationRecord{}, fail("age", rawAge, "negative or malformed age")
	}
	age, err := strconv.Atoi(m[1])
	if err != nil {
		return PopulationRecord{}, fail("age", rawAge, "age out of range")
	}

	rawCount := cell(cols, layout.CountCol)
	count, reason := parseCount(rawCount)
	if reason != "" {
		return PopulationRecord{}, fail("population", rawCount, reason)
	}

	return PopulationRecord{Year: year, Bracket: AgeBracket(age), Population: count}, nil
}

func cell(cols []string, col int) string {
	if col < 1 || col > len(cols) {
		return ""
	}
	return strings.TrimSpace(cols[col-1])
}

// parseCount reads a non-negative whole count, ignoring thousands
// separators. A dot is a separator only when every group after it has
// three digits. It returns a reason when the value is unusable.
func parseCount(v string) (int64, string) {
	v = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "", ",", "").Replace(v)
	if dotPattern.MatchString(v) {
		v = strings.ReplaceAll(v, ".", "")
	}
	if v == "" {
		return 0, "missing count"
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, "non-numeric count"
	}
	if f < 0 {
		return 0, "negative count"
	}
	if f != math.Trunc(f) {
		return 0, "fractional count"
	}
	return int64(f), ""
}

// PopulationByBracket sums population records into the partition. The
// result is ordered by bracket.
func PopulationByBracket(recs []PopulationRecord, brackets Brackets) []PopulationRecord {
	type key struct {
		year    int
		bracket AgeBracket
	}
	sums := make(map[key]int64)
	for _, r := range recs {
		sums[key{r.Year, brackets.Of(int(r.Bracket))}] += r.Population
	}

	res := make([]PopulationRecord, 0, len(sums))
	for k, n := range sums {
		res = append(res, PopulationRecord{Year: k.year, Bracket: k.bracket, Population: n})
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Year != res[j].Year {
			return res[i].Year < res[j].Year
		}
		return res[i].Bracket < res[j].Bracket
	})
	return res
}
