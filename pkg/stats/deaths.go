package stats

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"
)

// Column positions of the INSEE death register, counted in characters.
const (
	sexCol         = 80
	birthDateStart = 81
	birthDateEnd   = 89
	deathDateStart = 154
	deathDateEnd   = 162
)

// DeathsReport summarizes the reading of a death register.
type DeathsReport struct {
	Dataset  string
	Lines    int
	Parsed   int
	Rejected []*ParseError
}

// RejectRatio is the share of non-empty lines that could not be parsed.
func (r DeathsReport) RejectRatio() float64 {
	if r.Lines == 0 {
		return 0
	}
	return float64(len(r.Rejected)) / float64(r.Lines)
}

// DeathsReader reads fixed-width INSEE death registers.
type DeathsReader struct {
	Dataset string
	// Encoding is "utf-8" (default) or "latin1".
	Encoding string
	// MaxRejectRatio is the share of malformed lines tolerated before the
	// read fails. Zero rejects any malformed line.
	MaxRejectRatio float64
}

// Read parses every line of r. Malformed lines are collected in the
// report; once they exceed MaxRejectRatio the first one is returned.
func (dr DeathsReader) Read(r io.Reader) ([]Death, DeathsReport, error) {
	report := DeathsReport{Dataset: dr.Dataset}

	switch strings.ToLower(dr.Encoding) {
	case "latin1", "iso-8859-1":
		r = transform.NewReader(r, charmap.ISO8859_1.NewDecoder())
	}

	var res []Death
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	num := 0
	for sc.Scan() {
		num++
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		report.Lines++

		d, perr := ParseDeathLine(dr.Dataset, num, line)
		if perr != nil {
			report.Rejected = append(report.Rejected, perr)
			if dr.MaxRejectRatio == 0 {
				return nil, report, perr
			}
			continue
		}
		res = append(res, d)
	}
	if err := sc.Err(); err != nil {
		return nil, report, fmt.Errorf("read %s: %w", dr.Dataset, err)
	}

	report.Parsed = len(res)
	if len(report.Rejected) > 0 && report.RejectRatio() > dr.MaxRejectRatio {
		return nil, report, report.Rejected[0]
	}
	return res, report, nil
}

// ParseDeathLine parses one line of a death register.
func ParseDeathLine(dataset string, num int, line string) (Death, *ParseError) {
	fail := func(field, value, reason string) *ParseError {
		return &ParseError{Dataset: dataset, Line: num, Field: field, Value: value, Reason: reason}
	}

	// Names may hold accented letters: slice runes, not bytes.
	runes := []rune(line)
	if len(runes) < deathDateEnd {
		return Death{}, fail("line", "", fmt.Sprintf("line has %d characters, want at least %d", len(runes), deathDateEnd))
	}

	sex, err := parseSex(string(runes[sexCol]))
	if err != nil {
		return Death{}, fail("sex", string(runes[sexCol]), err.Error())
	}

	rawBirth := string(runes[birthDateStart:birthDateEnd])
	birth, err := parseRegisterDate(rawBirth, "06", "15")
	if err != nil {
		return Death{}, fail("birth_date", rawBirth, err.Error())
	}

	rawDeath := string(runes[deathDateStart:deathDateEnd])
	death, err := parseRegisterDate(rawDeath, "", "")
	if err != nil {
		return Death{}, fail("death_date", rawDeath, err.Error())
	}

	if death.Before(birth) {
		return Death{}, fail("death_date", rawDeath, "death date is before birth date "+birth.Format(DateLayout))
	}

	return Death{Sex: sex, BirthDate: birth, DeathDate: death}, nil
}

func parseSex(v string) (Sex, error) {
	switch v {
	case "1":
		return Male, nil
	case "2":
		return Female, nil
	}
	return "", fmt.Errorf("bad sex value")
}

// parseRegisterDate parses YYYYMMDD. An unknown month or day ("00") is
// replaced by the given default, or rejected when there is none.
func parseRegisterDate(v, defMonth, defDay string) (time.Time, error) {
	if len(v) != 8 {
		return time.Time{}, fmt.Errorf("date must have 8 digits")
	}
	year, month, day := v[0:4], v[4:6], v[6:8]
	if year == "0000" {
		return time.Time{}, fmt.Errorf("bad year value %s", year)
	}
	if month == "00" {
		if defMonth == "" {
			return time.Time{}, fmt.Errorf("bad month value %s", month)
		}
		month = defMonth
	}
	if day == "00" {
		if defDay == "" {
			return time.Time{}, fmt.Errorf("bad day value %s", day)
		}
		day = defDay
	}
	t, err := time.Parse("20060102", year+month+day)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date")
	}
	return t, nil
}

// NormalizeDeaths groups deaths by day and age bracket. The result is
// ordered by date, then bracket.
func NormalizeDeaths(deaths []Death, brackets Brackets) []MortalityRecord {
	type key struct {
		date    time.Time
		bracket AgeBracket
	}
	counts := make(map[key]int64)
	for _, d := range deaths {
		k := key{date: truncateDay(d.DeathDate), bracket: brackets.Of(d.AgeAtDeath())}
		counts[k]++
	}

	res := make([]MortalityRecord, 0, len(counts))
	for k, n := range counts {
		res = append(res, MortalityRecord{Date: k.date, Bracket: k.bracket, Deaths: n})
	}
	sortMortality(res)
	return res
}

func sortMortality(recs []MortalityRecord) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].Date.Equal(recs[j].Date) {
			return recs[i].Date.Before(recs[j].Date)
		}
		return recs[i].Bracket < recs[j].Bracket
	})
}
