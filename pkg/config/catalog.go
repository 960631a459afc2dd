package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

const (
	DefaultMaxAge       = 100
	DefaultBracketWidth = 1
)

const (
	KindDeaths     = "deaths"
	KindPopulation = "population"
)

// Catalog lists the datasets to fetch and the periods to compare.
type Catalog struct {
	MaxAge       int       `yaml:"max_age"`
	BracketWidth int       `yaml:"bracket_width"`
	Datasets     []Dataset `yaml:"datasets"`
	Periods      []Period  `yaml:"periods"`
}

type Dataset struct {
	Name     string  `yaml:"name"`
	Kind     string  `yaml:"kind"`
	URL      string  `yaml:"url"`
	File     string  `yaml:"file"`
	Encoding string  `yaml:"encoding,omitempty"`
	Year     int     `yaml:"year,omitempty"`
	Layout   *Layout `yaml:"layout,omitempty"`
}

// Layout locates the age and count columns of an age pyramid sheet.
// Rows and columns are 1-based, as displayed by spreadsheet software.
type Layout struct {
	FirstRow int `yaml:"first_row"`
	LastRow  int `yaml:"last_row"`
	AgeCol   int `yaml:"age_col"`
	CountCol int `yaml:"count_col"`
}

// Period dates are "2006-01-02" strings, parsed when the pipeline
// builds its periods.
type Period struct {
	Key            string `yaml:"key"`
	Label          string `yaml:"label"`
	Start          string `yaml:"start"`
	End            string `yaml:"end"`
	PopulationYear int    `yaml:"population_year"`
	Baseline       bool   `yaml:"baseline"`
}

// LoadCatalog reads the catalog at path, or the built-in one when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	data := defaultCatalog
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog: %w", err)
		}
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	c := &Catalog{}
	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if c.MaxAge == 0 {
		c.MaxAge = DefaultMaxAge
	}
	if c.BracketWidth == 0 {
		c.BracketWidth = DefaultBracketWidth
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	return c, nil
}

func (c *Catalog) Validate() error {
	if c.BracketWidth < 1 || c.MaxAge < 1 {
		return fmt.Errorf("bad age partition: width %d, max age %d", c.BracketWidth, c.MaxAge)
	}

	names := make(map[string]bool)
	years := make(map[int]bool)
	var deaths int
	for _, d := range c.Datasets {
		if d.Name == "" || d.URL == "" || d.File == "" {
			return fmt.Errorf("dataset %q needs a name, url and file", d.Name)
		}
		if names[d.Name] {
			return fmt.Errorf("duplicate dataset %q", d.Name)
		}
		names[d.Name] = true

		switch d.Kind {
		case KindDeaths:
			deaths++
			switch strings.ToLower(d.Encoding) {
			case "", "utf-8", "utf8", "latin1", "iso-8859-1":
			default:
				return fmt.Errorf("dataset %s: unsupported encoding %q", d.Name, d.Encoding)
			}
		case KindPopulation:
			if d.Year == 0 {
				return fmt.Errorf("dataset %s: population year is required", d.Name)
			}
			if years[d.Year] {
				return fmt.Errorf("dataset %s: duplicate population year %d", d.Name, d.Year)
			}
			years[d.Year] = true
			if err := d.Layout.validate(); err != nil {
				return fmt.Errorf("dataset %s: %w", d.Name, err)
			}
		default:
			return fmt.Errorf("dataset %s: unknown kind %q", d.Name, d.Kind)
		}
	}
	if deaths == 0 {
		return fmt.Errorf("at least one %s dataset is required", KindDeaths)
	}

	if len(c.Periods) < 2 {
		return fmt.Errorf("at least two periods are required, got %d", len(c.Periods))
	}
	var baselines int
	for i, p := range c.Periods {
		if p.Key == "" {
			return fmt.Errorf("period %d has no key", i)
		}
		if p.Baseline {
			baselines++
		}
		if !years[p.PopulationYear] {
			return fmt.Errorf("period %s: no population dataset for year %d", p.Key, p.PopulationYear)
		}
		if p.Start == "" || p.End == "" {
			return fmt.Errorf("period %s needs a start and an end", p.Key)
		}
	}
	if baselines != 1 {
		return fmt.Errorf("exactly one baseline period is required, got %d", baselines)
	}
	return nil
}

func (l *Layout) validate() error {
	if l == nil {
		return fmt.Errorf("layout is required")
	}
	if l.FirstRow < 1 || l.LastRow < l.FirstRow {
		return fmt.Errorf("bad row range %d..%d", l.FirstRow, l.LastRow)
	}
	if l.AgeCol < 1 || l.CountCol < 1 {
		return fmt.Errorf("columns must be 1-based, got age %d count %d", l.AgeCol, l.CountCol)
	}
	return nil
}

func (c *Catalog) DatasetsOfKind(kind string) []Dataset {
	var res []Dataset
	for _, d := range c.Datasets {
		if d.Kind == kind {
			res = append(res, d)
		}
	}
	return res
}
