package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/anrid/france-mortality/pkg/chart"
	"github.com/anrid/france-mortality/pkg/config"
	"github.com/anrid/france-mortality/pkg/logger"
	"github.com/anrid/france-mortality/pkg/stats"
	"github.com/anrid/france-mortality/pkg/store"
	"github.com/google/uuid"
)

const manifestFile = "manifest.json"

// Pipeline runs fetch, import, compute and render in that order.
type Pipeline struct {
	cfg      *config.Config
	catalog  *config.Catalog
	brackets stats.Brackets
	periods  []stats.Period
	log      *logger.Logger
	fetcher  *stats.Fetcher
	store    *store.Store
	runID    string
}

// Results is everything Compute derives, ready to be rendered.
type Results struct {
	Brackets   stats.Brackets
	Periods    []stats.Period
	Rates      []stats.RateSet
	Comparison *stats.Comparison
	Daily      [][]stats.DailyDeaths
	Pyramids   [][]stats.PopulationRecord
}

// New opens the record store. Close must be called when done.
func New(cfg *config.Config, catalog *config.Catalog, log *logger.Logger) (*Pipeline, error) {
	brackets := stats.Brackets{Width: catalog.BracketWidth, Max: catalog.MaxAge}
	if err := brackets.Validate(); err != nil {
		return nil, err
	}
	periods, err := toStatsPeriods(catalog.Periods)
	if err != nil {
		return nil, err
	}
	if err := stats.CheckSameDuration(periods); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	fetcher := stats.NewFetcher(log, cfg.HTTPTimeout, cfg.UserAgent)
	fetcher.Delay = cfg.RequestDelay

	return &Pipeline{
		cfg:      cfg,
		catalog:  catalog,
		brackets: brackets,
		periods:  periods,
		log:      log.WithField("run_id", runID),
		fetcher:  fetcher,
		store:    st,
		runID:    runID,
	}, nil
}

func (p *Pipeline) Close() error {
	return p.store.Close()
}

func (p *Pipeline) RunID() string { return p.runID }

// Imports lists the datasets loaded by the last import.
func (p *Pipeline) Imports(ctx context.Context) ([]store.Import, error) {
	return p.store.Imports(ctx)
}

// Run executes the whole pipeline and returns the written image paths.
func (p *Pipeline) Run(ctx context.Context) (*Results, []string, error) {
	start := time.Now()
	p.log.Info("pipeline started")

	if err := p.Download(ctx); err != nil {
		return nil, nil, err
	}
	if err := p.Import(ctx); err != nil {
		return nil, nil, err
	}
	res, err := p.Compute(ctx)
	if err != nil {
		return nil, nil, err
	}
	images, err := p.Render(res)
	if err != nil {
		return nil, nil, err
	}

	p.log.WithField("duration", time.Since(start).String()).Info("pipeline completed")
	return res, images, nil
}

// Download fetches every catalog dataset missing from the data directory.
func (p *Pipeline) Download(ctx context.Context) error {
	p.log.WithField("datasets", len(p.catalog.Datasets)).Info("download stage started")

	manifestPath := filepath.Join(p.cfg.DataDir, manifestFile)
	manifest, _, err := stats.LoadManifestIfExists(manifestPath)
	if err != nil {
		return err
	}

	var fetched int
	for _, d := range p.catalog.Datasets {
		f, downloaded, err := p.fetcher.Fetch(ctx, d.Name, d.URL, p.datasetPath(d))
		if err != nil {
			return fmt.Errorf("fetch %s: %w", d.Name, err)
		}
		if downloaded {
			fetched++
			manifest.Record(f)
			continue
		}
		if known, ok := manifest.Find(d.Name); ok {
			p.log.WithFields(map[string]interface{}{
				"dataset":    d.Name,
				"sha256":     known.SHA256,
				"downloaded": known.Downloaded.Format(time.RFC3339),
			}).Debug("using cached dataset")
		}
	}

	if fetched > 0 {
		if err := manifest.Save(manifestPath); err != nil {
			return err
		}
	}
	manifest.Info(p.log)
	p.log.WithField("downloaded", fetched).Info("download stage completed")
	return nil
}

// Import parses every raw dataset into the record store, replacing
// whatever a previous import left there.
func (p *Pipeline) Import(ctx context.Context) error {
	p.log.Info("import stage started")
	if err := p.store.Reset(ctx); err != nil {
		return err
	}

	for _, d := range p.catalog.DatasetsOfKind(config.KindDeaths) {
		if err := p.importDeaths(ctx, d); err != nil {
			return fmt.Errorf("import %s: %w", d.Name, err)
		}
	}
	for _, d := range p.catalog.DatasetsOfKind(config.KindPopulation) {
		if err := p.importPopulation(ctx, d); err != nil {
			return fmt.Errorf("import %s: %w", d.Name, err)
		}
	}

	p.log.Info("import stage completed")
	return nil
}

func (p *Pipeline) importDeaths(ctx context.Context, d config.Dataset) error {
	f, err := os.Open(p.datasetPath(d))
	if err != nil {
		return err
	}
	defer f.Close()

	reader := stats.DeathsReader{
		Dataset:        d.Name,
		Encoding:       d.Encoding,
		MaxRejectRatio: p.cfg.MaxRejectRatio,
	}
	deaths, report, err := reader.Read(f)
	log := p.log.WithFields(map[string]interface{}{
		"dataset":  d.Name,
		"lines":    report.Lines,
		"rejected": len(report.Rejected),
	})
	for _, perr := range report.Rejected[:min(10, len(report.Rejected))] {
		log.Debugf("rejected: %v", perr)
	}
	if err != nil {
		return err
	}
	if n := len(report.Rejected); n > 0 {
		log.Warnf("%d malformed lines skipped", n)
	}

	recs := stats.NormalizeDeaths(deaths, p.brackets)
	if err := p.store.InsertMortality(ctx, d.Name, recs); err != nil {
		return err
	}
	log.WithFields(map[string]interface{}{
		"deaths":      len(deaths),
		"records":     len(recs),
		"reject_rate": fmt.Sprintf("%.5f%%", 100*report.RejectRatio()),
	}).Info("death register imported")

	return p.store.RecordImport(ctx, store.Import{
		RunID:     p.runID,
		Dataset:   d.Name,
		Rows:      report.Parsed,
		Rejected:  len(report.Rejected),
		CreatedAt: time.Now(),
	})
}

func (p *Pipeline) importPopulation(ctx context.Context, d config.Dataset) error {
	layout := stats.PyramidLayout{
		FirstRow: d.Layout.FirstRow,
		LastRow:  d.Layout.LastRow,
		AgeCol:   d.Layout.AgeCol,
		CountCol: d.Layout.CountCol,
	}
	recs, err := stats.ReadPopulation(d.Name, p.datasetPath(d), d.Year, layout)
	if err != nil {
		return err
	}
	if err := p.store.InsertPopulation(ctx, d.Name, recs); err != nil {
		return err
	}
	p.log.WithFields(map[string]interface{}{
		"dataset": d.Name,
		"year":    d.Year,
		"ages":    len(recs),
	}).Info("age pyramid imported")

	return p.store.RecordImport(ctx, store.Import{
		RunID:     p.runID,
		Dataset:   d.Name,
		Rows:      len(recs),
		CreatedAt: time.Now(),
	})
}

// Compute aggregates the stored records of every period and compares
// them with the baseline period.
func (p *Pipeline) Compute(ctx context.Context) (*Results, error) {
	p.log.Info("compute stage started")
	res := &Results{Brackets: p.brackets, Periods: p.periods}

	pyramids := make(map[int][]stats.PopulationRecord)
	for _, period := range p.periods {
		mortality, err := p.store.MortalityBetween(ctx, period.Start, period.End)
		if err != nil {
			return nil, err
		}
		if len(mortality) == 0 {
			return nil, &stats.DataMismatchError{Dataset: period.Key, Reason: "no deaths recorded during the period"}
		}

		pop, ok := pyramids[period.PopulationYear]
		if !ok {
			pop, err = p.store.Population(ctx, period.PopulationYear)
			if err != nil {
				return nil, err
			}
			pyramids[period.PopulationYear] = pop
		}

		set, err := stats.MortalityRates(period, mortality, pop, p.brackets)
		if err != nil {
			return nil, err
		}
		res.Rates = append(res.Rates, set)
		res.Daily = append(res.Daily, stats.DeathsByDay(period, mortality))
	}

	cmp, err := stats.Compare(res.Rates[0], res.Rates[1:]...)
	if err != nil {
		return nil, err
	}
	res.Comparison = cmp

	years := make([]int, 0, len(pyramids))
	for y := range pyramids {
		years = append(years, y)
	}
	sort.Ints(years)
	for _, y := range years {
		res.Pyramids = append(res.Pyramids, stats.PopulationByBracket(pyramids[y], p.brackets))
	}

	for i := 1; i < len(cmp.Periods); i++ {
		s := cmp.Summary(i)
		p.log.WithFields(map[string]interface{}{
			"period":   s.Period.Key,
			"observed": s.Observed,
			"expected": fmt.Sprintf("%.0f", s.Expected),
			"excess":   fmt.Sprintf("%.0f", s.Excess),
			"smr":      fmt.Sprintf("%.3f", s.SMR),
		}).Info("excess mortality")
	}
	p.log.Info("compute stage completed")
	return res, nil
}

// Render writes the three charts to the results directory.
func (p *Pipeline) Render(res *Results) ([]string, error) {
	p.log.Info("render stage started")
	w, h := p.cfg.ChartWidth, p.cfg.ChartHeight
	charts := []struct {
		file  string
		chart *chart.LineChart
	}{
		{chart.MortalityRateFile, chart.MortalityRateByAge(res.Comparison, w, h)},
		{chart.DeathsByDateFile, chart.DeathsByDate(res.Periods, res.Daily, w, h)},
		{chart.PopulationFile, chart.PopulationByAge(res.Pyramids, w, h)},
	}

	var paths []string
	for _, c := range charts {
		path := filepath.Join(p.cfg.ResultsDir, c.file)
		if err := c.chart.Save(path); err != nil {
			return nil, err
		}
		p.log.WithField("path", path).Info("chart written")
		paths = append(paths, path)
	}
	return paths, nil
}

func (p *Pipeline) datasetPath(d config.Dataset) string {
	return filepath.Join(p.cfg.DataDir, d.File)
}

// toStatsPeriods converts catalog periods, baseline first.
func toStatsPeriods(periods []config.Period) ([]stats.Period, error) {
	var baseline, rest []stats.Period
	for _, cp := range periods {
		sp, err := stats.NewPeriod(cp.Key, cp.Label, cp.Start, cp.End, cp.PopulationYear)
		if err != nil {
			return nil, err
		}
		sp.Baseline = cp.Baseline
		if sp.Baseline {
			baseline = append(baseline, sp)
		} else {
			rest = append(rest, sp)
		}
	}
	if len(baseline) != 1 {
		return nil, fmt.Errorf("exactly one baseline period is required, got %d", len(baseline))
	}
	return append(baseline, rest...), nil
}
