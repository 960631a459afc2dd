package commands

import (
	"fmt"
	"io"
	"math"

	"github.com/anrid/france-mortality/pkg/pipeline"
	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	dump   bool
	render bool
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute rates from the staging database and print the comparison",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, log, err := setup()
		if err != nil {
			return err
		}
		defer p.Close()

		res, err := p.Compute(cmd.Context())
		if err != nil {
			log.WithError(err).Error("compute failed")
			return err
		}
		if dump {
			spew.Fdump(cmd.OutOrStdout(), res.Comparison)
		}
		printSummary(cmd.OutOrStdout(), res)

		if render {
			images, err := p.Render(res)
			if err != nil {
				return err
			}
			for _, path := range images {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
		}
		return nil
	},
}

func init() {
	computeCmd.Flags().BoolVar(&dump, "dump", false, "dump the comparison table")
	computeCmd.Flags().BoolVar(&render, "render", true, "write the charts")
	rootCmd.AddCommand(computeCmd)
}

// printSummary writes the per-bracket comparison and the excess deaths
// of each period against the baseline.
func printSummary(w io.Writer, res *pipeline.Results) {
	p := message.NewPrinter(language.English)
	cmp := res.Comparison
	base := cmp.Periods[0]

	for i := 1; i < len(cmp.Periods); i++ {
		period := cmp.Periods[i]
		p.Fprintf(w, "\n%s vs %s\n\n", period.Title(), base.Title())
		p.Fprintf(w, "%-6s  %12s  %12s  %8s  %10s  %10s\n", "Age", "Base rate", "Rate", "Ratio", "Expected", "Excess")
		for _, row := range cmp.Rows {
			p.Fprintf(w, "%-6s  %12.6f  %12.6f  %8s  %10.0f  %10.0f\n",
				res.Brackets.Label(row.Bracket),
				row.Rates[0].Rate, row.Rates[i].Rate,
				formatRatio(row.RateRatio(i)),
				row.ExpectedDeaths(i), row.ExcessDeaths(i),
			)
		}

		s := cmp.Summary(i)
		p.Fprintf(w, "\nObserved deaths : %d\n", s.Observed)
		p.Fprintf(w, "Expected deaths : %.0f\n", s.Expected)
		p.Fprintf(w, "Excess deaths   : %.0f\n", s.Excess)
		p.Fprintf(w, "Crude ratio     : %s\n", formatRatio(s.CrudeRatio))
		p.Fprintf(w, "Age-standardized: %s\n", formatRatio(s.SMR))
	}
}

func formatRatio(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}
