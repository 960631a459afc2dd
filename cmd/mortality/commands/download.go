package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var downloadCmd = &cobra.Command{
	Use:   "download",
	Short: "Download the raw datasets missing from the data directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, log, err := setup()
		if err != nil {
			return err
		}
		defer p.Close()

		if err := p.Download(cmd.Context()); err != nil {
			log.WithError(err).Error("download failed")
			return err
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Parse the raw datasets into the staging database",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, log, err := setup()
		if err != nil {
			return err
		}
		defer p.Close()

		if err := p.Import(cmd.Context()); err != nil {
			log.WithError(err).Error("import failed")
			return err
		}
		imports, err := p.Imports(cmd.Context())
		if err != nil {
			return err
		}
		for _, imp := range imports {
			fmt.Fprintf(cmd.OutOrStdout(), "%-28s %10d rows %6d rejected\n", imp.Dataset, imp.Rows, imp.Rejected)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(importCmd)
}
