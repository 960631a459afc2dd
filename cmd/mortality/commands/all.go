package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Download, import, compute and render the charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, log, err := setup()
		if err != nil {
			return err
		}
		defer p.Close()

		res, images, err := p.Run(cmd.Context())
		if err != nil {
			log.WithError(err).Error("pipeline failed")
			return err
		}
		printSummary(cmd.OutOrStdout(), res)
		for _, path := range images {
			fmt.Fprintln(cmd.OutOrStdout(), path)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(allCmd)
}
