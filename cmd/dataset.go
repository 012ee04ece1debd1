package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"carprice/pipeline"
	"carprice/tui"
)

var (
	flagRows  int
	flagWidth int
)

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Print the dataset preview and feature charts",
	RunE: func(cmd *cobra.Command, args []string) error {
		rows := cfg.Dataset.PreviewRows
		if cmd.Flags().Changed("rows") {
			rows = flagRows
		}
		snap := pipeline.NewHandle(cfg.Dataset.Path, datasetOptions()).Current()
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderDataset(snap, rows, flagWidth))
		return nil
	},
}

func init() {
	datasetCmd.Flags().IntVar(&flagRows, "rows", 5, "number of preview rows")
	datasetCmd.Flags().IntVar(&flagWidth, "width", tui.DefaultWidth, "chart width in columns")
	rootCmd.AddCommand(datasetCmd)
}
