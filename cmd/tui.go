package cmd

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"carprice/pipeline"
	"carprice/pricing"
	"carprice/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive prediction form",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := newLogger()
		if err != nil {
			return err
		}
		defer logger.Sync()

		model, modelMessage := mustLoadModel(logger)
		defer closeModel(logger, model)

		service, err := pricing.NewService(model, cfg.Cache.Size, pricing.WithLogger(logger))
		if err != nil {
			return err
		}

		snap := pipeline.NewHandle(cfg.Dataset.Path, datasetOptions()).Current()
		logDataset(logger, snap)
		dataset := tui.RenderDataset(snap, cfg.Dataset.PreviewRows, tui.DefaultWidth)

		form := tui.NewForm(cmd.Context(), service, modelMessage, dataset)
		_, err = tea.NewProgram(form, tea.WithAltScreen()).Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
