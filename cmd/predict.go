package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"carprice/ml"
	"carprice/pricing"
)

var (
	flagMPG        float64
	flagCurbweight float64
	flagHP         float64
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict one car price",
	Example: `  carprice predict --mpg 30 --curbweight 2500 --hp 100
  carprice predict --hp 150`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().Float64Var(&flagMPG, "mpg", pricing.HighwayMPG.Default, pricing.HighwayMPG.Help)
	predictCmd.Flags().Float64Var(&flagCurbweight, "curbweight", pricing.Curbweight.Default, pricing.Curbweight.Help)
	predictCmd.Flags().Float64Var(&flagHP, "hp", pricing.Horsepower.Default, pricing.Horsepower.Help)
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	f := ml.Features{HighwayMPG: flagMPG, Curbweight: flagCurbweight, Horsepower: flagHP}
	if err := pricing.Validate(f); err != nil {
		return err
	}

	model, _ := mustLoadModel(logger)
	defer closeModel(logger, model)

	service, err := pricing.NewService(model, 0, pricing.WithLogger(logger))
	if err != nil {
		return err
	}
	res, err := service.Predict(cmd.Context(), f)
	out := cmd.OutOrStdout()
	if err != nil {
		fmt.Fprintln(out, pricing.ErrorMessage(err))
		fmt.Fprintln(out, pricing.ErrorHint)
		return err
	}
	fmt.Fprintln(out, res.Message())
	return nil
}
