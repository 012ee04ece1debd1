// Package cmd wires configuration, the model and the dataset into the carprice commands.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carprice/config"
	"carprice/logging"
	"carprice/ml"
	"carprice/pipeline"
)

var (
	cfgFile string
	debug   bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "carprice",
	Short: "Car price prediction from Highway MPG, Curbweight and Horsepower",
	Long: `carprice serves a pre-trained car price model. It shows the CarPrice.csv dataset,
charts the model's input columns and predicts a price in Rupiah, on the web or in a terminal.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if debug {
		c.Log.Level = "debug"
	}
	cfg = c
	return nil
}

func newLogger() (*zap.Logger, error) {
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}

func loadModel() (ml.Predictor, error) {
	return ml.LoadModel(cfg.Model.Type, cfg.Model.Path, ml.LoadOptions{
		RemoteAddr:    cfg.Model.Remote.Addr,
		RemoteTimeout: cfg.Model.Remote.Timeout,
	})
}

// mustLoadModel prints the load message and exits when the model is unusable.
// Every command except config needs a model before it can do anything.
func mustLoadModel(logger *zap.Logger) (ml.Predictor, string) {
	model, err := loadModel()
	msg := ml.LoadMessage(cfg.Model.Path, err)
	if err != nil {
		logger.Error("model load failed",
			zap.String("type", cfg.Model.Type),
			zap.String("path", cfg.Model.Path),
			zap.Error(err),
		)
		fmt.Fprintln(os.Stderr, msg)
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("model loaded", zap.String("type", cfg.Model.Type), zap.String("path", cfg.Model.Path))
	return model, msg
}

func datasetOptions() pipeline.Options {
	return pipeline.Options{Encoding: cfg.Dataset.Encoding}
}

func logDataset(logger *zap.Logger, snap *pipeline.Snapshot) {
	if snap.Err != nil {
		logger.Warn("dataset not loaded", zap.String("path", snap.Path), zap.Error(snap.Err))
		return
	}
	rows, cols := snap.Dataset.Shape()
	logger.Info("dataset loaded",
		zap.String("path", snap.Path),
		zap.Int("rows", rows),
		zap.Int("columns", cols),
		zap.Int("clean_rows", snap.Dataset.CleanRowCount()),
		zap.Strings("missing_columns", snap.Dataset.Missing),
	)
}

func closeModel(logger *zap.Logger, p ml.Predictor) {
	if err := ml.Close(p); err != nil {
		logger.Warn("close model", zap.Error(err))
	}
}
