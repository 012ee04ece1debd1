package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"carprice/db"
	qhttp "carprice/http"
	"carprice/monitoring"
	"carprice/pipeline"
	"carprice/pricing"
	"carprice/watcher"
)

var flagPort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web app",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&flagPort, "port", 0, "listen port (overrides http.port)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	model, modelMessage := mustLoadModel(logger)
	fmt.Println(modelMessage)

	datasets := pipeline.NewHandle(cfg.Dataset.Path, datasetOptions())
	logDataset(logger, datasets.Current())

	metrics := monitoring.NewMetricsCollector()
	hub := monitoring.NewHub(logger.Named("ws"))
	go hub.Run()
	defer hub.Stop()

	opts := []pricing.Option{pricing.WithLogger(logger), pricing.WithPublisher(hub)}
	var history qhttp.History
	if cfg.Database.Path != "" {
		store, err := db.Open(cfg.Database.Path)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, pricing.WithRecorder(store))
		history = store
		logger.Info("prediction history enabled", zap.String("path", cfg.Database.Path))
	}

	service, err := pricing.NewService(model, cfg.Cache.Size, opts...)
	if err != nil {
		return err
	}
	defer func() { closeModel(logger, service.Model()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Watch.Enabled {
		w, err := startWatcher(ctx, logger, service, datasets, hub)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	port := cfg.HTTP.Port
	if flagPort > 0 {
		port = flagPort
	}
	server := qhttp.NewServer(qhttp.ServerConfig{
		Port:           port,
		Timeout:        cfg.HTTP.Timeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
	}, &qhttp.App{
		Service:      service,
		Datasets:     datasets,
		History:      history,
		Hub:          hub,
		Metrics:      metrics,
		Logger:       logger.Named("http"),
		ModelMessage: modelMessage,
		PreviewRows:  cfg.Dataset.PreviewRows,
	})

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}
	return server.Stop()
}

// startWatcher reloads the model and dataset when their files change. A failed
// reload keeps what was loaded before.
func startWatcher(ctx context.Context, logger *zap.Logger, service *pricing.Service, datasets *pipeline.Handle, hub *monitoring.Hub) (*watcher.Watcher, error) {
	w, err := watcher.New(watcher.WithLogger(logger.Named("watch")))
	if err != nil {
		return nil, err
	}

	if cfg.Model.Type != "remote" {
		err = w.Add(cfg.Model.Path, func(path string) error {
			next, err := loadModel()
			if err == nil {
				closeModel(logger, service.SetModel(next))
			}
			hub.NotifyReload(monitoring.ModelReloaded, path, err)
			return err
		})
		if err != nil {
			w.Close()
			return nil, err
		}
	}

	err = w.Add(cfg.Dataset.Path, func(path string) error {
		err := datasets.Reload()
		hub.NotifyReload(monitoring.DatasetReloaded, path, err)
		if err == nil {
			logDataset(logger, datasets.Current())
		}
		return err
	})
	if err != nil {
		w.Close()
		return nil, err
	}

	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("file watcher stopped", zap.Error(err))
		}
	}()
	return w, nil
}
