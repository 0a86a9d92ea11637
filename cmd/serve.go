package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studentrisk/config"
	qhttp "studentrisk/http"
	"studentrisk/logging"
	"studentrisk/ml"
	"studentrisk/monitoring"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the prediction form and JSON API",
		Long: `Load the model artifact once and serve the form page and the JSON API.

If the artifact cannot be loaded the server still starts, reports the failure on every
page and answers predictions with 503 until it is restarted with a working artifact.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Log)
			if err != nil {
				return err
			}
			defer logger.Sync()

			return runServe(cmd.Context(), cfg, logger)
		},
	}
}

// service is everything serve starts and stops.
type service struct {
	server    *qhttp.Server
	predictor *ml.Predictor
	stream    *monitoring.MetricsHub
}

// newService wires the loader, predictor, metrics and handlers into a server.
func newService(cfg *config.Config, logger *zap.Logger) (*service, error) {
	loader := ml.NewLoader(cfg.Model.Path, cfg.Model.Type, logger)
	predictor := ml.NewPredictorFromLoader(loader, logger)
	if err := predictor.Available(); err != nil {
		logger.Error("serving without a model", zap.String("path", cfg.Model.Path), zap.Error(err))
	}

	metrics := monitoring.NewMetricsCollector()
	handler := qhttp.NewHandler(predictor, metrics, logger)

	var stream *monitoring.MetricsHub
	if cfg.Http.MetricsStream > 0 {
		stream = monitoring.NewMetricsHub(metrics, cfg.Http.MetricsStream, logger)
		handler.EnableMetricsStream(stream)
	}

	server, err := qhttp.NewServer(qhttp.ServerConfigFrom(cfg.Http), handler, logger)
	if err != nil {
		return nil, err
	}
	return &service{server: server, predictor: predictor, stream: stream}, nil
}

func runServe(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	svc, err := newService(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if svc.stream != nil {
		go svc.stream.Run()
		defer svc.stream.Stop()
	}

	if cfg.Model.Watch {
		go func() {
			if err := ml.WatchArtifact(ctx, cfg.Model.Path, logger, nil); err != nil {
				logger.Warn("artifact watcher stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.String("addr", svc.server.Addr()))
	return svc.server.Stop()
}
