package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Brownie44l1/classifier-api/internal/cfg"
	"github.com/Brownie44l1/classifier-api/internal/classifier"
	"github.com/Brownie44l1/classifier-api/internal/handlers"
	"github.com/Brownie44l1/classifier-api/internal/metrics"
)

func newServeCommand(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the model and serve predictions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := cfg.Load(v)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, s)
		},
	}

	cmd.Flags().String("addr", "", "listen address (default :8080)")
	cmd.Flags().Bool("metrics", true, "expose Prometheus metrics on /metrics")
	_ = v.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = v.BindPFlag("metrics.enabled", cmd.Flags().Lookup("metrics"))
	return cmd
}

// serve runs until ctx is done. The model is loaded before the listener
// opens and released after the listener has drained.
func serve(ctx context.Context, s cfg.Settings) error {
	logger, closer, err := setupLogging(s, os.Stderr)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	m := metrics.New()
	lc := classifier.NewLifecycle(lifecycleConfig(s), onnxLoader(s),
		classifier.WithRecorder(m), classifier.WithLogger(logger))
	defer lc.Shutdown()

	log.Info().Str("model", s.Model.Path).Msg("loading model")
	if err := lc.Start(); err != nil {
		return fmt.Errorf("failed to initialize classifier: %w", err)
	}

	opts := handlers.RouterOptions{Recorder: m}
	if s.Metrics.Enabled {
		opts.Metrics = promhttp.Handler()
	}
	srv := &http.Server{
		Addr:         s.Server.Addr,
		Handler:      handlers.NewRouter(handlers.NewHandler(lc, s.Classifier.Features), opts),
		ReadTimeout:  s.Server.ReadTimeout,
		WriteTimeout: s.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Server.Addr).Msg("server starting")
		log.Info().Msg("endpoints: POST " + handlers.RouteClassify + ", GET " + handlers.RouteHealth + ", GET " + handlers.RouteReady)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server did not drain cleanly")
	}

	return lc.Shutdown()
}
