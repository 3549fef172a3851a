package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/microclimate-qa/internal/api"
	"github.com/sells-group/microclimate-qa/internal/batch"
	"github.com/sells-group/microclimate-qa/internal/deploy"
	"github.com/sells-group/microclimate-qa/internal/monitoring"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the QA HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, err := initPipeline()
		if err != nil {
			return err
		}

		metrics := monitoring.NewMetrics()
		opts := []batch.Option{batch.WithMetrics(metrics)}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
			opts = append(opts, batch.WithStore(st))
		}

		// Detection stays off until day_in_streak is configured.
		var det *deploy.Detector
		if cfg.Deploy.DayInStreak > 0 {
			if det, err = initDetector(); err != nil {
				return err
			}
		} else {
			zap.L().Warn("deploy.day_in_streak not set, /v1/deployment disabled")
		}

		deps := api.Deps{
			Runner:         batch.New(p, opts...),
			Detector:       det,
			Metrics:        metrics,
			ReadOptions:    readOptions(cfg.Input),
			MaxBody:        int64(cfg.Server.MaxBodyMB) << 20,
			RateLimit:      cfg.Server.RateLimitRPS,
			RateLimitBurst: cfg.Server.RateLimitBurst,
			CORSOrigins:    cfg.Server.CORSOrigins,
		}
		if st != nil {
			deps.Store = st

			if cfg.Monitoring.Enabled {
				collector := monitoring.NewCollector(st)
				checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitoring), cfg.Monitoring)
				go checker.Run(ctx)
			}
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.New(deps).Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
