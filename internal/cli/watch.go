package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pratik-mahalle/driftwatch/internal/pkg/metrics"
	"github.com/pratik-mahalle/driftwatch/internal/worker"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Run continuous drift detection",
		Long: `Starts the detection scheduler and, if enabled, the metrics endpoint.
Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			sched := worker.NewScheduler(a.cfg, a.manager(), a.log)
			if sched == nil {
				return fmt.Errorf("no detectors enabled; nothing to watch")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			var metricsSrv *http.Server
			if a.cfg.Metrics.Enabled {
				metricsSrv = &http.Server{
					Addr:    a.cfg.Metrics.Addr,
					Handler: metrics.Handler(),
				}
				go func() {
					a.log.WithFields(map[string]interface{}{
						"addr": a.cfg.Metrics.Addr,
					}).Info("Metrics endpoint listening")
					if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
						a.log.ErrorWithErr(err, "Metrics endpoint failed")
					}
				}()
			}

			if err := sched.Start(ctx); err != nil {
				return err
			}

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			a.log.Info("Shutting down")
			cancel()
			sched.Stop()

			if metricsSrv != nil {
				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutdownCancel()
				if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
					a.log.ErrorWithErr(err, "Metrics endpoint shutdown failed")
				}
			}
			return nil
		},
	}
}
