package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sapslaj/rrsets/controller"
)

func newServeMux(ctrl *controller.Controller) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/recordsets", ctrl)
	return mux
}

func newCmdServe(logger *zap.Logger) *cobra.Command {
	var listen string
	var interval time.Duration
	var once bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Periodically inventory every configured provider",
		Long: "Periodically walks the zones and record sets of every configured provider, " +
			"exporting counts on /metrics and the last inventory on /recordsets.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := loadConfig(cmd, logger)
			if err != nil {
				return err
			}
			defer c.Close()
			inventory, err := c.Inventory()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("listen") {
				listen = inventory.Listen
			}
			if !cmd.Flags().Changed("interval") {
				interval = time.Duration(inventory.Interval) * time.Second
			}
			providers, err := c.Providers(ctx)
			if err != nil {
				return fmt.Errorf("could not get providers from configuration: %w", err)
			}

			ctrl := &controller.Controller{
				Providers: providers,
				Interval:  interval,
				Logger:    logger.Named("controller"),
			}
			if once {
				if err := ctrl.RunOnce(ctx); err != nil {
					return fmt.Errorf("could not execute controller loop: %w", err)
				}
				return printOutput(cmd, ctrl.Snapshot())
			}

			server := &http.Server{
				Addr:              listen,
				Handler:           newServeMux(ctrl),
				ReadHeaderTimeout: 10 * time.Second,
			}
			serveErr := make(chan error, 1)
			go func() {
				logger.Sugar().Infow("serving inventory", "listen", listen, "interval", interval)
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()

			runCtx, cancel := context.WithCancel(ctx)
			defer cancel()
			go func() {
				if err, ok := <-serveErr; ok {
					logger.Sugar().Errorw("inventory server failed", "err", err)
					cancel()
				}
			}()

			ctrl.ScheduleRunOnce(time.Now())
			ctrl.Run(runCtx)

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			return server.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Address to serve /metrics and /recordsets on (default: inventory.listen from the configuration)")
	cmd.Flags().DurationVar(&interval, "interval", 0, "The interval between two inventory walks (default: inventory.interval from the configuration)")
	cmd.Flags().BoolVar(&once, "once", false, "Walk every provider once, print the inventory and exit")
	return cmd
}
