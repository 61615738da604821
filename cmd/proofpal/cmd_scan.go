package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Check every deadline once and print the reminders that fire",
	Long: `Check every deadline once. Each reminder threshold fires a single
time per purchase, so running scan again prints only what is new.

With --notify the reminders are also sent to the configured channels
(console, Telegram).`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Scan periodically and deliver reminders until interrupted",
	Long: `Scan on start and then every scheduler.interval seconds, delivering
reminders to the configured channels. When metrics.listen is set the
Prometheus metrics are served at /metrics on that address.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var scanNotify bool

func init() {
	rootCmd.AddCommand(scanCmd, watchCmd)

	scanCmd.Flags().BoolVar(&scanNotify, "notify", false, "Also deliver reminders to the configured channels")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if scanNotify {
		n, err := proof.Scheduler(os.Stdout).Tick(ctx)
		if n > 0 || err == nil {
			fmt.Println(formatter.FormatInfo(fmt.Sprintf("%d reminders delivered", n)))
		}
		return err
	}

	// An interrupted scan still prints the reminders it recorded.
	res, err := proof.Service.Scan(ctx)
	if res != nil {
		fmt.Println(formatter.FormatScan(res))
	}
	return err
}

func runWatch(cmd *cobra.Command, args []string) error {
	g, ctx := errgroup.WithContext(cmd.Context())

	g.Go(func() error {
		return proof.Scheduler(os.Stdout).Run(ctx)
	})

	if addr := proof.Config.Metrics.Listen; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

		g.Go(func() error {
			proof.Logger.Info().Str("addr", addr).Msg("Serving metrics")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}
