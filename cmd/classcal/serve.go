package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appLog "classcal/internal/log"
	"classcal/internal/requests"
	"classcal/internal/web"
)

func newServeCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar page and JSON API",
		Long: `Serve the calendar page, JSON API, ICS export and preview image.

Events are loaded once at startup and then refreshed on the cron schedule
from the "refresh" config key. /metrics is served on metrics_listen when
set, otherwise on the main listener.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadApp()
			if err != nil {
				return err
			}
			if listen != "" {
				rt.cfg.Listen = listen
			}
			return runServe(cmd.Context(), rt)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(parent context.Context, rt *app) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	page := rt.newPage()
	defer page.Close()

	// A failed first load is not fatal; the alert shows on the page and the
	// next tick retries.
	if err := page.Refresh(ctx); err != nil {
		appLog.Warn("initial event load failed", "err", err.Error())
	}
	if err := page.StartRefresh(rt.cfg.RefreshCron); err != nil {
		return err
	}

	srv := web.NewServer(rt.cfg, page, requests.NewBoard(rt.client), rt.metrics)

	errCh := make(chan error, 2)
	go func() { errCh <- srv.Run(ctx) }()
	running := 1
	if rt.cfg.MetricsListen != "" {
		running++
		go func() { errCh <- web.RunMetrics(ctx, rt.cfg.MetricsListen, rt.metrics) }()
	}

	var firstErr error
	for ; running > 0; running-- {
		err := <-errCh
		if err != nil && firstErr == nil {
			firstErr = err
			// One listener failing takes the others down with it.
			stop()
		}
	}

	appLog.Info("classcal exiting")
	if errors.Is(firstErr, context.Canceled) {
		return nil
	}
	return firstErr
}
