// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/AleutianAI/planstages/services/stages/storage"
	"github.com/AleutianAI/planstages/services/stages/telemetry"
	"github.com/AleutianAI/planstages/services/stages/watch"
)

func (c *cli) watchCmd() *cobra.Command {
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "watch DOMAIN [PROBLEM]",
		Short: "Re-run the analysis whenever the task documents change",
		Long: `Analyze the task, print the report, then keep watching the documents and
print a fresh report after every change. Stop with Ctrl-C.

With --metrics-addr the engine metrics are served in Prometheus format at
http://ADDR/metrics while watching.

Examples:
  planstages watch domain.yaml problem.yaml
  planstages watch task.yaml --metrics-addr :9464`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), args, debounce)
		},
	}
	cmd.Flags().StringVar(&c.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().DurationVar(&debounce, "debounce", 200*time.Millisecond, "Quiet period before re-running")
	return cmd
}

func (c *cli) runWatch(ctx context.Context, paths []string, debounce time.Duration) error {
	logger := c.slog()
	cache, closeCache := c.openCache()
	defer closeCache()

	if c.metricsAddr != "" {
		_, stop, err := serveMetrics(ctx, c.metricsAddr, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	c.rerun(ctx, cache, paths)

	w, err := watch.New(paths, func(ctx context.Context, changes []watch.Change) {
		for _, ch := range changes {
			logger.Info("task document changed",
				slog.String("path", ch.Path),
				slog.String("op", ch.Op.String()),
			)
		}
		c.rerun(ctx, cache, paths)
	}, watch.Options{Debounce: debounce, Logger: logger})
	if err != nil {
		return err
	}
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	<-ctx.Done()
	return nil
}

// rerun analyses and prints; failures are reported and watching goes on.
func (c *cli) rerun(ctx context.Context, cache *storage.ReportCache, paths []string) {
	rep, err := c.analyse(ctx, cache, paths)
	if rep != nil {
		if werr := c.render(rep); werr != nil {
			c.slog().Error("writing report failed", slog.String("error", werr.Error()))
		}
	}
	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(c.errOut, "Error: %v\n", err)
	}
}

// serveMetrics exposes telemetry.MetricsHandler on addr until stop is
// called. It returns the address actually bound.
func serveMetrics(ctx context.Context, addr string, logger *slog.Logger) (bound string, stop func(), err error) {
	h := telemetry.MetricsHandler()
	if h == nil {
		return "", nil, errors.New("metrics exporter is not prometheus")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", otelhttp.NewHandler(h, "metrics"))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
	bound = ln.Addr().String()
	logger.Info("serving metrics", slog.String("addr", bound))

	return bound, func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-done
	}, nil
}
