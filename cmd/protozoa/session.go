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
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"

	"github.com/AleutianAI/protozoa/services/protozoa/agent"
	"github.com/AleutianAI/protozoa/services/protozoa/config"
	"github.com/AleutianAI/protozoa/services/protozoa/environment"
	"github.com/AleutianAI/protozoa/services/protozoa/simulation"
	"github.com/AleutianAI/protozoa/services/protozoa/telemetry"
	"github.com/AleutianAI/protozoa/services/protozoa/tui"
)

// shutdownTimeout bounds telemetry flushing and metrics server shutdown.
const shutdownTimeout = 5 * time.Second

// session is one fully wired run: logger, telemetry, dish, agent, runner.
type session struct {
	logger  *slog.Logger
	runner  *simulation.Runner
	closers []func(context.Context) error
}

// newSession wires every component for cfg.
//
// Inputs:
//   - ctx: Context for exporter connections.
//   - cfg: Validated configuration.
//   - out: Destination for logs and stdout exporters.
//   - metricsAddr: Address for the metrics server ("" disables it).
//
// Outputs:
//   - *session: The wired session. Call close when done.
//   - error: Non-nil if any component failed to start.
func newSession(ctx context.Context, cfg config.Config, out io.Writer, metricsAddr string) (*session, error) {
	obs := cfg.Observability
	logger, err := telemetry.NewLogger(out, obs.LogLevel, obs.LogFormat)
	if err != nil {
		return nil, err
	}
	s := &session{logger: logger}

	tcfg := telemetry.FromConfig(obs)
	tcfg.Output = out
	shutdown, err := telemetry.Init(ctx, tcfg)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}
	s.closers = append(s.closers, shutdown)

	metrics, err := telemetry.NewMetrics(otel.Meter(obs.ServiceName))
	if err != nil {
		s.close()
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	if metricsAddr != "" {
		s.serveMetrics(metricsAddr)
	}

	dish := environment.NewPetriDish(cfg.World, cfg.Environment, cfg.Seed)
	a, err := agent.New(cfg,
		agent.Pose{X: cfg.World.Width / 2, Y: cfg.World.Height / 2},
		agent.WithLogger(logger),
		agent.WithTracer(agent.NewTracer(logger, obs.TracingEnabled)),
		agent.WithMetrics(metrics),
	)
	if err != nil {
		s.close()
		return nil, err
	}

	s.runner, err = simulation.New(a, dish, cfg.Simulation, simulation.WithLogger(logger))
	if err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}

// serveMetrics exposes the default Prometheus registry, which holds both
// the planner collectors and the otel exporter.
func (s *session) serveMetrics(addr string) {
	h := telemetry.MetricsHandler()
	if h == nil {
		h = promhttp.Handler()
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		s.logger.Info("Serving metrics", slog.String("address", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Metrics server failed", slog.String("error", err.Error()))
		}
	}()
	s.closers = append(s.closers, srv.Shutdown)
}

// close runs every closer in reverse order with a bounded timeout.
func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](ctx); err != nil {
			s.logger.Warn("Shutdown step failed", slog.String("error", err.Error()))
		}
	}
}

// openLog returns the log destination and a function that closes it.
func openLog(path string, fallback io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return fallback, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// runHeadless runs until max ticks, an interrupt or a halt.
func runHeadless(ctx context.Context, cfg config.Config, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out, closeLog, err := openLog(opts.logFile, os.Stderr)
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := newSession(ctx, cfg, out, opts.metricsAddr)
	if err != nil {
		return err
	}
	defer s.close()

	_, err = s.runner.Run(ctx)
	return err
}

// runDashboard runs the live dashboard. Logs go to --log-file or are
// discarded, since stderr shares the terminal with the dashboard.
func runDashboard(ctx context.Context, cfg config.Config, opts *options) error {
	out, closeLog, err := openLog(opts.logFile, io.Discard)
	if err != nil {
		return err
	}
	defer closeLog()

	s, err := newSession(ctx, cfg, out, opts.metricsAddr)
	if err != nil {
		return err
	}
	defer s.close()

	p := tea.NewProgram(tui.New(ctx, s.runner, cfg), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	if m, ok := final.(tui.Model); ok && m.Err() != nil {
		return fmt.Errorf("simulation halted: %w", m.Err())
	}
	return nil
}
