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
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/protozoa/services/protozoa/config"
)

// options holds the persistent flags shared by every subcommand.
type options struct {
	configPath  string
	seed        uint64
	logLevel    string
	logFormat   string
	logFile     string
	maxTicks    uint64
	metricsAddr string
}

// newRootCmd builds the command tree.
func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "protozoa",
		Short: "An active-inference protozoan in a simulated petri dish",
		Long: `Protozoa runs a single agent that navigates a drifting nutrient field by
minimising variational free energy and choosing actions by expected free
energy, with spatial memory, landmarks, a Monte Carlo planner and slow
morphological adaptation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	flags.Uint64Var(&opts.seed, "seed", 0, "Seed for every random source (overrides config)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flags.StringVar(&opts.logFormat, "log-format", "", "Log format: text or json")
	flags.StringVar(&opts.logFile, "log-file", "", "Write logs to this file instead of stderr")
	flags.Uint64Var(&opts.maxTicks, "max-ticks", 0, "Stop after N ticks (0 = run until interrupted)")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9464")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run with the live dashboard (headless when stdout is not a terminal)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if !isTerminal(os.Stdout) {
				return runHeadless(cmd.Context(), cfg, opts)
			}
			return runDashboard(cmd.Context(), cfg, opts)
		},
	}

	headlessCmd := &cobra.Command{
		Use:   "headless",
		Short: "Run without a dashboard, logging periodic summaries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runHeadless(cmd.Context(), cfg, opts)
		},
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			out, err := cfg.ToYAML()
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	rootCmd.AddCommand(runCmd, headlessCmd, configCmd)
	return rootCmd
}

// loadConfig merges defaults, file, environment and explicitly set flags,
// in increasing priority, and validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = opts.seed
	}
	if flags.Changed("log-level") {
		cfg.Observability.LogLevel = opts.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Observability.LogFormat = opts.logFormat
	}
	if flags.Changed("max-ticks") {
		cfg.Simulation.MaxTicks = opts.maxTicks
	}
	if opts.metricsAddr != "" && cfg.Observability.MetricExporter == "none" {
		cfg.Observability.MetricExporter = "prometheus"
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
