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
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/planstages/cmd/planstages/config"
	"github.com/AleutianAI/planstages/pkg/logging"
	"github.com/AleutianAI/planstages/services/stages/engine"
	"github.com/AleutianAI/planstages/services/stages/telemetry"
)

// cli holds the state shared by every command of one invocation.
type cli struct {
	out    io.Writer
	errOut io.Writer

	// flags
	configPath     string
	logLevel       string
	jsonOutput     bool
	noColor        bool
	workers        int
	maxStages      int
	maxSearchSteps int
	strict         bool
	cacheDir       string
	noCache        bool
	metricsAddr    string

	cfg      config.Config
	logger   *logging.Logger
	shutdown func(context.Context) error
}

// run executes the command line and returns the process exit code.
func run(args []string, out, errOut io.Writer) int {
	c := &cli{out: out, errOut: errOut}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	c.close()
	if err != nil {
		fmt.Fprintf(errOut, "Error: %v\n", err)
		if errors.Is(err, engine.ErrAnalysisIncomplete) {
			return 2
		}
		return 1
	}
	return 0
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "planstages",
		Short: "Static feature, mutex and stage analysis of grounded planning tasks",
		Long: `planstages reads a grounded planning task (YAML or JSON documents holding
types, predicates, operators, objects, initial state and goal) and reports,
for every type, the feature classes, transition rules, mutually exclusive
features and the basic, additional and combined stages an object can be in.

When a problem is given, every object is placed in its current stage and
matched against the stages consistent with the goal.

Configuration is read from ~/.planstages/config.yaml (created on first run);
flags override the file.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "Config file (default ~/.planstages/config.yaml)")
	pf.StringVar(&c.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.BoolVar(&c.jsonOutput, "json", false, "Output as JSON for scripting")
	pf.BoolVar(&c.noColor, "no-color", false, "Disable colored output")
	pf.IntVar(&c.workers, "workers", 0, "Types analysed concurrently (0 = one per CPU)")
	pf.IntVar(&c.maxStages, "max-stages", 0, "Maximum stages per collection (0 = unlimited)")
	pf.IntVar(&c.maxSearchSteps, "max-search-steps", 0, "Maximum mutex search steps per type (0 = unlimited)")
	pf.BoolVar(&c.strict, "strict", false, "Fail when a limit truncates the analysis")
	pf.StringVar(&c.cacheDir, "cache-dir", "", "Enable the report cache in this directory")
	pf.BoolVar(&c.noCache, "no-cache", false, "Disable the report cache")

	root.AddCommand(c.analyzeCmd(), c.classifyCmd(), c.watchCmd(), c.versionCmd())
	return root
}

// setup loads the configuration, applies flag overrides and starts logging
// and telemetry.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = c.logLevel
	}
	if flags.Changed("workers") {
		cfg.Analysis.Workers = c.workers
	}
	if flags.Changed("max-stages") {
		cfg.Analysis.MaxStages = c.maxStages
	}
	if flags.Changed("max-search-steps") {
		cfg.Analysis.MaxSearchSteps = c.maxSearchSteps
	}
	if flags.Changed("strict") {
		cfg.Analysis.Strict = c.strict
	}
	if c.cacheDir != "" {
		cfg.Cache.Enabled = true
		cfg.Cache.Dir = c.cacheDir
	}
	if c.noCache {
		cfg.Cache.Enabled = false
	}
	if c.metricsAddr != "" {
		cfg.Telemetry.Metrics = telemetry.ExporterPrometheus
	}
	c.cfg = cfg

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	c.logger = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Log.Dir,
		Service: "planstages",
		JSON:    cfg.Log.JSON,
		Output:  c.errOut,
	})

	shutdown, err := telemetry.Init(cmd.Context(), cfg.OTel(version))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	c.shutdown = shutdown
	return nil
}

func (c *cli) close() {
	if c.shutdown != nil {
		if err := c.shutdown(context.Background()); err != nil && c.logger != nil {
			c.logger.Slog().Warn("telemetry shutdown failed", slog.String("error", err.Error()))
		}
		c.shutdown = nil
	}
	if c.logger != nil {
		_ = c.logger.Close()
		c.logger = nil
	}
}

func (c *cli) slog() *slog.Logger {
	if c.logger == nil {
		return slog.Default()
	}
	return c.logger.Slog()
}

func (c *cli) engine() *engine.Engine {
	a := c.cfg.Analysis
	opts := []engine.Option{
		engine.WithMaxStages(a.MaxStages),
		engine.WithMaxSearchSteps(a.MaxSearchSteps),
		engine.WithStrictLimits(a.Strict),
		engine.WithLogger(c.slog()),
	}
	if a.Workers > 0 {
		opts = append(opts, engine.WithWorkerCount(a.Workers))
	}
	return engine.New(opts...)
}

// color reports whether text output should be styled.
func (c *cli) color() bool {
	if c.noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := c.out.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the planstages version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(c.out, "planstages %s\n", version)
			return err
		},
	}
}
