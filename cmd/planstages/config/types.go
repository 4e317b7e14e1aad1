// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config holds the planstages CLI configuration file.
package config

import (
	"time"

	"github.com/AleutianAI/planstages/services/stages/telemetry"
)

// Config is the on-disk CLI configuration. Command-line flags override it.
type Config struct {
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Cache     CacheConfig     `yaml:"cache"`
}

// AnalysisConfig tunes the stage engine.
type AnalysisConfig struct {
	// Workers is the number of types analysed concurrently. 0 means one per CPU.
	Workers int `yaml:"workers" validate:"gte=0"`

	// MaxStages caps each stage collection. 0 means unlimited.
	MaxStages int `yaml:"max_stages" validate:"gte=0"`

	// MaxSearchSteps caps the mutex search per type. 0 means unlimited.
	MaxSearchSteps int `yaml:"max_search_steps" validate:"gte=0"`

	// Strict turns a capped analysis into an error.
	Strict bool `yaml:"strict"`
}

// LogConfig configures process logging.
type LogConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
	Dir   string `yaml:"dir,omitempty"`
	JSON  bool   `yaml:"json"`
}

// TelemetryConfig selects OpenTelemetry exporters. Empty fields defer to
// the OTEL_* environment variables.
type TelemetryConfig struct {
	Traces       string `yaml:"traces,omitempty" validate:"omitempty,oneof=none otlp stdout"`
	Metrics      string `yaml:"metrics,omitempty" validate:"omitempty,oneof=none prometheus stdout"`
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
}

// CacheConfig configures the report cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Dir     string        `yaml:"dir"`
	TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
}

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() Config {
	return Config{
		Analysis: AnalysisConfig{
			MaxStages:      100000,
			MaxSearchSteps: 10000000,
		},
		Log: LogConfig{
			Level: "warn",
		},
		Cache: CacheConfig{
			Enabled: false,
			Dir:     "~/.planstages/cache",
			TTL:     24 * time.Hour,
		},
	}
}

// OTel merges the file settings over telemetry.DefaultConfig().
func (c Config) OTel(version string) telemetry.Config {
	tc := telemetry.DefaultConfig()
	tc.ServiceVersion = version
	if c.Telemetry.Traces != "" {
		tc.TraceExporter = c.Telemetry.Traces
	}
	if c.Telemetry.Metrics != "" {
		tc.MetricExporter = c.Telemetry.Metrics
	}
	if c.Telemetry.OTLPEndpoint != "" {
		tc.OTLPEndpoint = c.Telemetry.OTLPEndpoint
	}
	return tc
}
