// MIT License
//
// Copyright (c) Microsoft Corporation. All rights reserved.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE

// Package config carries the ambient operational knobs of the process: the
// wall-clock budget override, log verbosity, and an optional fabric preset
// for local runs that don't want to hand-compose a session preamble.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v2"

	"github.com/coredc/vmplacer/pkg/api"
)

// Config is the process-level configuration, loaded from a viper-supported
// file (YAML/JSON/TOML/etc).
type Config struct {
	BudgetSeconds    int    `mapstructure:"budget_seconds"`
	LogVerbosity     int    `mapstructure:"log_verbosity"`
	FabricPresetPath string `mapstructure:"fabric_preset_path"`
}

// Load reads path (if non-empty) with viper, applying the spec.md 5 default
// budget when the file doesn't set one. An empty path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Config{BudgetSeconds: 14, LogVerbosity: 0}
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("budget_seconds", cfg.BudgetSeconds)
	v.SetDefault("log_verbosity", cfg.LogVerbosity)

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decoding config %s: %w", path, err)
	}
	return cfg, nil
}

// Budget returns the configured wall-clock budget as a time.Duration.
func (c Config) Budget() time.Duration {
	return time.Duration(c.BudgetSeconds) * time.Second
}

// WatchVerbosity hot-reloads log_verbosity from path via fsnotify (through
// viper's file watcher) and calls onChange with the new value whenever the
// file is edited. It is fire-and-forget: the watch goroutine lives for the
// life of the process.
func WatchVerbosity(path string, onChange func(int)) error {
	if path == "" {
		return nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("log_verbosity", 0)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}

	v.WatchConfig()
	v.OnConfigChange(func(fsnotify.Event) {
		onChange(v.GetInt("log_verbosity"))
	})
	return nil
}

// FabricPreset describes a fabric shape and VM type catalog for local runs
// and tests that would rather load a named shape than hand-compose a session
// preamble on stdin.
type FabricPreset struct {
	Shape        api.FabricShape  `yaml:"shape"`
	NodeTemplate api.NodeTemplate `yaml:"node_template"`
	Types        []api.VMTypeSpec `yaml:"types"`
}

// LoadFabricPreset decodes a FabricPreset from a YAML file.
func LoadFabricPreset(path string) (FabricPreset, error) {
	var preset FabricPreset

	data, err := os.ReadFile(path)
	if err != nil {
		return preset, fmt.Errorf("reading fabric preset %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &preset); err != nil {
		return preset, fmt.Errorf("decoding fabric preset %s: %w", path, err)
	}
	return preset, nil
}
