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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Budget() != 14*time.Second {
		t.Fatalf("default budget = %v, want 14s", cfg.Budget())
	}
	if cfg.LogVerbosity != 0 {
		t.Fatalf("default log_verbosity = %d, want 0", cfg.LogVerbosity)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("budget_seconds: 5\nlog_verbosity: 3\n"), 0o644); err != nil {
		t.Fatalf("writing config fixture: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Budget() != 5*time.Second {
		t.Fatalf("budget = %v, want 5s", cfg.Budget())
	}
	if cfg.LogVerbosity != 3 {
		t.Fatalf("log_verbosity = %d, want 3", cfg.LogVerbosity)
	}
}

func TestLoadFabricPresetDecodesShapeAndTypes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "preset.yaml")
	yaml := `
shape:
  domains: 2
  racks: 2
  pms: 2
  nodes: 2
node_template:
  cpu: 10
  memory: 10
types:
  - nodes_required: 1
    cpu_per_node: 4
    memory_per_node: 4
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing preset fixture: %v", err)
	}

	preset, err := LoadFabricPreset(path)
	if err != nil {
		t.Fatalf("LoadFabricPreset: %v", err)
	}
	if preset.Shape.Domains != 2 || preset.Shape.Nodes != 2 {
		t.Fatalf("shape = %+v", preset.Shape)
	}
	if len(preset.Types) != 1 || preset.Types[0].CPUPerNode != 4 {
		t.Fatalf("types = %+v", preset.Types)
	}
}
