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

// Command vmplacer runs one placement session against stdin/stdout, per
// spec.md 6. It is thin wiring: real clock, real config, real transcoder;
// all decision logic lives in pkg/algorithm.
package main

import (
	"flag"
	"fmt"
	"os"

	"k8s.io/klog"

	"github.com/coredc/vmplacer/pkg/algorithm"
	"github.com/coredc/vmplacer/pkg/config"
	"github.com/coredc/vmplacer/internal"
	"github.com/coredc/vmplacer/pkg/protocol"
)

func main() {
	configPath := flag.String("config", "", "path to a viper-supported config file (optional)")
	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	cfg, err := config.Load(*configPath)
	if err != nil {
		klog.Errorf("loading config: %v", err)
		os.Exit(0)
	}
	if err := config.WatchVerbosity(*configPath, setVerbosity); err != nil {
		klog.Warningf("verbosity hot-reload disabled: %v", err)
	}

	dec := protocol.NewDecoder(os.Stdin)
	enc := protocol.NewEncoder(os.Stdout)

	session, err := internal.NewSession(dec, enc, algorithm.SystemClock{})
	if err != nil {
		klog.Errorf("building session: %v", err)
		os.Exit(0)
	}
	session.SetBudget(cfg.Budget())

	if err := session.Run(); err != nil {
		klog.Errorf("session ended abnormally: %v", err)
	}
}

func setVerbosity(level int) {
	if err := flag.Set("v", fmt.Sprintf("%d", level)); err != nil {
		klog.Warningf("setting log verbosity to %d: %v", level, err)
	}
}
