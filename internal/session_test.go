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

package internal

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/coredc/vmplacer/pkg/protocol"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func TestSessionRunPlacesAndTerminates(t *testing.T) {
	input := strings.Join([]string{
		"1 1 1 2", // 1 domain, 1 rack, 1 pm, 2 nodes
		"10 10",
		"10 10",
		"1",
		"1 4 4",
		"1 1 0 0 0 0", // createPG pg=1, no partitions/soft-pm-aa/affinity
		"2 1 1 1 0 5", // createVMs: 1 vm, type 1, pg 1, partition 0, id 5
		"4",           // terminate
	}, "\n") + "\n"

	dec := protocol.NewDecoder(strings.NewReader(input))
	var out bytes.Buffer
	enc := protocol.NewEncoder(&out)

	s, err := NewSession(dec, enc, fixedClock{now: time.Unix(0, 0)})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "1 1 1 1\n"
	if out.String() != want {
		t.Fatalf("output = %q, want %q", out.String(), want)
	}
}

func TestSessionRunWritesFailureOnInfeasibleCreate(t *testing.T) {
	input := strings.Join([]string{
		"1 1 1 1",
		"5 5",
		"1",
		"1 4 4",
		"1 1 0 0 0 0",
		"2 2 1 1 0 1 2", // 2 VMs, but the single node can only fit 1
		"4",
	}, "\n") + "\n"

	dec := protocol.NewDecoder(strings.NewReader(input))
	var out bytes.Buffer
	enc := protocol.NewEncoder(&out)

	s, err := NewSession(dec, enc, fixedClock{now: time.Unix(0, 0)})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if out.String() != "-1\n" {
		t.Fatalf("output = %q, want failure sentinel", out.String())
	}
}

func TestSessionRunEndsCleanlyOnEOFWithoutTerminate(t *testing.T) {
	input := strings.Join([]string{
		"1 1 1 1",
		"10 10",
		"1",
		"1 4 4",
	}, "\n") + "\n"

	dec := protocol.NewDecoder(strings.NewReader(input))
	var out bytes.Buffer
	enc := protocol.NewEncoder(&out)

	s, err := NewSession(dec, enc, fixedClock{now: time.Unix(0, 0)})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if err := s.Run(); err != nil {
		t.Fatalf("expected a clean nil return on EOF, got %v", err)
	}
}
