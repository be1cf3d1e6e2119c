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

package protocol

import (
	"bytes"
	"testing"

	"github.com/coredc/vmplacer/pkg/api"
)

func TestWritePlacementsFormatsDomainRackPMThenNodes(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)

	err := e.WritePlacements([]api.NodePlacement{
		{Domain: 1, Rack: 2, PM: 3, Nodes: []int{1, 2}},
		{Domain: 2, Rack: 1, PM: 1, Nodes: []int{1}},
	})
	if err != nil {
		t.Fatalf("WritePlacements: %v", err)
	}

	want := "1 2 3 1 2\n2 1 1 1\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestWriteFailureEmitsSentinel(t *testing.T) {
	var buf bytes.Buffer
	e := NewEncoder(&buf)

	if err := e.WriteFailure(); err != nil {
		t.Fatalf("WriteFailure: %v", err)
	}
	if buf.String() != "-1\n" {
		t.Fatalf("output = %q, want %q", buf.String(), "-1\n")
	}
}
