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
	"bufio"
	"io"
	"strconv"

	"github.com/coredc/vmplacer/pkg/api"
)

// Encoder writes the response side of spec.md 6's wire contract.
type Encoder struct {
	w *bufio.Writer
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w)}
}

// WritePlacements emits one line per placement, in the order given
// (the caller is responsible for that order matching the request's VM ids).
func (e *Encoder) WritePlacements(placements []api.NodePlacement) error {
	for _, p := range placements {
		if err := e.writePlacement(p); err != nil {
			return err
		}
	}
	return e.w.Flush()
}

func (e *Encoder) writePlacement(p api.NodePlacement) error {
	if _, err := e.w.WriteString(strconv.Itoa(p.Domain)); err != nil {
		return err
	}
	for _, v := range append([]int{p.Rack, p.PM}, p.Nodes...) {
		if err := e.w.WriteByte(' '); err != nil {
			return err
		}
		if _, err := e.w.WriteString(strconv.Itoa(v)); err != nil {
			return err
		}
	}
	return e.w.WriteByte('\n')
}

// WriteFailure emits the single-line fail marker of spec.md 6, ending the
// session on the caller's side.
func (e *Encoder) WriteFailure() error {
	if _, err := e.w.WriteString("-1\n"); err != nil {
		return err
	}
	return e.w.Flush()
}
