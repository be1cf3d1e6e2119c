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

// Package protocol is the default implementation of the line-oriented
// stdin/stdout wire contract of spec.md 6. It knows nothing about placement
// semantics; it only turns whitespace-delimited tokens into pkg/api values
// and back.
package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/coredc/vmplacer/pkg/api"
)

// ErrMalformed wraps a token stream that does not match the grammar of
// spec.md 6: a missing token inside a request record, a non-integer, or an
// unrecognized request tag.
var ErrMalformed = errors.New("malformed request")

// Decoder reads the session preamble and then a stream of Requests from a
// whitespace/newline-tokenized reader.
type Decoder struct {
	sc *bufio.Scanner
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4<<20)
	sc.Split(bufio.ScanWords)
	return &Decoder{sc: sc}
}

func (d *Decoder) token() (string, error) {
	if !d.sc.Scan() {
		if err := d.sc.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return d.sc.Text(), nil
}

func (d *Decoder) int() (int, error) {
	tok, err := d.token()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(tok)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not an integer", ErrMalformed, tok)
	}
	return v, nil
}

func (d *Decoder) ints(n int) ([]int, error) {
	out := make([]int, n)
	for i := range out {
		v, err := d.int()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ReadPreamble decodes the three preamble sections of spec.md 6 in order.
func (d *Decoder) ReadPreamble() (api.Preamble, error) {
	var p api.Preamble

	shape, err := d.ints(4)
	if err != nil {
		return p, fmt.Errorf("reading fabric shape: %w", err)
	}
	p.Shape = api.FabricShape{Domains: shape[0], Racks: shape[1], PMs: shape[2], Nodes: shape[3]}

	p.Templates = make([]api.NodeTemplate, p.Shape.Nodes)
	for i := range p.Templates {
		cm, err := d.ints(2)
		if err != nil {
			return p, fmt.Errorf("reading node template %d: %w", i, err)
		}
		p.Templates[i] = api.NodeTemplate{CPU: cm[0], Memory: cm[1]}
	}

	numTypes, err := d.int()
	if err != nil {
		return p, fmt.Errorf("reading VM type count: %w", err)
	}
	p.Types = make([]api.VMTypeSpec, numTypes)
	for i := range p.Types {
		spec, err := d.ints(3)
		if err != nil {
			return p, fmt.Errorf("reading VM type %d: %w", i, err)
		}
		p.Types[i] = api.VMTypeSpec{NodesRequired: spec[0], CPUPerNode: spec[1], MemoryPerNode: spec[2]}
	}

	return p, nil
}

// ReadRequest decodes one tag-first request record. It returns io.EOF only
// when the stream ends before a tag token, which the caller should treat the
// same as an explicit terminate request.
func (d *Decoder) ReadRequest() (req api.Request, err error) {
	tag, err := d.int()
	if err != nil {
		return api.Request{}, err
	}
	// Past the tag, running out of tokens is a truncated record.
	defer func() {
		if errors.Is(err, io.EOF) {
			err = fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}()

	switch api.RequestTag(tag) {
	case api.TagCreatePG:
		fields, err := d.ints(5)
		if err != nil {
			return api.Request{}, fmt.Errorf("decoding createPG: %w", err)
		}
		return api.Request{
			Tag: api.TagCreatePG,
			CreatePG: api.CreatePGRequest{
				PGID:                           fields[0],
				HardRackAntiAffinityPartitions: fields[1],
				SoftPMAntiAffinity:             fields[2],
				DomainAffinity:                 fields[3],
				RackAffinity:                   fields[4],
			},
		}, nil

	case api.TagCreateVMs:
		head, err := d.ints(4)
		if err != nil {
			return api.Request{}, fmt.Errorf("decoding createVMs header: %w", err)
		}
		n, typeIdx, pgID, partition := head[0], head[1], head[2], head[3]
		ids, err := d.ints(n)
		if err != nil {
			return api.Request{}, fmt.Errorf("decoding createVMs ids: %w", err)
		}
		return api.Request{
			Tag: api.TagCreateVMs,
			CreateVMs: api.CreateVMsRequest{
				TypeIndex: typeIdx,
				PGID:      pgID,
				Partition: partition,
				VMIDs:     ids,
			},
		}, nil

	case api.TagDeleteVMs:
		n, err := d.int()
		if err != nil {
			return api.Request{}, fmt.Errorf("decoding deleteVMs count: %w", err)
		}
		ids, err := d.ints(n)
		if err != nil {
			return api.Request{}, fmt.Errorf("decoding deleteVMs ids: %w", err)
		}
		return api.Request{Tag: api.TagDeleteVMs, DeleteVMs: api.DeleteVMsRequest{VMIDs: ids}}, nil

	case api.TagTerminate:
		return api.Request{Tag: api.TagTerminate}, nil

	default:
		return api.Request{}, fmt.Errorf("%w: unknown request tag %d", ErrMalformed, tag)
	}
}
