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

// Package internal glues the placement core (pkg/algorithm) to its external
// collaborators: a request source, a response sink, and the process logger.
// It is where spec.md 1's "external collaborators, specified only by the
// contract they present to the core" actually get wired up; pkg/protocol
// supplies the default stdin/stdout implementations of RequestSource and
// ResponseSink.
package internal

import (
	"errors"
	"io"
	"time"

	"k8s.io/klog"

	"github.com/coredc/vmplacer/pkg/algorithm"
	"github.com/coredc/vmplacer/pkg/api"
	"github.com/coredc/vmplacer/pkg/common"
)

// RequestSource decodes one request record at a time. io.EOF signals a
// stream that ended without an explicit terminate request, which Session
// treats identically to one. pkg/protocol.Decoder satisfies this directly.
type RequestSource interface {
	ReadPreamble() (api.Preamble, error)
	ReadRequest() (api.Request, error)
}

// ResponseSink emits the two response shapes a session can produce.
type ResponseSink interface {
	WritePlacements([]api.NodePlacement) error
	WriteFailure() error
}

// Session runs one placement session end to end: build the fabric/catalog
// from the decoded preamble, then dispatch requests to the Engine until
// terminate, EOF, or a terminal error, per spec.md 4.6/7.
type Session struct {
	id     string
	engine *algorithm.Engine
	source RequestSource
	sink   ResponseSink
}

// NewSession builds the Engine from src's preamble and returns a Session
// ready to Run. clock is injected so callers can drive the wall-clock budget
// deterministically in tests (spec.md 9).
func NewSession(src RequestSource, sink ResponseSink, clock algorithm.Clock) (*Session, error) {
	preamble, err := src.ReadPreamble()
	if err != nil {
		return nil, err
	}

	fabric := algorithm.NewFabric(preamble.Shape.Domains, preamble.Shape.Racks, preamble.Shape.PMs,
		templateSlice(preamble.Templates, func(t api.NodeTemplate) int { return t.CPU }),
		templateSlice(preamble.Templates, func(t api.NodeTemplate) int { return t.Memory }))

	types := make([]algorithm.VMType, len(preamble.Types))
	for i, spec := range preamble.Types {
		types[i] = algorithm.VMType{ID: i + 1, NodesRequired: spec.NodesRequired, CPUPerNode: spec.CPUPerNode, MemoryPerNode: spec.MemoryPerNode}
	}
	catalog := algorithm.NewCatalog(types)

	id := common.NewSessionID()
	klog.V(1).Infof("[session=%s]: started, domains=%d racks=%d pms=%d nodes=%d types=%d",
		id, preamble.Shape.Domains, preamble.Shape.Racks, preamble.Shape.PMs, preamble.Shape.Nodes, len(types))

	return &Session{
		id:     id,
		engine: algorithm.NewEngine(fabric, catalog, clock),
		source: src,
		sink:   sink,
	}, nil
}

// SetBudget overrides the session's wall-clock budget; see
// algorithm.Engine.SetBudget.
func (s *Session) SetBudget(d time.Duration) {
	s.engine.SetBudget(d)
}

func templateSlice(templates []api.NodeTemplate, pick func(api.NodeTemplate) int) []int {
	out := make([]int, len(templates))
	for i, t := range templates {
		out[i] = pick(t)
	}
	return out
}

// Run dispatches requests until the session ends. It always returns nil for
// the protocol-defined terminal outcomes (terminate, EOF, infeasible create,
// time budget exceeded) since spec.md 6 mandates exit code 0 in every
// termination; only a malformed request stream (a decode error) or a failure
// to write a response is returned to the caller as an actual error.
func (s *Session) Run() error {
	for {
		req, err := s.source.ReadRequest()
		if errors.Is(err, io.EOF) {
			klog.V(1).Infof("[session=%s]: stream ended without terminate", s.id)
			return nil
		}
		if err != nil {
			return err
		}

		switch req.Tag {
		case api.TagCreatePG:
			c := req.CreatePG
			s.engine.CreatePG(c.PGID, c.HardRackAntiAffinityPartitions, c.SoftPMAntiAffinity,
				algorithm.Affinity(c.DomainAffinity), algorithm.Affinity(c.RackAffinity))

		case api.TagCreateVMs:
			c := req.CreateVMs
			vms, err := s.engine.CreateVMs(c.PGID, c.TypeIndex, c.VMIDs, c.Partition)
			if err != nil {
				klog.V(1).Infof("[session=%s]: create failed: %v", s.id, err)
				return s.sink.WriteFailure()
			}
			if err := s.sink.WritePlacements(toPlacements(vms)); err != nil {
				return err
			}

		case api.TagDeleteVMs:
			if err := s.engine.DeleteVMs(req.DeleteVMs.VMIDs); err != nil {
				klog.Errorf("[session=%s]: delete failed: %v", s.id, err)
				return nil
			}

		case api.TagTerminate:
			klog.V(1).Infof("[session=%s]: terminate", s.id)
			return nil
		}
	}
}

func toPlacements(vms []*algorithm.VM) []api.NodePlacement {
	out := make([]api.NodePlacement, len(vms))
	for i, vm := range vms {
		d, r, p := vm.FirstNodePM()
		nodes := make([]int, len(vm.Nodes))
		for j, addr := range vm.Nodes {
			nodes[j] = addr.Node
		}
		out[i] = api.NodePlacement{Domain: d, Rack: r, PM: p, Nodes: nodes}
	}
	return out
}
