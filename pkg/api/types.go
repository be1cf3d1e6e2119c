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

// Package api holds the plain, dependency-free value types that cross the
// boundary between the wire transcoder (pkg/protocol) and the placement core
// (pkg/algorithm), per spec.md 6.
package api

// RequestTag is the first token of every request record.
type RequestTag int

const (
	TagCreatePG  RequestTag = 1
	TagCreateVMs RequestTag = 2
	TagDeleteVMs RequestTag = 3
	TagTerminate RequestTag = 4
)

// FabricShape is the session preamble's first line: D R M N. The yaml tags
// let pkg/config decode the same type from a fabric preset file.
type FabricShape struct {
	Domains int `yaml:"domains"`
	Racks   int `yaml:"racks"`
	PMs     int `yaml:"pms"`
	Nodes   int `yaml:"nodes"`
}

// NodeTemplate is one of the preamble's N `cpu memory` lines, applied to
// every PM in the fabric.
type NodeTemplate struct {
	CPU    int `yaml:"cpu"`
	Memory int `yaml:"memory"`
}

// VMTypeSpec is one of the preamble's T `nodes_required cpu_per_node
// memory_per_node` lines.
type VMTypeSpec struct {
	NodesRequired int `yaml:"nodes_required"`
	CPUPerNode    int `yaml:"cpu_per_node"`
	MemoryPerNode int `yaml:"memory_per_node"`
}

// Preamble is the whole session preamble, decoded once before any request.
type Preamble struct {
	Shape     FabricShape
	Templates []NodeTemplate
	Types     []VMTypeSpec
}

// CreatePGRequest is tag 1: `pg_id hard_parts soft_pm_aa dom_aff rack_aff`.
type CreatePGRequest struct {
	PGID                           int
	HardRackAntiAffinityPartitions int
	SoftPMAntiAffinity             int
	DomainAffinity                 int
	RackAffinity                   int
}

// CreateVMsRequest is tag 2: `n type_idx pg_id partition id_1 ... id_n`.
type CreateVMsRequest struct {
	TypeIndex int
	PGID      int
	Partition int
	VMIDs     []int
}

// DeleteVMsRequest is tag 3: `n id_1 ... id_n`.
type DeleteVMsRequest struct {
	VMIDs []int
}

// NodePlacement is one VM's committed address: `domain rack pm node_1 ... node_k`.
type NodePlacement struct {
	Domain int
	Rack   int
	PM     int
	Nodes  []int
}

// Request is the decoded form of one request record, tagged by Tag with only
// the matching field populated. It is the shared shape between pkg/protocol
// (which produces it) and internal (which consumes it), so a decoder
// concretely satisfies internal.RequestSource without either package
// depending on the other.
type Request struct {
	Tag       RequestTag
	CreatePG  CreatePGRequest
	CreateVMs CreateVMsRequest
	DeleteVMs DeleteVMsRequest
}
