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

package algorithm

import "fmt"

// VMType is an immutable template declared once at session start.
type VMType struct {
	ID            int
	NodesRequired int
	CPUPerNode    int
	MemoryPerNode int
}

// RackKey globally identifies a rack by (domain, rack) id pair.
type RackKey struct {
	Domain int
	Rack   int
}

// VM is a single virtual machine. Nodes is empty while unplaced; once placed
// it holds exactly Type.NodesRequired distinct nodes, all on the same PM.
type VM struct {
	ID        int
	Type      *VMType
	PG        *PG
	Partition int
	Nodes     []NodeAddr
}

func (vm *VM) IsPlaced() bool { return len(vm.Nodes) > 0 }

// FirstNodePM returns the PM owning this VM's first node, which is the PM of
// record for anti-affinity bookkeeping.
func (vm *VM) FirstNodePM() (domain, rack, pm int) {
	a := vm.Nodes[0]
	return a.Domain, a.Rack, a.PM
}

// Catalog is the immutable lookup of VM types plus the live registries of PGs
// and VMs by id.
type Catalog struct {
	Types []VMType // 1-indexed: Types[i] has ID i+1
	PGs   map[int]*PG
	VMs   map[int]*VM
}

func NewCatalog(types []VMType) *Catalog {
	return &Catalog{
		Types: types,
		PGs:   map[int]*PG{},
		VMs:   map[int]*VM{},
	}
}

func (c *Catalog) Type(idx int) (*VMType, error) {
	if idx < 1 || idx > len(c.Types) {
		return nil, fmt.Errorf("%w: unknown VM type index %d", ErrProtocol, idx)
	}
	return &c.Types[idx-1], nil
}

func (c *Catalog) PG(id int) (*PG, error) {
	pg, ok := c.PGs[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown PG id %d", ErrProtocol, id)
	}
	return pg, nil
}

func (c *Catalog) VM(id int) (*VM, error) {
	vm, ok := c.VMs[id]
	if !ok {
		return nil, fmt.Errorf("%w: unknown VM id %d", ErrProtocol, id)
	}
	return vm, nil
}
