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

import (
	"fmt"
	"sort"
)

// ResourceCounters tracks total and available CPU/memory at any level of the
// fabric. 0 <= avail <= total is an invariant enforced by Claim/Release.
type ResourceCounters struct {
	TotalCPU    int
	TotalMemory int
	AvailCPU    int
	AvailMemory int
}

func newResourceCounters(cpu, memory int) ResourceCounters {
	return ResourceCounters{TotalCPU: cpu, TotalMemory: memory, AvailCPU: cpu, AvailMemory: memory}
}

// Load is the per-level maximum of CPU and memory load, per spec.md 4.1.
func (rc ResourceCounters) Load() float64 {
	cpuLoad := float64(rc.TotalCPU-rc.AvailCPU) / float64(rc.TotalCPU)
	memLoad := float64(rc.TotalMemory-rc.AvailMemory) / float64(rc.TotalMemory)
	if cpuLoad > memLoad {
		return cpuLoad
	}
	return memLoad
}

func (rc ResourceCounters) hasCapacity(cpu, memory int) bool {
	return rc.AvailCPU >= cpu && rc.AvailMemory >= memory
}

func (rc *ResourceCounters) claim(cpu, memory int) {
	if rc.AvailCPU < cpu || rc.AvailMemory < memory {
		panic(fmt.Errorf("claim would drive resource counters negative: have (%v,%v), want (%v,%v)",
			rc.AvailCPU, rc.AvailMemory, cpu, memory))
	}
	rc.AvailCPU -= cpu
	rc.AvailMemory -= memory
}

func (rc *ResourceCounters) release(cpu, memory int) {
	rc.AvailCPU += cpu
	rc.AvailMemory += memory
	if rc.AvailCPU > rc.TotalCPU || rc.AvailMemory > rc.TotalMemory {
		panic(fmt.Errorf("release would drive resource counters above total: have (%v,%v), total (%v,%v)",
			rc.AvailCPU, rc.AvailMemory, rc.TotalCPU, rc.TotalMemory))
	}
}

// Node is a leaf of the fabric, addressed by (DomainID, RackID, PMID, ID),
// all 1-based and dense within their parent.
type Node struct {
	ID        int
	Resources ResourceCounters
}

func (n *Node) fitCount(t *VMType) int {
	byCPU := n.Resources.AvailCPU / t.CPUPerNode
	byMemory := n.Resources.AvailMemory / t.MemoryPerNode
	if byCPU < byMemory {
		return byCPU
	}
	return byMemory
}

// PM (physical machine) owns an ordered, non-empty sequence of Nodes sharing
// a template, plus vmsByPG: PG id -> count of VMs of that PG whose first
// node lives on this PM.
type PM struct {
	ID        int
	DomainID  int
	RackID    int
	Nodes     []Node
	Resources ResourceCounters
	VMsByPG   map[int]int

	fitCache map[int]int
}

func newPM(id, domainID, rackID int, nodeCPU, nodeMemory []int) PM {
	totalCPU, totalMemory := 0, 0
	nodes := make([]Node, len(nodeCPU))
	for i := range nodeCPU {
		nodes[i] = Node{ID: i + 1, Resources: newResourceCounters(nodeCPU[i], nodeMemory[i])}
		totalCPU += nodeCPU[i]
		totalMemory += nodeMemory[i]
	}
	return PM{
		ID:        id,
		DomainID:  domainID,
		RackID:    rackID,
		Nodes:     nodes,
		Resources: newResourceCounters(totalCPU, totalMemory),
		VMsByPG:   map[int]int{},
		fitCache:  map[int]int{},
	}
}

// NodeAddr returns the fully-qualified address of the node at index i
// (0-based) on this PM.
func (pm *PM) NodeAddr(i int) NodeAddr {
	return NodeAddr{Domain: pm.DomainID, Rack: pm.RackID, PM: pm.ID, Node: pm.Nodes[i].ID}
}

// FitCount is the weakest-node-first packing bound of spec.md 4.1: sort node
// fit counts ascending and sum every nodesRequired-th entry.
func (pm *PM) FitCount(t *VMType) int {
	if v, ok := pm.fitCache[t.ID]; ok {
		return v
	}

	byNode := make([]int, len(pm.Nodes))
	for i := range pm.Nodes {
		byNode[i] = pm.Nodes[i].fitCount(t)
	}
	sort.Ints(byNode)

	count := 0
	for i := 0; i < len(byNode); i += t.NodesRequired {
		count += byNode[i]
	}

	pm.fitCache[t.ID] = count
	return count
}

func (pm *PM) invalidate() {
	pm.fitCache = map[int]int{}
}

// Rack contains an ordered sequence of PMs and aggregates their resources.
// DomainID lets callers holding only a *Rack recover its RackKey without a
// parent pointer, per spec.md 9's arena-addressing redesign.
type Rack struct {
	ID        int
	DomainID  int
	PMs       []PM
	Resources ResourceCounters

	fitCache map[int]int
}

func newRack(id, domainID, noPMs int, nodeCPU, nodeMemory []int) Rack {
	pms := make([]PM, noPMs)
	totalCPU, totalMemory := 0, 0
	for i := 0; i < noPMs; i++ {
		pms[i] = newPM(i+1, domainID, id, nodeCPU, nodeMemory)
		totalCPU += pms[i].Resources.TotalCPU
		totalMemory += pms[i].Resources.TotalMemory
	}
	return Rack{
		ID:        id,
		DomainID:  domainID,
		PMs:       pms,
		Resources: newResourceCounters(totalCPU, totalMemory),
		fitCache:  map[int]int{},
	}
}

// Key returns the RackKey identifying this rack.
func (r *Rack) Key() RackKey { return RackKey{Domain: r.DomainID, Rack: r.ID} }

func (r *Rack) FitCount(t *VMType) int {
	if v, ok := r.fitCache[t.ID]; ok {
		return v
	}
	count := 0
	for i := range r.PMs {
		count += r.PMs[i].FitCount(t)
	}
	r.fitCache[t.ID] = count
	return count
}

func (r *Rack) invalidate() {
	r.fitCache = map[int]int{}
}

// Domain is the top-level failure domain, containing an ordered sequence of
// Racks.
type Domain struct {
	ID        int
	Racks     []Rack
	Resources ResourceCounters

	fitCache map[int]int
}

func newDomain(id, noRacks, noPMs int, nodeCPU, nodeMemory []int) Domain {
	racks := make([]Rack, noRacks)
	totalCPU, totalMemory := 0, 0
	for i := 0; i < noRacks; i++ {
		racks[i] = newRack(i+1, id, noPMs, nodeCPU, nodeMemory)
		totalCPU += racks[i].Resources.TotalCPU
		totalMemory += racks[i].Resources.TotalMemory
	}
	return Domain{
		ID:        id,
		Racks:     racks,
		Resources: newResourceCounters(totalCPU, totalMemory),
		fitCache:  map[int]int{},
	}
}

func (d *Domain) FitCount(t *VMType) int {
	if v, ok := d.fitCache[t.ID]; ok {
		return v
	}
	count := 0
	for i := range d.Racks {
		count += d.Racks[i].FitCount(t)
	}
	d.fitCache[t.ID] = count
	return count
}

func (d *Domain) invalidate() {
	d.fitCache = map[int]int{}
}

// NodeAddr is a fully-qualified, 1-based address of a Node in the fabric.
type NodeAddr struct {
	Domain int
	Rack   int
	PM     int
	Node   int
}

// Fabric is the four-level resource tree Domain -> Rack -> PM -> Node. It is
// an arena: cross-references are 1-based indices (NodeAddr), never pointers,
// per spec.md 9's redesign flag against bidirectional parent pointers.
type Fabric struct {
	Domains []Domain
}

// NewFabric builds a fabric of the given shape, applying the same per-node
// CPU/memory template to every PM.
func NewFabric(noDomains, noRacks, noPMs int, nodeCPU, nodeMemory []int) *Fabric {
	domains := make([]Domain, noDomains)
	for i := 0; i < noDomains; i++ {
		domains[i] = newDomain(i+1, noRacks, noPMs, nodeCPU, nodeMemory)
	}
	return &Fabric{Domains: domains}
}

func (f *Fabric) Domain(id int) *Domain { return &f.Domains[id-1] }
func (f *Fabric) Rack(domainID, rackID int) *Rack {
	return &f.Domains[domainID-1].Racks[rackID-1]
}
func (f *Fabric) PM(domainID, rackID, pmID int) *PM {
	return &f.Domains[domainID-1].Racks[rackID-1].PMs[pmID-1]
}
func (f *Fabric) Node(addr NodeAddr) *Node {
	return &f.Domains[addr.Domain-1].Racks[addr.Rack-1].PMs[addr.PM-1].Nodes[addr.Node-1]
}

// AllRacks returns every rack in the fabric, domain-major, rack-minor order.
func (f *Fabric) AllRacks() []*Rack {
	var out []*Rack
	for di := range f.Domains {
		d := &f.Domains[di]
		for ri := range d.Racks {
			out = append(out, &d.Racks[ri])
		}
	}
	return out
}

// Claim reserves one VM-worth of type t at addr and every ancestor level.
// Precondition: addr's node currently has capacity for t; callers (the
// Placer) are responsible for only calling Claim once fits_whole/has_capacity
// have been checked.
func (f *Fabric) Claim(addr NodeAddr, t *VMType) {
	node := f.Node(addr)
	pm := f.PM(addr.Domain, addr.Rack, addr.PM)
	rack := f.Rack(addr.Domain, addr.Rack)
	domain := f.Domain(addr.Domain)

	node.Resources.claim(t.CPUPerNode, t.MemoryPerNode)
	pm.Resources.claim(t.CPUPerNode, t.MemoryPerNode)
	rack.Resources.claim(t.CPUPerNode, t.MemoryPerNode)
	domain.Resources.claim(t.CPUPerNode, t.MemoryPerNode)

	pm.invalidate()
	rack.invalidate()
	domain.invalidate()
}

// Release reverses a prior Claim. The caller must ensure addr currently holds
// that reservation; releasing an unclaimed node is an invariant violation.
func (f *Fabric) Release(addr NodeAddr, t *VMType) {
	node := f.Node(addr)
	pm := f.PM(addr.Domain, addr.Rack, addr.PM)
	rack := f.Rack(addr.Domain, addr.Rack)
	domain := f.Domain(addr.Domain)

	node.Resources.release(t.CPUPerNode, t.MemoryPerNode)
	pm.Resources.release(t.CPUPerNode, t.MemoryPerNode)
	rack.Resources.release(t.CPUPerNode, t.MemoryPerNode)
	domain.Resources.release(t.CPUPerNode, t.MemoryPerNode)

	pm.invalidate()
	rack.invalidate()
	domain.invalidate()
}

// FitsWhole is the fast, necessary-not-sufficient capacity filter of
// spec.md 4.1: does the level have enough raw CPU/memory for the whole VM,
// ignoring per-node packing.
func FitsWhole(rc ResourceCounters, t *VMType) bool {
	return rc.hasCapacity(t.NodesRequired*t.CPUPerNode, t.NodesRequired*t.MemoryPerNode)
}
