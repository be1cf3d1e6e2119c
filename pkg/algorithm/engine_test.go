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
	"errors"
	"testing"
	"time"
)

// fakeClock is the injectable Clock of spec.md 9, driven by hand in tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }
func (c *fakeClock) advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newTestEngine() (*Engine, *fakeClock) {
	f := NewFabric(2, 2, 2, []int{10, 10}, []int{10, 10})
	c := NewCatalog([]VMType{
		{ID: 1, NodesRequired: 1, CPUPerNode: 4, MemoryPerNode: 4},
		{ID: 2, NodesRequired: 2, CPUPerNode: 6, MemoryPerNode: 6},
	})
	clock := &fakeClock{now: time.Unix(0, 0)}
	return NewEngine(f, c, clock), clock
}

// Scenario 1: first-fit single VM, then delete restores capacity exactly.
func TestScenarioFirstFitAndDelete(t *testing.T) {
	e, _ := newTestEngine()
	e.CreatePG(1, 0, 0, AffinityNone, AffinityNone)

	before := *e.Fabric.Domain(1)
	vms, err := e.CreateVMs(1, 1, []int{1}, 0)
	if err != nil {
		t.Fatalf("CreateVMs: %v", err)
	}
	if len(vms) != 1 || !vms[0].IsPlaced() {
		t.Fatalf("expected 1 placed VM, got %+v", vms)
	}

	if err := e.DeleteVMs([]int{1}); err != nil {
		t.Fatalf("DeleteVMs: %v", err)
	}
	after := e.Fabric.Domain(1)
	if after.Resources != before.Resources {
		t.Fatalf("delete did not restore domain resources: got %+v, want %+v", after.Resources, before.Resources)
	}
}

// Scenario 2: HARD rack affinity keeps a PG's VMs on one rack across batches.
func TestScenarioHardRackAffinity(t *testing.T) {
	e, _ := newTestEngine()
	e.CreatePG(1, 0, 0, AffinityNone, AffinityHard)

	vms, err := e.CreateVMs(1, 1, []int{1, 2}, 0)
	if err != nil {
		t.Fatalf("CreateVMs: %v", err)
	}
	d0, r0, _ := vms[0].FirstNodePM()
	d1, r1, _ := vms[1].FirstNodePM()
	if d0 != d1 || r0 != r1 {
		t.Fatalf("hard rack affinity violated: vm0 on (%d,%d), vm1 on (%d,%d)", d0, r0, d1, r1)
	}
}

// Scenario 3: hard partitions keep distinct partitions on disjoint racks.
func TestScenarioHardPartitionDisjointRacks(t *testing.T) {
	e, _ := newTestEngine()
	e.CreatePG(1, 2, 0, AffinityNone, AffinityNone)

	vms, err := e.CreateVMs(1, 1, []int{1, 2}, -1)
	if err != nil {
		t.Fatalf("CreateVMs: %v", err)
	}
	if vms[0].Partition == vms[1].Partition {
		t.Fatalf("partition_hint=-1 should assign distinct partitions, got %d and %d", vms[0].Partition, vms[1].Partition)
	}

	rack0 := RackKey{}
	rack1 := RackKey{}
	if d, r, _ := vms[0].FirstNodePM(); true {
		rack0 = RackKey{Domain: d, Rack: r}
	}
	if d, r, _ := vms[1].FirstNodePM(); true {
		rack1 = RackKey{Domain: d, Rack: r}
	}
	if rack0 == rack1 {
		t.Fatalf("distinct hard partitions must not share a rack, both landed on %v", rack0)
	}
}

// A batch spanning two hard-anti-affinity partitions must stay disjoint even
// when plain load-ordering alone would send both partitions to the same
// rack: here rack 2 is preloaded heavily enough from outside the PG that,
// after partition 1 lands on rack 1, rack 1 is still the lower-load rack
// overall. Partition 2 must be steered off rack 1 by the partition's own
// claimed-rack bookkeeping, not by load alone.
func TestScenarioHardPartitionDisjointRacksUnderLoadBias(t *testing.T) {
	f := NewFabric(1, 2, 1, []int{20, 20}, []int{20, 20})
	c := NewCatalog([]VMType{{ID: 1, NodesRequired: 1, CPUPerNode: 4, MemoryPerNode: 4}})
	e := NewEngine(f, c, &fakeClock{now: time.Unix(0, 0)})

	t1, err := c.Type(1)
	if err != nil {
		t.Fatalf("Type: %v", err)
	}
	for i := 0; i < 4; i++ {
		e.Fabric.Claim(NodeAddr{Domain: 1, Rack: 2, PM: 1, Node: 1}, t1)
	}

	e.CreatePG(1, 2, 0, AffinityNone, AffinityNone)
	vms, err := e.CreateVMs(1, 1, []int{1, 2}, -1)
	if err != nil {
		t.Fatalf("CreateVMs: %v", err)
	}

	d0, r0, _ := vms[0].FirstNodePM()
	d1, r1, _ := vms[1].FirstNodePM()
	if (RackKey{Domain: d0, Rack: r0}) == (RackKey{Domain: d1, Rack: r1}) {
		t.Fatalf("hard partitions collapsed onto the same rack under a load bias: vm0 on (%d,%d), vm1 on (%d,%d)", d0, r0, d1, r1)
	}
}

// Scenario 4: SOFT PM anti-affinity spreads across PMs while still succeeding
// once the rack's PM count is exhausted. Confined to a single rack (rather
// than the full multi-rack fabric of the other scenarios) so the outcome is
// deterministic: with only 2 PMs available, a batch of 3 VMs necessarily
// leaves one PM holding 2 VMs of the PG.
func TestScenarioSoftPMAntiAffinitySpreadsThenAllowsOverlap(t *testing.T) {
	f := NewFabric(1, 1, 2, []int{10, 10}, []int{10, 10})
	c := NewCatalog([]VMType{{ID: 1, NodesRequired: 1, CPUPerNode: 4, MemoryPerNode: 4}})
	e := NewEngine(f, c, &fakeClock{now: time.Unix(0, 0)})
	e.CreatePG(1, 0, 1, AffinityNone, AffinitySoft)

	vms, err := e.CreateVMs(1, 1, []int{1, 2, 3}, 0)
	if err != nil {
		t.Fatalf("CreateVMs: %v", err)
	}

	byPM := map[[3]int]int{}
	for _, vm := range vms {
		d, r, p := vm.FirstNodePM()
		byPM[[3]int{d, r, p}]++
	}
	if len(byPM) != 2 {
		t.Fatalf("expected the 3 VMs to land on exactly 2 distinct PMs (2 spread + 1 forced overlap), got %d PMs: %v", len(byPM), byPM)
	}
}

// Scenario 5: exhausting the whole fabric's capacity makes any further
// create infeasible, regardless of affinity.
func TestScenarioExhaustedDomainIsInfeasible(t *testing.T) {
	e, _ := newTestEngine()
	e.CreatePG(1, 0, 0, AffinityNone, AffinityNone)
	e.CreatePG(2, 0, 0, AffinityHard, AffinityNone)

	// Type 2 needs 2 nodes at 6 cpu/mem each; a PM has 2 nodes of 10 cpu/mem,
	// so once one type-2 VM lands on a PM the remaining 4 cpu/mem per node
	// can't fit a second. Each of the fabric's 2*2*2=8 PMs holds exactly one,
	// so a batch of 8 fills every PM in both domains.
	ids := make([]int, 8)
	for i := range ids {
		ids[i] = i + 1
	}
	if _, err := e.CreateVMs(1, 2, ids, 0); err != nil {
		t.Fatalf("filling capacity should succeed: %v", err)
	}

	_, err := e.CreateVMs(2, 2, []int{100}, 0)
	if err == nil {
		t.Fatalf("expected infeasibility once every PM in the fabric is full")
	}
	if !errors.Is(err, ErrInfeasible) {
		t.Fatalf("expected ErrInfeasible, got %v", err)
	}
}

// Scenario 6: the wall-clock budget gate refuses work before touching the
// tree at all.
func TestScenarioTimeBudgetGate(t *testing.T) {
	e, clock := newTestEngine()
	e.CreatePG(1, 0, 0, AffinityNone, AffinityNone)
	clock.advance(DefaultBudget)

	before := *e.Fabric.Domain(1)
	_, err := e.CreateVMs(1, 1, []int{1}, 0)
	if !errors.Is(err, ErrTimeBudget) {
		t.Fatalf("expected ErrTimeBudget, got %v", err)
	}
	if e.Fabric.Domain(1).Resources != before.Resources {
		t.Fatalf("a time-budget rejection must not touch the fabric")
	}
}
