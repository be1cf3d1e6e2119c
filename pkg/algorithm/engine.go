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
	"time"

	"k8s.io/klog"
)

// Engine is the whole placement session: one fabric, one catalog and a
// wall-clock budget measured from construction. VM ids are supplied by the
// caller. It has no knowledge of the wire protocol; internal drives it from
// decoded requests and turns its return values back into responses.
//
// Grounded on original_source/src/v09.cpp's Manager, whose createPG/
// createVMs/deleteVMs methods this mirrors one-to-one.
type Engine struct {
	Fabric  *Fabric
	Catalog *Catalog

	clock  Clock
	start  time.Time
	budget time.Duration
}

// NewEngine starts the wall-clock budget running from clock.Now().
func NewEngine(f *Fabric, c *Catalog, clock Clock) *Engine {
	return &Engine{
		Fabric:  f,
		Catalog: c,
		clock:   clock,
		start:   clock.Now(),
		budget:  DefaultBudget,
	}
}

// SetBudget overrides the wall-clock budget (default DefaultBudget), for
// callers that source it from configuration rather than accepting the
// built-in default.
func (e *Engine) SetBudget(d time.Duration) {
	e.budget = d
}

// CreatePG registers a new placement group. hardRackAntiAffinityPartitions
// <= 1 is normalized to 0 (partitions disabled) by NewPG.
func (e *Engine) CreatePG(id, hardRackAntiAffinityPartitions, softPMAntiAffinity int, domainAffinity, rackAffinity Affinity) *PG {
	pg := NewPG(id, hardRackAntiAffinityPartitions, softPMAntiAffinity, domainAffinity, rackAffinity)
	e.Catalog.PGs[id] = pg
	klog.V(2).Infof("[pg=%d]: created, hard_rack_anti_affinity_partitions=%d soft_pm_anti_affinity=%d domain_affinity=%s rack_affinity=%s",
		id, pg.HardRackAntiAffinityPartitions, softPMAntiAffinity, domainAffinity, rackAffinity)
	return pg
}

// CreateVMs places one VM per id in ids, all of the type at typeIdx, into
// pgID, per spec.md 4.6. The wall-clock budget is checked once, up front: a
// request that would start the search past budget fails fast with
// ErrTimeBudget rather than entering the search. On success every VM in the
// batch is committed atomically to the single rack group with the lowest
// penalty, in the order given by ids; on failure the fabric is left exactly
// as it was found.
//
// partitionHint follows spec.md 6/4.6: 0 uniformly means "no explicit
// partition" once the PG's own hard_rack_anti_affinity_partitions gates it to
// 0 anyway; a hint >= 0 assigns that partition to every VM in the batch; a
// hint of -1 assigns each VM its own partition, numbered 1..len(ids).
func (e *Engine) CreateVMs(pgID, typeIdx int, ids []int, partitionHint int) ([]*VM, error) {
	if e.clock.Now().Sub(e.start) >= e.budget {
		klog.V(1).Infof("[pg=%d]: time budget exceeded before search", pgID)
		return nil, ErrTimeBudget
	}

	pg, err := e.Catalog.PG(pgID)
	if err != nil {
		return nil, err
	}
	t, err := e.Catalog.Type(typeIdx)
	if err != nil {
		return nil, err
	}

	partitions := partitionsFor(pg, partitionHint, len(ids))

	vms := make([]*VM, len(ids))
	for i, id := range ids {
		vms[i] = &VM{ID: id, Type: t, PG: pg, Partition: partitions[i]}
	}

	// The batch is registered against the catalog and pg.VMs before the
	// search starts, not after it succeeds. TryPlaceGroup calls pg.Refresh
	// between partitions of a multi-partition batch, and Refresh rebuilds
	// PartitionRacks from pg.VMs: if this batch's own already-placed
	// partitions aren't in pg.VMs yet, a later partition can't see which
	// racks an earlier partition of the same batch just claimed, and the
	// hard-rack-anti-affinity disjointness check is a no-op against its own
	// batch. v09.cpp pushes the batch into pg.vms before search for the
	// same reason. Registration is rolled back below on infeasibility, so
	// the "fabric left exactly as it was found" guarantee still holds.
	for _, vm := range vms {
		e.Catalog.VMs[vm.ID] = vm
		pg.VMs = append(pg.VMs, vm)
	}

	pg.Refresh()
	groups := CandidateRackGroups(e.Fabric, pg, t, len(vms))

	var best *GroupPlacement
	for _, group := range groups {
		attempt, ok := TryPlaceGroup(e.Fabric, pg, vms, t, group)
		if ok && (best == nil || attempt.Penalty < best.Penalty) {
			b := attempt
			best = &b
		}
		UnplaceAll(e.Fabric, vms)
		pg.Refresh()
	}

	if best == nil {
		for _, vm := range vms {
			delete(e.Catalog.VMs, vm.ID)
			pg.VMs = removeVM(pg.VMs, vm)
		}
		klog.V(1).Infof("[pg=%d]: infeasible batch of %d type=%d", pgID, len(vms), typeIdx)
		return nil, ErrInfeasible
	}

	for _, vm := range vms {
		vm.Place(e.Fabric, best.Nodes[vm.ID])
	}
	pg.Refresh()

	klog.V(3).Infof("[pg=%d]: placed %d VMs of type=%d, penalty=%.2f", pgID, len(vms), typeIdx, best.Penalty)
	return vms, nil
}

// partitionsFor expands a request's partition_hint into one partition number
// per VM, per spec.md 4.6 step 2.
func partitionsFor(pg *PG, hint, n int) []int {
	out := make([]int, n)
	switch {
	case pg.HardRackAntiAffinityPartitions == 0:
		// out already zeroed: partitions disabled at the PG level.
	case hint >= 0:
		for i := range out {
			out[i] = hint
		}
	default:
		for i := range out {
			out[i] = i + 1
		}
	}
	return out
}

// DeleteVMs unplaces and forgets every VM in ids. It does not refresh the
// PGs that lost a VM: target_domain/target_rack/partition_racks are left as
// they were until the next createVMs call recomputes them from scratch, the
// same as v09.cpp's deleteVMs, which never calls updateTargets.
func (e *Engine) DeleteVMs(ids []int) error {
	for _, id := range ids {
		vm, err := e.Catalog.VM(id)
		if err != nil {
			return err
		}
		vm.Unplace(e.Fabric)
		vm.PG.VMs = removeVM(vm.PG.VMs, vm)
		delete(e.Catalog.VMs, id)
	}

	klog.V(2).Infof("deleted %d VMs", len(ids))
	return nil
}

func removeVM(vms []*VM, target *VM) []*VM {
	out := vms[:0]
	for _, vm := range vms {
		if vm != target {
			out = append(out, vm)
		}
	}
	return out
}
