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

import "github.com/coredc/vmplacer/pkg/common"

// PG (Placement Group) is a logical bundle of VMs with affinity and
// anti-affinity constraints, plus the derived state refreshed from prior
// placements before every candidate enumeration (spec.md 4.3).
type PG struct {
	ID                             int
	HardRackAntiAffinityPartitions int
	SoftPMAntiAffinity             int
	DomainAffinity                 Affinity
	RackAffinity                   Affinity

	VMs []*VM

	// Derived state, rebuilt by Refresh. nil TargetDomain/TargetRack means
	// no VM of this PG is placed yet, or that the matching affinity is NONE
	// (targets are only tracked for a SOFT or HARD affinity).
	TargetDomain             *int
	DomainAffinityPossible   bool
	TargetRack               *RackKey
	RackAffinityPossible     bool
	SoftPMAntiAffinityActive bool
	PartitionRacks           map[int]common.Set[RackKey]
}

// NewPG applies the hard_rack_anti_affinity_partitions <= 1 => 0
// normalization of spec.md 3 and returns a freshly refreshed PG.
func NewPG(id, hardRackAntiAffinityPartitions, softPMAntiAffinity int, domainAffinity, rackAffinity Affinity) *PG {
	if hardRackAntiAffinityPartitions <= 1 {
		hardRackAntiAffinityPartitions = 0
	}
	pg := &PG{
		ID:                             id,
		HardRackAntiAffinityPartitions: hardRackAntiAffinityPartitions,
		SoftPMAntiAffinity:             softPMAntiAffinity,
		DomainAffinity:                 domainAffinity,
		RackAffinity:                   rackAffinity,
	}
	pg.Refresh()
	return pg
}

// Refresh recomputes target_domain/target_rack, the feasibility flags, and
// partition_racks from the PG's currently-placed VMs. It must be called
// before every candidate enumeration and between partition placements
// (spec.md 4.3); it is idempotent.
func (pg *PG) Refresh() {
	pg.TargetDomain = nil
	pg.DomainAffinityPossible = true
	pg.TargetRack = nil
	pg.RackAffinityPossible = true
	pg.PartitionRacks = map[int]common.Set[RackKey]{}

	for _, vm := range pg.VMs {
		if !vm.IsPlaced() {
			continue
		}

		d, r, _ := vm.FirstNodePM()
		rk := RackKey{Domain: d, Rack: r}

		if pg.DomainAffinity != AffinityNone && pg.DomainAffinityPossible {
			if pg.TargetDomain == nil {
				domain := d
				pg.TargetDomain = &domain
			} else if *pg.TargetDomain != d {
				pg.DomainAffinityPossible = false
			}
		}

		if pg.RackAffinity != AffinityNone && pg.RackAffinityPossible {
			if pg.TargetRack == nil {
				rack := rk
				pg.TargetRack = &rack
			} else if *pg.TargetRack != rk {
				pg.RackAffinityPossible = false
			}
		}

		if pg.HardRackAntiAffinityPartitions > 0 {
			set, ok := pg.PartitionRacks[vm.Partition]
			if !ok {
				set = common.NewSet[RackKey]()
				pg.PartitionRacks[vm.Partition] = set
			}
			set.Add(rk)
		}
	}

	if (pg.DomainAffinity == AffinitySoft && !pg.DomainAffinityPossible) ||
		(pg.RackAffinity == AffinitySoft && !pg.RackAffinityPossible) {
		pg.DomainAffinityPossible = false
		pg.RackAffinityPossible = false
		pg.SoftPMAntiAffinityActive = false
	} else {
		pg.SoftPMAntiAffinityActive = pg.SoftPMAntiAffinity > 0
	}
}
