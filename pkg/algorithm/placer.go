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
	"sort"

	"github.com/coredc/vmplacer/pkg/common"
)

// GroupPlacement is the outcome of trying one RackGroup for a whole batch:
// every VM's chosen nodes plus the accumulated penalty of spec.md 4.5.2.
type GroupPlacement struct {
	Nodes   map[int][]NodeAddr
	Penalty float64
}

// TryPlaceGroup attempts to place every vm in vms (all of the same PG and
// type) within group, splitting the batch by partition and packing each
// partition independently (spec.md 4.5). It reports ok=false, leaving the
// fabric exactly as it found it, if any partition cannot be fully placed
// within group even after the forced retry.
//
// Grounded on original_source/src/v09.cpp's getBestPlacement/tryPlace/
// tryPlaceInner, with one deliberate deviation: on a partition's terminal
// failure this unplaces the whole batch (that partition and any earlier
// partitions already placed) before returning, rather than leaving it
// committed for the caller's final cleanup. v09 skips
// that cleanup on early return, which can leak a partially-placed partition
// into the very next rack-group attempt inside the same batch and skew its
// resource and target-rack accounting. spec.md 4.5 describes the outer loop
// unplacing "so each candidate starts clean", which this implements at the
// point where it actually matters.
func TryPlaceGroup(f *Fabric, pg *PG, vms []*VM, t *VMType, group RackGroup) (GroupPlacement, bool) {
	byPartition := map[int][]*VM{}
	for _, vm := range vms {
		byPartition[vm.Partition] = append(byPartition[vm.Partition], vm)
	}
	partitions := make([]int, 0, len(byPartition))
	for p := range byPartition {
		partitions = append(partitions, p)
	}
	sort.Ints(partitions)

	result := GroupPlacement{Nodes: map[int][]NodeAddr{}}

	for _, partition := range partitions {
		subVMs := byPartition[partition]
		UnplaceAll(f, subVMs)
		pg.Refresh()

		if !groupHasRawCapacity(group, t, len(subVMs)) {
			UnplaceAll(f, vms)
			return GroupPlacement{}, false
		}

		startRacks, extraRacks := selectStartRacks(f, pg, group, partition)

		placements, ok := placePartition(f, pg, subVMs, t, startRacks, extraRacks)
		if !ok {
			UnplaceAll(f, vms)
			return GroupPlacement{}, false
		}

		for id, nodes := range placements {
			result.Nodes[id] = nodes
		}

		pg.Refresh()
		result.Penalty += partitionPenalty(f, pg, subVMs)
	}

	result.Penalty += meanLoad(group)
	return result, true
}

func groupHasRawCapacity(group RackGroup, t *VMType, count int) bool {
	availCPU, availMemory := 0, 0
	for _, r := range group {
		availCPU += r.Resources.AvailCPU
		availMemory += r.Resources.AvailMemory
	}
	return availCPU >= count*t.NodesRequired*t.CPUPerNode && availMemory >= count*t.NodesRequired*t.MemoryPerNode
}

// selectStartRacks implements spec.md 4.5.1: the narrow window tried first,
// plus the remaining group racks to widen into on failure.
func selectStartRacks(f *Fabric, pg *PG, group RackGroup, partition int) (start, extra []*Rack) {
	sorted := sortByLoad(group)

	if partition != noPartition {
		invalid := common.NewSet[RackKey]()
		for p, racks := range pg.PartitionRacks {
			if p == partition {
				continue
			}
			for rk := range racks {
				invalid.Add(rk)
			}
		}

		ownRacks := pg.PartitionRacks[partition]
		startSet := common.NewSet[RackKey]()
		for rk := range ownRacks {
			if invalid.Contains(rk) {
				continue
			}
			start = append(start, f.Rack(rk.Domain, rk.Rack))
			startSet.Add(rk)
		}

		for _, r := range sorted {
			rk := r.Key()
			if invalid.Contains(rk) || startSet.Contains(rk) {
				continue
			}
			extra = append(extra, r)
		}

		if len(start) == 0 {
			if len(extra) == 0 {
				return nil, nil
			}
			start = extra[:1]
			extra = extra[1:]
		}
		return start, extra
	}

	if pg.RackAffinity == AffinitySoft && pg.RackAffinityPossible && pg.TargetRack != nil {
		for _, r := range sorted {
			if r.Key() == *pg.TargetRack {
				start = []*Rack{r}
			} else {
				extra = append(extra, r)
			}
		}
		if len(start) > 0 {
			return start, extra
		}
	}

	return sorted, nil
}

// placePartition runs the try-and-rewind loop of spec.md 4.5: try the start
// window, widen with one extra rack at a time on failure, and if the group is
// exhausted retry once from the original window with the soft PM
// anti-affinity packing filter disabled.
func placePartition(f *Fabric, pg *PG, vms []*VM, t *VMType, start, extra []*Rack) (map[int][]NodeAddr, bool) {
	for _, force := range []bool{false, true} {
		curStart := append([]*Rack{}, start...)
		curExtra := append([]*Rack{}, extra...)

		for {
			placements := tryPlaceOnce(f, pg, vms, t, curStart, force)
			if placements != nil {
				return placements, true
			}
			if len(curExtra) == 0 {
				break
			}
			curStart = append(curStart, curExtra[0])
			curExtra = curExtra[1:]
		}
	}
	return nil, false
}

// tryPlaceOnce is one atomic attempt: it always rewinds vms first so retries
// never compound partial state, then packs unforced and, if force is set and
// VMs remain, packs the leftovers again with the soft PM anti-affinity
// packing filter disabled.
func tryPlaceOnce(f *Fabric, pg *PG, vms []*VM, t *VMType, racks []*Rack, force bool) map[int][]NodeAddr {
	UnplaceAll(f, vms)

	if !groupHasRawCapacity(racks, t, len(vms)) {
		return nil
	}

	placed := packInner(f, pg, vms, t, racks, false)
	if len(placed) < len(vms) && force {
		remaining := make([]*VM, 0, len(vms)-len(placed))
		for _, vm := range vms {
			if _, ok := placed[vm.ID]; !ok {
				remaining = append(remaining, vm)
			}
		}
		more := packInner(f, pg, remaining, t, racks, true)
		for id, nodes := range more {
			placed[id] = nodes
		}
	}

	if len(placed) < len(vms) {
		return nil
	}
	return placed
}

// packInner is the greedy packer of spec.md 4.5.2. For each not-yet-placed
// VM in turn it re-sorts the rack window by fit_count desc then load asc,
// walks racks (and, within a rack, PMs sorted the same way) until it finds
// one with room, places that single VM there, then starts the next VM's
// walk over from a freshly-sorted window. Placing a VM lowers its rack's and
// PM's fit_count, so the re-sort is what spreads a batch across the window
// instead of draining one PM before moving to the next. When forced is
// false it skips any PM that would push its vmsByPG count for pg past
// SoftPMAntiAffinity.
//
// Grounded on original_source/src/v09.cpp's tryPlaceInner, which re-sorts
// racks and PMs inside its per-VM loop rather than once up front.
func packInner(f *Fabric, pg *PG, vms []*VM, t *VMType, racks []*Rack, forced bool) map[int][]NodeAddr {
	placements := map[int][]NodeAddr{}
	remaining := make([]*VM, len(vms))
	copy(remaining, vms)

	for len(remaining) > 0 {
		vm := remaining[0]

		sortedRacks := make([]*Rack, len(racks))
		copy(sortedRacks, racks)
		sort.SliceStable(sortedRacks, func(i, j int) bool {
			fi, fj := sortedRacks[i].FitCount(t), sortedRacks[j].FitCount(t)
			if fi != fj {
				return fi > fj
			}
			return sortedRacks[i].Resources.Load() < sortedRacks[j].Resources.Load()
		})

		var nodes []NodeAddr
		var placedPM *PM
		for _, rack := range sortedRacks {
			if !FitsWhole(rack.Resources, t) {
				continue
			}

			pms := make([]*PM, len(rack.PMs))
			for i := range rack.PMs {
				pms[i] = &rack.PMs[i]
			}
			sort.SliceStable(pms, func(i, j int) bool {
				fi, fj := pms[i].FitCount(t), pms[j].FitCount(t)
				if fi != fj {
					return fi > fj
				}
				return pms[i].Resources.Load() < pms[j].Resources.Load()
			})

			for _, pm := range pms {
				if !FitsWhole(pm.Resources, t) {
					continue
				}
				if !forced && pg.SoftPMAntiAffinityActive && pm.VMsByPG[pg.ID] >= pg.SoftPMAntiAffinity {
					continue
				}
				n := pickNodes(pm, t)
				if n == nil {
					continue
				}
				nodes, placedPM = n, pm
				break
			}
			if placedPM != nil {
				break
			}
		}

		if placedPM == nil {
			break
		}

		vm.Place(f, nodes)
		placements[vm.ID] = nodes
		remaining = remaining[1:]
	}

	return placements
}

// pickNodes chooses t.NodesRequired nodes on pm, highest-fit_count-first per
// spec.md 4.5.2, or nil if fewer than that many nodes currently have capacity
// for one VM.
func pickNodes(pm *PM, t *VMType) []NodeAddr {
	idx := make([]int, len(pm.Nodes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return pm.Nodes[idx[a]].fitCount(t) > pm.Nodes[idx[b]].fitCount(t)
	})

	chosen := make([]int, 0, t.NodesRequired)
	for _, i := range idx {
		if pm.Nodes[i].fitCount(t) < 1 {
			continue
		}
		chosen = append(chosen, i)
		if len(chosen) == t.NodesRequired {
			break
		}
	}
	if len(chosen) < t.NodesRequired {
		return nil
	}

	addrs := make([]NodeAddr, len(chosen))
	for i, ni := range chosen {
		addrs[i] = pm.NodeAddr(ni)
	}
	return addrs
}

// partitionPenalty scores one just-placed partition per spec.md 4.5.2: 1
// point per VM whose PM ended up over the soft PM anti-affinity limit, plus
// the domain/rack affinity penalties if that soft constraint turned out
// infeasible for the whole PG.
func partitionPenalty(f *Fabric, pg *PG, vms []*VM) float64 {
	penalty := 0.0

	if pg.SoftPMAntiAffinity > 0 && pg.SoftPMAntiAffinityActive {
		for _, vm := range vms {
			d, r, p := vm.FirstNodePM()
			pm := f.PM(d, r, p)
			if pm.VMsByPG[pg.ID] > pg.SoftPMAntiAffinity {
				penalty += pmAntiAffinityPenalty
			}
		}
	}

	if pg.DomainAffinity == AffinitySoft && !pg.DomainAffinityPossible {
		penalty += domainAffinityPenalty
	}
	if pg.RackAffinity == AffinitySoft && !pg.RackAffinityPossible {
		penalty += rackAffinityPenalty
	}

	return penalty
}

func meanLoad(group RackGroup) float64 {
	if len(group) == 0 {
		return 0
	}
	total := 0.0
	for _, r := range group {
		total += r.Resources.Load()
	}
	return total / float64(len(group))
}
