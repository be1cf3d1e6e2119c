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

import "sort"

// RackGroup is a set of racks the current batch is allowed to spread over,
// tried by the Placer as a unit.
type RackGroup []*Rack

// CandidateRackGroups turns a PG's constraint state into an ordered list of
// rack groups to try, per spec.md 4.4. pg must already be Refresh()ed.
//
// The policy below is ported directly from the reference engine's rack-group
// construction rather than re-derived from spec.md's summary table, whose
// prose became ambiguous for the two-soft-affinity-with-one-NONE corner
// cases once transcribed into a table (see DESIGN.md); the reference
// behavior is unambiguous and is what this module implements, with one
// explicit correction spec.md calls out: the HARD-rack/no-target branch
// filters candidate racks by fit_count >= batch size, not merely nonzero.
func CandidateRackGroups(f *Fabric, pg *PG, t *VMType, batchSize int) []RackGroup {
	switch {
	case pg.RackAffinity == AffinityHard:
		return hardRackGroups(f, pg, t, batchSize)

	case pg.RackAffinity == AffinityNone || !pg.RackAffinityPossible:
		if pg.DomainAffinity == AffinityHard {
			return hardDomainGroups(f, pg, t, batchSize)
		}
		if pg.DomainAffinity == AffinitySoft && pg.DomainAffinityPossible {
			return softDomainOnlyGroups(f, pg)
		}
		return []RackGroup{allRacksByLoad(f)}

	case pg.DomainAffinity == AffinityHard:
		return softRackHardDomainGroups(f, pg)

	case pg.DomainAffinity == AffinitySoft && pg.DomainAffinityPossible:
		return bothSoftGroups(f, pg)

	default: // rack SOFT+possible, domain NONE/impossible
		return softRackOnlyGroups(f, pg)
	}
}

func hardRackGroups(f *Fabric, pg *PG, t *VMType, batchSize int) []RackGroup {
	if pg.TargetRack != nil {
		return []RackGroup{{f.Rack(pg.TargetRack.Domain, pg.TargetRack.Rack)}}
	}

	var groups []RackGroup
	for _, r := range f.AllRacks() {
		if r.FitCount(t) >= batchSize {
			groups = append(groups, RackGroup{r})
		}
	}
	sortGroupsByLoad(groups)
	return groups
}

func hardDomainGroups(f *Fabric, pg *PG, t *VMType, batchSize int) []RackGroup {
	if pg.TargetDomain != nil {
		return []RackGroup{racksOf(f.Domain(*pg.TargetDomain))}
	}

	var groups []RackGroup
	for i := range f.Domains {
		d := &f.Domains[i]
		group := racksOf(d)
		if d.FitCount(t) < batchSize {
			continue
		}
		groups = append(groups, group)
	}
	sortGroupsByLoad(groups)
	return groups
}

func softRackHardDomainGroups(f *Fabric, pg *PG) []RackGroup {
	var groups []RackGroup
	sortStart := 0

	if pg.TargetRack != nil {
		groups = append(groups, RackGroup{f.Rack(pg.TargetRack.Domain, pg.TargetRack.Rack)})
		sortStart++
	}

	if pg.TargetDomain != nil {
		groups = append(groups, racksOf(f.Domain(*pg.TargetDomain)))
	} else {
		for i := range f.Domains {
			groups = append(groups, racksOf(&f.Domains[i]))
		}
	}

	sortGroupsByLoad(groups[sortStart:])
	return groups
}

func bothSoftGroups(f *Fabric, pg *PG) []RackGroup {
	var groups []RackGroup
	sortStart := 0

	if pg.TargetRack != nil {
		groups = append(groups, RackGroup{f.Rack(pg.TargetRack.Domain, pg.TargetRack.Rack)})
		sortStart++
	}

	if pg.TargetDomain != nil {
		groups = append(groups, racksOf(f.Domain(*pg.TargetDomain)))
		sortStart++
	}

	for i := range f.Domains {
		d := &f.Domains[i]
		if pg.TargetDomain != nil && d.ID == *pg.TargetDomain {
			continue
		}
		groups = append(groups, racksOf(d))
	}

	sortGroupsByLoad(groups[sortStart:])
	groups = append(groups, allRacksByLoad(f))
	return groups
}

func softDomainOnlyGroups(f *Fabric, pg *PG) []RackGroup {
	var groups []RackGroup
	sortStart := 0

	if pg.TargetDomain != nil {
		groups = append(groups, racksOf(f.Domain(*pg.TargetDomain)))
		sortStart++
	}

	for i := range f.Domains {
		d := &f.Domains[i]
		if pg.TargetDomain != nil && d.ID == *pg.TargetDomain {
			continue
		}
		groups = append(groups, racksOf(d))
	}

	sortGroupsByLoad(groups[sortStart:])
	groups = append(groups, allRacksByLoad(f))
	return groups
}

func softRackOnlyGroups(f *Fabric, pg *PG) []RackGroup {
	var groups []RackGroup
	if pg.TargetRack != nil {
		groups = append(groups, RackGroup{f.Rack(pg.TargetRack.Domain, pg.TargetRack.Rack)})
	}
	for i := range f.Domains {
		groups = append(groups, racksOf(&f.Domains[i]))
	}
	groups = append(groups, allRacksByLoad(f))
	return groups
}

func racksOf(d *Domain) RackGroup {
	group := make(RackGroup, len(d.Racks))
	for i := range d.Racks {
		group[i] = &d.Racks[i]
	}
	sortByLoad(group)
	return group
}

func allRacksByLoad(f *Fabric) RackGroup {
	return sortByLoad(f.AllRacks())
}

func sortByLoad(racks []*Rack) RackGroup {
	out := make(RackGroup, len(racks))
	copy(out, racks)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Resources.Load() < out[j].Resources.Load()
	})
	return out
}

func sortGroupsByLoad(groups []RackGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i][0].Resources.Load() < groups[j][0].Resources.Load()
	})
}
