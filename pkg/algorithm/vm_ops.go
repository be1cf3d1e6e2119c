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

// Place commits vm onto nodes: claims resources at every fabric level and
// records vm against its PM's vmsByPG bookkeeping. nodes must all share one
// PM and number exactly vm.Type.NodesRequired; the Placer is responsible for
// only calling Place once a candidate has been fully validated.
func (vm *VM) Place(f *Fabric, nodes []NodeAddr) {
	for _, addr := range nodes {
		f.Claim(addr, vm.Type)
	}
	vm.Nodes = nodes
	pm := f.PM(nodes[0].Domain, nodes[0].Rack, nodes[0].PM)
	pm.VMsByPG[vm.PG.ID]++
}

// Unplace reverses Place. It is a no-op on an already-unplaced VM so callers
// can unconditionally rewind a batch.
func (vm *VM) Unplace(f *Fabric) {
	if !vm.IsPlaced() {
		return
	}
	d, r, p := vm.FirstNodePM()
	pm := f.PM(d, r, p)
	for _, addr := range vm.Nodes {
		f.Release(addr, vm.Type)
	}
	pm.VMsByPG[vm.PG.ID]--
	vm.Nodes = nil
}

// UnplaceAll rewinds every VM in vms, in the teacher's "always safe to call
// again" style used between candidate attempts (spec.md 4.5 step 2, 4.6
// step 4).
func UnplaceAll(f *Fabric, vms []*VM) {
	for _, vm := range vms {
		vm.Unplace(f)
	}
}
