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

// Package algorithm is the placement decision core: the fabric/resource
// model, the per-PG constraint state, and the search/scoring algorithm that
// chooses nodes for a batch of VMs. It never performs I/O of its own — the
// wall clock and the request/response transcoding are injected by callers
// (see internal and pkg/protocol) so the algorithm stays a plain,
// synchronously-testable library.
package algorithm

// Affinity is the strength of a PG's domain/rack affinity or anti-affinity.
type Affinity int32

const (
	AffinityNone Affinity = 0
	AffinitySoft Affinity = 1
	AffinityHard Affinity = 2
)

func (a Affinity) String() string {
	switch a {
	case AffinityNone:
		return "NONE"
	case AffinitySoft:
		return "SOFT"
	case AffinityHard:
		return "HARD"
	default:
		return "UNKNOWN"
	}
}

// noPartition is the partition value used by VMs of a PG that does not have
// hard rack anti-affinity partitions enabled.
const noPartition = 0

// domainAffinityPenalty and rackAffinityPenalty are applied when a SOFT
// affinity ends a partition placement in an impossible state.
const (
	domainAffinityPenalty = 1000
	rackAffinityPenalty   = 1000
	pmAntiAffinityPenalty = 1
)
