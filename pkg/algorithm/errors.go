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

import "errors"

// Terminal error kinds surfaced by the request loop, per spec.md 7. All three
// end the session; ProtocolError additionally indicates a caller bug rather
// than a resource-pressure outcome.
var (
	// ErrInfeasible means no rack group accepted the batch under any
	// affinity policy.
	ErrInfeasible = errors.New("no feasible placement for batch")

	// ErrTimeBudget means the wall-clock budget was exhausted at the start
	// of a create request.
	ErrTimeBudget = errors.New("time budget exceeded")

	// ErrProtocol wraps a malformed request: an unknown VM type index, PG
	// id, or VM id. The core treats this as a precondition violation, not
	// a recoverable condition.
	ErrProtocol = errors.New("protocol error")
)
