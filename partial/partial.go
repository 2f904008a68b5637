// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package partial implements the PartialResult value used throughout the
// dataset runtime to stream monotone progress toward an operation's final
// answer.
package partial

// Result carries a numeric progress delta in [0,1] together with an optional
// payload of type R. A stream of Results produced by a single operation on a
// single dataset must sum DeltaDone to 1.0 (within floating-point tolerance)
// on successful completion; see Done.
type Result[R any] struct {
	DeltaDone float64 // progress made by this item, in [0,1]
	Payload   *R      // nil if this item carries no payload
}

// New creates a Result carrying the given payload.
func New[R any](deltaDone float64, payload R) Result[R] {
	return Result[R]{DeltaDone: deltaDone, Payload: &payload}
}

// Zero creates the identity Result used as the first item of a stream so
// downstream consumers can initialize a progress UI: zero progress, payload
// set to the given zero value of the merge.
func Zero[R any](zero R) Result[R] {
	return New(0, zero)
}

// Done creates the terminal Result of a successful single-emission operation:
// full progress, final payload.
func Done[R any](payload R) Result[R] {
	return New(1, payload)
}

// Tolerance is the floating-point slack allowed when checking that deltas
// emitted by one operation sum to 1.0, per spec §3/§8.
const Tolerance = 1e-9

// SumDeltas sums the DeltaDone of every item, used by tests (and callers that
// want to assert completeness) to check the "sums to 1.0" invariant.
func SumDeltas[R any](items []Result[R]) float64 {
	var sum float64
	for _, it := range items {
		sum += it.DeltaDone
	}
	return sum
}
