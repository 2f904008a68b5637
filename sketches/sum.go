// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package sketches provides a small set of example Sketch/Map
// implementations usable out of the box by cmd/client and by tests, covering
// both the trivial scalar case and a document corpus aggregation.
package sketches

import "github.com/coatyio/dda-examples/dataset/contract"

// Sum is the simplest possible commutative-monoid Sketch[int, int]: the sum
// of every element it is given. Grounded on registry/pi's zero/create/add
// shape, stripped of the big.Float Chudnovsky machinery since spec.md's
// Sketch has no partitioning step of its own.
type Sum struct{}

func (Sum) Zero() int        { return 0 }
func (Sum) Create(t int) int { return t }
func (Sum) Add(a, b int) int { return a + b }

// OpName/OpParams implement contract.Nameable so Sum can be used directly
// against a RemoteDataSet once registered in opregistry under this name.
func (Sum) OpName() string            { return "sum" }
func (Sum) OpParams() ([]byte, error) { return nil, nil }

var (
	_ contract.Sketch[int, int] = Sum{}
	_ contract.Nameable         = Sum{}
)
