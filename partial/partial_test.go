// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package partial_test

import (
	"testing"

	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroAndDone(t *testing.T) {
	z := partial.Zero(0)
	require.NotNil(t, z.Payload)
	assert.Equal(t, 0.0, z.DeltaDone)
	assert.Equal(t, 0, *z.Payload)

	d := partial.Done(5)
	assert.Equal(t, 1.0, d.DeltaDone)
	require.NotNil(t, d.Payload)
	assert.Equal(t, 5, *d.Payload)
}

func TestSumDeltas(t *testing.T) {
	items := []partial.Result[int]{
		partial.Zero(0),
		partial.New(0.5, 1),
		partial.New(0.5, 2),
	}
	sum := partial.SumDeltas(items)
	assert.InDelta(t, 1.0, sum, partial.Tolerance)
}
