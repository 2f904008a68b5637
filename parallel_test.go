// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset_test

import (
	"errors"
	"testing"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repeatTwice struct{}

func (repeatTwice) Apply(t int) ([]int, error) { return []int{t, t}, nil }

func TestParallelFlatMapFlattensOneLevel(t *testing.T) {
	env := dataset.NewEnv(0, false)
	d := dataset.NewParallel(dataset.Local(1), dataset.Local(2))
	items, err, completed := collect(t, dataset.FlatMap[int, int](env, d, repeatTwice{}))
	require.NoError(t, err)
	assert.True(t, completed)
	require.NotEmpty(t, items)

	final := items[len(items)-1]
	children, ok := final.Payload.Children()
	require.True(t, ok)
	require.Len(t, children, 4)
	for i, want := range []int{1, 1, 2, 2} {
		v, ok := children[i].LocalValue()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
}

var errBoom = errors.New("boom")

type failOnTwo struct{}

func (failOnTwo) Apply(t int) (int, error) {
	if t == 2 {
		return 0, errBoom
	}
	return t, nil
}

func TestParallelMapOneChildErrorFailsWhole(t *testing.T) {
	env := dataset.NewEnv(0, false)
	d := dataset.NewParallel(dataset.Local(1), dataset.Local(2), dataset.Local(3))
	_, err, completed := collect(t, dataset.Map[int, int](env, d, failOnTwo{}))
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrUserCodeFailure)
	assert.False(t, completed)
}

func TestParallelZipWithEqualShapes(t *testing.T) {
	env := dataset.NewEnv(0, false)
	a := dataset.NewParallel(dataset.Local(1), dataset.Local(2))
	b := dataset.NewParallel(dataset.Local("x"), dataset.Local("y"))
	items, err, completed := collect(t, dataset.Zip[int, string](env, a, b))
	require.NoError(t, err)
	assert.True(t, completed)
	require.NotEmpty(t, items)

	final := items[len(items)-1]
	children, ok := final.Payload.Children()
	require.True(t, ok)
	require.Len(t, children, 2)
	v0, ok := children[0].LocalValue()
	require.True(t, ok)
	assert.Equal(t, dataset.Pair[int, string]{First: 1, Second: "x"}, v0)
}
