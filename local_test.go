// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset_test

import (
	"testing"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type splitWords struct{}

func (splitWords) Apply(t string) ([]string, error) {
	var out []string
	word := ""
	for _, r := range t + " " {
		if r == ' ' {
			if word != "" {
				out = append(out, word)
				word = ""
			}
			continue
		}
		word += string(r)
	}
	return out, nil
}

func TestLocalFlatMapProducesParallelOfLocals(t *testing.T) {
	env := dataset.NewEnv(0, false)
	d := dataset.Local("a bb ccc")
	items, err, completed := collect(t, dataset.FlatMap[string, string](env, d, splitWords{}))
	require.NoError(t, err)
	assert.True(t, completed)
	require.Len(t, items, 1)

	children, ok := items[0].Payload.Children()
	require.True(t, ok)
	require.Len(t, children, 3)
	for i, want := range []string{"a", "bb", "ccc"} {
		v, ok := children[i].LocalValue()
		require.True(t, ok)
		assert.Equal(t, want, v)
	}
}

type toNothing struct{}

func (toNothing) Apply(t int) ([]int, error) { return nil, nil }

func TestLocalFlatMapOnEmptySequenceProducesEmptyParallel(t *testing.T) {
	env := dataset.NewEnv(0, false)
	d := dataset.Local(1)
	items, err, completed := collect(t, dataset.FlatMap[int, int](env, d, toNothing{}))
	require.NoError(t, err)
	assert.True(t, completed)
	require.Len(t, items, 1)

	children, ok := items[0].Payload.Children()
	require.True(t, ok)
	assert.Empty(t, children)
}

func TestLocalZipAgainstRemoteIsTypeMismatch(t *testing.T) {
	env := dataset.NewEnv(0, false)
	a := dataset.Local(1)
	b := dataset.NewRemote[int](nil, dataset.ObjectID{High: 1})
	_, err, completed := collect(t, dataset.Zip[int, int](env, a, b))
	assert.ErrorIs(t, err, dataset.ErrTypeMismatch)
	assert.False(t, completed)
}
