// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/contract"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identitySum is a Sketch[int, int] that just sums its ints.
type identitySum struct{}

func (identitySum) Zero() int          { return 0 }
func (identitySum) Create(t int) int   { return t }
func (identitySum) Add(a, b int) int   { return a + b }

// timesTen is a Map[int, int].
type timesTen struct{}

func (timesTen) Apply(t int) (int, error) { return t * 10, nil }

func collect[X any](t *testing.T, s stream.Stream[X]) (items []X, err error, completed bool) {
	t.Helper()
	var mu sync.Mutex
	done := make(chan struct{})
	s.Subscribe(context.Background(), stream.Observer[X]{
		Next: func(x X) {
			mu.Lock()
			items = append(items, x)
			mu.Unlock()
		},
		Error: func(e error) {
			err = e
			close(done)
		},
		Complete: func() {
			completed = true
			close(done)
		},
	})
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stream did not terminate within 1s")
	}
	return items, err, completed
}

func TestLocalSketch(t *testing.T) {
	// S1: Local(5) sketch=identitySum -> PartialResult(0, 0), PartialResult(1, 5)
	env := dataset.NewEnv(0, false)
	d := dataset.Local(5)
	items, err, completed := collect(t, dataset.Sketch[int, int](env, d, identitySum{}))
	require.NoError(t, err)
	assert.True(t, completed)
	require.Len(t, items, 2)
	assert.Equal(t, 0.0, items[0].DeltaDone)
	require.NotNil(t, items[0].Payload)
	assert.Equal(t, 0, *items[0].Payload)
	assert.Equal(t, 1.0, items[1].DeltaDone)
	require.NotNil(t, items[1].Payload)
	assert.Equal(t, 5, *items[1].Payload)
}

func TestParallelSketch(t *testing.T) {
	// S2: Parallel[Local(1), Local(2), Local(3)] sketch=identitySum -> final = 6
	env := dataset.NewEnv(0, false)
	d := dataset.NewParallel(dataset.Local(1), dataset.Local(2), dataset.Local(3))
	items, err, completed := collect(t, dataset.Sketch[int, int](env, d, identitySum{}))
	require.NoError(t, err)
	assert.True(t, completed)
	require.NotEmpty(t, items)

	final := items[len(items)-1]
	require.NotNil(t, final.Payload)
	assert.Equal(t, 6, *final.Payload)

	total := partial.SumDeltas(items)
	assert.InDelta(t, 1.0, total, partial.Tolerance*float64(len(items)))
}

func TestParallelMap(t *testing.T) {
	// S3: Parallel[Local(1), Local(2)] map=x*10 -> Parallel[Local(10), Local(20)]
	env := dataset.NewEnv(0, false)
	d := dataset.NewParallel(dataset.Local(1), dataset.Local(2))
	items, err, completed := collect(t, dataset.Map[int, int](env, d, timesTen{}))
	require.NoError(t, err)
	assert.True(t, completed)
	require.NotEmpty(t, items)

	final := items[len(items)-1]
	require.NotNil(t, final.Payload)
	children, ok := final.Payload.Children()
	require.True(t, ok)
	require.Len(t, children, 2)
	v0, ok := children[0].LocalValue()
	require.True(t, ok)
	assert.Equal(t, 10, v0)
	v1, ok := children[1].LocalValue()
	require.True(t, ok)
	assert.Equal(t, 20, v1)
}

func TestLocalZip(t *testing.T) {
	// S4: Local(1).zip(Local("a")) -> Local(Pair{1, "a"})
	env := dataset.NewEnv(0, false)
	a := dataset.Local(1)
	b := dataset.Local("a")
	items, err, completed := collect(t, dataset.Zip[int, string](env, a, b))
	require.NoError(t, err)
	assert.True(t, completed)
	require.Len(t, items, 1)
	v, ok := items[0].Payload.LocalValue()
	require.True(t, ok)
	assert.Equal(t, dataset.Pair[int, string]{First: 1, Second: "a"}, v)
}

func TestZipTypeMismatch(t *testing.T) {
	// S5: Local(1).zip(Parallel[Local("a")]) -> ErrTypeMismatch
	env := dataset.NewEnv(0, false)
	a := dataset.Local(1)
	b := dataset.NewParallel(dataset.Local("a"))
	_, err, completed := collect(t, dataset.Zip[int, string](env, a, b))
	assert.ErrorIs(t, err, dataset.ErrTypeMismatch)
	assert.False(t, completed)
}

func TestParallelZipShapeMismatch(t *testing.T) {
	env := dataset.NewEnv(0, false)
	a := dataset.NewParallel(dataset.Local(1), dataset.Local(2))
	b := dataset.NewParallel(dataset.Local("a"))
	_, err, completed := collect(t, dataset.Zip[int, string](env, a, b))
	assert.ErrorIs(t, err, dataset.ErrShapeMismatch)
	assert.False(t, completed)
}

func TestEmptyParallelIsLegal(t *testing.T) {
	env := dataset.NewEnv(0, false)
	empty := dataset.NewParallel[int]()

	sketchItems, err, completed := collect(t, dataset.Sketch[int, int](env, empty, identitySum{}))
	require.NoError(t, err)
	assert.True(t, completed)
	require.Len(t, sketchItems, 1)
	assert.Equal(t, 0, *sketchItems[0].Payload)

	mapItems, err, completed := collect(t, dataset.Map[int, int](env, empty, timesTen{}))
	require.NoError(t, err)
	assert.True(t, completed)
	require.Len(t, mapItems, 1)
	children, ok := mapItems[0].Payload.Children()
	require.True(t, ok)
	assert.Empty(t, children)
}

type boomMap struct{}

func (boomMap) Apply(t int) (int, error) { panic("kaboom") }

func TestLocalMapPanicBecomesUserCodeFailure(t *testing.T) {
	env := dataset.NewEnv(0, false)
	d := dataset.Local(1)
	_, err, completed := collect(t, dataset.Map[int, int](env, d, boomMap{}))
	assert.ErrorIs(t, err, dataset.ErrUserCodeFailure)
	assert.False(t, completed)
}

var _ contract.Map[int, int] = timesTen{}
var _ contract.Sketch[int, int] = identitySum{}
