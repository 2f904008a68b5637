// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package stream_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/coatyio/dda-examples/dataset/stream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func TestJustColdness(t *testing.T) {
	started := false
	s := stream.New(func(ctx context.Context, obs stream.Observer[int]) stream.Subscription {
		started = true
		return stream.Just(1).Subscribe(ctx, obs)
	})
	assert.False(t, started, "producer must not run before Subscribe")
	items, err, completed := collect(t, s)
	assert.True(t, started)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, []int{1}, items)
}

func TestJustIndependentSubscriptions(t *testing.T) {
	s := stream.Just(1, 2, 3)
	items1, _, _ := collect(t, s)
	items2, _, _ := collect(t, s)
	assert.Equal(t, items1, items2)
}

func TestFail(t *testing.T) {
	wantErr := errors.New("boom")
	items, err, completed := collect(t, stream.Fail[int](wantErr))
	assert.Empty(t, items)
	assert.Equal(t, wantErr, err)
	assert.False(t, completed)
}

func TestMapStream(t *testing.T) {
	s := stream.MapStream(stream.Just(1, 2, 3), func(x int) (int, error) { return x * 10, nil })
	items, err, completed := collect(t, s)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, []int{10, 20, 30}, items)
}

func TestMapStreamPropagatesError(t *testing.T) {
	wantErr := errors.New("bad")
	s := stream.MapStream(stream.Just(1, 2, 3), func(x int) (int, error) {
		if x == 2 {
			return 0, wantErr
		}
		return x, nil
	})
	_, err, completed := collect(t, s)
	assert.Equal(t, wantErr, err)
	assert.False(t, completed)
}

func TestConcatOrdering(t *testing.T) {
	s := stream.Concat(stream.Just(1, 2), stream.Just(3, 4))
	items, err, completed := collect(t, s)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, []int{1, 2, 3, 4}, items)
}

func TestConcatPropagatesError(t *testing.T) {
	wantErr := errors.New("bad")
	s := stream.Concat(stream.Just(1), stream.Fail[int](wantErr), stream.Just(2))
	items, err, _ := collect(t, s)
	assert.Equal(t, []int{1}, items)
	assert.Equal(t, wantErr, err)
}

func TestMergeCompletesWhenAllComplete(t *testing.T) {
	s := stream.Merge(stream.Just(1), stream.Just(2), stream.Just(3))
	items, err, completed := collect(t, s)
	require.NoError(t, err)
	assert.True(t, completed)
	sort.Ints(items)
	assert.Equal(t, []int{1, 2, 3}, items)
}

func TestMergeZeroStreamsCompletesImmediately(t *testing.T) {
	items, err, completed := collect[int](t, stream.Merge[int]())
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Empty(t, items)
}

func TestMergeFirstErrorWins(t *testing.T) {
	wantErr := errors.New("bad")
	s := stream.Merge(stream.Just(1), stream.Fail[int](wantErr))
	_, err, completed := collect(t, s)
	assert.Equal(t, wantErr, err)
	assert.False(t, completed)
}

func TestObserveOnPreservesOrder(t *testing.T) {
	pool := stream.NewPool(4)
	s := stream.ObserveOn(stream.Just(1, 2, 3, 4, 5), pool)
	items, err, completed := collect(t, s)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items)
}

func TestDisposeIsIdempotentAndStopsDelivery(t *testing.T) {
	var mu sync.Mutex
	var count int
	ch := make(chan struct{})
	s := stream.New(func(ctx context.Context, obs stream.Observer[int]) stream.Subscription {
		cctx, cancel := context.WithCancel(ctx)
		go func() {
			for i := 0; ; i++ {
				select {
				case <-cctx.Done():
					return
				default:
				}
				mu.Lock()
				count++
				mu.Unlock()
				if i == 0 {
					close(ch)
				}
				time.Sleep(time.Millisecond)
			}
		}()
		return disposerFunc(cancel)
	})

	sub := s.Subscribe(context.Background(), stream.Observer[int]{})
	<-ch
	sub.Dispose()
	sub.Dispose() // idempotent: must not panic

	mu.Lock()
	after := count
	mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	later := count
	mu.Unlock()
	assert.Equal(t, after, later, "no further work after disposal")
}

type disposerFunc func()

func (f disposerFunc) Dispose() { f() }
