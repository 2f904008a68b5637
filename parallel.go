// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset

import (
	"context"
	"fmt"
	"sync"

	"github.com/coatyio/dda-examples/dataset/contract"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/stream"
)

// disposerFunc adapts a plain function to stream.Subscription.
type disposerFunc func()

func (f disposerFunc) Dispose() { f() }

// fanOutAssemble subscribes to n child streams of partial.Result[DataSet[S]],
// forwards each child's progress rescaled by 1/n (dropping intermediate
// payloads — only the final assembled handle is observable, per spec §4.3
// which explicitly allows this), and once every child has completed, emits
// one final item built by assemble from the latest DataSet[S] seen at each
// position. The first child error disposes every other child and is
// propagated, matching the merge policy of spec §4.3/§5/§7.
func fanOutAssemble[S any](childStreams []stream.Stream[partial.Result[DataSet[S]]], assemble func(latest []DataSet[S]) DataSet[S]) stream.Stream[partial.Result[DataSet[S]]] {
	n := len(childStreams)
	return stream.New(func(ctx context.Context, rawObs stream.Observer[partial.Result[DataSet[S]]]) stream.Subscription {
		cctx, cancel := context.WithCancel(ctx)
		// Every childStream runs on its own goroutine (stream.FromFunc always
		// spawns one), so n children can call into the downstream Observer
		// concurrently; Serialize ensures delivery stays one-at-a-time per
		// spec §5 even though arrival order across children is unconstrained.
		obs := stream.Serialize(rawObs)

		var mu sync.Mutex
		latest := make([]DataSet[S], n)
		childSubs := make([]stream.Subscription, n)
		remaining := n
		terminated := false

		emit := func(pr partial.Result[DataSet[S]]) {
			if obs.Next != nil {
				obs.Next(pr)
			}
		}
		fail := func(err error) {
			mu.Lock()
			already := terminated
			terminated = true
			mu.Unlock()
			if already {
				return
			}
			if obs.Error != nil {
				obs.Error(err)
			}
			cancel()
			mu.Lock()
			subs := append([]stream.Subscription(nil), childSubs...)
			mu.Unlock()
			for _, s := range subs {
				if s != nil {
					s.Dispose()
				}
			}
		}
		finish := func() {
			mu.Lock()
			result := assemble(latest)
			terminated = true
			mu.Unlock()
			emit(partial.Result[DataSet[S]]{DeltaDone: 0, Payload: &result})
			if obs.Complete != nil {
				obs.Complete()
			}
			cancel()
		}

		if n == 0 {
			finish()
			return disposerFunc(cancel)
		}

		delta := 1.0 / float64(n)
		for i, cs := range childStreams {
			i := i
			sub := cs.Subscribe(cctx, stream.Observer[partial.Result[DataSet[S]]]{
				Next: func(pr partial.Result[DataSet[S]]) {
					if pr.Payload != nil {
						mu.Lock()
						latest[i] = *pr.Payload
						mu.Unlock()
					}
					emit(partial.Result[DataSet[S]]{DeltaDone: pr.DeltaDone * delta})
				},
				Error: fail,
				Complete: func() {
					mu.Lock()
					remaining--
					done := remaining == 0 && !terminated
					mu.Unlock()
					if done {
						finish()
					}
				},
			})
			mu.Lock()
			childSubs[i] = sub
			mu.Unlock()
		}

		return disposerFunc(func() {
			cancel()
			mu.Lock()
			subs := append([]stream.Subscription(nil), childSubs...)
			mu.Unlock()
			for _, s := range subs {
				if s != nil {
					s.Dispose()
				}
			}
		})
	})
}

// parallelMap implements ParallelDataSet.map (spec §4.3).
func parallelMap[T, S any](env *Env, children []DataSet[T], m contract.Map[T, S]) stream.Stream[partial.Result[DataSet[S]]] {
	if len(children) == 0 {
		return stream.Just(partial.Done[DataSet[S]](NewParallel[S]()))
	}
	childStreams := make([]stream.Stream[partial.Result[DataSet[S]]], len(children))
	for i, c := range children {
		childStreams[i] = Map(env, c, m)
	}
	return fanOutAssemble(childStreams, func(latest []DataSet[S]) DataSet[S] {
		return NewParallel(latest...)
	})
}

// parallelFlatMap implements ParallelDataSet.flatMap (spec §4.3): children
// are themselves Parallel, so the result is flattened one level.
func parallelFlatMap[T, S any](env *Env, children []DataSet[T], m contract.FlatMap[T, S]) stream.Stream[partial.Result[DataSet[S]]] {
	if len(children) == 0 {
		return stream.Just(partial.Done[DataSet[S]](NewParallel[S]()))
	}
	childStreams := make([]stream.Stream[partial.Result[DataSet[S]]], len(children))
	for i, c := range children {
		childStreams[i] = FlatMap(env, c, m)
	}
	return fanOutAssemble(childStreams, func(latest []DataSet[S]) DataSet[S] {
		var flat []DataSet[S]
		for _, d := range latest {
			grandchildren, ok := d.Children()
			if !ok {
				// A child's flatMap did not produce a Parallel node; keep it
				// as-is rather than dropping data.
				flat = append(flat, d)
				continue
			}
			flat = append(flat, grandchildren...)
		}
		return NewParallel(flat...)
	})
}

// parallelZip implements ParallelDataSet.zip (spec §4.3): requires other to
// be Parallel with the same child count; fails with ErrShapeMismatch
// otherwise.
func parallelZip[T, S any](env *Env, children []DataSet[T], other DataSet[S]) stream.Stream[partial.Result[DataSet[Pair[T, S]]]] {
	otherChildren, ok := other.Children()
	if !ok {
		return stream.Fail[partial.Result[DataSet[Pair[T, S]]]](
			fmt.Errorf("%w: zip requires both operands to be Parallel, got %v", ErrTypeMismatch, other.Kind()))
	}
	if len(otherChildren) != len(children) {
		return stream.Fail[partial.Result[DataSet[Pair[T, S]]]](
			fmt.Errorf("%w: %d children vs %d children", ErrShapeMismatch, len(children), len(otherChildren)))
	}
	if len(children) == 0 {
		return stream.Just(partial.Done[DataSet[Pair[T, S]]](NewParallel[Pair[T, S]]()))
	}
	childStreams := make([]stream.Stream[partial.Result[DataSet[Pair[T, S]]]], len(children))
	for i := range children {
		childStreams[i] = Zip(env, children[i], otherChildren[i])
	}
	return fanOutAssemble(childStreams, func(latest []DataSet[Pair[T, S]]) DataSet[Pair[T, S]] {
		return NewParallel(latest...)
	})
}

// parallelSketch implements ParallelDataSet.sketch (spec §4.3): merges N
// child sketch streams into a running accumulator, emitting a snapshot after
// every child emission. Ordering of emissions reflects real-time arrival
// order; only the final emission is guaranteed to equal
// fold(sk.Add, sk.Zero(), children results).
func parallelSketch[T, R any](env *Env, children []DataSet[T], sk contract.Sketch[T, R]) stream.Stream[partial.Result[R]] {
	n := len(children)
	if n == 0 {
		return stream.Just(partial.Done(sk.Zero()))
	}

	childStreams := make([]stream.Stream[partial.Result[R]], n)
	for i, c := range children {
		childStreams[i] = Sketch(env, c, sk)
	}

	return stream.New(func(ctx context.Context, rawObs stream.Observer[partial.Result[R]]) stream.Subscription {
		cctx, cancel := context.WithCancel(ctx)
		// See fanOutAssemble: each of the n child sketch streams runs on its
		// own goroutine, so their Next/Error/Complete calls into obs must be
		// serialized to preserve spec §5's single-delivery-at-a-time rule.
		obs := stream.Serialize(rawObs)

		var mu sync.Mutex
		// deliverMu keeps taking a snapshot and delivering it one step, so
		// snapshots reach obs in the order they were taken and the last item
		// delivered carries the full fold.
		var deliverMu sync.Mutex
		accumulator := sk.Zero()
		childSubs := make([]stream.Subscription, n)
		remaining := n
		terminated := false
		delta := 1.0 / float64(n)

		fail := func(err error) {
			mu.Lock()
			already := terminated
			terminated = true
			mu.Unlock()
			if already {
				return
			}
			if obs.Error != nil {
				obs.Error(err)
			}
			cancel()
			mu.Lock()
			subs := append([]stream.Subscription(nil), childSubs...)
			mu.Unlock()
			for _, s := range subs {
				if s != nil {
					s.Dispose()
				}
			}
		}

		for i, cs := range childStreams {
			i := i
			sub := cs.Subscribe(cctx, stream.Observer[partial.Result[R]]{
				Next: func(pr partial.Result[R]) {
					deliverMu.Lock()
					defer deliverMu.Unlock()
					mu.Lock()
					var addErr error
					if pr.Payload != nil {
						addErr = safely(func() error {
							accumulator = sk.Add(accumulator, *pr.Payload)
							return nil
						})
					}
					snapshot := accumulator
					mu.Unlock()
					if addErr != nil {
						fail(addErr)
						return
					}
					if obs.Next != nil {
						obs.Next(partial.Result[R]{DeltaDone: pr.DeltaDone * delta, Payload: &snapshot})
					}
				},
				Error: fail,
				Complete: func() {
					mu.Lock()
					remaining--
					done := remaining == 0 && !terminated
					if done {
						terminated = true
					}
					mu.Unlock()
					if done {
						if obs.Complete != nil {
							obs.Complete()
						}
						cancel()
					}
				},
			})
			mu.Lock()
			childSubs[i] = sub
			mu.Unlock()
		}

		return disposerFunc(func() {
			cancel()
			mu.Lock()
			subs := append([]stream.Subscription(nil), childSubs...)
			mu.Unlock()
			for _, s := range subs {
				if s != nil {
					s.Dispose()
				}
			}
		})
	})
}
