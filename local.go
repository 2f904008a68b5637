// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset

import (
	"fmt"

	"github.com/coatyio/dda-examples/dataset/contract"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/stream"
)

// localMap implements LocalDataSet.map (spec §4.2): a single emission of
// PartialResult(1.0, Local(mapper.apply(data))).
func localMap[T, S any](env *Env, value T, m contract.Map[T, S]) stream.Stream[partial.Result[DataSet[S]]] {
	return stream.FromFunc(env.scheduler(), func() ([]partial.Result[DataSet[S]], error) {
		var s S
		err := safely(func() (err error) {
			s, err = m.Apply(value)
			return err
		})
		if err != nil {
			return nil, err
		}
		return []partial.Result[DataSet[S]]{partial.Done(Local(s))}, nil
	})
}

// localFlatMap implements LocalDataSet.flatMap (spec §4.2): a single
// emission of a Parallel node whose children are Local(s_i) for each item of
// the returned sequence. Per DESIGN.md's Open Question decision, an empty
// sequence produces a legal, empty-tolerant Parallel rather than an error.
func localFlatMap[T, S any](env *Env, value T, m contract.FlatMap[T, S]) stream.Stream[partial.Result[DataSet[S]]] {
	return stream.FromFunc(env.scheduler(), func() ([]partial.Result[DataSet[S]], error) {
		var ss []S
		err := safely(func() (err error) {
			ss, err = m.Apply(value)
			return err
		})
		if err != nil {
			return nil, err
		}
		children := make([]DataSet[S], len(ss))
		for i, s := range ss {
			children[i] = Local(s)
		}
		return []partial.Result[DataSet[S]]{partial.Done(NewParallel(children...))}, nil
	})
}

// localZip implements LocalDataSet.zip (spec §4.2): requires other to also
// be Local; otherwise fails with ErrTypeMismatch. Single emission of
// Local(Pair(this.data, other.data)).
func localZip[T, S any](env *Env, value T, other DataSet[S]) stream.Stream[partial.Result[DataSet[Pair[T, S]]]] {
	otherValue, ok := other.LocalValue()
	if !ok {
		return stream.Fail[partial.Result[DataSet[Pair[T, S]]]](
			fmt.Errorf("%w: zip requires both operands to be Local, got %v", ErrTypeMismatch, other.Kind()))
	}
	return stream.FromFunc(env.scheduler(), func() ([]partial.Result[DataSet[Pair[T, S]]], error) {
		return []partial.Result[DataSet[Pair[T, S]]]{
			partial.Done(Local(Pair[T, S]{First: value, Second: otherValue})),
		}, nil
	})
}

// localSketch implements LocalDataSet.sketch (spec §4.2): two emissions,
// PartialResult(0.0, sk.zero()) then PartialResult(1.0, sk.create(data)).
func localSketch[T, R any](env *Env, value T, sk contract.Sketch[T, R]) stream.Stream[partial.Result[R]] {
	return stream.FromFunc(env.scheduler(), func() ([]partial.Result[R], error) {
		zero := sk.Zero()
		var created R
		err := safely(func() error {
			created = sk.Create(value)
			return nil
		})
		if err != nil {
			return nil, err
		}
		return []partial.Result[R]{partial.Zero(zero), partial.Done(created)}, nil
	})
}
