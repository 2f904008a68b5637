// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset

import (
	"github.com/coatyio/dda-examples/dataset/contract"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/stream"
)

// Map implements DataSet.map (spec §4), dispatching on the receiver's kind
// to the Local/Parallel/Remote variant implementation.
func Map[T, S any](env *Env, d DataSet[T], m contract.Map[T, S]) stream.Stream[partial.Result[DataSet[S]]] {
	switch d.kind {
	case KindLocal:
		return localMap(env, d.value, m)
	case KindParallel:
		return parallelMap(env, d.children, m)
	case KindRemote:
		return remoteMap[T, S](d.conn, d.objectID, m)
	default:
		return stream.Fail[partial.Result[DataSet[S]]](ErrShapeMismatch)
	}
}

// FlatMap implements DataSet.flatMap (spec §4).
func FlatMap[T, S any](env *Env, d DataSet[T], m contract.FlatMap[T, S]) stream.Stream[partial.Result[DataSet[S]]] {
	switch d.kind {
	case KindLocal:
		return localFlatMap(env, d.value, m)
	case KindParallel:
		return parallelFlatMap(env, d.children, m)
	case KindRemote:
		return remoteFlatMap[T, S](d.conn, d.objectID, m)
	default:
		return stream.Fail[partial.Result[DataSet[S]]](ErrShapeMismatch)
	}
}

// Zip implements DataSet.zip (spec §4): both operands must be of the same
// kind (Local-with-Local, Parallel-with-Parallel of equal length, or
// Remote-with-Remote on the same connection), else ErrTypeMismatch /
// ErrShapeMismatch.
func Zip[T, S any](env *Env, d DataSet[T], other DataSet[S]) stream.Stream[partial.Result[DataSet[Pair[T, S]]]] {
	switch d.kind {
	case KindLocal:
		return localZip(env, d.value, other)
	case KindParallel:
		return parallelZip(env, d.children, other)
	case KindRemote:
		return remoteZip[T, S](d.conn, d.objectID, other)
	default:
		return stream.Fail[partial.Result[DataSet[Pair[T, S]]]](ErrShapeMismatch)
	}
}

// Sketch implements DataSet.sketch (spec §4).
func Sketch[T, R any](env *Env, d DataSet[T], sk contract.Sketch[T, R]) stream.Stream[partial.Result[R]] {
	switch d.kind {
	case KindLocal:
		return localSketch(env, d.value, sk)
	case KindParallel:
		return parallelSketch(env, d.children, sk)
	case KindRemote:
		return remoteSketch[T, R](d.conn, d.objectID, sk)
	default:
		return stream.Fail[partial.Result[R]](ErrShapeMismatch)
	}
}
