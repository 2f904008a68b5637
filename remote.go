// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset

import (
	"bytes"
	"context"
	"encoding/gob"
	"fmt"

	"github.com/coatyio/dda-examples/dataset/contract"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/stream"
)

// nameableOp extracts the (name, params) pair needed to serialize an
// operation across the RPC boundary, or ErrNotNameable if the caller passed
// an arbitrary, unregistered implementation (see contract.Nameable and
// package opregistry).
func nameableOp(op any) (name string, params []byte, err error) {
	n, ok := op.(contract.Nameable)
	if !ok {
		return "", nil, ErrNotNameable
	}
	params, err = n.OpParams()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUserCodeFailure, err)
	}
	return n.OpName(), params, nil
}

// remoteNewDataSet implements RemoteDataSet.map/flatMap/zip's common shape: send a
// Command, and translate each streamed RawResult carrying a fresh
// NewObjectID into a new Remote DataSet[S] handle on the same connection
// (spec §4.4: "The returned handle ... is a fresh RemoteDataSet whose
// object-id is encoded in the payload").
func remoteNewDataSet[S any](conn Conn, id ObjectID, method Method, idsIndex int32, peer ObjectID, opName string, opParams []byte) stream.Stream[partial.Result[DataSet[S]]] {
	return stream.New(func(ctx context.Context, obs stream.Observer[partial.Result[DataSet[S]]]) stream.Subscription {
		raw := conn.Do(ctx, id, method, idsIndex, peer, opName, opParams)
		mapped := stream.MapStream(raw, func(pr partial.Result[RawResult]) (partial.Result[DataSet[S]], error) {
			if pr.Payload == nil || pr.Payload.NewObjectID == nil {
				return partial.Result[DataSet[S]]{DeltaDone: pr.DeltaDone}, nil
			}
			child := NewRemote[S](conn, *pr.Payload.NewObjectID)
			return partial.Result[DataSet[S]]{DeltaDone: pr.DeltaDone, Payload: &child}, nil
		})
		return mapped.Subscribe(ctx, obs)
	})
}

func remoteMap[T, S any](conn Conn, id ObjectID, m contract.Map[T, S]) stream.Stream[partial.Result[DataSet[S]]] {
	name, params, err := nameableOp(m)
	if err != nil {
		return stream.Fail[partial.Result[DataSet[S]]](err)
	}
	return remoteNewDataSet[S](conn, id, MethodMap, 0, ObjectID{}, name, params)
}

func remoteFlatMap[T, S any](conn Conn, id ObjectID, m contract.FlatMap[T, S]) stream.Stream[partial.Result[DataSet[S]]] {
	name, params, err := nameableOp(m)
	if err != nil {
		return stream.Fail[partial.Result[DataSet[S]]](err)
	}
	return remoteNewDataSet[S](conn, id, MethodFlatMap, 0, ObjectID{}, name, params)
}

func remoteZip[T, S any](conn Conn, id ObjectID, other DataSet[S]) stream.Stream[partial.Result[DataSet[Pair[T, S]]]] {
	peerConn, peerID, ok := other.RemoteRef()
	if !ok {
		return stream.Fail[partial.Result[DataSet[Pair[T, S]]]](
			fmt.Errorf("%w: zip requires both operands to be Remote, got %v", ErrTypeMismatch, other.Kind()))
	}
	if peerConn != conn {
		return stream.Fail[partial.Result[DataSet[Pair[T, S]]]](
			fmt.Errorf("%w: zip requires both operands to share a connection", ErrTypeMismatch))
	}
	return remoteNewDataSet[Pair[T, S]](conn, id, MethodZip, 0, peerID, "", nil)
}

func remoteSketch[T, R any](conn Conn, id ObjectID, sk contract.Sketch[T, R]) stream.Stream[partial.Result[R]] {
	name, params, err := nameableOp(sk)
	if err != nil {
		return stream.Fail[partial.Result[R]](err)
	}
	return stream.New(func(ctx context.Context, obs stream.Observer[partial.Result[R]]) stream.Subscription {
		raw := conn.Do(ctx, id, MethodSketch, 0, ObjectID{}, name, params)
		mapped := stream.MapStream(raw, func(pr partial.Result[RawResult]) (partial.Result[R], error) {
			if pr.Payload == nil || pr.Payload.Payload == nil {
				return partial.Result[R]{DeltaDone: pr.DeltaDone}, nil
			}
			var r R
			dec := gob.NewDecoder(bytes.NewReader(pr.Payload.Payload))
			if err := dec.Decode(&r); err != nil {
				return partial.Result[R]{}, fmt.Errorf("%w: decoding sketch result: %v", ErrUserCodeFailure, err)
			}
			return partial.Result[R]{DeltaDone: pr.DeltaDone, Payload: &r}, nil
		})
		return mapped.Subscribe(ctx, obs)
	})
}
