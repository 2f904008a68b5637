// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package opregistry

import (
	"github.com/coatyio/dda-examples/dataset/contract"
	"github.com/coatyio/dda-examples/dataset/wire"
)

// AsByteMap adapts a Map[T, S] into a Map[[]byte, []byte] that gob-decodes
// its input and gob-encodes its output. rpcserver hosts every dataset as a
// DataSet[[]byte] regardless of its true element type, so a single server
// can dispatch operations over arbitrary T/S without knowing them at
// compile time — decoding only happens inside the named operation itself.
func AsByteMap[T, S any](m contract.Map[T, S]) contract.Map[[]byte, []byte] {
	return contract.MapFunc[[]byte, []byte](func(in []byte) ([]byte, error) {
		var t T
		if err := wire.DecodeOp(in, &t); err != nil {
			return nil, err
		}
		s, err := m.Apply(t)
		if err != nil {
			return nil, err
		}
		return wire.EncodeOp(s)
	})
}

// AsByteFlatMap is AsByteMap's FlatMap counterpart: each returned S is
// individually gob-encoded, becoming one Local([]byte) leaf of the
// resulting Parallel dataset.
func AsByteFlatMap[T, S any](fm contract.FlatMap[T, S]) contract.FlatMap[[]byte, []byte] {
	return contract.FlatMapFunc[[]byte, []byte](func(in []byte) ([][]byte, error) {
		var t T
		if err := wire.DecodeOp(in, &t); err != nil {
			return nil, err
		}
		ss, err := fm.Apply(t)
		if err != nil {
			return nil, err
		}
		out := make([][]byte, len(ss))
		for i, s := range ss {
			b, err := wire.EncodeOp(s)
			if err != nil {
				return nil, err
			}
			out[i] = b
		}
		return out, nil
	})
}

// byteSketch adapts a Sketch[T, R] into a Sketch[[]byte, []byte]. Unlike
// contract.Map/FlatMap, contract.Sketch's three methods return no error, so
// a decode/encode failure here panics — dataset.localSketch/parallelSketch
// already recover from a panicking Create/Add and turn it into
// dataset.ErrUserCodeFailure.
type byteSketch[T, R any] struct {
	sk contract.Sketch[T, R]
}

// AsByteSketch adapts sk the same way AsByteMap adapts a Map.
func AsByteSketch[T, R any](sk contract.Sketch[T, R]) contract.Sketch[[]byte, []byte] {
	return byteSketch[T, R]{sk: sk}
}

func (b byteSketch[T, R]) Zero() []byte {
	enc, err := wire.EncodeOp(b.sk.Zero())
	if err != nil {
		panic(err)
	}
	return enc
}

func (b byteSketch[T, R]) Create(in []byte) []byte {
	var t T
	if err := wire.DecodeOp(in, &t); err != nil {
		panic(err)
	}
	enc, err := wire.EncodeOp(b.sk.Create(t))
	if err != nil {
		panic(err)
	}
	return enc
}

func (b byteSketch[T, R]) Add(a, c []byte) []byte {
	var av, cv R
	if err := wire.DecodeOp(a, &av); err != nil {
		panic(err)
	}
	if err := wire.DecodeOp(c, &cv); err != nil {
		panic(err)
	}
	enc, err := wire.EncodeOp(b.sk.Add(av, cv))
	if err != nil {
		panic(err)
	}
	return enc
}
