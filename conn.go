// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package dataset

import (
	"context"

	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/stream"
)

// Method identifies which of the four dataset operations a Command (spec
// §6) is carrying.
type Method int

const (
	MethodMap Method = iota
	MethodFlatMap
	MethodZip
	MethodSketch
)

func (m Method) String() string {
	switch m {
	case MethodMap:
		return "map"
	case MethodFlatMap:
		return "flatMap"
	case MethodZip:
		return "zip"
	case MethodSketch:
		return "sketch"
	default:
		return "unknown"
	}
}

// RawResult is one item of the stream a Conn.Do call produces, already
// decoded off the wire but still untyped with respect to the caller's T/S/R:
// exactly one of NewObjectID (map/flatMap/zip: a fresh remote dataset was
// created) or Payload (sketch: a gob-encoded R value) is meaningful.
type RawResult struct {
	NewObjectID *ObjectID
	Payload     []byte
}

// Conn is the transport-independent abstraction a RemoteDataSet dispatches
// through (spec §4.4). It is implemented by package remoteset, which owns
// the actual gRPC dialing, the wire codec, and reconnect/backoff policy.
// Conn is intentionally not generic over the dataset's element type: the
// same connection is reused as map/flatMap produce datasets of new element
// types, which is why DataSet[T] stores a Conn rather than a typed client.
type Conn interface {
	// Do issues one Command against the dataset at id and streams back
	// PartialResponses translated into RawResults. For MethodZip, peer
	// identifies the other operand (possibly hosted through the same
	// connection); idsIndex is a correlation id used only for unsubscribe
	// (spec §6 notes it "disambiguates multi-dataset calls"). The remoteset
	// implementation ignores the value passed here and mints its own per
	// subscription.
	Do(ctx context.Context, id ObjectID, method Method, idsIndex int32, peer ObjectID, opName string, opParams []byte) stream.Stream[partial.Result[RawResult]]

	// Prune decrements the server-side refcount of id (spec §4.4). Nothing
	// in this module calls it automatically when a handle becomes
	// unreachable; it runs only when a caller invokes it.
	Prune(id ObjectID)
}
