// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package remoteset implements dataset.Conn over a gRPC connection to an
// rpcserver.Server: it is the client side of the seven-method streaming
// service defined in package wire, translating a Command into a stream of
// partial.Result[dataset.RawResult], issuing unsubscribe when a call's
// subscription is disposed and prune when Prune is called.
package remoteset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/dlog"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/stream"
	"github.com/coatyio/dda-examples/dataset/wire"
)

// Conn dials one rpcserver address and implements dataset.Conn against it.
// A single Conn is shared by every DataSet handle derived from the root
// handle it was used to open, since map/flatMap/zip produce datasets of new
// element types that still need to reach the same server (see
// dataset.Conn's doc comment on why it is not generic).
type Conn struct {
	address string
	cc      *grpc.ClientConn
	log     *dlog.Logger
	nextID  atomic.Int32
}

// Dial connects to address, retrying with exponential backoff up to
// maxRetries times, mirroring the bounded-resubmission discipline of
// components/coordinator.go's partitionAccumulate (which never retries
// unboundedly either).
func Dial(ctx context.Context, address string, maxRetries uint64) (*Conn, error) {
	var cc *grpc.ClientConn
	dial := func() error {
		var err error
		cc, err = grpc.Dial(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx)
	if err := backoff.Retry(dial, policy); err != nil {
		return nil, fmt.Errorf("%w: dialing %s: %v", dataset.ErrTransportError, address, err)
	}

	conn := Wrap(cc)
	conn.address = address
	return conn, nil
}

// Wrap builds a Conn around an already-established *grpc.ClientConn, for
// callers (and tests) that manage dialing themselves — e.g. against an
// in-memory bufconn listener.
func Wrap(cc *grpc.ClientConn) *Conn {
	return &Conn{cc: cc, log: dlog.New("remoteset ")}
}

// Close releases the underlying gRPC connection. Callers should prune every
// handle obtained through this Conn before closing it.
func (c *Conn) Close() error {
	return c.cc.Close()
}

// Open wraps id as the root Remote handle of type T reachable through c.
func Open[T any](c *Conn, id dataset.ObjectID) dataset.DataSet[T] {
	return dataset.NewRemote[T](c, id)
}

// Do implements dataset.Conn. It issues one streaming RPC named after method
// and translates each PartialResponse into a partial.Result[dataset.RawResult]
// until the server completes the call or the subscription is disposed. On
// Dispose, Unsubscribe is sent best-effort so the server can release the
// call's resources (spec.md §4.4's cancellation contract); a cancelled ctx
// alone cancels the gRPC stream but sends no Unsubscribe. The idsIndex
// argument is ignored: each subscription mints its own from c's counter.
func (c *Conn) Do(ctx context.Context, id dataset.ObjectID, method dataset.Method, idsIndex int32, peer dataset.ObjectID, opName string, opParams []byte) stream.Stream[partial.Result[dataset.RawResult]] {
	return stream.New(func(ctx context.Context, obs stream.Observer[partial.Result[dataset.RawResult]]) stream.Subscription {
		idsIndex = c.nextID.Add(1)
		cmd := &wire.Command{
			IdsIndex:     idsIndex,
			HighID:       id.High,
			LowID:        id.Low,
			PeerHighID:   peer.High,
			PeerLowID:    peer.Low,
			OpName:       opName,
			SerializedOp: opParams,
		}

		callCtx, cancel := context.WithCancel(ctx)
		cs, err := c.cc.NewStream(callCtx, &grpc.StreamDesc{ServerStreams: true}, serviceMethodName(method), grpc.CallContentSubtype(wire.CodecName))
		if err != nil {
			cancel()
			go obs.Error(fmt.Errorf("%w: opening %s stream: %v", dataset.ErrTransportError, method, err))
			return disposerFunc(func() {})
		}
		if err := cs.SendMsg(cmd); err != nil {
			cancel()
			go obs.Error(fmt.Errorf("%w: sending command: %v", dataset.ErrTransportError, err))
			return disposerFunc(func() {})
		}
		if err := cs.CloseSend(); err != nil {
			cancel()
			go obs.Error(fmt.Errorf("%w: closing send: %v", dataset.ErrTransportError, err))
			return disposerFunc(func() {})
		}

		go func() {
			for {
				var resp wire.PartialResponse
				err := cs.RecvMsg(&resp)
				if err != nil {
					if errors.Is(err, io.EOF) {
						obs.Complete()
						return
					}
					if status.Code(err) == codes.Canceled {
						obs.Complete()
						return
					}
					obs.Error(fmt.Errorf("%w: %v", dataset.ErrTransportError, err))
					return
				}

				var env wire.Envelope
				if err := wire.DecodeOp(resp.SerializedOp, &env); err != nil {
					obs.Error(fmt.Errorf("%w: decoding envelope: %v", dataset.ErrTransportError, err))
					return
				}

				raw := dataset.RawResult{}
				if env.HasNewObject {
					newID := dataset.ObjectID{High: env.NewHighID, Low: env.NewLowID}
					raw.NewObjectID = &newID
				}
				if env.Payload != nil {
					raw.Payload = env.Payload
				}
				obs.Next(partial.Result[dataset.RawResult]{DeltaDone: env.DeltaDone, Payload: &raw})
			}
		}()

		return disposerFunc(func() {
			cancel()
			c.unsubscribe(idsIndex)
		})
	})
}

// Prune implements dataset.Conn by decrementing the server's refcount for
// id, best-effort over a short-lived context of its own, since it takes no
// caller context. No code in this module calls it automatically.
func (c *Conn) Prune(id dataset.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cs, err := c.cc.NewStream(ctx, &grpc.StreamDesc{ServerStreams: true}, "/dataset.Dataset/Prune", grpc.CallContentSubtype(wire.CodecName))
	if err != nil {
		c.log.Errorf("prune %v: opening stream: %v", id, err)
		return
	}
	cmd := &wire.Command{HighID: id.High, LowID: id.Low}
	if err := cs.SendMsg(cmd); err != nil {
		c.log.Errorf("prune %v: %v", id, err)
		return
	}
	_ = cs.CloseSend()
	var resp wire.PartialResponse
	if err := cs.RecvMsg(&resp); err != nil {
		c.log.Errorf("prune %v: awaiting ack: %v", id, err)
	}
}

// unsubscribe tells the server to dispose the in-flight call identified by
// idsIndex, best-effort: a failure here only means the server-side call
// lingers until it would have completed on its own.
func (c *Conn) unsubscribe(idsIndex int32) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var ack wire.Ack
	err := c.cc.Invoke(ctx, "/dataset.Dataset/Unsubscribe", &wire.Command{IdsIndex: idsIndex}, &ack, grpc.CallContentSubtype(wire.CodecName))
	if err != nil && status.Code(err) != codes.Canceled {
		c.log.Errorf("unsubscribe %d: %v", idsIndex, err)
	}
}

// serviceMethodName maps a dataset.Method to the full gRPC method name
// registered in rpcserver.ServiceDesc.
func serviceMethodName(method dataset.Method) string {
	switch method {
	case dataset.MethodMap:
		return "/dataset.Dataset/Map"
	case dataset.MethodFlatMap:
		return "/dataset.Dataset/FlatMap"
	case dataset.MethodZip:
		return "/dataset.Dataset/Zip"
	case dataset.MethodSketch:
		return "/dataset.Dataset/Sketch"
	default:
		return "/dataset.Dataset/Unknown"
	}
}

type disposerFunc func()

func (f disposerFunc) Dispose() { f() }
