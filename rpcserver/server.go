// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package rpcserver exposes the dataset package over the seven-method
// streaming RPC service of spec.md §4.5/§6: map, flatMap, sketch, zip,
// manage, prune (server-streaming) and unsubscribe (unary, replies Ack).
// The grpc.ServiceDesc is built by hand rather than from protoc-generated
// code, since this build has no codegen step available; wire.CodecName (a
// gob codec) takes the place of protobuf.
package rpcserver

import (
	"context"
	"sync"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/dlog"
	"github.com/coatyio/dda-examples/dataset/objectmanager"
	"github.com/coatyio/dda-examples/dataset/opregistry"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/stream"
	"github.com/coatyio/dda-examples/dataset/wire"
)

// Server hosts dataset handles as DataSet[[]byte] regardless of their true
// element type (see opregistry.AsByteMap et al.): the server never needs to
// know T/S/R, only the registered operation does.
type Server struct {
	env      *dataset.Env
	objects  *objectmanager.Manager
	registry *opregistry.Registry
	log      *dlog.Logger

	mu    sync.Mutex
	calls map[callKey]stream.Subscription // live server-side calls, keyed by connection + Command.IdsIndex
}

// New builds a Server. Root dataset handles must be inserted into objects
// before a client can address them (see objectmanager.Manager.Insert).
func New(env *dataset.Env, objects *objectmanager.Manager, registry *opregistry.Registry) *Server {
	return &Server{
		env:      env,
		objects:  objects,
		registry: registry,
		log:      dlog.New("rpcserver"),
		calls:    make(map[callKey]stream.Subscription),
	}
}

// callKey identifies one live call in s.calls. Command.IdsIndex is minted by
// remoteset.Conn's own nextID counter (see remoteset/remoteset.go), which
// starts fresh at every Dial: two distinct client connections routinely pick
// the same IdsIndex for their first call. Scoping the key by the connection's
// peer address as well keeps those calls from colliding or, worse, letting
// one client's Unsubscribe dispose another client's in-flight stream.
type callKey struct {
	conn     string
	idsIndex int32
}

// connKey derives the connection-scoped half of a callKey from ctx. All RPCs
// a given remoteset.Conn makes are multiplexed over one underlying HTTP/2
// connection, so they share one peer address; a different client dials a
// different connection and gets a different one.
func connKey(ctx context.Context) string {
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		return p.Addr.String()
	}
	return ""
}

func (s *Server) lookup(cmd wire.Command) (dataset.DataSet[[]byte], error) {
	id := dataset.ObjectID{High: cmd.HighID, Low: cmd.LowID}
	v, ok := s.objects.Lookup(id)
	if !ok {
		return dataset.DataSet[[]byte]{}, status.Errorf(codes.NotFound, "dataset: object not found: %v", id)
	}
	ds, ok := v.(dataset.DataSet[[]byte])
	if !ok {
		return dataset.DataSet[[]byte]{}, status.Errorf(codes.Internal, "dataset: stored handle has unexpected shape")
	}
	return ds, nil
}

// registerChild inserts a freshly produced DataSet[[]byte] and returns the
// wire envelope carrying its new id, for map/flatMap/zip replies.
func (s *Server) registerChild(delta float64, child dataset.DataSet[[]byte]) wire.Envelope {
	id := s.objects.Insert(child)
	return wire.Envelope{DeltaDone: delta, HasNewObject: true, NewHighID: id.High, NewLowID: id.Low}
}

// serveMapLike drives map/flatMap/zip's common shape: resolve the named
// op (or peer, for zip), subscribe to the resulting stream, and send one
// PartialResponse per emitted item until completion or error.
func (s *Server) serveMapLike(ctx context.Context, send func(*wire.PartialResponse) error, method dataset.Method, cmd wire.Command) error {
	target, err := s.lookup(cmd)
	if err != nil {
		return err
	}

	var results stream.Stream[partial.Result[dataset.DataSet[[]byte]]]
	switch method {
	case dataset.MethodMap:
		m, err := opregistry.MapByName[[]byte, []byte](s.registry, cmd.OpName, cmd.SerializedOp)
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		results = dataset.Map[[]byte, []byte](s.env, target, m)
	case dataset.MethodFlatMap:
		fm, err := opregistry.FlatMapByName[[]byte, []byte](s.registry, cmd.OpName, cmd.SerializedOp)
		if err != nil {
			return status.Error(codes.InvalidArgument, err.Error())
		}
		results = dataset.FlatMap[[]byte, []byte](s.env, target, fm)
	case dataset.MethodZip:
		peerID := dataset.ObjectID{High: cmd.PeerHighID, Low: cmd.PeerLowID}
		peerAny, ok := s.objects.Lookup(peerID)
		if !ok {
			return status.Errorf(codes.NotFound, "dataset: zip peer not found: %v", peerID)
		}
		peer := peerAny.(dataset.DataSet[[]byte])
		pairs := dataset.Zip[[]byte, []byte](s.env, target, peer)
		results = flattenPairStream(pairs)
	default:
		return status.Errorf(codes.Internal, "dataset: unsupported method %v", method)
	}

	return s.streamWith(ctx, send, cmd.IdsIndex, results, func(pr partial.Result[dataset.DataSet[[]byte]]) (wire.Envelope, error) {
		if pr.Payload == nil {
			return wire.Envelope{DeltaDone: pr.DeltaDone}, nil
		}
		return s.registerChild(pr.DeltaDone, *pr.Payload), nil
	})
}

// flattenPairStream discards the Pair wrapper a zip produces server-side:
// the byte-oriented registry entries already encode both operands, so the
// server only needs to forward the resulting DataSet[[]byte] handle.
func flattenPairStream(s stream.Stream[partial.Result[dataset.DataSet[dataset.Pair[[]byte, []byte]]]]) stream.Stream[partial.Result[dataset.DataSet[[]byte]]] {
	return stream.MapStream(s, func(pr partial.Result[dataset.DataSet[dataset.Pair[[]byte, []byte]]]) (partial.Result[dataset.DataSet[[]byte]], error) {
		if pr.Payload == nil {
			return partial.Result[dataset.DataSet[[]byte]]{DeltaDone: pr.DeltaDone}, nil
		}
		pair, ok := pr.Payload.LocalValue()
		if ok {
			merged, err := wire.EncodeOp(pair)
			if err != nil {
				return partial.Result[dataset.DataSet[[]byte]]{}, err
			}
			d := dataset.Local(merged)
			return partial.Result[dataset.DataSet[[]byte]]{DeltaDone: pr.DeltaDone, Payload: &d}, nil
		}
		// Parallel/Remote zip results carry no single leaf payload to encode
		// inline; they are forwarded with their progress only, so no handle
		// is registered for them.
		return partial.Result[dataset.DataSet[[]byte]]{DeltaDone: pr.DeltaDone}, nil
	})
}

func (s *Server) serveSketch(ctx context.Context, send func(*wire.PartialResponse) error, cmd wire.Command) error {
	target, err := s.lookup(cmd)
	if err != nil {
		return err
	}
	sk, err := opregistry.SketchByName[[]byte, []byte](s.registry, cmd.OpName, cmd.SerializedOp)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	results := dataset.Sketch[[]byte, []byte](s.env, target, sk)
	return streamWithBody(s, ctx, send, cmd.IdsIndex, results, func(pr partial.Result[[]byte]) (wire.Envelope, error) {
		if pr.Payload == nil {
			return wire.Envelope{DeltaDone: pr.DeltaDone}, nil
		}
		return wire.Envelope{DeltaDone: pr.DeltaDone, Payload: *pr.Payload}, nil
	})
}

// serveManage pins (AddRef's) the target handle and replies with a single
// acknowledging item — a keep-alive against the object manager's refcount,
// the counterpart to prune (see DESIGN.md's Open Question decision on the
// "manage" method, which spec.md lists but does not otherwise define).
func (s *Server) serveManage(ctx context.Context, send func(*wire.PartialResponse) error, cmd wire.Command) error {
	id := dataset.ObjectID{High: cmd.HighID, Low: cmd.LowID}
	if _, ok := s.objects.Lookup(id); !ok {
		return status.Errorf(codes.NotFound, "dataset: object not found: %v", id)
	}
	s.objects.AddRef(id)
	return s.sendEnvelope(send, wire.Envelope{DeltaDone: 1.0})
}

func (s *Server) servePrune(ctx context.Context, send func(*wire.PartialResponse) error, cmd wire.Command) error {
	id := dataset.ObjectID{High: cmd.HighID, Low: cmd.LowID}
	s.objects.Release(id)
	return s.sendEnvelope(send, wire.Envelope{DeltaDone: 1.0})
}

func (s *Server) sendEnvelope(send func(*wire.PartialResponse) error, env wire.Envelope) error {
	data, err := wire.EncodeOp(env)
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return send(&wire.PartialResponse{SerializedOp: data})
}

// streamWithBody subscribes to results, translating every item through toEnvelope
// and sending it as a PartialResponse, registering the subscription under
// idsIndex so Unsubscribe can dispose it. It blocks until the stream
// terminates or ctx is cancelled.
func streamWithBody[X any](s *Server, ctx context.Context, send func(*wire.PartialResponse) error, idsIndex int32, results stream.Stream[partial.Result[X]], toEnvelope func(partial.Result[X]) (wire.Envelope, error)) error {
	// grpc.ServerStream forbids concurrent SendMsg calls on the same stream;
	// results.Subscribe already delivers Next one at a time (see
	// stream.Serialize in Merge/fanOutAssemble/parallelSketch), but this
	// guard keeps the one ServerStream this call owns safe even if that
	// upstream guarantee is ever loosened.
	var sendMu sync.Mutex
	done := make(chan error, 1)
	sub := results.Subscribe(ctx, stream.Observer[partial.Result[X]]{
		Next: func(pr partial.Result[X]) {
			env, err := toEnvelope(pr)
			if err != nil {
				s.log.Errorf("encoding partial result: %v", err)
				return
			}
			sendMu.Lock()
			err = s.sendEnvelope(send, env)
			sendMu.Unlock()
			if err != nil {
				s.log.Errorf("sending partial response: %v", err)
			}
		},
		Error: func(err error) { done <- err },
		Complete: func() { done <- nil },
	})

	key := callKey{conn: connKey(ctx), idsIndex: idsIndex}
	s.mu.Lock()
	s.calls[key] = sub
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.calls, key)
		s.mu.Unlock()
	}()

	select {
	case err := <-done:
		if err != nil {
			return status.Error(codes.Unknown, err.Error())
		}
		return nil
	case <-ctx.Done():
		sub.Dispose()
		return status.FromContextError(ctx.Err()).Err()
	}
}

func (s *Server) streamWith(ctx context.Context, send func(*wire.PartialResponse) error, idsIndex int32, results stream.Stream[partial.Result[dataset.DataSet[[]byte]]], toEnvelope func(partial.Result[dataset.DataSet[[]byte]]) (wire.Envelope, error)) error {
	return streamWithBody(s, ctx, send, idsIndex, results, toEnvelope)
}

// Unsubscribe disposes the live call registered under cmd.IdsIndex, per
// spec.md §4.4's cancellation contract. It is registered as a unary RPC
// (the only one of the seven methods that replies with a single Ack).
func (s *Server) Unsubscribe(ctx context.Context, cmd *wire.Command) (*wire.Ack, error) {
	key := callKey{conn: connKey(ctx), idsIndex: cmd.IdsIndex}
	s.mu.Lock()
	sub, ok := s.calls[key]
	s.mu.Unlock()
	if ok {
		sub.Dispose()
	}
	return &wire.Ack{}, nil
}
