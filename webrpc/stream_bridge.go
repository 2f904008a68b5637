// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package webrpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/stream"
	"github.com/coatyio/dda-examples/dataset/wire"
)

// ResultPayload is the JSON shape of a Reply.Result: either a fresh handle
// id (map/flatMap/zip) or a gob-encoded sketch value (sketch), matching the
// NewObjectID/Payload split of dataset.RawResult on the lower RPC layer.
type ResultPayload struct {
	ObjectID string `json:"objectId,omitempty"`
	Payload  []byte `json:"payload,omitempty"`
}

// pendingSub is a Subscription placeholder registered with the object
// manager before the underlying stream.Subscribe call returns, so a second
// request arriving between "reserve the session" and "subscription exists"
// still observes SessionBusy instead of racing past it.
type pendingSub struct {
	mu       sync.Mutex
	real     stream.Subscription
	disposed bool
}

func (p *pendingSub) Dispose() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disposed = true
	if p.real != nil {
		p.real.Dispose()
	}
}

func (p *pendingSub) attach(real stream.Subscription) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.real = real
	if p.disposed {
		real.Dispose()
	}
}

// subscribeDataSet drives a map/flatMap result stream: each produced
// DataSet[[]byte] is inserted under a fresh id and reported as the session's
// new associated handle (spec.md §4.6).
func (sess *session) subscribeDataSet(ctx context.Context, cancel context.CancelFunc, req Request, id dataset.ObjectID, results stream.Stream[partial.Result[dataset.DataSet[[]byte]]]) {
	pending := &pendingSub{}
	if err := sess.server.objects.AddSession(sess.id, &id, pending); err != nil {
		cancel()
		sess.sendBusy(req, err)
		return
	}

	sub := results.Subscribe(ctx, stream.Observer[partial.Result[dataset.DataSet[[]byte]]]{
		Next: func(pr partial.Result[dataset.DataSet[[]byte]]) {
			if pr.Payload == nil {
				return
			}
			childID := sess.server.objects.Insert(*pr.Payload)
			sess.server.objects.SetSessionObjectID(sess.id, childID)
			sess.sendResult(req, ResultPayload{ObjectID: childID.String()}, false)
		},
		Error: func(err error) {
			cancel()
			sess.server.objects.ClearSubscription(sess.id)
			sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: err.Error(), Done: true})
		},
		Complete: func() {
			cancel()
			sess.server.objects.ClearSubscription(sess.id)
			sess.send(Reply{RequestID: req.RequestID, Done: true})
		},
	})
	pending.attach(sub)
}

// subscribePairDataSet drives a zip result stream. A Local leaf's Pair is
// gob-encoded and registered as a fresh Local([]byte) handle; a Parallel/
// Remote zip result carries no single leaf to encode inline, matching the
// same simplification rpcserver's flattenPairStream documents.
func (sess *session) subscribePairDataSet(ctx context.Context, cancel context.CancelFunc, req Request, id dataset.ObjectID, pairs stream.Stream[partial.Result[dataset.DataSet[dataset.Pair[[]byte, []byte]]]]) {
	flattened := stream.MapStream(pairs, func(pr partial.Result[dataset.DataSet[dataset.Pair[[]byte, []byte]]]) (partial.Result[dataset.DataSet[[]byte]], error) {
		if pr.Payload == nil {
			return partial.Result[dataset.DataSet[[]byte]]{DeltaDone: pr.DeltaDone}, nil
		}
		pair, ok := pr.Payload.LocalValue()
		if !ok {
			return partial.Result[dataset.DataSet[[]byte]]{DeltaDone: pr.DeltaDone}, nil
		}
		merged, err := wire.EncodeOp(pair)
		if err != nil {
			return partial.Result[dataset.DataSet[[]byte]]{}, err
		}
		d := dataset.Local(merged)
		return partial.Result[dataset.DataSet[[]byte]]{DeltaDone: pr.DeltaDone, Payload: &d}, nil
	})
	sess.subscribeDataSet(ctx, cancel, req, id, flattened)
}

// subscribePayload drives a sketch result stream, reporting each partial
// sketch value directly (sketch never produces a new handle).
func (sess *session) subscribePayload(ctx context.Context, cancel context.CancelFunc, req Request, results stream.Stream[partial.Result[[]byte]]) {
	pending := &pendingSub{}
	if err := sess.server.objects.AddSession(sess.id, nil, pending); err != nil {
		cancel()
		sess.sendBusy(req, err)
		return
	}

	sub := results.Subscribe(ctx, stream.Observer[partial.Result[[]byte]]{
		Next: func(pr partial.Result[[]byte]) {
			if pr.Payload == nil {
				return
			}
			sess.sendResult(req, ResultPayload{Payload: *pr.Payload}, false)
		},
		Error: func(err error) {
			cancel()
			sess.server.objects.ClearSubscription(sess.id)
			sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: err.Error(), Done: true})
		},
		Complete: func() {
			cancel()
			sess.server.objects.ClearSubscription(sess.id)
			sess.send(Reply{RequestID: req.RequestID, Done: true})
		},
	})
	pending.attach(sub)
}

func (sess *session) sendResult(req Request, payload ResultPayload, done bool) {
	data, err := json.Marshal(payload)
	if err != nil {
		sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: err.Error(), Done: true})
		return
	}
	sess.send(Reply{RequestID: req.RequestID, Result: data, Done: done})
}

func (sess *session) sendBusy(req Request, err error) {
	sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: err.Error(), Done: true})
}

// parseObjectID parses the 32-hex-digit form produced by
// dataset.ObjectID.String().
func parseObjectID(s string) (dataset.ObjectID, error) {
	if len(s) != 32 {
		return dataset.ObjectID{}, fmt.Errorf("webrpc: malformed object id %q", s)
	}
	high, err := strconv.ParseUint(s[:16], 16, 64)
	if err != nil {
		return dataset.ObjectID{}, fmt.Errorf("webrpc: malformed object id %q: %v", s, err)
	}
	low, err := strconv.ParseUint(s[16:], 16, 64)
	if err != nil {
		return dataset.ObjectID{}, fmt.Errorf("webrpc: malformed object id %q: %v", s, err)
	}
	return dataset.ObjectID{High: int64(high), Low: int64(low)}, nil
}
