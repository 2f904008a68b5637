// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package webrpc exposes the dataset package over the client-facing "/rpc"
// WebSocket endpoint (spec.md §4.6/§6): one connection is one session, text
// frames carry a request object, and zero-or-more reply frames stream back
// until the request's operation completes or errors.
package webrpc

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/cors"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/dlog"
	"github.com/coatyio/dda-examples/dataset/objectmanager"
	"github.com/coatyio/dda-examples/dataset/opregistry"
)

// Method names accepted in Request.Method.
const (
	MethodMap      = "map"
	MethodFlatMap  = "flatMap"
	MethodZip      = "zip"
	MethodSketch   = "sketch"
	MethodManage   = "manage"
	MethodPrune    = "prune"
	MethodUnsub    = "unsubscribe"
)

// Request is the spec.md §6 client-facing request frame: `{ objectId,
// method, arguments }`. ObjectID may be omitted, in which case the session's
// currently associated handle is used (spec.md §4.6). Arguments carries the
// operation's registered name/params (and, for zip, the peer object id) —
// the wire protocol leaves "arguments" opaque to the transport the same way
// Command.serializedOp is opaque to the lower RPC layer.
type Request struct {
	RequestID string     `json:"requestId"`
	ObjectID  string     `json:"objectId,omitempty"`
	Method    string     `json:"method"`
	Arguments *Arguments `json:"arguments,omitempty"`
}

// Arguments is the opaque payload of a Request, shaped after wire.Command's
// OpName/SerializedOp/PeerHighID/PeerLowID fields.
type Arguments struct {
	OpName       string `json:"opName,omitempty"`
	OpParams     []byte `json:"opParams,omitempty"`
	PeerObjectID string `json:"peerObjectId,omitempty"`
}

// Reply is the spec.md §6 reply frame: `{ requestId, result | error,
// isError, done }`.
type Reply struct {
	RequestID string          `json:"requestId"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	IsError   bool            `json:"isError"`
	Done      bool            `json:"done"`
}

// Server upgrades HTTP connections to the "/rpc" WebSocket endpoint. It
// shares env/objects/registry with an rpcserver.Server hosted in the same
// process, dispatching directly against the dataset package rather than
// round-tripping through gRPC (spec.md §4.6 is a same-process client-facing
// surface, not a peer-to-peer transport).
type Server struct {
	env      *dataset.Env
	objects  *objectmanager.Manager
	registry *opregistry.Registry
	log      *dlog.Logger

	upgrader websocket.Upgrader
}

// New builds a Server sharing the given Manager and Registry with whatever
// else hosts them (typically an rpcserver.Server in the same process).
func New(env *dataset.Env, objects *objectmanager.Manager, registry *opregistry.Registry) *Server {
	return &Server{
		env:      env,
		objects:  objects,
		registry: registry,
		log:      dlog.New("webrpc"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler builds the http.Handler for the "/rpc" path, with CORS enabled for
// browser clients (spec.md §1's client is explicitly an external, possibly
// browser-hosted, consumer).
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc", s.serveWS)
	return cors.Default().Handler(mux)
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Errorf("upgrade: %v", err)
		return
	}
	sessionID := uuid.NewString()
	sess := &session{id: sessionID, conn: conn, server: s}
	defer sess.close()

	sess.serve()
}

// session is one "/rpc" connection. Per spec.md §4.6, at most one request
// may be in flight at a time; a second request while one is running is
// rejected with SessionBusy without disturbing the first.
type session struct {
	id     string
	conn   *websocket.Conn
	server *Server

	// writeMu serializes conn.WriteMessage calls: gorilla/websocket forbids
	// concurrent writers, and a Parallel handle's map/flatMap/sketch Next
	// callbacks (see stream_bridge.go) can otherwise fire from more than one
	// goroutine for the duration of one streaming request.
	writeMu sync.Mutex
}

func (sess *session) close() {
	sess.server.objects.RemoveSession(sess.id)
	_ = sess.conn.Close()
}

func (sess *session) serve() {
	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			return // normal close, abnormal close, or read error: session ends either way
		}

		var req Request
		if err := json.Unmarshal(data, &req); err != nil {
			sess.send(Reply{IsError: true, Error: err.Error(), Done: true})
			continue
		}

		sess.handle(req)
	}
}

func (sess *session) send(reply Reply) {
	data, err := json.Marshal(reply)
	if err != nil {
		sess.server.log.Errorf("marshaling reply: %v", err)
		return
	}
	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		sess.server.log.Errorf("writing reply: %v", err)
	}
}

// handle resolves req's target handle, starts the corresponding operation,
// and registers its subscription under the session so a concurrent second
// request observes SessionBusy (spec.md §8 property 6) instead of starting
// a second stream.
func (sess *session) handle(req Request) {
	if req.Method == MethodUnsub {
		if sub, ok := sess.server.objects.GetSubscription(sess.id); ok {
			sub.Dispose()
			sess.server.objects.ClearSubscription(sess.id)
		}
		sess.send(Reply{RequestID: req.RequestID, Done: true})
		return
	}

	id, ok := sess.resolveTarget(req)
	if !ok {
		sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: dataset.ErrObjectNotFound.Error(), Done: true})
		return
	}

	target, ok := sess.server.objects.Lookup(id)
	if !ok {
		sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: dataset.ErrObjectNotFound.Error(), Done: true})
		return
	}
	ds, ok := target.(dataset.DataSet[[]byte])
	if !ok {
		sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: "webrpc: stored handle has unexpected shape", Done: true})
		return
	}

	switch req.Method {
	case MethodManage:
		sess.server.objects.AddRef(id)
		sess.send(Reply{RequestID: req.RequestID, Done: true})
	case MethodPrune:
		sess.server.objects.Release(id)
		sess.send(Reply{RequestID: req.RequestID, Done: true})
	case MethodMap, MethodFlatMap, MethodSketch, MethodZip:
		sess.startStreaming(req, id, ds)
	default:
		sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: "webrpc: unknown method " + req.Method, Done: true})
	}
}

// resolveTarget returns req.ObjectID parsed, or the session's associated
// handle if req.ObjectID is empty (spec.md §4.6: "each session carries an
// optional associated dataset handle for subsequent operations").
func (sess *session) resolveTarget(req Request) (dataset.ObjectID, bool) {
	if req.ObjectID == "" {
		return sess.server.objects.SessionObjectID(sess.id)
	}
	id, err := parseObjectID(req.ObjectID)
	if err != nil {
		return dataset.ObjectID{}, false
	}
	return id, true
}

func (sess *session) startStreaming(req Request, id dataset.ObjectID, ds dataset.DataSet[[]byte]) {
	var args Arguments
	if req.Arguments != nil {
		args = *req.Arguments
	}

	ctx, cancel := context.WithCancel(context.Background())

	switch req.Method {
	case MethodMap:
		m, err := opregistry.MapByName[[]byte, []byte](sess.server.registry, args.OpName, args.OpParams)
		if err != nil {
			cancel()
			sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: err.Error(), Done: true})
			return
		}
		results := dataset.Map[[]byte, []byte](sess.server.env, ds, m)
		sess.subscribeDataSet(ctx, cancel, req, id, results)
	case MethodFlatMap:
		fm, err := opregistry.FlatMapByName[[]byte, []byte](sess.server.registry, args.OpName, args.OpParams)
		if err != nil {
			cancel()
			sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: err.Error(), Done: true})
			return
		}
		results := dataset.FlatMap[[]byte, []byte](sess.server.env, ds, fm)
		sess.subscribeDataSet(ctx, cancel, req, id, results)
	case MethodSketch:
		sk, err := opregistry.SketchByName[[]byte, []byte](sess.server.registry, args.OpName, args.OpParams)
		if err != nil {
			cancel()
			sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: err.Error(), Done: true})
			return
		}
		results := dataset.Sketch[[]byte, []byte](sess.server.env, ds, sk)
		sess.subscribePayload(ctx, cancel, req, results)
	case MethodZip:
		peerID, err := parseObjectID(args.PeerObjectID)
		if err != nil {
			cancel()
			sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: err.Error(), Done: true})
			return
		}
		peerAny, ok := sess.server.objects.Lookup(peerID)
		if !ok {
			cancel()
			sess.send(Reply{RequestID: req.RequestID, IsError: true, Error: dataset.ErrObjectNotFound.Error(), Done: true})
			return
		}
		peer := peerAny.(dataset.DataSet[[]byte])
		pairs := dataset.Zip[[]byte, []byte](sess.server.env, ds, peer)
		sess.subscribePairDataSet(ctx, cancel, req, id, pairs)
	}
}
