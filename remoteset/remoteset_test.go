// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package remoteset_test

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/contract"
	"github.com/coatyio/dda-examples/dataset/objectmanager"
	"github.com/coatyio/dda-examples/dataset/opregistry"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/remoteset"
	"github.com/coatyio/dda-examples/dataset/rpcserver"
	"github.com/coatyio/dda-examples/dataset/stream"
	"github.com/coatyio/dda-examples/dataset/wire"
)

type timesTen struct{}

func (timesTen) Apply(in int) (int, error) { return in * 10, nil }
func (timesTen) OpName() string            { return "timesTen" }
func (timesTen) OpParams() ([]byte, error) { return nil, nil }

var _ contract.Map[int, int] = timesTen{}

type identitySum struct{}

func (identitySum) Zero() int        { return 0 }
func (identitySum) Create(t int) int { return t }
func (identitySum) Add(a, b int) int { return a + b }
func (identitySum) OpName() string   { return "identitySum" }
func (identitySum) OpParams() ([]byte, error) { return nil, nil }

var _ contract.Sketch[int, int] = identitySum{}

func startServer(t *testing.T) (*bufconn.Listener, *objectmanager.Manager) {
	t.Helper()

	objects := objectmanager.New()
	registry := opregistry.New()
	registry.Register("timesTen", func([]byte) (any, error) {
		return opregistry.AsByteMap[int, int](timesTen{}), nil
	})
	registry.Register("identitySum", func([]byte) (any, error) {
		return opregistry.AsByteSketch[int, int](identitySum{}), nil
	})

	srv := rpcserver.New(dataset.DefaultEnv(), objects, registry)
	gs := grpc.NewServer()
	gs.RegisterService(&rpcserver.ServiceDesc, srv)

	lis := bufconn.Listen(1024 * 1024)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	return lis, objects
}

func dial(t *testing.T, lis *bufconn.Listener) *remoteset.Conn {
	t.Helper()
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cc.Close() })

	return remoteset.Wrap(cc)
}

// collect drains a stream to its terminal payload (the last non-nil Payload
// seen) or error. Unlike dataset_test.go's collect helper, which returns
// every item, it keeps only that last payload.
func collect[X any](t *testing.T, s stream.Stream[partial.Result[X]]) (X, error) {
	t.Helper()
	var last X
	done := make(chan error, 1)
	sub := s.Subscribe(context.Background(), stream.Observer[partial.Result[X]]{
		Next: func(pr partial.Result[X]) {
			if pr.Payload != nil {
				last = *pr.Payload
			}
		},
		Error:    func(err error) { done <- err },
		Complete: func() { done <- nil },
	})
	defer sub.Dispose()
	err := <-done
	return last, err
}

func TestRemoteMapProducesNewRemoteHandle(t *testing.T) {
	lis, objects := startServer(t)
	conn := dial(t, lis)

	encoded, err := wire.EncodeOp(21)
	require.NoError(t, err)
	id := objects.Insert(dataset.Local(encoded))

	root := remoteset.Open[int](conn, id)
	results := dataset.Map[int, int](dataset.DefaultEnv(), root, timesTen{})

	final, err := collect(t, results)
	require.NoError(t, err)

	_, _, ok := final.RemoteRef()
	assert.True(t, ok, "map over a Remote dataset should yield a new Remote handle")
}

func TestRemoteSketchRoundTrips(t *testing.T) {
	lis, objects := startServer(t)
	conn := dial(t, lis)

	encoded, err := wire.EncodeOp(7)
	require.NoError(t, err)
	id := objects.Insert(dataset.Local(encoded))

	root := remoteset.Open[int](conn, id)
	results := dataset.Sketch[int, int](dataset.DefaultEnv(), root, identitySum{})

	final, err := collect(t, results)
	require.NoError(t, err)
	assert.Equal(t, 7, final)
}
