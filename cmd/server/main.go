// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

/*
Starts a dataset server: a gRPC endpoint for RemoteDataSet peers (spec.md
§4.5/§6) and a "/rpc" WebSocket endpoint for external clients (spec.md
§4.6), sharing one object registry and named-operation registry between
them.

For usage details, run server with the command line flag -h or --help.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"google.golang.org/grpc"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/dlog"
	"github.com/coatyio/dda-examples/dataset/objectmanager"
	"github.com/coatyio/dda-examples/dataset/opregistry"
	"github.com/coatyio/dda-examples/dataset/rpcserver"
	"github.com/coatyio/dda-examples/dataset/sketches"
	"github.com/coatyio/dda-examples/dataset/webrpc"
	"github.com/coatyio/dda-examples/dataset/wire"
)

func main() {
	var grpcAddress string
	var webAddress string
	var help bool
	var log bool

	flag.Usage = usage
	flag.StringVar(&grpcAddress, "g", ":8901", "address (host:port) for the peer-facing gRPC API")
	flag.StringVar(&webAddress, "w", ":8902", "address (host:port) for the client-facing WebSocket API")
	flag.BoolVar(&help, "h", false, "Show usage information")
	flag.BoolVar(&log, "l", false, "Show logging output (for debugging)")
	flag.Parse()

	if help {
		usage()
		os.Exit(0)
	}

	if log {
		dlog.Enable()
	}

	objects := objectmanager.New()
	registry := opregistry.New()
	registerSketches(registry)
	seedDemoHandles(objects)

	env := dataset.DefaultEnv()
	rpcSrv := rpcserver.New(env, objects, registry)
	webSrv := webrpc.New(env, objects, registry)

	lis, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		fmt.Printf("failed to listen on %s: %v\n", grpcAddress, err)
		os.Exit(1)
	}
	gs := grpc.NewServer()
	gs.RegisterService(&rpcserver.ServiceDesc, rpcSrv)

	httpSrv := &http.Server{Addr: webAddress, Handler: webSrv.Handler()}

	// Handle SIGTERM.
	signaled := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer close(signaled)
		fmt.Printf("Terminating server on signal %v...\n", <-sigCh)
	}()

	completed := make(chan struct{})
	go func() {
		fmt.Printf("Serving gRPC on %s...\n", grpcAddress)
		if err := gs.Serve(lis); err != nil {
			fmt.Printf("gRPC server stopped: %v\n", err)
		}
		close(completed)
	}()

	webCompleted := make(chan struct{})
	go func() {
		fmt.Printf("Serving WebSocket RPC on %s...\n", webAddress)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Printf("WebSocket server stopped: %v\n", err)
		}
		close(webCompleted)
	}()

	for {
		select {
		case <-signaled:
			signaled = nil // skip this case after first termination signal
			gs.GracefulStop()
			_ = httpSrv.Shutdown(context.Background())
		case <-completed:
			completed = nil
		case <-webCompleted:
			webCompleted = nil
		}
		if completed == nil && webCompleted == nil {
			return
		}
	}
}

// registerSketches wires the demonstration sketches of package sketches
// into registry under the names their OpName() reports, so a client can
// address them without the server knowing their result type at compile
// time (see opregistry.AsByteSketch).
func registerSketches(registry *opregistry.Registry) {
	registry.Register(sketches.Sum{}.OpName(), func([]byte) (any, error) {
		return opregistry.AsByteSketch[int, int](sketches.Sum{}), nil
	})
	registry.Register(sketches.WordFrequencySketch{}.OpName(), func([]byte) (any, error) {
		return opregistry.AsByteSketch[string, sketches.WordFrequency](sketches.WordFrequencySketch{}), nil
	})
}

// seedDemoHandles inserts two root Parallel datasets hosted as DataSet[[]byte]
// (see rpcserver's byte-oriented hosting), one leaf per gob-encoded domain
// value, so that cmd/client -i has something to address without a separate
// creation path: spec.md §6 has no "insert" RPC, so a fresh server always
// needs at least one pre-existing handle to reach any of the others through
// map/flatMap/zip.
func seedDemoHandles(objects *objectmanager.Manager) {
	numbers := dataset.NewParallel(encodeLeaves([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})...)
	numbersID := objects.Insert(numbers)
	fmt.Printf("Seeded demo numbers dataset (try -o sum): %s\n", numbersID)

	paragraphs := []string{
		"The quick brown fox jumps over the lazy dog.",
		"A dataset can be local, parallel, or remote, and every operation works the same way across all three.",
		"Partial results stream in as work completes, long before the whole computation is done.",
	}
	corpus := dataset.NewParallel(encodeLeaves(paragraphs)...)
	corpusID := objects.Insert(corpus)
	fmt.Printf("Seeded demo corpus dataset (try -o wordfreq): %s\n", corpusID)
}

// encodeLeaves gob-encodes each value as a Local([]byte) leaf, the shape
// rpcserver's byte-oriented handles expect (see opregistry.AsByteSketch).
func encodeLeaves[T any](values []T) []dataset.DataSet[[]byte] {
	leaves := make([]dataset.DataSet[[]byte], 0, len(values))
	for _, v := range values {
		enc, err := wire.EncodeOp(v)
		if err != nil {
			panic(fmt.Sprintf("seeding demo dataset: %v", err))
		}
		leaves = append(leaves, dataset.Local(enc))
	}
	return leaves
}

func usage() {
	fmt.Printf(`usage: server [-h|--help] [-l] [-g grpcAddress] [-w webAddress]

Starts a dataset server hosting the peer-facing gRPC API and the
client-facing WebSocket API over one shared object registry.

Flags:
`)
	flag.PrintDefaults()
}
