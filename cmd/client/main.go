// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

/*
Dials a dataset server's peer-facing gRPC API, addresses one of its hosted
datasets by object id, runs a named sketch against it, and prints each
partial result as it streams in until the sketch completes.

For usage details, run client with the command line flag -h or --help.
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/contract"
	"github.com/coatyio/dda-examples/dataset/dlog"
	"github.com/coatyio/dda-examples/dataset/partial"
	"github.com/coatyio/dda-examples/dataset/remoteset"
	"github.com/coatyio/dda-examples/dataset/sketches"
	"github.com/coatyio/dda-examples/dataset/stream"
)

func main() {
	var grpcAddress string
	var objectID string
	var op string
	var help bool
	var log bool

	flag.Usage = usage
	flag.StringVar(&grpcAddress, "g", "localhost:8901", "address (host:port) of the dataset server's gRPC API")
	flag.StringVar(&objectID, "i", "", "object id (32 hex digits) of the dataset to sketch")
	flag.StringVar(&op, "o", "sum", "registered sketch to run: sum or wordfreq")
	flag.BoolVar(&help, "h", false, "Show usage information")
	flag.BoolVar(&log, "l", false, "Show logging output (for debugging)")
	flag.Parse()

	if help || objectID == "" {
		usage()
		os.Exit(0)
	}

	if log {
		dlog.Enable()
	}

	id, err := parseObjectID(objectID)
	if err != nil {
		fmt.Printf("invalid -i object id: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// Handle SIGTERM.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		fmt.Printf("Terminating client on signal %v...\n", <-sigCh)
		cancel()
	}()

	conn, err := remoteset.Dial(ctx, grpcAddress, 5)
	if err != nil {
		fmt.Printf("failed to dial %s: %v\n", grpcAddress, err)
		os.Exit(1)
	}
	defer conn.Close()

	env := dataset.DefaultEnv()
	completed := make(chan struct{})

	switch op {
	case "sum":
		runSketch[int, int](ctx, env, conn, id, sketches.Sum{}, completed)
	case "wordfreq":
		runSketch[string, sketches.WordFrequency](ctx, env, conn, id, sketches.WordFrequencySketch{}, completed)
	default:
		fmt.Printf("unknown -o operation %q (want sum or wordfreq)\n", op)
		os.Exit(1)
	}

	<-completed
}

// runSketch subscribes to a remote sketch and prints each partial value as
// it arrives, the way performPartialComputation logs each partial
// computation result in the teacher's coordinator.
func runSketch[T, R any](ctx context.Context, env *dataset.Env, conn *remoteset.Conn, id dataset.ObjectID, sk contract.Sketch[T, R], completed chan struct{}) {
	root := remoteset.Open[T](conn, id)
	results := dataset.Sketch[T, R](env, root, sk)

	progress := 0.0
	sub := results.Subscribe(ctx, stream.Observer[partial.Result[R]]{
		Next: func(pr partial.Result[R]) {
			progress += pr.DeltaDone
			if pr.Payload != nil {
				fmt.Printf("%.0f%% done: %v\n", progress*100, *pr.Payload)
			}
		},
		Error: func(err error) {
			fmt.Printf("sketch failed: %v\n", err)
			close(completed)
		},
		Complete: func() {
			fmt.Println("sketch complete")
			close(completed)
		},
	})
	go func() {
		<-ctx.Done()
		sub.Dispose()
	}()
}

func parseObjectID(s string) (dataset.ObjectID, error) {
	if len(s) != 32 {
		return dataset.ObjectID{}, fmt.Errorf("expected 32 hex digits, got %d characters", len(s))
	}
	var high, low uint64
	if _, err := fmt.Sscanf(s[:16], "%016x", &high); err != nil {
		return dataset.ObjectID{}, err
	}
	if _, err := fmt.Sscanf(s[16:], "%016x", &low); err != nil {
		return dataset.ObjectID{}, err
	}
	return dataset.ObjectID{High: int64(high), Low: int64(low)}, nil
}

func usage() {
	fmt.Printf(`usage: client [-h|--help] [-l] [-g grpcAddress] -i objectId [-o operation]

Runs a registered sketch (sum or wordfreq) against a dataset hosted on a
dataset server, streaming partial results until the sketch completes.

Flags:
`)
	flag.PrintDefaults()
}
