// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package rpcserver

import (
	"context"

	"google.golang.org/grpc"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/wire"
)

// ServiceDesc is the hand-built grpc.ServiceDesc for the seven RPC methods
// of spec.md §6 — there is no protoc step in this build, so streams are
// wired directly against grpc.ServerStream rather than generated stubs, and
// wire.CodecName (a gob codec, see wire/codec.go) stands in for protobuf.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "dataset.Dataset",
	HandlerType: (*any)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Unsubscribe", Handler: unsubscribeHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Map", Handler: streamHandler(dataset.MethodMap), ServerStreams: true},
		{StreamName: "FlatMap", Handler: streamHandler(dataset.MethodFlatMap), ServerStreams: true},
		{StreamName: "Zip", Handler: streamHandler(dataset.MethodZip), ServerStreams: true},
		{StreamName: "Sketch", Handler: sketchHandler, ServerStreams: true},
		{StreamName: "Manage", Handler: manageHandler, ServerStreams: true},
		{StreamName: "Prune", Handler: pruneHandler, ServerStreams: true},
	},
	Metadata: "dataset.proto",
}

func recvCommand(ss grpc.ServerStream) (wire.Command, error) {
	var cmd wire.Command
	err := ss.RecvMsg(&cmd)
	return cmd, err
}

func sender(ss grpc.ServerStream) func(*wire.PartialResponse) error {
	return func(resp *wire.PartialResponse) error { return ss.SendMsg(resp) }
}

func streamHandler(method dataset.Method) grpc.StreamHandler {
	return func(srv any, ss grpc.ServerStream) error {
		s := srv.(*Server)
		cmd, err := recvCommand(ss)
		if err != nil {
			return err
		}
		return s.serveMapLike(ss.Context(), sender(ss), method, cmd)
	}
}

func sketchHandler(srv any, ss grpc.ServerStream) error {
	s := srv.(*Server)
	cmd, err := recvCommand(ss)
	if err != nil {
		return err
	}
	return s.serveSketch(ss.Context(), sender(ss), cmd)
}

func manageHandler(srv any, ss grpc.ServerStream) error {
	s := srv.(*Server)
	cmd, err := recvCommand(ss)
	if err != nil {
		return err
	}
	return s.serveManage(ss.Context(), sender(ss), cmd)
}

func pruneHandler(srv any, ss grpc.ServerStream) error {
	s := srv.(*Server)
	cmd, err := recvCommand(ss)
	if err != nil {
		return err
	}
	return s.servePrune(ss.Context(), sender(ss), cmd)
}

func unsubscribeHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	s := srv.(*Server)
	var cmd wire.Command
	if err := dec(&cmd); err != nil {
		return nil, err
	}
	return s.Unsubscribe(ctx, &cmd)
}
