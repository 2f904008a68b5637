// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package wire defines the three messages of the streaming RPC protocol
// (spec.md §6) and a gob-based grpc codec for them, so the module needs no
// protoc/codegen step.
package wire

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Command is the single request message accepted by all seven RPC methods
// (spec.md §6): (HighID, LowID) identify the server-side handle, IdsIndex is
// a caller-assigned correlation id scoped to one connection (used by
// unsubscribe to address a prior call's subscription; see
// rpcserver.callKey for how the server disambiguates IdsIndex reuse across
// connections), PeerHighID/PeerLowID identify the peer operand of a zip, and
// SerializedOp carries the gob-encoded operation payload whose schema
// belongs to the contract/opregistry packages, not to this one.
type Command struct {
	IdsIndex     int32
	HighID       int64
	LowID        int64
	PeerHighID   int64
	PeerLowID    int64
	OpName       string
	SerializedOp []byte
}

// PartialResponse is one item of the streamed reply to map/flatMap/sketch/
// zip/manage/prune.
type PartialResponse struct {
	SerializedOp []byte
}

// Ack is the sole reply to unsubscribe.
type Ack struct{}

// Envelope is the gob-encoded payload carried inside PartialResponse's
// opaque SerializedOp: the spec.md §6 wire shape says only
// "PartialResponse { serializedOp: bytes }", so the progress fraction and
// result (a fresh object id, for map/flatMap/zip, or a gob-encoded payload,
// for sketch) both travel inside that one opaque field.
type Envelope struct {
	DeltaDone    float64
	HasNewObject bool
	NewHighID    int64
	NewLowID     int64
	Payload      []byte
}

// EncodeOp gob-encodes v into a fresh buffer. A fresh encoder per call
// avoids "duplicate type received" errors on the decoding side once a type
// has already been seen once (see DecodeOp and registry/wf.go's
// encodeOutput, which this follows).
func EncodeOp(v any) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return nil, fmt.Errorf("wire: encoding op: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeOp gob-decodes data into v using a fresh decoder, matching
// EncodeOp's one-shot encoder discipline.
func DecodeOp(data []byte, v any) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("wire: decoding op: %w", err)
	}
	return nil
}
