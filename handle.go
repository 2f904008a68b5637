// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package dataset implements the polymorphic dataset handle of spec §3/§4:
// a closed tagged variant over Local, Parallel, and Remote datasets, and the
// four operations (map, flatMap, zip, sketch) dispatched across that variant.
//
// Per spec §9, dispatch is by an explicit kind field and a switch, not by
// subclassing, so the recursion between Parallel and its children stays
// visible to the reader.
package dataset

import "fmt"

// Kind identifies which of the three variants a DataSet holds.
type Kind int

const (
	KindLocal Kind = iota
	KindParallel
	KindRemote
)

func (k Kind) String() string {
	switch k {
	case KindLocal:
		return "Local"
	case KindParallel:
		return "Parallel"
	case KindRemote:
		return "Remote"
	default:
		return "Unknown"
	}
}

// ObjectID is the 128-bit identifier (high/low pair) the wire protocol uses
// to address a dataset handle hosted on a server, per spec §6.
type ObjectID struct {
	High int64
	Low  int64
}

func (id ObjectID) String() string {
	return fmt.Sprintf("%016x%016x", uint64(id.High), uint64(id.Low))
}

// DataSet is the polymorphic dataset handle of spec §3: exactly one of
// Local(value), Parallel(children), or Remote(conn, objectID) at a time.
// The zero value is not a valid DataSet; use Local, NewParallel, or
// NewRemote.
type DataSet[T any] struct {
	kind     Kind
	value    T
	children []DataSet[T]
	conn     Conn
	objectID ObjectID
}

// Local wraps a single value of T as a leaf dataset.
func Local[T any](value T) DataSet[T] {
	return DataSet[T]{kind: KindLocal, value: value}
}

// NewParallel builds an interior node holding the given ordered children.
// Per spec §4.3/§9 (Open Question (a)), a Parallel dataset with zero
// children is legal and behaves neutrally: sketch yields the sketch's zero
// immediately, map/flatMap yield an empty Parallel immediately.
func NewParallel[T any](children ...DataSet[T]) DataSet[T] {
	return DataSet[T]{kind: KindParallel, children: children}
}

// NewRemote wraps a proxy for a dataset living on another process, reachable
// through conn at the given object id.
func NewRemote[T any](conn Conn, id ObjectID) DataSet[T] {
	return DataSet[T]{kind: KindRemote, conn: conn, objectID: id}
}

// Kind reports which variant this handle holds.
func (d DataSet[T]) Kind() Kind { return d.kind }

// LocalValue returns the wrapped value and true if this is a Local handle.
func (d DataSet[T]) LocalValue() (T, bool) {
	if d.kind != KindLocal {
		var zero T
		return zero, false
	}
	return d.value, true
}

// Children returns the ordered child handles and true if this is a Parallel
// handle.
func (d DataSet[T]) Children() ([]DataSet[T], bool) {
	if d.kind != KindParallel {
		return nil, false
	}
	return d.children, true
}

// RemoteRef returns the connection and object id and true if this is a
// Remote handle.
func (d DataSet[T]) RemoteRef() (Conn, ObjectID, bool) {
	if d.kind != KindRemote {
		return nil, ObjectID{}, false
	}
	return d.conn, d.objectID, true
}
