// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package opregistry resolves a named, serialized operation back into a
// concrete contract.Map/contract.FlatMap/contract.Sketch implementation on
// either side of an RPC boundary. Arbitrary Go closures cannot cross the
// wire, so a RemoteDataSet operation must be both contract.Nameable and
// registered here under that name before it can be dispatched remotely.
package opregistry

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/coatyio/dda-examples/dataset/contract"
)

// ErrNotRegistered is returned when no factory was registered under the
// requested name.
var ErrNotRegistered = errors.New("opregistry: no operation registered under this name")

// ErrWrongShape is returned when a factory was found but did not produce an
// implementation of the requested Map/FlatMap/Sketch instantiation — e.g. a
// caller asked for MapByName[int, string] against a factory built for
// Sketch[string, int].
var ErrWrongShape = errors.New("opregistry: registered operation has a different shape than requested")

// factory rebuilds a type-erased operation from its serialized params.
type factory func(params []byte) (any, error)

// Registry is a name -> factory table, safe for concurrent use. The zero
// value is not usable; use New.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]factory
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{factories: make(map[string]factory)}
}

// Register adds fn under name, overwriting any previous registration. fn
// must return a value implementing the Map/FlatMap/Sketch interface the
// caller will later request via MapByName/FlatMapByName/SketchByName.
func (r *Registry) Register(name string, fn func(params []byte) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = fn
}

// Names returns every registered name, ascending.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for k := range r.factories {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func (r *Registry) build(name string, params []byte) (any, error) {
	r.mu.RLock()
	fn, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotRegistered, name)
	}
	return fn(params)
}

// MapByName reconstructs the Map[T, S] registered under name.
func MapByName[T, S any](r *Registry, name string, params []byte) (contract.Map[T, S], error) {
	v, err := r.build(name, params)
	if err != nil {
		return nil, err
	}
	m, ok := v.(contract.Map[T, S])
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a Map of the requested types", ErrWrongShape, name)
	}
	return m, nil
}

// FlatMapByName reconstructs the FlatMap[T, S] registered under name.
func FlatMapByName[T, S any](r *Registry, name string, params []byte) (contract.FlatMap[T, S], error) {
	v, err := r.build(name, params)
	if err != nil {
		return nil, err
	}
	m, ok := v.(contract.FlatMap[T, S])
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a FlatMap of the requested types", ErrWrongShape, name)
	}
	return m, nil
}

// SketchByName reconstructs the Sketch[T, R] registered under name.
func SketchByName[T, R any](r *Registry, name string, params []byte) (contract.Sketch[T, R], error) {
	v, err := r.build(name, params)
	if err != nil {
		return nil, err
	}
	sk, ok := v.(contract.Sketch[T, R])
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a Sketch of the requested types", ErrWrongShape, name)
	}
	return sk, nil
}

// NamedMap wraps a contract.Map[T, S] with the name and serialized params it
// was registered under, so it also implements contract.Nameable and can be
// passed directly to DataSet.Map on a RemoteDataSet.
type NamedMap[T, S any] struct {
	name   string
	params []byte
	impl   contract.Map[T, S]
}

// NewNamedMap builds a NamedMap. params is whatever OpParams should report
// (nil for stateless operations); it is not interpreted here.
func NewNamedMap[T, S any](name string, impl contract.Map[T, S], params []byte) NamedMap[T, S] {
	return NamedMap[T, S]{name: name, impl: impl, params: params}
}

func (n NamedMap[T, S]) Apply(t T) (S, error)     { return n.impl.Apply(t) }
func (n NamedMap[T, S]) OpName() string           { return n.name }
func (n NamedMap[T, S]) OpParams() ([]byte, error) { return n.params, nil }

// NamedFlatMap is NamedMap's FlatMap counterpart.
type NamedFlatMap[T, S any] struct {
	name   string
	params []byte
	impl   contract.FlatMap[T, S]
}

func NewNamedFlatMap[T, S any](name string, impl contract.FlatMap[T, S], params []byte) NamedFlatMap[T, S] {
	return NamedFlatMap[T, S]{name: name, impl: impl, params: params}
}

func (n NamedFlatMap[T, S]) Apply(t T) ([]S, error) { return n.impl.Apply(t) }
func (n NamedFlatMap[T, S]) OpName() string           { return n.name }
func (n NamedFlatMap[T, S]) OpParams() ([]byte, error) { return n.params, nil }

// NamedSketch is NamedMap's Sketch counterpart.
type NamedSketch[T, R any] struct {
	name   string
	params []byte
	impl   contract.Sketch[T, R]
}

func NewNamedSketch[T, R any](name string, impl contract.Sketch[T, R], params []byte) NamedSketch[T, R] {
	return NamedSketch[T, R]{name: name, impl: impl, params: params}
}

func (n NamedSketch[T, R]) Zero() R                  { return n.impl.Zero() }
func (n NamedSketch[T, R]) Create(t T) R             { return n.impl.Create(t) }
func (n NamedSketch[T, R]) Add(a, b R) R             { return n.impl.Add(a, b) }
func (n NamedSketch[T, R]) OpName() string           { return n.name }
func (n NamedSketch[T, R]) OpParams() ([]byte, error) { return n.params, nil }

var (
	_ contract.Nameable = NamedMap[int, int]{}
	_ contract.Nameable = NamedFlatMap[int, int]{}
	_ contract.Nameable = NamedSketch[int, int]{}
)
