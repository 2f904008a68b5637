// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package objectmanager is the server-side registry of dataset handles and
// client sessions (spec.md §4.7): a single mutex-guarded table, following
// the shape of components/tracker.go's set-of-ids pattern, generalized to
// hold refcounted handles and 1:1 session↔subscription bindings.
package objectmanager

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/stream"
)

// ErrSessionBusy is returned by AddSession for a session that already has an
// active subscription. It is a separate sentinel from dataset.ErrSessionBusy;
// errors.Is does not match one against the other.
var ErrSessionBusy = errors.New("objectmanager: session already has an active subscription")

// entry is a type-erased, refcounted dataset handle. The concrete
// DataSet[T] is stored as any; callers that inserted it know T and type
// assert it back out.
type entry struct {
	handle any
	refs   int
}

// session tracks the single in-flight subscription and optional dataset
// handle associated with one client-facing RPC session (spec.md §4.6/§4.7).
type session struct {
	objectID     *dataset.ObjectID
	subscription stream.Subscription
}

// Manager is the object and session registry. All mutations are serialized
// behind a single mutex, per spec.md §4.7 ("registry ops are infrequent
// relative to streaming throughput").
type Manager struct {
	mu       sync.Mutex
	objects  map[dataset.ObjectID]*entry
	sessions map[string]*session
}

// New returns an empty Manager.
func New() *Manager {
	return &Manager{
		objects:  make(map[dataset.ObjectID]*entry),
		sessions: make(map[string]*session),
	}
}

// NewObjectID mints a fresh 128-bit id, not reused within the process
// lifetime (spec.md §6), by splitting a UUIDv4 into its high/low halves.
func NewObjectID() dataset.ObjectID {
	u := uuid.New()
	high := int64(0)
	low := int64(0)
	for i := 0; i < 8; i++ {
		high = high<<8 | int64(u[i])
	}
	for i := 8; i < 16; i++ {
		low = low<<8 | int64(u[i])
	}
	return dataset.ObjectID{High: high, Low: low}
}

// Insert registers handle under a freshly minted id with one reference and
// returns that id.
func (m *Manager) Insert(handle any) dataset.ObjectID {
	id := NewObjectID()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[id] = &entry{handle: handle, refs: 1}
	return id
}

// Lookup returns the handle registered under id, or nil, false if absent.
func (m *Manager) Lookup(id dataset.ObjectID) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.objects[id]
	if !ok {
		return nil, false
	}
	return e.handle, true
}

// AddRef increments id's refcount. It is a no-op if id is not registered.
func (m *Manager) AddRef(id dataset.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.objects[id]; ok {
		e.refs++
	}
}

// Release decrements id's refcount (spec.md §4.4 "prune") and removes the
// entry once it reaches zero. It reports whether the entry was removed.
func (m *Manager) Release(id dataset.ObjectID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.objects[id]
	if !ok {
		return false
	}
	e.refs--
	if e.refs <= 0 {
		delete(m.objects, id)
		return true
	}
	return false
}

// Remove unconditionally deregisters id.
func (m *Manager) Remove(id dataset.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, id)
}

// AddSession binds sub as sessionID's active subscription, optionally
// alongside the dataset handle objectID it was started against. It fails
// with ErrSessionBusy if the session already has a subscription (spec.md
// §4.6's "at most one in-flight operation" invariant).
func (m *Manager) AddSession(sessionID string, objectID *dataset.ObjectID, sub stream.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok && s.subscription != nil {
		return ErrSessionBusy
	}
	m.sessions[sessionID] = &session{objectID: objectID, subscription: sub}
	return nil
}

// SessionObjectID returns the dataset handle currently associated with
// sessionID (spec.md §4.6: "each session carries an optional associated
// dataset handle for subsequent operations"), or false if the session is
// unknown or has no associated handle yet.
func (m *Manager) SessionObjectID(sessionID string) (dataset.ObjectID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.objectID == nil {
		return dataset.ObjectID{}, false
	}
	return *s.objectID, true
}

// SetSessionObjectID updates sessionID's associated dataset handle without
// touching its subscription state, for an operation that replaces the
// handle a session is pinned to (e.g. the fresh handle map/flatMap/zip
// produces) mid-stream.
func (m *Manager) SetSessionObjectID(sessionID string, objectID dataset.ObjectID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.objectID = &objectID
	}
}

// GetSubscription returns sessionID's active subscription, or nil, false.
func (m *Manager) GetSubscription(sessionID string) (stream.Subscription, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok || s.subscription == nil {
		return nil, false
	}
	return s.subscription, true
}

// RemoveSession disposes sessionID's subscription if any and deregisters
// the session entirely.
func (m *Manager) RemoveSession(sessionID string) {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	if ok && s.subscription != nil {
		s.subscription.Dispose()
	}
}

// ClearSubscription removes sessionID's active subscription (without
// dropping the session or its dataset handle), freeing it to accept the
// next request, per spec.md §4.5's "terminal states free the subscription
// entry".
func (m *Manager) ClearSubscription(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.subscription = nil
	}
}
