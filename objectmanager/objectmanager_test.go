// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

package objectmanager_test

import (
	"testing"

	"github.com/coatyio/dda-examples/dataset"
	"github.com/coatyio/dda-examples/dataset/objectmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopSub struct{ disposed bool }

func (s *noopSub) Dispose() { s.disposed = true }

func TestInsertLookupRemove(t *testing.T) {
	m := objectmanager.New()
	id := m.Insert(42)

	v, ok := m.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, 42, v)

	m.Remove(id)
	_, ok = m.Lookup(id)
	assert.False(t, ok)
}

func TestRefCounting(t *testing.T) {
	m := objectmanager.New()
	id := m.Insert("x")
	m.AddRef(id)

	removed := m.Release(id)
	assert.False(t, removed, "one ref remains")
	_, ok := m.Lookup(id)
	assert.True(t, ok)

	removed = m.Release(id)
	assert.True(t, removed)
	_, ok = m.Lookup(id)
	assert.False(t, ok)
}

func TestSessionBusyInvariant(t *testing.T) {
	m := objectmanager.New()
	sub := &noopSub{}
	require.NoError(t, m.AddSession("s1", nil, sub))

	err := m.AddSession("s1", nil, &noopSub{})
	assert.ErrorIs(t, err, objectmanager.ErrSessionBusy)
}

func TestRemoveSessionDisposesSubscription(t *testing.T) {
	m := objectmanager.New()
	sub := &noopSub{}
	require.NoError(t, m.AddSession("s1", nil, sub))

	m.RemoveSession("s1")
	assert.True(t, sub.disposed)

	_, ok := m.GetSubscription("s1")
	assert.False(t, ok)
}

func TestClearSubscriptionAllowsNextRequest(t *testing.T) {
	m := objectmanager.New()
	require.NoError(t, m.AddSession("s1", nil, &noopSub{}))
	m.ClearSubscription("s1")

	require.NoError(t, m.AddSession("s1", nil, &noopSub{}))
}

func TestSetSessionObjectIDUpdatesWithoutTouchingSubscription(t *testing.T) {
	m := objectmanager.New()
	sub := &noopSub{}
	first := dataset.ObjectID{High: 1, Low: 1}
	require.NoError(t, m.AddSession("s1", &first, sub))

	_, ok := m.SessionObjectID("s1")
	require.True(t, ok)

	second := dataset.ObjectID{High: 2, Low: 2}
	m.SetSessionObjectID("s1", second)

	got, ok := m.SessionObjectID("s1")
	require.True(t, ok)
	assert.Equal(t, second, got)

	gotSub, ok := m.GetSubscription("s1")
	require.True(t, ok)
	assert.Same(t, sub, gotSub)
}

func TestSessionObjectIDUnknownSession(t *testing.T) {
	m := objectmanager.New()
	_, ok := m.SessionObjectID("missing")
	assert.False(t, ok)
}
