// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryAllocateAndLookup(t *testing.T) {
	e := &testEnv{}
	r := NewRegistry()

	const count = 1000
	for i := 0; i < count; i++ {
		p := New(e, r.Allocate(), true)
		require.NoError(t, r.Register(p))
	}
	require.Equal(t, count, r.Len())

	// Every registered peer resolves to itself; allocation never handed
	// out a duplicate.
	for _, p := range r.All() {
		require.Same(t, p, r.Lookup(p.ID()))
	}
}

func TestRegistryRejectsDuplicateID(t *testing.T) {
	e := &testEnv{}
	r := NewRegistry()

	a := New(e, 7, true)
	b := New(e, 7, false)
	require.NoError(t, r.Register(a))
	require.Error(t, r.Register(b))
	require.Same(t, a, r.Lookup(7))
	require.Equal(t, 1, r.Len())
}

func TestRegistryLookupUnknown(t *testing.T) {
	r := NewRegistry()
	require.Nil(t, r.Lookup(42))
	require.Error(t, r.Register(nil))
	require.Empty(t, r.All())
}

func TestRegistryAllPreservesOrder(t *testing.T) {
	e := &testEnv{}
	r := NewRegistry()
	a := New(e, 1, true)
	b := New(e, 2, true)
	c := New(e, 3, true)
	require.NoError(t, r.Register(a))
	require.NoError(t, r.Register(b))
	require.NoError(t, r.Register(c))
	require.Equal(t, []*Peer{a, b, c}, r.All())
}
