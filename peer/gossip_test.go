// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHandshakeSchedulesSelfAdvertisement(t *testing.T) {
	e := &testEnv{}
	a := newServer(e, 1)
	b := newServer(e, 2)

	require.True(t, a.Connect(b, false))

	// The version reply caused a to queue an advertisement of its own
	// identity for b, deferred until the trickle step.
	queued := a.pendingAddr[b.id]
	require.Len(t, queued, 1)
	require.Equal(t, a, queued[0])

	// The getaddr reflection suppression was consumed by b's synchronous
	// addr reply, which is always below the per-message cap.
	require.False(t, a.relayedFrom.Contains(b.id))
}

func TestGetAddrSampleSize(t *testing.T) {
	e := &testEnv{}
	b := newServer(e, 1)
	for i := 0; i < 10; i++ {
		b.addKnown(newServer(e, uint32(100+i)))
	}

	// 23% of ten entries truncates to two.
	a := newServer(e, 2)
	b.OnGetAddr(a)
	require.Equal(t, 2, a.KnownCount())
}

func TestGetAddrSampleHardCap(t *testing.T) {
	e := &testEnv{}
	b := newServer(e, 1)
	for i := 0; i < 5000; i++ {
		b.addKnown(newServer(e, uint32(100+i)))
	}

	// 23% of five thousand exceeds the per-message cap.
	a := newServer(e, 2)
	b.OnGetAddr(a)
	require.Equal(t, maxAddrPerMsg, a.KnownCount())
}

func TestAddrMergesReachableOnly(t *testing.T) {
	e := &testEnv{}
	p := newServer(e, 1)
	origin := newServer(e, 2)
	server := newServer(e, 3)
	client := newClient(e, 4)
	stopped := New(e, 5, true)

	p.OnAddr(origin, []*Peer{server, client, stopped, p})
	require.True(t, p.Knows(server))
	require.False(t, p.Knows(client))
	require.False(t, p.Knows(stopped))
	require.False(t, p.Knows(p))
}

func TestSmallBatchRelayIsDeferred(t *testing.T) {
	e := &testEnv{}
	p := newServer(e, 1)
	t1 := newServer(e, 2)
	t2 := newServer(e, 3)
	require.True(t, p.Connect(t1, false))
	require.True(t, p.Connect(t2, false))

	// The addr reply of the first handshake already picked t1 alone as the
	// epoch's target; clear it so the announcement resamples from the
	// current outbound set.
	p.trickleTargets = nil

	origin := newServer(e, 4)
	x := newServer(e, 5)
	p.OnAddr(origin, []*Peer{x})

	// With exactly two outbound neighbors both become trickle targets,
	// and the announcement is queued for each rather than sent.
	require.Len(t, p.trickleTargets, 2)
	require.Contains(t, p.pendingAddr[t1.id], x)
	require.Contains(t, p.pendingAddr[t2.id], x)
	require.False(t, t1.Knows(x))
	require.False(t, t2.Knows(x))
}

func TestBulkBatchIsNotRelayed(t *testing.T) {
	e := &testEnv{}
	p := newServer(e, 1)
	t1 := newServer(e, 2)
	require.True(t, p.Connect(t1, false))

	origin := newServer(e, 3)
	batch := make([]*Peer, 0, smallBatchThreshold+1)
	for i := 0; i <= smallBatchThreshold; i++ {
		batch = append(batch, newServer(e, uint32(100+i)))
	}
	p.OnAddr(origin, batch)

	// Everything was absorbed but nothing beyond the handshake
	// self-advertisement is pending for the neighbor.
	require.True(t, p.Knows(batch[0]))
	for _, queued := range p.pendingAddr {
		for _, q := range queued {
			require.NotContains(t, batch, q)
		}
	}
}

func TestRelaySuppressionRound(t *testing.T) {
	e := &testEnv{}
	p := newServer(e, 1)
	t1 := newServer(e, 2)
	require.True(t, p.Connect(t1, false))

	origin := newServer(e, 3)
	p.relayedFrom.Add(origin.id)

	// A suppressed origin's small batch is absorbed without relay, and
	// the suppression entry is consumed.
	x := newServer(e, 4)
	p.OnAddr(origin, []*Peer{x})
	require.NotContains(t, p.pendingAddr[t1.id], x)
	require.False(t, p.relayedFrom.Contains(origin.id))

	// The next small batch from the same origin relays again.
	y := newServer(e, 5)
	p.OnAddr(origin, []*Peer{y})
	require.Contains(t, p.pendingAddr[t1.id], y)
}

func TestPendingAddrDeduplicatesPerTarget(t *testing.T) {
	e := &testEnv{}
	p := newServer(e, 1)
	t1 := newServer(e, 2)
	require.True(t, p.Connect(t1, false))

	origin := newServer(e, 3)
	x := newServer(e, 4)
	p.OnAddr(origin, []*Peer{x})
	other := newServer(e, 5)
	p.OnAddr(other, []*Peer{x})

	count := 0
	for _, q := range p.pendingAddr[t1.id] {
		if q == x {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestTrickleDeliversOneBatch(t *testing.T) {
	e := &testEnv{tick: 1}
	p := newServer(e, 1)
	t1 := newServer(e, 2)
	require.True(t, p.Connect(t1, false))

	x := newServer(e, 3)
	p.pendingAddr[t1.id] = []*Peer{x}

	p.Maintenance()
	require.True(t, t1.Knows(x))
	_, pending := p.pendingAddr[t1.id]
	require.False(t, pending)
}

func TestTrickleRotationSelection(t *testing.T) {
	e := &testEnv{}
	origin := newServer(e, 99)

	// No outbound connections: rotation yields an empty target set.
	p0 := newServer(e, 1)
	p0.OnAddr(origin, nil)
	require.Empty(t, p0.trickleTargets)

	// One connection: the only neighbor is the target.
	p1 := newServer(e, 2)
	n1 := newServer(e, 20)
	require.True(t, p1.Connect(n1, false))
	p1.OnAddr(origin, nil)
	require.Equal(t, []*Peer{n1}, p1.trickleTargets)

	// Five connections: two distinct uniform picks.
	p5 := newServer(e, 3)
	for i := 0; i < 5; i++ {
		require.True(t, p5.Connect(newServer(e, uint32(30+i)), false))
	}
	p5.trickleTargets = nil
	p5.rotateTrickleTargets()
	require.Len(t, p5.trickleTargets, 2)
	require.NotEqual(t, p5.trickleTargets[0], p5.trickleTargets[1])
	require.True(t, p5.HasOutbound(p5.trickleTargets[0]))
	require.True(t, p5.HasOutbound(p5.trickleTargets[1]))
}

func TestTrickleRotationHonorsEpoch(t *testing.T) {
	e := &testEnv{tick: 100}
	p := newServer(e, 1)
	n1 := newServer(e, 2)
	n2 := newServer(e, 3)
	require.True(t, p.Connect(n1, false))

	p.trickleTargets = []*Peer{n1}
	p.trickleEpochStart = 100

	// Within the epoch the selection is stable even as connections come
	// and go.
	require.True(t, p.Connect(n2, false))
	e.tick = 100 + TrickleEpochTicks - 1
	p.rotateTrickleTargets()
	require.Equal(t, []*Peer{n1}, p.trickleTargets)

	// Once the epoch expires the targets are resampled from the current
	// outbound set.
	e.tick = 100 + TrickleEpochTicks
	p.rotateTrickleTargets()
	require.Len(t, p.trickleTargets, 2)
	require.Equal(t, uint64(100+TrickleEpochTicks), p.trickleEpochStart)
}

func TestVersionFromInboundPeerIsLearned(t *testing.T) {
	e := &testEnv{}
	a := newServer(e, 1)
	b := newServer(e, 2)

	require.True(t, a.Connect(b, false))
	require.True(t, b.Knows(a))
	require.False(t, a.Knows(b))

	// A repeated version from the inbound side is answered and stays
	// harmless.
	b.OnVersion(a)
	require.True(t, b.Knows(a))
}
