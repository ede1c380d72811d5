// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

// Environment encompasses everything a peer observes about the world it runs
// in.  The simulation driver implements it and hands itself to every peer it
// creates; peers hold it as a non-owning back-reference and read the shared
// clock through it.
type Environment interface {
	// Tick returns the current simulation tick.
	Tick() uint64

	// SetPeerOnline records the peer as a member of the online set.
	SetPeerOnline(*Peer)

	// SetPeerOffline records the peer as a member of the offline set.
	SetPeerOffline(*Peer)

	// OnlinePeers returns the peers currently online, in the order they
	// came online.  The crawler uses this to refresh its good-node view.
	OnlinePeers() []*Peer

	// DNSSeeder returns the bootstrap oracle, or nil if none has been
	// wired up yet.
	DNSSeeder() Bootstrapper
}

// Bootstrapper is the bootstrap surface a freshly started peer relies on: a
// crawler it can probe with a one-shot connection, and a DNS query returning
// a sampled cache of recently seen reachable peers.
type Bootstrapper interface {
	// Crawler returns the seeder's crawler peer.
	Crawler() *Peer

	// QueryDNS returns the seeder's current cache, counting the call as a
	// cache hit.
	QueryDNS() []*Peer
}
