// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

// The crawler is the seeder's probe into the network.  It never holds a
// connection past its handshake: every connection it initiates is one-shot,
// so its slots are released on its next maintenance pass.  What it keeps
// instead is a good-node view, the reachable peers observed online at its
// most recent maintenance, which the seeder samples when rebuilding its
// cache.

// GoodNodes returns the crawler's current good-node view.  The result is
// meaningful only on crawler peers; regular peers return an empty slice.
func (p *Peer) GoodNodes() []*Peer {
	return append([]*Peer(nil), p.goodNodes...)
}

// crawlerMaintenance is the crawler's upkeep pass, driven by the scheduler
// every hundred ticks rather than every tick: refresh the good-node view,
// prune, drain queued one-shot teardowns, and probe fresh targets with
// one-shot connections.  There is no trickle step; the crawler absorbs
// gossip but never forwards it.
func (p *Peer) crawlerMaintenance() {
	p.refreshGoodNodes()
	p.pruneOutbound()
	p.drainDisconnectQueue()
	p.fillConnections(true)
}

// refreshGoodNodes rebuilds the good-node view from the peers currently
// online, keeping those that are reachable.  The crawler itself is excluded;
// it is bookkept online but is not part of the overlay it measures.
func (p *Peer) refreshGoodNodes() {
	good := p.goodNodes[:0]
	for _, q := range p.env.OnlinePeers() {
		if q == p || !q.Reachable() {
			continue
		}
		good = append(good, q)
	}
	p.goodNodes = good
	log.Debugf("Crawler %v sees %d good nodes", p, len(good))
}
