// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"math/rand"
)

// The gossip protocol consists of three message kinds.  Sends are direct
// synchronous invocations of the receiver's handler on the sender's call
// stack; the only deferred delivery is the pendingAddr queue drained by the
// trickle step of maintenance.

// pushVersion delivers a version message to dest.
func (p *Peer) pushVersion(dest *Peer) {
	log.Tracef("%v version-> %v", p, dest)
	dest.OnVersion(p)
}

// pushGetAddr delivers a getaddr message to dest.
func (p *Peer) pushGetAddr(dest *Peer) {
	log.Tracef("%v getaddr-> %v", p, dest)
	dest.OnGetAddr(p)
}

// pushAddr delivers an addr message carrying addrs to dest.
func (p *Peer) pushAddr(dest *Peer, addrs []*Peer) {
	log.Tracef("%v addr(%d)-> %v", p, len(addrs), dest)
	dest.OnAddr(p, addrs)
}

// OnVersion handles a received version message.  A version from a peer
// occupying one of our inbound slots is the opening of their handshake: we
// learn them and reply with a symmetric version.  Any other version is the
// reply to our own outbound handshake: we schedule an advertisement of our
// own identity to the sender, record the sender in the relay-suppression set,
// and ask it for addresses.  Recording before the getaddr push matters: the
// addr reply arrives synchronously and must see the suppression entry.
func (p *Peer) OnVersion(sender *Peer) {
	if sender == nil || sender == p {
		return
	}
	if p.HasInbound(sender) {
		p.pushVersion(sender)
		p.addKnown(sender)
		return
	}
	p.scheduleAddr(sender, []*Peer{p})
	p.relayedFrom.Add(sender.id)
	p.pushGetAddr(sender)
}

// OnGetAddr handles a received getaddr message by replying with an addr
// message sampled without replacement from the known table.  The sample size
// is 23% of the table, bounded by the legacy 2500 ceiling and the hard 1000
// per-message cap; the hard cap always supersedes the ceiling.
func (p *Peer) OnGetAddr(sender *Peer) {
	if sender == nil || sender == p {
		return
	}
	n := len(p.knownOrder) * 23 / 100
	if n > legacyAddrCeiling {
		n = legacyAddrCeiling
	}
	if n > maxAddrPerMsg {
		n = maxAddrPerMsg
	}
	ids := append([]uint32(nil), p.knownOrder...)
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	addrs := make([]*Peer, 0, n)
	for _, id := range ids[:n] {
		addrs = append(addrs, p.known[id])
	}
	p.pushAddr(sender, addrs)
}

// OnAddr handles a received addr message carrying addrs from origin.  The
// reachable entries are merged into the known table, the trickle targets are
// rotated if their epoch expired, and a small batch from an unsuppressed
// origin is queued for deferred relay to each trickle target.  Deferred
// delivery is what keeps a single announcement from fanning out into a storm
// within one tick.  Finally, any batch below the per-message cap clears the
// origin's suppression entry; bulk replies sized exactly at the cap leave it
// in place.
func (p *Peer) OnAddr(origin *Peer, addrs []*Peer) {
	if origin == nil || origin == p {
		return
	}
	for _, a := range addrs {
		p.addKnown(a)
	}

	p.rotateTrickleTargets()

	if len(addrs) <= smallBatchThreshold && !p.relayedFrom.Contains(origin.id) {
		for _, t := range p.trickleTargets {
			p.scheduleAddr(t, addrs)
		}
	}

	if len(addrs) < maxAddrPerMsg {
		p.relayedFrom.Remove(origin.id)
	}
}

// scheduleAddr queues addrs for deferred delivery to target, deduplicating
// against everything already pending for that target.
func (p *Peer) scheduleAddr(target *Peer, addrs []*Peer) {
	if target == nil || len(addrs) == 0 {
		return
	}
	queued := p.pendingAddr[target.id]
	seen := make(map[uint32]struct{}, len(queued))
	for _, q := range queued {
		seen[q.id] = struct{}{}
	}
	for _, a := range addrs {
		if a == nil {
			continue
		}
		if _, ok := seen[a.id]; ok {
			continue
		}
		seen[a.id] = struct{}{}
		queued = append(queued, a)
	}
	if len(queued) > 0 {
		p.pendingAddr[target.id] = queued
	}
}

// rotateTrickleTargets resamples the trickle targets when the current epoch
// has expired or no targets are held.  The selection follows the outbound
// count: none, the only neighbor, both neighbors, or two distinct uniform
// picks.  An empty outbound list legally yields an empty target set; relaying
// is then a no-op until a connection forms.
func (p *Peer) rotateTrickleTargets() {
	now := p.env.Tick()
	if len(p.trickleTargets) > 0 &&
		now < p.trickleEpochStart+TrickleEpochTicks {
		return
	}
	p.trickleEpochStart = now
	p.trickleTargets = p.trickleTargets[:0]
	switch n := len(p.outbound); n {
	case 0:
	case 1:
		p.trickleTargets = append(p.trickleTargets, p.outbound[0])
	case 2:
		p.trickleTargets = append(p.trickleTargets,
			p.outbound[0], p.outbound[1])
	default:
		i := rand.Intn(n)
		j := rand.Intn(n - 1)
		if j >= i {
			j++
		}
		p.trickleTargets = append(p.trickleTargets,
			p.outbound[i], p.outbound[j])
	}
}
