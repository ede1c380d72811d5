// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package peer

import (
	"encoding/binary"
	"math/rand"
	"net"

	"github.com/davecgh/go-spew/spew"
	mapset "github.com/deckarep/golang-set/v2"
)

const (
	// MaxSeedPeers is the maximum number of peers a freshly started node
	// merges into its known table from a single DNS bootstrap reply.
	MaxSeedPeers = 20

	// MaxOutbound is the maximum number of outbound connections a peer
	// initiates.
	MaxOutbound = 8

	// MaxTotal is the maximum number of connections, outbound plus
	// inbound, a peer holds at once.
	MaxTotal = 125

	// TrickleEpochTicks is the lifetime of a trickle-target selection,
	// 24 hours of modeled time at ten ticks per second.
	TrickleEpochTicks = 86400

	// smallBatchThreshold separates relayed address announcements from
	// bulk getaddr replies.  Batches at or under this size are eligible
	// for gossip relay.
	smallBatchThreshold = 10

	// maxAddrPerMsg is the hard cap on the number of addresses carried by
	// a single addr message.
	maxAddrPerMsg = 1000

	// legacyAddrCeiling is a historical soft bound on getaddr reply
	// sizes.  maxAddrPerMsg always supersedes it; it is kept so the
	// sizing rule reads the same as the protocol it models.
	legacyAddrCeiling = 2500

	// fillRounds bounds the sampling attempts of a single connection
	// refill pass.  The budget is deliberately loose; it only exists to
	// stop a pass from spinning when the known table is mostly
	// unreachable.
	fillRounds = 100
)

// Kind discriminates the two peer behaviors.  The crawler variant is the
// only specialization: it probes with one-shot connections, keeps a good-node
// view of the network, and never trickles address gossip.
type Kind uint8

const (
	// KindRegular is an ordinary network peer.
	KindRegular Kind = iota

	// KindCrawler is the seeder's crawler peer.
	KindCrawler
)

// String returns a human-readable kind name.
func (k Kind) String() string {
	if k == KindCrawler {
		return "crawler"
	}
	return "regular"
}

// release is a queued one-shot teardown.  The tick records when the
// connection was made so the drain only fires on a later tick, releasing the
// slot exactly one maintenance pass after the handshake.
type release struct {
	peer *Peer
	tick uint64
}

// Peer models one node of the overlay: its connection slots, its view of the
// network, and the gossip state attached to both.  All of its methods run on
// the single simulation goroutine; message sends are direct synchronous calls
// on the receiver.
type Peer struct {
	env     Environment
	id      uint32
	kind    Kind
	accepts bool
	online  bool

	// outbound holds locally initiated connections, inbound remotely
	// initiated ones.  Both are kept in connection order.
	outbound []*Peer
	inbound  []*Peer

	// known maps peer identifiers to peers that were reachable when
	// learned.  knownOrder mirrors the map in insertion order so random
	// sampling is reproducible under a seeded RNG.
	known      map[uint32]*Peer
	knownOrder []uint32

	// trickleTargets are the outbound neighbors address gossip is relayed
	// to during the current epoch.
	trickleTargets    []*Peer
	trickleEpochStart uint64

	// pendingAddr queues deferred addr payloads per target identifier.
	// Entries are delivered one per tick by the trickle step.
	pendingAddr map[uint32][]*Peer

	// relayedFrom suppresses one round of gossip reflection per origin.
	relayedFrom mapset.Set[uint32]

	disconnectQueue []release

	// goodNodes is the crawler's view of currently reachable peers.  It
	// is unused on regular peers.
	goodNodes []*Peer
}

// New returns an offline peer.  The accepts flag is the peer's configuration:
// server nodes accept inbound connections, client nodes do not.
func New(env Environment, id uint32, accepts bool) *Peer {
	return &Peer{
		env:         env,
		id:          id,
		kind:        KindRegular,
		accepts:     accepts,
		known:       make(map[uint32]*Peer),
		pendingAddr: make(map[uint32][]*Peer),
		relayedFrom: mapset.NewSet[uint32](),
	}
}

// NewCrawler returns the seeder's crawler peer.  The crawler is born online
// and reachable and is registered with the environment immediately; it is
// driven by the scheduler on its own cadence rather than the per-tick
// maintenance loop.
func NewCrawler(env Environment, id uint32) *Peer {
	p := New(env, id, true)
	p.kind = KindCrawler
	p.online = true
	env.SetPeerOnline(p)
	return p
}

// ID returns the peer's 32-bit identifier.
func (p *Peer) ID() uint32 {
	return p.id
}

// Addr renders the identifier as a dotted IPv4 address.
func (p *Peer) Addr() string {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], p.id)
	return net.IP(b[:]).String()
}

// String implements fmt.Stringer.
func (p *Peer) String() string {
	return p.Addr()
}

// Kind returns the peer's behavior discriminant.
func (p *Peer) Kind() Kind {
	return p.kind
}

// Online reports whether the peer is currently running.
func (p *Peer) Online() bool {
	return p.online
}

// Reachable reports whether the peer currently accepts inbound connections:
// it must be online and configured as a server.
func (p *Peer) Reachable() bool {
	return p.online && p.accepts
}

// Outbound returns a copy of the outbound slot list.
func (p *Peer) Outbound() []*Peer {
	return append([]*Peer(nil), p.outbound...)
}

// Inbound returns a copy of the inbound slot list.
func (p *Peer) Inbound() []*Peer {
	return append([]*Peer(nil), p.inbound...)
}

// HasOutbound reports whether q occupies one of p's outbound slots.
func (p *Peer) HasOutbound(q *Peer) bool {
	for _, s := range p.outbound {
		if s == q {
			return true
		}
	}
	return false
}

// HasInbound reports whether q occupies one of p's inbound slots.
func (p *Peer) HasInbound(q *Peer) bool {
	for _, s := range p.inbound {
		if s == q {
			return true
		}
	}
	return false
}

// Knows reports whether q is present in the known table.
func (p *Peer) Knows(q *Peer) bool {
	if q == nil {
		return false
	}
	_, ok := p.known[q.id]
	return ok
}

// KnownCount returns the size of the known table.
func (p *Peer) KnownCount() int {
	return len(p.knownOrder)
}

// KnownPeers returns the known table in insertion order.
func (p *Peer) KnownPeers() []*Peer {
	peers := make([]*Peer, 0, len(p.knownOrder))
	for _, id := range p.knownOrder {
		peers = append(peers, p.known[id])
	}
	return peers
}

// inSlots reports whether q occupies any slot, outbound or inbound.
func (p *Peer) inSlots(q *Peer) bool {
	return p.HasOutbound(q) || p.HasInbound(q)
}

// addKnown inserts q into the known table.  Only reachable peers other than
// ourselves are admitted; duplicates are ignored.  It returns true when the
// table grew.
func (p *Peer) addKnown(q *Peer) bool {
	if q == nil || q == p || !q.Reachable() {
		return false
	}
	if _, ok := p.known[q.id]; ok {
		return false
	}
	p.known[q.id] = q
	p.knownOrder = append(p.knownOrder, q.id)
	return true
}

// forgetKnown evicts an identifier from the known table.
func (p *Peer) forgetKnown(id uint32) {
	if _, ok := p.known[id]; !ok {
		return
	}
	delete(p.known, id)
	for i, kid := range p.knownOrder {
		if kid == id {
			p.knownOrder = append(p.knownOrder[:i], p.knownOrder[i+1:]...)
			break
		}
	}
}

// randomKnown draws one uniform random entry from the known table, or nil
// when the table is empty.
func (p *Peer) randomKnown() *Peer {
	if len(p.knownOrder) == 0 {
		return nil
	}
	return p.known[p.knownOrder[rand.Intn(len(p.knownOrder))]]
}

// removeSlot drops q from whichever slot list currently holds it.  Removal
// tolerates q being absent so disconnects stay idempotent under partial
// state.
func (p *Peer) removeSlot(q *Peer) {
	for i, s := range p.outbound {
		if s == q {
			p.outbound = append(p.outbound[:i], p.outbound[i+1:]...)
			break
		}
	}
	for i, s := range p.inbound {
		if s == q {
			p.inbound = append(p.inbound[:i], p.inbound[i+1:]...)
			break
		}
	}
}

// Connect attempts to open an outbound connection to dest.  It fails fast
// when dest is ourselves, unreachable, already occupying a slot, or when
// either the outbound or total slot budget is exhausted.  A destination
// observed unreachable is evicted from the known table on the spot.  On
// success dest is appended to outbound, a version message is pushed, and a
// one-shot connection is queued for teardown on the next tick.  The local
// slot list is mutated before the version push so the synchronous reply
// cascade observes consistent state.
func (p *Peer) Connect(dest *Peer, oneShot bool) bool {
	if dest == nil || dest == p {
		return false
	}
	if !dest.Reachable() {
		p.forgetKnown(dest.id)
		return false
	}
	if len(p.outbound) >= MaxOutbound {
		return false
	}
	if len(p.outbound)+len(p.inbound) >= MaxTotal {
		return false
	}
	if p.inSlots(dest) {
		return false
	}
	if !dest.inboundAccept(p) {
		return false
	}
	p.outbound = append(p.outbound, dest)
	if oneShot {
		p.disconnectQueue = append(p.disconnectQueue, release{
			peer: dest,
			tick: p.env.Tick(),
		})
	}
	log.Tracef("%v --> %v [%d/%d]", p, dest, len(p.outbound)+len(p.inbound),
		MaxTotal)
	p.pushVersion(dest)
	return true
}

// inboundAccept is the remote half of Connect.  It refuses when we are not
// reachable, when origin is ourselves or already occupies a slot, or when the
// total slot budget is exhausted.  Otherwise origin is appended to inbound
// and, if reachable, learned.
func (p *Peer) inboundAccept(origin *Peer) bool {
	if !p.Reachable() {
		return false
	}
	if origin == nil || origin == p {
		return false
	}
	if len(p.outbound)+len(p.inbound) >= MaxTotal {
		return false
	}
	if p.inSlots(origin) {
		return false
	}
	p.inbound = append(p.inbound, origin)
	p.addKnown(origin)
	return true
}

// Disconnect tears down the connection to dest from both sides.  It is
// idempotent and tolerates partial slot state on either end.
func (p *Peer) Disconnect(dest *Peer) {
	if dest == nil || dest == p {
		return
	}
	dest.inboundDisconnect(p)
	p.removeSlot(dest)
}

// inboundDisconnect is the remote half of Disconnect.
func (p *Peer) inboundDisconnect(origin *Peer) {
	p.removeSlot(origin)
}

// Start brings the peer online and bootstraps its connections: first a refill
// from the retained known table.  If that leaves fewer than two outbound
// slots filled, it probes the seeder's crawler one-shot, merges a DNS
// query whose reply is merged into the known table, and a second refill.
func (p *Peer) Start() {
	if p.online {
		return
	}
	p.online = true
	p.env.SetPeerOnline(p)
	log.Debugf("Node %v starting", p)

	p.fillConnections(false)
	if len(p.outbound) >= 2 {
		return
	}

	seeder := p.env.DNSSeeder()
	if seeder == nil {
		return
	}
	if crawler := seeder.Crawler(); crawler != nil {
		p.Connect(crawler, true)
	}
	merged := 0
	for _, s := range seeder.QueryDNS() {
		if merged >= MaxSeedPeers {
			break
		}
		if p.addKnown(s) {
			merged++
		}
	}
	log.Debugf("Node %v merged %d seed peers", p, merged)
	log.Tracef("Node %v known table: %v", p, newLogClosure(func() string {
		return spew.Sdump(p.knownOrder)
	}))
	p.fillConnections(false)
}

// Stop takes the peer offline and drains every connection from both sides.
// The known table survives a stop; the session state (slots, trickle
// targets, pending adverts, relay suppression, queued teardowns) does not.
func (p *Peer) Stop() {
	if !p.online {
		return
	}
	p.online = false
	p.env.SetPeerOffline(p)
	log.Debugf("Node %v stopping", p)

	// Iterate copies: Disconnect mutates the slot lists under us.
	for _, q := range p.Outbound() {
		p.Disconnect(q)
	}
	for _, q := range p.Inbound() {
		p.Disconnect(q)
	}
	p.outbound = nil
	p.inbound = nil
	p.trickleTargets = nil
	p.trickleEpochStart = 0
	p.pendingAddr = make(map[uint32][]*Peer)
	p.relayedFrom = mapset.NewSet[uint32]()
	p.disconnectQueue = nil
}

// fillConnections samples the known table for new outbound connections until
// the outbound count reaches the lesser of MaxOutbound and the known-table
// size, or the round budget runs out.  Candidates are not retried; the
// per-tick maintenance loop is the retry mechanism.
func (p *Peer) fillConnections(oneShot bool) {
	target := len(p.knownOrder)
	if target > MaxOutbound {
		target = MaxOutbound
	}
	for i := 0; i < fillRounds && len(p.outbound) < target; i++ {
		cand := p.randomKnown()
		if cand == nil {
			return
		}
		p.Connect(cand, oneShot)
	}
}

// Maintenance runs the peer's once-per-tick upkeep.  Regular peers prune
// unreachable outbound slots, drain queued one-shot teardowns, refill their
// outbound slots and trickle at most one pending addr batch.  Crawler peers
// follow their own schedule; see crawlerMaintenance.
func (p *Peer) Maintenance() {
	if !p.online {
		return
	}
	if p.kind == KindCrawler {
		p.crawlerMaintenance()
		return
	}
	p.pruneOutbound()
	p.drainDisconnectQueue()
	p.fillConnections(false)
	p.trickle()
}

// pruneOutbound disconnects outbound neighbors that are no longer reachable
// and evicts them from the known table.  A copy is iterated because
// Disconnect mutates the outbound list.
func (p *Peer) pruneOutbound() {
	for _, q := range p.Outbound() {
		if q.Reachable() {
			continue
		}
		p.Disconnect(q)
		p.forgetKnown(q.id)
	}
}

// drainDisconnectQueue releases one-shot connections queued on an earlier
// tick.  Entries queued on the current tick stay put so a one-shot slot is
// held for exactly one tick after its handshake.
func (p *Peer) drainDisconnectQueue() {
	if len(p.disconnectQueue) == 0 {
		return
	}
	now := p.env.Tick()
	kept := p.disconnectQueue[:0]
	for _, r := range p.disconnectQueue {
		if r.tick < now {
			p.Disconnect(r.peer)
			continue
		}
		kept = append(kept, r)
	}
	p.disconnectQueue = kept
}

// trickle delivers at most one queued addr batch per tick: it draws one
// uniform random outbound neighbor and, if a batch is pending for it, sends
// the batch.  This realizes the roughly-every-100ms, probability
// 1/connections address gossip of the modeled protocol.
func (p *Peer) trickle() {
	if len(p.outbound) == 0 || len(p.pendingAddr) == 0 {
		return
	}
	target := p.outbound[rand.Intn(len(p.outbound))]
	batch, ok := p.pendingAddr[target.id]
	if !ok {
		return
	}
	delete(p.pendingAddr, target.id)
	p.pushAddr(target, batch)
}
