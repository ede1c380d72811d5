// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package sim

import (
	"errors"
	"math/rand"
	"sync/atomic"

	"github.com/tinhnguyenhn/btctopsim/peer"
	"github.com/tinhnguyenhn/btctopsim/seeder"
)

const (
	// churnPeriodTicks is how often, in ticks, a churn pulse is applied.
	churnPeriodTicks = 100

	// crawlerPeriodTicks is how often, in ticks, the crawler runs its
	// maintenance.
	crawlerPeriodTicks = 100
)

// Config holds the knobs of one simulation run.
type Config struct {
	// ServerCount is the number of reachable peers to allocate.
	ServerCount uint32

	// ClientCount is the number of unreachable peers to allocate.
	ClientCount uint32

	// Duration is the tick horizon of the run.  One tick models a tenth
	// of a second.
	Duration uint64

	// Churn bounds the random stops and starts applied per churn pulse.
	// Zero disables churn.
	Churn int
}

// Simulation drives the overlay: it owns every peer through the registry,
// tracks online and offline membership, schedules boots, applies churn and
// advances the shared clock.  The tick loop is single-threaded; the clock is
// stored atomically only so a monitoring goroutine may read progress.
type Simulation struct {
	cfg   Config
	clock uint64

	registry *peer.Registry
	online   []*peer.Peer
	offline  []*peer.Peer

	bootSchedule map[uint64][]*peer.Peer
	seed         *seeder.DNSSeeder
}

// New allocates every peer of the run, draws each a uniform boot tick within
// the horizon, and builds the seeder.  Peer allocation failures are logged
// and skipped; the simulation runs with the peers it has.
func New(cfg Config) (*Simulation, error) {
	if cfg.Duration == 0 {
		return nil, errors.New("simulation duration must be positive")
	}
	s := &Simulation{
		cfg:          cfg,
		registry:     peer.NewRegistry(),
		bootSchedule: make(map[uint64][]*peer.Peer),
	}

	for i := uint32(0); i < cfg.ServerCount; i++ {
		s.allocatePeer(true)
	}
	for i := uint32(0); i < cfg.ClientCount; i++ {
		s.allocatePeer(false)
	}

	seed, err := seeder.New(s, s.registry)
	if err != nil {
		return nil, err
	}
	s.seed = seed
	return s, nil
}

// allocatePeer creates one peer, registers it, and schedules its boot.
func (s *Simulation) allocatePeer(reachable bool) {
	p := peer.New(s, s.registry.Allocate(), reachable)
	if err := s.registry.Register(p); err != nil {
		// Diagnostic channel only; the run continues without the peer.
		log.Errorf("Unable to allocate peer: %v", err)
		return
	}
	s.offline = append(s.offline, p)
	bootTick := s.clock + uint64(rand.Int63n(int64(s.cfg.Duration)))
	s.bootSchedule[bootTick] = append(s.bootSchedule[bootTick], p)
	if reachable {
		log.Debugf("Creating server node %v, booting at tick %d", p,
			bootTick)
	} else {
		log.Debugf("Creating client node %v, booting at tick %d", p,
			bootTick)
	}
}

// Run advances the tick loop to the horizon.  Each tick starts the peers
// whose boot tick arrived, runs every online regular peer's maintenance over
// an insertion-order snapshot, and every hundred ticks applies the churn
// pulse and drives the crawler's maintenance.
func (s *Simulation) Run() {
	end := s.Clock() + s.cfg.Duration
	churnCounter := 0
	crawlerCounter := 0

	for s.Clock() < end {
		now := s.Clock()
		for _, p := range s.bootSchedule[now] {
			p.Start()
		}
		delete(s.bootSchedule, now)

		// Snapshot: maintenance starts and stops peers under us.  The
		// crawler is online for bookkeeping but runs on its own
		// cadence below.
		snapshot := append([]*peer.Peer(nil), s.online...)
		for _, p := range snapshot {
			if p.Kind() == peer.KindCrawler {
				continue
			}
			p.Maintenance()
		}

		churnCounter++
		if churnCounter == churnPeriodTicks {
			churnCounter = 0
			if s.cfg.Churn > 0 {
				s.churnPulse()
			}
		}

		crawlerCounter++
		if crawlerCounter == crawlerPeriodTicks {
			crawlerCounter = 0
			s.seed.Crawler().Maintenance()
		}

		atomic.AddUint64(&s.clock, 1)
	}

	for _, p := range s.FinalPeers() {
		if len(p.Outbound()) == 0 && len(p.Inbound()) == 0 {
			log.Warnf("Node %v finished with no connections", p)
		}
	}
}

// churnPulse stops fewer than cfg.Churn random online peers and starts fewer
// than cfg.Churn random offline peers, each count drawn uniformly from
// [0, cfg.Churn).  The crawler is exempt from stops; taking
// the bootstrap oracle down would strand every later boot.
func (s *Simulation) churnPulse() {
	stops := rand.Intn(s.cfg.Churn)
	for i := 0; i < stops; i++ {
		if p := s.randomOnlineRegular(); p != nil {
			p.Stop()
		}
	}
	starts := rand.Intn(s.cfg.Churn)
	for i := 0; i < starts; i++ {
		if len(s.offline) == 0 {
			break
		}
		s.offline[rand.Intn(len(s.offline))].Start()
	}
	log.Debugf("Churn pulse at tick %d: %d stops, %d starts", s.Clock(),
		stops, starts)
}

// randomOnlineRegular draws a uniform random online peer, excluding the
// crawler, or nil when none exists.
func (s *Simulation) randomOnlineRegular() *peer.Peer {
	candidates := make([]*peer.Peer, 0, len(s.online))
	for _, p := range s.online {
		if p.Kind() == peer.KindCrawler {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return nil
	}
	return candidates[rand.Intn(len(candidates))]
}

// Clock returns the current tick.  It is safe for concurrent readers.
func (s *Simulation) Clock() uint64 {
	return atomic.LoadUint64(&s.clock)
}

// Duration returns the configured tick horizon.
func (s *Simulation) Duration() uint64 {
	return s.cfg.Duration
}

// Seeder returns the simulation's DNS seeder.
func (s *Simulation) Seeder() *seeder.DNSSeeder {
	return s.seed
}

// Registry returns the strong table owning every peer of the run.
func (s *Simulation) Registry() *peer.Registry {
	return s.registry
}

// FinalPeers returns the online overlay peers, the vertex set handed to the
// analytics collaborator.  The crawler is bookkept online but excluded; the
// topology holds true peers only.
func (s *Simulation) FinalPeers() []*peer.Peer {
	peers := make([]*peer.Peer, 0, len(s.online))
	for _, p := range s.online {
		if p.Kind() == peer.KindCrawler {
			continue
		}
		peers = append(peers, p)
	}
	return peers
}

// Tick implements peer.Environment.
func (s *Simulation) Tick() uint64 {
	return s.Clock()
}

// SetPeerOnline implements peer.Environment: the peer moves from the offline
// set to the online set, keeping insertion order.
func (s *Simulation) SetPeerOnline(p *peer.Peer) {
	s.removeMember(&s.offline, p)
	if !s.isMember(s.online, p) {
		s.online = append(s.online, p)
	}
}

// SetPeerOffline implements peer.Environment: the peer moves from the online
// set to the offline set, keeping insertion order.
func (s *Simulation) SetPeerOffline(p *peer.Peer) {
	s.removeMember(&s.online, p)
	if !s.isMember(s.offline, p) {
		s.offline = append(s.offline, p)
	}
}

// OnlinePeers implements peer.Environment.
func (s *Simulation) OnlinePeers() []*peer.Peer {
	return append([]*peer.Peer(nil), s.online...)
}

// DNSSeeder implements peer.Environment.
func (s *Simulation) DNSSeeder() peer.Bootstrapper {
	if s.seed == nil {
		return nil
	}
	return s.seed
}

// isMember reports whether p is present in members.
func (s *Simulation) isMember(members []*peer.Peer, p *peer.Peer) bool {
	for _, m := range members {
		if m == p {
			return true
		}
	}
	return false
}

// removeMember drops p from members, preserving order.
func (s *Simulation) removeMember(members *[]*peer.Peer, p *peer.Peer) {
	for i, m := range *members {
		if m == p {
			*members = append((*members)[:i], (*members)[i+1:]...)
			return
		}
	}
}
