// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package seeder

import (
	"math/rand"

	"github.com/tinhnguyenhn/btctopsim/peer"
)

const (
	// maxCacheEntries caps how many samples a cache rebuild draws from the
	// crawler's good-node view.
	maxCacheEntries = 1000

	// minRebuildAge is how many ticks a cache must age before the
	// hit-pressure rebuild condition may fire.
	minRebuildAge = 5
)

// DNSSeeder models a bootstrap DNS oracle in the manner of the bitcoin
// seeder: a crawler keeps a view of reachable peers, and queries are answered
// from a cached sample of that view.  The cache is self-tuning: every query
// counts as a hit, and enough hit pressure relative to the cache size forces
// a rebuild, so small caches refresh often while large ones settle.
type DNSSeeder struct {
	env     peer.Environment
	crawler *peer.Peer

	cache          []*peer.Peer
	cacheBuilt     uint64
	hitsSinceBuild int
}

// New returns a seeder whose crawler has been registered with the given
// registry and environment.  The initial cache rebuild is forced so clients
// can query immediately after simulation start.
func New(env peer.Environment, reg *peer.Registry) (*DNSSeeder, error) {
	crawler := peer.NewCrawler(env, reg.Allocate())
	if err := reg.Register(crawler); err != nil {
		return nil, err
	}
	s := &DNSSeeder{
		env:     env,
		crawler: crawler,
	}
	s.cacheHit(true)
	log.Infof("DNS seeder started with crawler %v", crawler)
	return s, nil
}

// Crawler returns the seeder's crawler peer.
func (s *DNSSeeder) Crawler() *peer.Peer {
	return s.crawler
}

// Cache returns the currently served cache.
func (s *DNSSeeder) Cache() []*peer.Peer {
	return append([]*peer.Peer(nil), s.cache...)
}

// QueryDNS serves one bootstrap query: the call is counted against the
// rebuild policy and the resulting cache is returned.
func (s *DNSSeeder) QueryDNS() []*peer.Peer {
	s.cacheHit(false)
	return append([]*peer.Peer(nil), s.cache...)
}

// cacheHit records one hit and decides whether the cache must be rebuilt.
// A rebuild happens when forced, when the hit count outgrows the quadratic
// size threshold, or when a smaller hit-pressure threshold is met on a cache
// older than minRebuildAge ticks.  The quadratic term dominates for small
// caches, so a sparsely populated seeder refreshes on nearly every query.
func (s *DNSSeeder) cacheHit(force bool) {
	s.hitsSinceBuild++
	now := s.env.Tick()
	n := len(s.cache)
	switch {
	case force:
	case s.hitsSinceBuild > n*n/400:
	case s.hitsSinceBuild*s.hitsSinceBuild > n/20 &&
		now-s.cacheBuilt > minRebuildAge:
	default:
		return
	}
	s.rebuild(now)
}

// rebuild resets the cache from the crawler's good-node view: roughly half
// the view, capped at maxCacheEntries, sampled uniformly with replacement.
// The half count rounds up so a single good node still seeds a one-entry
// cache; truncation would leave the smallest networks permanently
// unbootstrappable.
func (s *DNSSeeder) rebuild(now uint64) {
	s.cache = nil
	s.hitsSinceBuild = 0
	s.cacheBuilt = now

	good := s.crawler.GoodNodes()
	if len(good) == 0 {
		log.Debugf("Seeder cache rebuilt empty at tick %d", now)
		return
	}
	n := (len(good) + 1) / 2
	if n > maxCacheEntries {
		n = maxCacheEntries
	}
	s.cache = make([]*peer.Peer, 0, n)
	for i := 0; i < n; i++ {
		s.cache = append(s.cache, good[rand.Intn(len(good))])
	}
	log.Debugf("Seeder cache rebuilt with %d of %d good nodes at tick %d",
		len(s.cache), len(good), now)
}
