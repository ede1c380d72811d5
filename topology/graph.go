// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package topology

import (
	"gonum.org/v1/gonum/graph/simple"

	"github.com/tinhnguyenhn/btctopsim/peer"
)

// Snapshot is the undirected view of the overlay at one instant: a vertex
// per live peer and one edge per connected pair, deduplicated across the
// outbound/inbound bookkeeping of both ends.  Every edge carries an implicit
// weight of one hop for the shortest-path metrics.
type Snapshot struct {
	peers []*peer.Peer
	index map[uint32]int
	edges [][2]int
}

// Build constructs a snapshot from the given peers.  Offline peers and the
// crawler are excluded; the topology holds true overlay members only.  Edges
// are derived from the outbound lists alone and deduplicated, since every
// link is some peer's outbound, so the symmetric inbound bookkeeping adds
// nothing.
func Build(peers []*peer.Peer) *Snapshot {
	s := &Snapshot{
		index: make(map[uint32]int),
	}
	for _, p := range peers {
		if p == nil || !p.Online() || p.Kind() == peer.KindCrawler {
			continue
		}
		if _, ok := s.index[p.ID()]; ok {
			continue
		}
		s.index[p.ID()] = len(s.peers)
		s.peers = append(s.peers, p)
	}

	seen := make(map[[2]int]struct{})
	for _, p := range s.peers {
		ui := s.index[p.ID()]
		for _, q := range p.Outbound() {
			vi, ok := s.index[q.ID()]
			if !ok {
				// Endpoint outside the vertex set, e.g. the
				// crawler.
				continue
			}
			key := [2]int{ui, vi}
			if key[0] > key[1] {
				key[0], key[1] = key[1], key[0]
			}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			s.edges = append(s.edges, key)
		}
	}
	log.Debugf("Topology snapshot: %d vertices, %d edges",
		len(s.peers), len(s.edges))
	return s
}

// NumVertices returns the vertex count.
func (s *Snapshot) NumVertices() int {
	return len(s.peers)
}

// NumEdges returns the deduplicated edge count.
func (s *Snapshot) NumEdges() int {
	return len(s.edges)
}

// Peers returns the vertex peers in index order.
func (s *Snapshot) Peers() []*peer.Peer {
	return append([]*peer.Peer(nil), s.peers...)
}

// Graph materializes the snapshot as a gonum graph with dense vertex
// identifiers matching the snapshot's index order.
func (s *Snapshot) Graph() *simple.UndirectedGraph {
	g := simple.NewUndirectedGraph()
	for i := range s.peers {
		g.AddNode(simple.Node(i))
	}
	for _, e := range s.edges {
		g.SetEdge(simple.Edge{F: simple.Node(e[0]), T: simple.Node(e[1])})
	}
	return g
}
