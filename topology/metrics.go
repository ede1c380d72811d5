// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package topology

import (
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
)

// Metrics are the three structural measures compared between the simulated
// overlay and its random baseline.
type Metrics struct {
	// Clustering is the mean local clustering coefficient.
	Clustering float64

	// MeanGeodesic is the mean shortest-path length over connected vertex
	// pairs.
	MeanGeodesic float64

	// Diameter is the longest shortest path between any connected vertex
	// pair.
	Diameter float64
}

// Analyze computes the metrics of a unit-weight undirected graph.  Vertex
// pairs with no connecting path are excluded from the geodesic measures
// rather than poisoning them with infinities.
func Analyze(g *simple.UndirectedGraph) Metrics {
	var m Metrics
	nodes := graph.NodesOf(g.Nodes())
	if len(nodes) == 0 {
		return m
	}

	m.Clustering = meanClustering(g, nodes)

	paths, ok := path.FloydWarshall(g)
	if !ok {
		// Unit weights cannot form a negative cycle; defensive only.
		log.Warnf("All-pairs shortest paths failed; geodesic metrics " +
			"are zero")
		return m
	}
	var total float64
	var count int
	for i := range nodes {
		for j := i + 1; j < len(nodes); j++ {
			w := paths.Weight(nodes[i].ID(), nodes[j].ID())
			if math.IsInf(w, 1) {
				continue
			}
			total += w
			count++
			if w > m.Diameter {
				m.Diameter = w
			}
		}
	}
	if count > 0 {
		m.MeanGeodesic = total / float64(count)
	}
	return m
}

// meanClustering returns the mean of the per-vertex local clustering
// coefficients.  Vertices of degree below two contribute zero.
func meanClustering(g *simple.UndirectedGraph, nodes []graph.Node) float64 {
	var sum float64
	for _, u := range nodes {
		neighbors := graph.NodesOf(g.From(u.ID()))
		d := len(neighbors)
		if d < 2 {
			continue
		}
		links := 0
		for i := 0; i < d; i++ {
			for j := i + 1; j < d; j++ {
				if g.HasEdgeBetween(neighbors[i].ID(),
					neighbors[j].ID()) {

					links++
				}
			}
		}
		sum += 2 * float64(links) / float64(d*(d-1))
	}
	return sum / float64(len(nodes))
}
