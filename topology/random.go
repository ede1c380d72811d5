// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package topology

import (
	"gonum.org/v1/gonum/graph/graphs/gen"
	"gonum.org/v1/gonum/graph/simple"
)

// RandomLike builds the comparison baseline: a uniform random graph with
// exactly the snapshot's vertex and edge counts.  No source is passed to
// gen.Gnm, so the draw comes from gonum's own default generator rather than
// the math/rand generator seeded in main.
func RandomLike(s *Snapshot) (*simple.UndirectedGraph, error) {
	g := simple.NewUndirectedGraph()
	if err := gen.Gnm(g, s.NumVertices(), s.NumEdges(), nil); err != nil {
		return nil, err
	}
	return g, nil
}
