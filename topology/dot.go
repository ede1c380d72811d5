// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package topology

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
)

// RandomSuffix is appended to the graph output path to name the baseline
// file.
const RandomSuffix = ".random.gv"

// attrs is a fixed attribute list satisfying encoding.Attributer.
type attrs []encoding.Attribute

// Attributes returns the attribute list.
func (a attrs) Attributes() []encoding.Attribute {
	return a
}

// styledGraph decorates a graph with the GraphViz attributes the topology
// files are written with.  The undirected interface is embedded so the
// marshaler renders undirected edges.
type styledGraph struct {
	graph.Undirected
}

// DOTAttributers supplies the graph, default-node and default-edge
// attributes of the export.
func (styledGraph) DOTAttributers() (g, n, e encoding.Attributer) {
	g = attrs{{Key: "ratio", Value: "auto"}}
	n = attrs{{Key: "shape", Value: "point"}}
	e = attrs{
		{Key: "arrowsize", Value: "0.3"},
		{Key: "penwidth", Value: "0.3"},
	}
	return g, n, e
}

// WriteDOT writes the simulated topology to path and the random baseline to
// path plus RandomSuffix, both in GraphViz DOT format.
func WriteDOT(path string, topo, baseline graph.Undirected) error {
	if err := writeGraph(path, topo); err != nil {
		return err
	}
	return writeGraph(path+RandomSuffix, baseline)
}

// writeGraph marshals one styled graph into a DOT file.
func writeGraph(path string, g graph.Undirected) error {
	b, err := dot.Marshal(styledGraph{g}, "", "", "\t")
	if err != nil {
		return fmt.Errorf("unable to marshal graph for %v: %v", path, err)
	}
	if err := os.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("unable to write graph file %v: %v", path, err)
	}
	log.Infof("Wrote graph file %v", path)
	return nil
}
