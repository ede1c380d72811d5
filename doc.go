// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

/*
btctopsim is a discrete-event simulator of the peer discovery and
connection-formation layer of a bitcoin-style unstructured overlay.

The simulation advances in ticks of a tenth of a modeled second.  Server
nodes accept inbound connections, client nodes do not; all nodes bootstrap
through a DNS seeder backed by a crawling probe, gossip addresses through a
trickled relay, and keep their outbound slots filled from their known-peer
tables.  When the tick horizon is reached the live connection graph is
compared against a random graph with identical vertex and edge counts, and
both may be written out as GraphViz files.

Usage:

	btctopsim server_count [client_count] [duration_ticks] [churn] [graph_out_path]

The duration is given in ticks and defaults to 864000, one modeled day.
Churn bounds the number of random node stops and starts applied every ten
modeled seconds and defaults to zero.  When a graph path is given, the
simulated topology is written there and the random baseline next to it with
a .random.gv suffix.
*/
package main
