// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/lightningnetwork/lnd/ticker"

	"github.com/tinhnguyenhn/btctopsim/sim"
	"github.com/tinhnguyenhn/btctopsim/topology"
)

// progressInterval is the wall-clock cadence of the progress monitor while
// the tick loop runs.
const progressInterval = 10 * time.Second

func main() {
	if err := btsMain(); err != nil {
		os.Exit(1)
	}
}

// btsMain parses the command line, runs the simulation to its horizon, and
// hands the final overlay to the analytics back end.
func btsMain() error {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		return err
	}
	if cfg == nil {
		return nil
	}

	initLogRotator(defaultLogFilename)
	defer logRotator.Close()
	setLogLevels(defaultLogLevel)

	// The process RNG is the sole source of non-determinism.
	rand.Seed(time.Now().UnixNano())

	log.Infof("Version %s", version())
	log.Infof("Starting btctopsim: %d servers, %d clients, %d ticks, "+
		"churn %d", cfg.Args.ServerCount, cfg.Args.ClientCount,
		cfg.Args.Duration, cfg.Args.Churn)

	s, err := sim.New(sim.Config{
		ServerCount: cfg.Args.ServerCount,
		ClientCount: cfg.Args.ClientCount,
		Duration:    cfg.Args.Duration,
		Churn:       int(cfg.Args.Churn),
	})
	if err != nil {
		log.Errorf("Unable to create simulation: %v", err)
		return err
	}

	// The tick loop is single-threaded; the monitor only reads the atomic
	// clock.
	progress := ticker.New(progressInterval)
	progress.Resume()
	defer progress.Stop()
	quit := make(chan struct{})
	go func() {
		for {
			select {
			case <-progress.Ticks():
				log.Infof("Simulated %d of %d ticks",
					s.Clock(), s.Duration())
			case <-quit:
				return
			}
		}
	}()

	s.Run()
	close(quit)

	snap := topology.Build(s.FinalPeers())
	g := snap.Graph()
	baseline, err := topology.RandomLike(snap)
	if err != nil {
		log.Errorf("Unable to generate random baseline: %v", err)
		return err
	}

	fmt.Println()
	topology.Report(os.Stdout, topology.Analyze(g), topology.Analyze(baseline))

	if cfg.Args.GraphPath != "" {
		if err := topology.WriteDOT(cfg.Args.GraphPath, g, baseline); err != nil {
			log.Errorf("Unable to write graph files: %v", err)
			return err
		}
	}
	return nil
}
