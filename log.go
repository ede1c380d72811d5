// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"os"

	"github.com/btcsuite/btclog"
	"github.com/jrick/logrotate/rotator"

	"github.com/tinhnguyenhn/btctopsim/peer"
	"github.com/tinhnguyenhn/btctopsim/seeder"
	"github.com/tinhnguyenhn/btctopsim/sim"
	"github.com/tinhnguyenhn/btctopsim/topology"
)

// logWriter implements an io.Writer that outputs to both standard output and
// the write-end pipe of an initialized log rotator.
type logWriter struct{}

func (logWriter) Write(p []byte) (n int, err error) {
	os.Stdout.Write(p)
	if logRotator != nil {
		logRotator.Write(p)
	}
	return len(p), nil
}

var (
	// backendLog is the logging backend used to create all subsystem
	// loggers.  Output written before the log rotator has been
	// initialized goes to standard output only.
	backendLog = btclog.NewBackend(logWriter{})

	// logRotator is one of the logging outputs.  It should be closed on
	// application shutdown.
	logRotator *rotator.Rotator

	btsmLog = backendLog.Logger("BTSM")
	peerLog = backendLog.Logger("PEER")
	seedLog = backendLog.Logger("SEED")
	simLog  = backendLog.Logger("SIM")
	topoLog = backendLog.Logger("TOPO")

	// log is the logger of the main package.
	log = btsmLog
)

// Initialize the package-global logger variables.
func init() {
	peer.UseLogger(peerLog)
	seeder.UseLogger(seedLog)
	sim.UseLogger(simLog)
	topology.UseLogger(topoLog)
}

// subsystemLoggers maps each subsystem identifier to its associated logger.
var subsystemLoggers = map[string]btclog.Logger{
	"BTSM": btsmLog,
	"PEER": peerLog,
	"SEED": seedLog,
	"SIM":  simLog,
	"TOPO": topoLog,
}

// initLogRotator initializes the logging rotator to write logs to logFile.
// It must be called before the package-global log rotator variables are
// used.
func initLogRotator(logFile string) {
	r, err := rotator.New(logFile, 10*1024, false, 3)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create file rotator: %v\n", err)
		os.Exit(1)
	}
	logRotator = r
}

// setLogLevels sets the log level for all subsystem loggers to the passed
// level.  Invalid levels fall back to info.
func setLogLevels(logLevel string) {
	level, ok := btclog.LevelFromString(logLevel)
	if !ok {
		level = btclog.LevelInfo
	}
	for _, logger := range subsystemLoggers {
		logger.SetLevel(level)
	}
}
