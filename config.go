// Copyright (c) 2021 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"
)

const (
	// defaultDuration is one modeled day at ten ticks per second.
	defaultDuration = 864000

	// defaultLogFilename is the rotating diagnostic log written next to
	// the process.
	defaultLogFilename = "btctopsim.log"

	// defaultLogLevel controls the verbosity of the diagnostic log.
	defaultLogLevel = "info"
)

// config holds the positional arguments of one invocation.  The tool takes
// no flags and reads no environment.
type config struct {
	Args struct {
		ServerCount uint32 `positional-arg-name:"server_count"`
		ClientCount uint32 `positional-arg-name:"client_count"`
		Duration    uint64 `positional-arg-name:"duration_ticks"`
		Churn       uint32 `positional-arg-name:"churn"`
		GraphPath   string `positional-arg-name:"graph_out_path"`
	} `positional-args:"yes"`
}

// usage prints the invocation synopsis.
func usage() {
	fmt.Printf("usage: %s server_count [client_count] [duration_ticks] "+
		"[churn] [graph_out_path]\n", os.Args[0])
	fmt.Println("the duration should be provided in 1/10 seconds, " +
		"default is 864000 (one day)")
}

// loadConfig parses the command line.  A nil config with a nil error means
// the synopsis was printed and the process should exit cleanly; any parse or
// validation failure is returned as an error.
func loadConfig() (*config, error) {
	if len(os.Args) < 2 {
		usage()
		return nil, nil
	}

	cfg := &config{}
	cfg.Args.Duration = defaultDuration

	parser := flags.NewParser(cfg, flags.None)
	remaining, err := parser.ParseArgs(os.Args[1:])
	if err != nil {
		return nil, err
	}
	if len(remaining) > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", remaining)
	}
	if cfg.Args.Duration == 0 {
		return nil, errors.New("duration_ticks must be positive")
	}
	return cfg, nil
}
