package main

import (
	"os"
	"runtime/pprof"

	"github.com/rs/zerolog/log"
)

// startProfile collects a CPU profile into path, ready for profile guided builds.
func startProfile(path string) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, err
	}
	log.Info().Str("path", path).Msg("cpu profile started")
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}
