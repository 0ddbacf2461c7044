// Package main: waitready, a readiness gate for container entrypoints.
//
// waitready polls each dependency's TCP port until it accepts connections, then replaces its own process image
// with the given command. It keeps no supervisory relationship with the command: once the handoff happens,
// waitready ceases to exist. Example:
//
//	waitready -d mongodb=mongodb:27017 -d redis=redis:6379 -- gunicorn-like-server -b 0.0.0.0:8000
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tarancss/simpliance/lib/config"
	"github.com/tarancss/simpliance/lib/gate"
)

// depList collects repeated -d name=host:port flags.
type depList []config.Dependency

func (d *depList) String() string {
	parts := make([]string, 0, len(*d))
	for _, dep := range *d {
		parts = append(parts, dep.Name+"="+dep.Addr)
	}

	return strings.Join(parts, ",")
}

func (d *depList) Set(v string) error {
	name, addr, ok := strings.Cut(v, "=")
	if !ok || name == "" || addr == "" {
		return fmt.Errorf("invalid dependency %q, expected name=host:port", v)
	}

	*d = append(*d, config.Dependency{Name: name, Addr: addr})

	return nil
}

func main() {
	var deps depList

	flag.Var(&deps, "d", "dependency to wait for as name=host:port, can be repeated")
	interval := flag.Int("i", 300, "milliseconds between connection attempts")
	maxWait := flag.Int("w", 0, "seconds to wait per dependency before giving up, 0 waits forever")
	flag.Parse()

	if len(deps) == 0 || flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: waitready -d name=host:port [-d ...] [-i ms] [-w s] command [args...]")
		os.Exit(2)
	}

	err := gate.Wait(context.Background(), deps, gate.Options{
		Interval: time.Duration(*interval) * time.Millisecond,
		MaxWait:  time.Duration(*maxWait) * time.Second,
	})
	if err != nil {
		log.Fatalf("waitready: %v", err)
	}

	// hand off to the real process, this only returns on error
	if err = gate.Exec(flag.Args()); err != nil {
		log.Fatalf("waitready: %v", err)
	}
}
