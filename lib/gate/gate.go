// Package gate implements the startup readiness gate. The gate polls each network dependency's TCP port at a
// fixed interval, one dependency at a time, until it accepts a connection. Unlike the classic wait-for-it shell
// loop, the wait is bounded: a dependency that never becomes reachable makes the gate give up with ErrNotReady
// instead of blocking forever.
package gate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tarancss/simpliance/lib/config"
)

// Defaults used when an Options field is left zero.
const (
	DefaultInterval    = 300 * time.Millisecond
	DefaultDialTimeout = 2 * time.Second
)

// ErrNotReady is returned when a dependency does not accept a connection within the maximum wait.
var ErrNotReady = errors.New("dependency did not become reachable")

// Options controls the polling loop. MaxWait bounds the total time spent per dependency; zero means wait
// indefinitely.
type Options struct {
	Interval    time.Duration
	MaxWait     time.Duration
	DialTimeout time.Duration
}

// Wait blocks until every dependency accepts a TCP connection. Dependencies are probed strictly in order: the
// next one is not touched until the current one is ready. Returns ErrNotReady naming the dependency that timed
// out, or the context error if ctx is cancelled.
func Wait(ctx context.Context, deps []config.Dependency, opt Options) error {
	if opt.Interval <= 0 {
		opt.Interval = DefaultInterval
	}

	if opt.DialTimeout <= 0 {
		opt.DialTimeout = DefaultDialTimeout
	}

	for _, d := range deps {
		log.Printf("Waiting for %s to accept connections on %s...", d.Name, d.Addr)

		probe := func() error {
			conn, err := net.DialTimeout("tcp", d.Addr, opt.DialTimeout)
			if err != nil {
				return err
			}

			return conn.Close()
		}

		var bo backoff.BackOff = backoff.NewConstantBackOff(opt.Interval)
		if opt.MaxWait > 0 {
			bo = backoff.WithMaxRetries(bo, uint64(opt.MaxWait/opt.Interval))
		}

		if err := backoff.Retry(probe, backoff.WithContext(bo, ctx)); err != nil {
			if ctx.Err() != nil {
				return fmt.Errorf("gate cancelled waiting for %s: %w", d.Name, ctx.Err())
			}

			return fmt.Errorf("%w: %s (%s): %v", ErrNotReady, d.Name, d.Addr, err)
		}

		log.Printf("%s is ready", d.Name)
	}

	return nil
}

// Exec hands control over to the given command, replacing the current process image. It only returns on error:
// on success the gate process ceases to exist and holds no supervisory relationship with the command.
func Exec(argv []string) error {
	if len(argv) == 0 {
		return errors.New("no command to hand off to")
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return fmt.Errorf("cannot find command %s: %w", argv[0], err)
	}

	return syscall.Exec(path, argv, os.Environ())
}
