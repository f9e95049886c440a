// Copyright 2026 The Devlock Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sync/atomic"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/sync/errgroup"

	"acl.dev/devlock/devlockctl/cmd/util"
	"acl.dev/devlock/pkg/devlock"
	"acl.dev/devlock/pkg/log"
)

// Stress implements subcommands.Command for the "stress" command.
type Stress struct {
	opts stressOpts
}

// stressOpts parameterizes a stress run.
type stressOpts struct {
	// Workers is the number of goroutines taking the lock at random depths.
	Workers int

	// Iterations is the number of critical sections per worker.
	Iterations int

	// MaxDepth bounds the recursion depth of each critical section.
	MaxDepth int

	// Completions is the number of completions the simulated device posts
	// to the waiting goroutine.
	Completions int
}

// Name implements subcommands.Command.Name.
func (*Stress) Name() string {
	return "stress"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Stress) Synopsis() string {
	return "exercise the device lock from many goroutines and check mutual exclusion"
}

// Usage implements subcommands.Command.Usage.
func (*Stress) Usage() string {
	return `stress [flags] - runs workers that take the device lock at random depths,
a goroutine that keeps yielding it, and a device that posts completions to a
waiter. Fails if two goroutines are ever inside the lock at once.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (s *Stress) SetFlags(f *flag.FlagSet) {
	f.IntVar(&s.opts.Workers, "workers", 8, "number of worker goroutines.")
	f.IntVar(&s.opts.Iterations, "iterations", 10000, "critical sections per worker.")
	f.IntVar(&s.opts.MaxDepth, "max-depth", 4, "maximum recursion depth of a critical section.")
	f.IntVar(&s.opts.Completions, "completions", 1000, "device completions posted to the waiter.")
}

// Execute implements subcommands.Command.Execute.
func (s *Stress) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if s.opts.Workers < 1 || s.opts.Iterations < 0 || s.opts.MaxDepth < 1 || s.opts.Completions < 0 {
		util.Fatalf("invalid stress parameters: %+v", s.opts)
	}

	m := devlock.FromContext(ctx)
	start := time.Now()
	stats, err := runStress(ctx, m, s.opts)
	if err != nil {
		util.Fatalf("stress failed: %v", err)
	}
	util.Infof("Stress passed in %v", time.Since(start))
	printStats(os.Stdout, stats)
	return subcommands.ExitSuccess
}

// runStress runs the workload on m and returns m's stats afterwards.
func runStress(ctx context.Context, m *devlock.Manager, opts stressOpts) (devlock.Stats, error) {
	var (
		inside  atomic.Int32
		entries int
	)
	section := func(rng *rand.Rand) error {
		d := 1 + rng.Intn(opts.MaxDepth)
		for i := 0; i < d; i++ {
			m.Lock()
		}
		defer func() {
			for i := 0; i < d; i++ {
				m.Unlock()
			}
		}()
		if n := inside.Add(1); n != 1 {
			return fmt.Errorf("%d goroutines inside the device lock", n)
		}
		entries++
		inside.Add(-1)
		if rng.Intn(8) == 0 {
			n := m.SuspendLock()
			m.ResumeLock(n)
			if n != d {
				return fmt.Errorf("SuspendLock() = %d at depth %d", n, d)
			}
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < opts.Workers; w++ {
		seed := int64(w + 1)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < opts.Iterations; i++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if err := section(rng); err != nil {
					return err
				}
			}
			return nil
		})
	}

	// The device posts completions under the lock and the waiter consumes
	// them, releasing the lock while it sleeps.
	posted, consumed := 0, 0
	g.Go(func() error {
		for i := 0; i < opts.Completions; i++ {
			m.Lock()
			posted++
			m.SignalDeviceUpdate()
			m.Unlock()
		}
		return nil
	})
	g.Go(func() error {
		m.Lock()
		defer m.Unlock()
		for consumed < opts.Completions {
			for consumed == posted {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				m.WaitForDeviceUpdate()
			}
			consumed = posted
		}
		return nil
	})

	// The yielder takes the lock nested and hands it over from inside.
	yieldCtx, stopYield := context.WithCancel(gctx)
	defer stopYield()
	var yielder errgroup.Group
	yielder.Go(func() error {
		for yieldCtx.Err() == nil {
			m.Lock()
			m.Lock()
			m.YieldLockAndThread()
			m.Unlock()
			m.Unlock()
			time.Sleep(50 * time.Microsecond)
		}
		return nil
	})

	err := g.Wait()
	stopYield()
	yielder.Wait()
	if err != nil {
		return devlock.Stats{}, err
	}
	if want := opts.Workers * opts.Iterations; entries != want {
		return devlock.Stats{}, fmt.Errorf("%d critical sections completed, want %d", entries, want)
	}
	log.Debugf("Stress: %d critical sections, %d completions", entries, consumed)
	return m.Stats(), nil
}

// printStats writes s in a human readable form.
func printStats(w io.Writer, s devlock.Stats) {
	for _, l := range []struct {
		name  string
		value any
	}{
		{"acquisitions", s.Acquisitions},
		{"recursive", s.Recursive},
		{"contended", s.Contended},
		{"slow", s.Slow},
		{"suspends", s.Suspends},
		{"yields", s.Yields},
		{"device waits", s.Waits},
		{"device wakeups", s.Wakeups},
		{"device signals", s.Signals},
		{"signal handlers", s.SignalEntries},
		{"signal masks", s.Masks},
		{"violations", s.Violations},
		{"threads", s.Threads},
		{"waiters", s.Waiters},
		{"held", s.Held},
	} {
		fmt.Fprintf(w, "%-16s %v\n", l.name+":", l.value)
	}
}
