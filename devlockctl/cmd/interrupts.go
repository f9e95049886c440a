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
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/subcommands"
	"golang.org/x/sys/unix"

	"acl.dev/devlock/devlockctl/cmd/util"
	"acl.dev/devlock/pkg/devlock"
	"acl.dev/devlock/pkg/log"
)

// Interrupts implements subcommands.Command for the "interrupts" command.
type Interrupts struct {
	signals string
	count   int
	self    bool
	timeout time.Duration
}

// Name implements subcommands.Command.Name.
func (*Interrupts) Name() string {
	return "interrupts"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Interrupts) Synopsis() string {
	return "route host signals through the device lock's interrupt handlers"
}

// Usage implements subcommands.Command.Usage.
func (*Interrupts) Usage() string {
	return `interrupts [flags] - subscribes to the given signals and waits for -count
deliveries. Each handler posts a device update, and a waiter goroutine counts
the updates it sees. With -self, the command sends the signals to itself.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (i *Interrupts) SetFlags(f *flag.FlagSet) {
	f.StringVar(&i.signals, "signals", "SIGUSR1", "comma-separated list of signals to handle.")
	f.IntVar(&i.count, "count", 10, "number of deliveries to wait for.")
	f.BoolVar(&i.self, "self", false, "send the signals to this process.")
	f.DurationVar(&i.timeout, "timeout", time.Minute, "give up after this long.")
}

// Execute implements subcommands.Command.Execute.
func (i *Interrupts) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 || i.count < 1 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	sigs, err := parseSignals(i.signals)
	if err != nil {
		util.Fatalf("%v", err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	var raise func(os.Signal) error
	if i.self {
		raise = func(sig os.Signal) error {
			return unix.Kill(os.Getpid(), sig.(unix.Signal))
		}
	} else {
		util.Infof("Waiting for %d of %v on PID %d", i.count, sigs, os.Getpid())
	}

	res, err := runInterrupts(ctx, devlock.FromContext(ctx), sigs, i.count, raise)
	if err != nil {
		util.Fatalf("%v", err)
	}
	util.Infof("Delivered %d interrupts, waiter saw %d updates", res.delivered, res.observed)
	return subcommands.ExitSuccess
}

// parseSignals parses a list like "SIGUSR1,usr2".
func parseSignals(s string) ([]os.Signal, error) {
	var sigs []os.Signal
	for _, name := range strings.Split(s, ",") {
		name = strings.ToUpper(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		if !strings.HasPrefix(name, "SIG") {
			name = "SIG" + name
		}
		sig := unix.SignalNum(name)
		if sig == 0 {
			return nil, fmt.Errorf("unknown signal %q", name)
		}
		sigs = append(sigs, sig)
	}
	if len(sigs) == 0 {
		return nil, fmt.Errorf("no signals given")
	}
	return sigs, nil
}

// interruptResult counts what runInterrupts saw.
type interruptResult struct {
	// delivered is the number of handler runs.
	delivered int64

	// observed is the number of deliveries the waiter accounted for.
	observed int64
}

// runInterrupts handles sigs on m until count deliveries have been observed
// by a goroutine waiting for device updates. If raise is not nil, it is used
// to send each signal after the handlers are installed.
func runInterrupts(ctx context.Context, m *devlock.Manager, sigs []os.Signal, count int, raise func(os.Signal) error) (interruptResult, error) {
	var delivered atomic.Int64
	// A large count would flood the debug log with one line per delivery.
	progress := log.BasicRateLimitedLogger(100 * time.Millisecond)
	intr := m.NewInterrupts()
	for _, sig := range sigs {
		if err := intr.Handle(sig, func(sig os.Signal) {
			n := delivered.Add(1)
			progress.Debugf("Interrupt %v (#%d) on goroutine %d", sig, n, devlock.ThreadID())
			m.SignalDeviceUpdate()
		}); err != nil {
			return interruptResult{}, err
		}
	}
	if err := intr.Start(); err != nil {
		return interruptResult{}, err
	}
	defer intr.Stop()

	// Handlers signal without the lock, so a notification can slip in
	// between the waiter's check and its wait. A periodic kick bounds that
	// window, and the last one releases the waiter on cancellation.
	waitCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		kick := func() {
			m.Lock()
			m.SignalDeviceUpdate()
			m.Unlock()
		}
		t := time.NewTicker(10 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-waitCtx.Done():
				kick()
				return
			case <-t.C:
				kick()
			}
		}
	}()

	if raise != nil {
		go func() {
			for n := 0; n < count && waitCtx.Err() == nil; n++ {
				if err := raise(sigs[n%len(sigs)]); err != nil {
					log.Warningf("Raising %v failed: %v", sigs[n%len(sigs)], err)
					return
				}
				// Same-signal deliveries coalesce while pending.
				for delivered.Load() <= int64(n) && waitCtx.Err() == nil {
					time.Sleep(time.Millisecond)
				}
			}
		}()
	}

	var observed int64
	m.Lock()
	for observed < int64(count) && ctx.Err() == nil {
		if d := delivered.Load(); d > observed {
			observed = d
			continue
		}
		m.WaitForDeviceUpdate()
	}
	m.Unlock()

	res := interruptResult{delivered: delivered.Load(), observed: observed}
	if observed < int64(count) {
		return res, fmt.Errorf("saw %d of %d interrupts: %w", observed, count, ctx.Err())
	}
	return res, nil
}
