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
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"

	"acl.dev/devlock/pkg/devlock"
)

func TestRunStress(t *testing.T) {
	m := devlock.New(devlock.Options{})
	opts := stressOpts{Workers: 4, Iterations: 200, MaxDepth: 3, Completions: 50}
	stats, err := runStress(context.Background(), m, opts)
	if err != nil {
		t.Fatalf("runStress() = %v", err)
	}
	if stats.Held || stats.Threads != 0 {
		t.Errorf("lock not idle after stress: %+v", stats)
	}
	if stats.Signals != uint64(opts.Completions) {
		t.Errorf("Signals = %d, want %d", stats.Signals, opts.Completions)
	}
	if stats.Acquisitions < uint64(opts.Workers*opts.Iterations) {
		t.Errorf("Acquisitions = %d, want at least %d", stats.Acquisitions, opts.Workers*opts.Iterations)
	}

	var buf bytes.Buffer
	printStats(&buf, stats)
	if !strings.Contains(buf.String(), "acquisitions:") || !strings.Contains(buf.String(), "held:") {
		t.Errorf("printStats() output is missing fields:\n%s", buf.String())
	}
}

func TestParseSignals(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want []os.Signal
		err  bool
	}{
		{in: "SIGUSR1", want: []os.Signal{unix.SIGUSR1}},
		{in: "usr1, USR2", want: []os.Signal{unix.SIGUSR1, unix.SIGUSR2}},
		{in: "SIGTERM,", want: []os.Signal{unix.SIGTERM}},
		{in: "SIGNOPE", err: true},
		{in: "", err: true},
	} {
		got, err := parseSignals(tc.in)
		if tc.err {
			if err == nil {
				t.Errorf("parseSignals(%q) = %v, want error", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseSignals(%q) failed: %v", tc.in, err)
			continue
		}
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("parseSignals(%q) (-want +got):\n%s", tc.in, diff)
		}
	}
}

func TestRunInterrupts(t *testing.T) {
	m := devlock.New(devlock.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	raise := func(sig os.Signal) error {
		return unix.Kill(os.Getpid(), sig.(unix.Signal))
	}
	sigs := []os.Signal{unix.SIGUSR1, unix.SIGUSR2}
	res, err := runInterrupts(ctx, m, sigs, 6, raise)
	if err != nil {
		t.Fatalf("runInterrupts() = %v", err)
	}
	if res.observed < 6 || res.delivered < res.observed {
		t.Errorf("delivered, observed = %d, %d, want >= observed, >= 6", res.delivered, res.observed)
	}
	if got := m.Stats().SignalEntries; got < 6 {
		t.Errorf("SignalEntries = %d, want >= 6", got)
	}
}

func TestRunInterruptsTimeout(t *testing.T) {
	m := devlock.New(devlock.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := runInterrupts(ctx, m, []os.Signal{unix.SIGUSR2}, 1, nil)
	if err == nil {
		t.Fatalf("runInterrupts() without any signal succeeded")
	}
	if m.Stats().Held {
		t.Errorf("lock held after a timed out run")
	}
}
