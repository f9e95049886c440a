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

package devlock

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

// stressWorker exercises the lock API in random order and checks mutual
// exclusion and depth bookkeeping after every step.
func stressWorker(m *Manager, seed int64, iters int, inside *atomic.Int32, shared *int) error {
	// Release whatever is held if the worker bails out, so the others can
	// finish.
	defer m.SuspendLock()
	rng := rand.New(rand.NewSource(seed))
	check := func(what string, want int) error {
		if got := depth(m); got != want {
			return fmt.Errorf("%s: depth = %d, want %d", what, got, want)
		}
		if want > 0 && m.Owner() != ThreadID() {
			return fmt.Errorf("%s: Owner() = %d, want %d", what, m.Owner(), ThreadID())
		}
		return nil
	}
	for i := 0; i < iters; i++ {
		d := 1 + rng.Intn(3)
		for k := 0; k < d; k++ {
			m.Lock()
		}
		if n := inside.Add(1); n != 1 {
			return fmt.Errorf("%d goroutines in the critical section", n)
		}
		*shared++
		inside.Add(-1)

		switch rng.Intn(4) {
		case 0:
			m.YieldLockAndThread()
		case 1:
			n := m.SuspendLock()
			if n != d {
				return fmt.Errorf("SuspendLock() = %d, want %d", n, d)
			}
			m.ResumeLock(n)
		case 2:
			m.RunSignalHandler(func() {
				if m.IsLocked() {
					panic("IsLocked() inside a handler")
				}
				m.SignalDeviceUpdate()
			})
		case 3:
			m.WaitForDeviceUpdate()
		}
		if err := check("after op", d); err != nil {
			return err
		}

		for k := 0; k < d; k++ {
			m.Unlock()
		}
		if m.IsLocked() {
			return fmt.Errorf("IsLocked() = true after unwinding")
		}
	}
	return nil
}

func TestStress(t *testing.T) {
	m := New(Options{DevicePollInterval: time.Millisecond})
	const (
		workers = 8
		iters   = 300
	)
	var inside atomic.Int32
	shared := 0

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var yielder errgroup.Group
	yielder.Go(func() error {
		// Keep waking waiters so that most waits end by notification.
		for ctx.Err() == nil {
			m.Lock()
			m.SignalDeviceUpdate()
			m.YieldLockAndThread()
			m.Unlock()
			time.Sleep(100 * time.Microsecond)
		}
		return nil
	})

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		seed := int64(i + 1)
		g.Go(func() error {
			return stressWorker(m, seed, iters, &inside, &shared)
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("stress worker failed: %v", err)
	}
	cancel()
	yielder.Wait()

	if want := workers * iters; shared != want {
		t.Errorf("shared = %d, want %d", shared, want)
	}
	s := m.Stats()
	if s.Held || s.Threads != 0 {
		t.Errorf("manager not idle after stress: %+v", s)
	}
	if s.Violations != 0 {
		t.Errorf("Violations = %d, want 0", s.Violations)
	}
}
