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
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestLockUnlockCounting(t *testing.T) {
	m := New(Options{})
	if m.IsLocked() {
		t.Fatalf("IsLocked() = true on a new manager")
	}
	for i := 1; i <= 5; i++ {
		m.Lock()
		if !m.IsLocked() {
			t.Fatalf("IsLocked() = false at depth %d", i)
		}
		if got := depth(m); got != i {
			t.Fatalf("depth = %d, want %d", got, i)
		}
	}
	if got, want := m.Owner(), ThreadID(); got != want {
		t.Errorf("Owner() = %d, want %d", got, want)
	}
	for i := 5; i >= 1; i-- {
		if !m.IsLocked() {
			t.Fatalf("IsLocked() = false before unlock at depth %d", i)
		}
		m.Unlock()
	}
	if m.IsLocked() {
		t.Fatalf("IsLocked() = true after balanced unlocks")
	}
	if got := m.Owner(); got != 0 {
		t.Errorf("Owner() = %d after release, want 0", got)
	}

	s := m.Stats()
	if s.Acquisitions != 1+5 {
		// One acquisition for the lock itself, one per depth() call.
		t.Errorf("Acquisitions = %d, want 6", s.Acquisitions)
	}
	if s.Recursive != 4 {
		t.Errorf("Recursive = %d, want 4", s.Recursive)
	}
	if s.Threads != 0 {
		t.Errorf("Threads = %d after release, want 0", s.Threads)
	}
}

func TestIsLockedPerGoroutine(t *testing.T) {
	m := New(Options{})
	m.Lock()
	defer m.Unlock()

	done := make(chan bool)
	go func() {
		done <- m.IsLocked()
	}()
	if <-done {
		t.Errorf("IsLocked() = true on a goroutine that does not hold the lock")
	}
}

func TestUnlockUnheld(t *testing.T) {
	m := New(Options{})
	expectContractPanic(t, "Unlock", m.Unlock)

	m.Lock()
	m.Unlock()
	expectContractPanic(t, "Unlock", m.Unlock)

	if got := m.Stats().Violations; got != 2 {
		t.Errorf("Violations = %d, want 2", got)
	}
}

func TestUnlockFromOtherGoroutine(t *testing.T) {
	m := New(Options{})
	m.Lock()
	defer m.Unlock()

	errc := make(chan any)
	go func() {
		defer func() { errc <- recover() }()
		m.Unlock()
	}()
	if r := <-errc; r == nil {
		t.Fatalf("Unlock from a goroutine that does not hold the lock did not panic")
	}
	if !m.IsLocked() {
		t.Errorf("lock lost after a foreign Unlock")
	}
}

func TestSuspendResume(t *testing.T) {
	m := New(Options{})
	for d := 0; d <= 4; d++ {
		for i := 0; i < d; i++ {
			m.Lock()
		}
		n := m.SuspendLock()
		if n != d {
			t.Fatalf("SuspendLock() = %d, want %d", n, d)
		}
		if m.IsLocked() {
			t.Fatalf("IsLocked() = true after SuspendLock at depth %d", d)
		}
		if d > 0 && m.Owner() != 0 {
			t.Fatalf("Owner() = %d after SuspendLock, want 0", m.Owner())
		}
		m.ResumeLock(n)
		if got := m.IsLocked(); got != (d > 0) {
			t.Fatalf("IsLocked() = %t after ResumeLock(%d)", got, d)
		}
		for i := 0; i < d; i++ {
			m.Unlock()
		}
		if m.IsLocked() {
			t.Fatalf("IsLocked() = true after unwinding depth %d", d)
		}
	}
}

func TestSuspendLetsOthersIn(t *testing.T) {
	m := New(Options{})
	m.Lock()
	m.Lock()
	n := m.SuspendLock()

	entered := make(chan struct{})
	go func() {
		m.Lock()
		m.Unlock()
		close(entered)
	}()
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatalf("another goroutine could not take a suspended lock")
	}

	m.ResumeLock(n)
	m.Unlock()
	m.Unlock()
}

func TestResumeNegative(t *testing.T) {
	m := New(Options{})
	expectContractPanic(t, "ResumeLock", func() { m.ResumeLock(-1) })
}

func TestSlowLockWarning(t *testing.T) {
	m, r := newTestManager(Options{SlowLockThreshold: time.Millisecond})

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		m.Lock()
		close(held)
		<-release
		m.Unlock()
	}()
	<-held
	time.AfterFunc(20*time.Millisecond, func() { close(release) })

	m.Lock()
	m.Unlock()

	s := m.Stats()
	if s.Contended != 1 || s.Slow != 1 {
		t.Errorf("Contended, Slow = %d, %d, want 1, 1", s.Contended, s.Slow)
	}
	found := false
	for _, msg := range r.messages() {
		if strings.Contains(msg, "waited") && strings.HasPrefix(msg, "Warning") {
			found = true
		}
	}
	if !found {
		t.Errorf("no slow lock warning in %q", r.messages())
	}
}

func TestMutualExclusion(t *testing.T) {
	m := New(Options{})
	const (
		goroutines = 16
		iters      = 500
	)
	var inside atomic.Int32
	counter := 0

	var g errgroup.Group
	for i := 0; i < goroutines; i++ {
		seed := int64(i)
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed))
			for j := 0; j < iters; j++ {
				d := 1 + rng.Intn(4)
				for k := 0; k < d; k++ {
					m.Lock()
				}
				if n := inside.Add(1); n != 1 {
					t.Errorf("%d goroutines inside the critical section", n)
				}
				counter++
				inside.Add(-1)
				for k := 0; k < d; k++ {
					m.Unlock()
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Wait() = %v", err)
	}
	if want := goroutines * iters; counter != want {
		t.Errorf("counter = %d, want %d", counter, want)
	}
}
