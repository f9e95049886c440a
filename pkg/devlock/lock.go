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
	"fmt"
	"time"

	"acl.dev/devlock/pkg/goid"
)

// Lock acquires the lock for the calling goroutine. If the goroutine already
// holds it, Lock only increments the recursion count.
//
// Lock must not be called from inside a signal handler.
func (m *Manager) Lock() {
	t := m.thread()
	m.assertf(!t.insideSignal, "Lock", t.id, "called from a signal handler")
	if t.count == 0 {
		m.acquire(t)
	} else {
		m.stats.recursive.Add(1)
	}
	t.count++
}

// Unlock decrements the calling goroutine's recursion count and releases the
// lock when it reaches zero. Unlocking a lock the goroutine does not hold
// panics regardless of the devlock_noassert tag.
func (m *Manager) Unlock() {
	t := m.lookup()
	if t == nil || t.count <= 0 {
		m.fail("Unlock", goid.Get(), "unlock of a lock that is not held")
	}
	t.count--
	if t.count == 0 {
		m.release(t)
		m.forget(t)
	}
}

// IsLocked reports whether the calling goroutine holds the lock. It is
// always false inside a signal handler.
func (m *Manager) IsLocked() bool {
	t := m.lookup()
	return t != nil && t.count > 0
}

// SuspendLock fully releases the lock however deep the calling goroutine's
// recursion is, and returns the depth so that ResumeLock can restore it.
// It returns 0 and does nothing if the lock is not held.
func (m *Manager) SuspendLock() int {
	t := m.lookup()
	if t == nil || t.count == 0 {
		return 0
	}
	n := t.count
	t.count = 0
	m.release(t)
	m.forget(t)
	m.stats.suspends.Add(1)
	return n
}

// ResumeLock reacquires the lock to the depth n returned by SuspendLock. A
// depth of 0 leaves the lock untouched. The calling goroutine must not hold
// the lock.
func (m *Manager) ResumeLock(n int) {
	if n < 0 {
		m.fail("ResumeLock", goid.Get(), "negative depth %d", n)
	}
	if n == 0 {
		return
	}
	t := m.thread()
	m.assertf(t.count == 0, "ResumeLock", t.id, "lock already held at depth %d", t.count)
	m.assertf(!t.insideSignal, "ResumeLock", t.id, "called from a signal handler")
	m.acquire(t)
	t.count = n
}

// AssertLocked panics unless the calling goroutine holds the lock.
func (m *Manager) AssertLocked() {
	if assertionsEnabled && !m.IsLocked() {
		m.fail("AssertLocked", goid.Get(), "lock not held")
	}
}

// AssertUnlocked panics if the calling goroutine holds the lock.
func (m *Manager) AssertUnlocked() {
	if assertionsEnabled && m.IsLocked() {
		m.fail("AssertUnlocked", goid.Get(), "lock held")
	}
}

// AssertLockedOrInSignal panics unless the calling goroutine holds the lock
// or is running a signal handler.
func (m *Manager) AssertLockedOrInSignal() {
	if !assertionsEnabled {
		return
	}
	t := m.lookup()
	if t == nil || (t.count == 0 && !t.insideSignal) {
		m.fail("AssertLockedOrInSignal", goid.Get(), "lock not held outside a signal handler")
	}
}

// acquire takes the underlying mutex on behalf of t. It does not touch the
// recursion count.
func (m *Manager) acquire(t *threadState) {
	if !m.mu.TryLock() {
		m.stats.contended.Add(1)
		start := time.Now()
		m.mu.Lock()
		if d := time.Since(start); m.opts.SlowLockThreshold > 0 && d > m.opts.SlowLockThreshold {
			m.stats.slow.Add(1)
			m.slowLog.Warningf("Goroutine %d waited %v for the device lock", t.id, d)
		}
	}
	if prev := m.owner.Swap(t.id); prev != 0 {
		m.fatalf("acquire", fmt.Errorf("goroutine %d acquired the lock still owned by goroutine %d", t.id, prev))
	}
	m.stats.acquisitions.Add(1)
}

// release drops the underlying mutex held by t.
func (m *Manager) release(t *threadState) {
	if !m.owner.CompareAndSwap(t.id, 0) {
		m.fatalf("release", fmt.Errorf("goroutine %d released the lock owned by goroutine %d", t.id, m.owner.Load()))
	}
	m.mu.Unlock()
}
