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
	"time"

	"acl.dev/devlock/pkg/goid"
	"acl.dev/devlock/pkg/sync"
)

// notifier broadcasts device updates. Each generation is a channel that is
// closed by the next broadcast. A waiter takes the current channel while it
// still holds the device lock, so a broadcast made under the lock after the
// waiter checked its condition cannot be missed.
type notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

// current returns the channel closed by the next broadcast.
func (n *notifier) current() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch == nil {
		n.ch = make(chan struct{})
	}
	return n.ch
}

// broadcast wakes every waiter of the current generation.
func (n *notifier) broadcast() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ch != nil {
		close(n.ch)
		n.ch = nil
	}
}

// WaitForDeviceUpdate releases the lock, sleeps until another goroutine calls
// SignalDeviceUpdate, and reacquires the lock to the depth the caller held it
// at. The caller must hold the lock.
//
// Wakeups may be spurious, so callers wait in a loop:
//
//	m.Lock()
//	for !done() {
//		m.WaitForDeviceUpdate()
//	}
//	m.Unlock()
//
// With Options.DevicePollInterval set, the wait also ends after that long.
func (m *Manager) WaitForDeviceUpdate() {
	t := m.lookup()
	if t == nil || t.count == 0 {
		m.assertf(false, "WaitForDeviceUpdate", goid.Get(), "lock not held")
		return
	}
	ch := m.notify.current()
	n := t.count
	t.count = 0
	m.release(t)
	m.stats.waits.Add(1)

	if d := m.opts.DevicePollInterval; d > 0 {
		timer := time.NewTimer(d)
		select {
		case <-ch:
			m.stats.wakeups.Add(1)
		case <-timer.C:
		}
		timer.Stop()
	} else {
		<-ch
		m.stats.wakeups.Add(1)
	}

	m.acquire(t)
	t.count = n
}

// SignalDeviceUpdate wakes every goroutine blocked in WaitForDeviceUpdate.
// The caller must hold the lock or be inside a signal handler.
func (m *Manager) SignalDeviceUpdate() {
	if assertionsEnabled {
		t := m.lookup()
		if t == nil || (t.count == 0 && !t.insideSignal) {
			m.fail("SignalDeviceUpdate", goid.Get(), "lock not held outside a signal handler")
		}
	}
	m.stats.signals.Add(1)
	m.notify.broadcast()
}

// WaitUntil takes the lock, waits for device updates until cond returns true
// and releases the lock. cond is always evaluated with the lock held.
func (m *Manager) WaitUntil(cond func() bool) {
	m.Lock()
	defer m.Unlock()
	for !cond() {
		m.WaitForDeviceUpdate()
	}
}
