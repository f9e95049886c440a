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
	"acl.dev/devlock/pkg/goid"
)

// SignalHandlerEntered marks the calling goroutine as running an interrupt
// handler. The goroutine's recursion count is saved and reads as zero until
// SignalHandlerExited, so that code in the handler which checks IsLocked
// behaves as if the lock were not held. The underlying mutex is left alone:
// if the interrupted code held it, it stays held.
//
// Handlers do not nest.
func (m *Manager) SignalHandlerEntered() {
	t := m.thread()
	m.assertf(!t.insideSignal, "SignalHandlerEntered", t.id, "already inside a signal handler")
	t.insideSignal = true
	t.savedCount = t.count
	t.count = 0
	m.stats.signalEntries.Add(1)
}

// SignalHandlerExited undoes SignalHandlerEntered, restoring the recursion
// count the goroutine had on entry.
func (m *Manager) SignalHandlerExited() {
	t := m.lookup()
	if t == nil || !t.insideSignal {
		m.assertf(false, "SignalHandlerExited", goid.Get(), "not inside a signal handler")
		return
	}
	m.assertf(t.count == 0, "SignalHandlerExited", t.id, "handler left the lock held at depth %d", t.count)
	t.insideSignal = false
	t.count = t.savedCount
	t.savedCount = 0
	m.forget(t)
}

// IsInsideSignal reports whether the calling goroutine is between
// SignalHandlerEntered and SignalHandlerExited.
func (m *Manager) IsInsideSignal() bool {
	t := m.lookup()
	return t != nil && t.insideSignal
}

// SignalGuard is returned by EnterSignal. Its Exit method leaves the handler.
type SignalGuard struct {
	m      *Manager
	exited bool
}

// EnterSignal calls SignalHandlerEntered and returns a guard whose Exit calls
// SignalHandlerExited:
//
//	defer m.EnterSignal().Exit()
func (m *Manager) EnterSignal() *SignalGuard {
	m.SignalHandlerEntered()
	return &SignalGuard{m: m}
}

// Exit leaves the handler. Calls after the first are no-ops.
func (g *SignalGuard) Exit() {
	if g.exited {
		return
	}
	g.exited = true
	g.m.SignalHandlerExited()
}

// RunSignalHandler runs fn on the calling goroutine as an interrupt handler.
// The handler state is restored even if fn panics.
func (m *Manager) RunSignalHandler(fn func()) {
	defer m.EnterSignal().Exit()
	fn()
}
