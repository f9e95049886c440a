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

//go:build !linux
// +build !linux

package devlock

import (
	"acl.dev/devlock/pkg/goid"
)

// SignalMasksSupported reports whether BlockSignals changes the OS thread's
// signal mask.
const SignalMasksSupported = false

type maskState struct {
	active bool
}

// BlockSignals only records that signals are blocked: this platform has no
// per-thread signal mask the runtime lets us change.
func (m *Manager) BlockSignals() {
	t := m.thread()
	if t.mask.active {
		m.assertf(false, "BlockSignals", t.id, "signals already blocked")
		return
	}
	t.mask.active = true
	m.stats.masks.Add(1)
}

// UnblockSignals undoes BlockSignals.
func (m *Manager) UnblockSignals() {
	t := m.lookup()
	if t == nil || !t.mask.active {
		m.assertf(false, "UnblockSignals", goid.Get(), "signals not blocked")
		return
	}
	t.mask.active = false
	m.forget(t)
}
