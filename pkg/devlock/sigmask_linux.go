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

//go:build linux
// +build linux

package devlock

import (
	"runtime"

	"acl.dev/devlock/pkg/goid"
	"acl.dev/devlock/pkg/sighandling"
)

// SignalMasksSupported reports whether BlockSignals changes the OS thread's
// signal mask.
const SignalMasksSupported = true

// maskState is the mask snapshot of a goroutine that called BlockSignals.
type maskState struct {
	active bool
	saved  sighandling.SignalSet
}

// BlockSignals blocks every signal on the OS thread running the calling
// goroutine and wires the goroutine to that thread until UnblockSignals.
// The previous mask is saved for UnblockSignals.
//
// Calls do not nest.
func (m *Manager) BlockSignals() {
	runtime.LockOSThread()
	t := m.thread()
	if t.mask.active {
		runtime.UnlockOSThread()
		m.assertf(false, "BlockSignals", t.id, "signals already blocked")
		return
	}
	old, err := sighandling.BlockAll()
	if err != nil {
		runtime.UnlockOSThread()
		m.forget(t)
		m.fatalf("BlockSignals", err)
	}
	t.mask = maskState{active: true, saved: old}
	m.stats.masks.Add(1)
}

// UnblockSignals restores the mask saved by BlockSignals and releases the OS
// thread.
func (m *Manager) UnblockSignals() {
	t := m.lookup()
	if t == nil || !t.mask.active {
		m.assertf(false, "UnblockSignals", goid.Get(), "signals not blocked")
		return
	}
	if err := sighandling.SetMask(t.mask.saved); err != nil {
		m.fatalf("UnblockSignals", err)
	}
	t.mask = maskState{}
	m.forget(t)
	runtime.UnlockOSThread()
}
