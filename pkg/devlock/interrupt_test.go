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
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestInjectRunsHandlersInOrder(t *testing.T) {
	m := New(Options{})
	intr := m.NewInterrupts()

	var got []string
	for _, name := range []string{"first", "second"} {
		name := name
		if err := intr.Handle(syscall.SIGUSR1, func(os.Signal) {
			if m.IsLocked() {
				t.Errorf("%s: IsLocked() = true inside a handler", name)
			}
			if !m.IsInsideSignal() {
				t.Errorf("%s: IsInsideSignal() = false inside a handler", name)
			}
			got = append(got, name)
		}); err != nil {
			t.Fatalf("Handle() = %v", err)
		}
	}

	// Interrupts arrive while device code holds the lock.
	m.Lock()
	if !intr.Inject(syscall.SIGUSR1) {
		t.Fatalf("Inject() = false before Stop")
	}
	if !m.IsLocked() {
		t.Errorf("IsLocked() = false after the handler returned")
	}
	m.Unlock()

	if diff := cmp.Diff([]string{"first", "second"}, got); diff != "" {
		t.Errorf("handler order (-want +got):\n%s", diff)
	}

	// No handler for SIGUSR2: delivered, nothing runs.
	if !intr.Inject(syscall.SIGUSR2) {
		t.Errorf("Inject() of an unhandled signal = false")
	}

	intr.Stop()
	if intr.Inject(syscall.SIGUSR1) {
		t.Errorf("Inject() = true after Stop")
	}
	if len(got) != 2 {
		t.Errorf("handlers ran after Stop: %q", got)
	}
}

func TestInterruptWakesWaiter(t *testing.T) {
	m := New(Options{DevicePollInterval: 5 * time.Millisecond})
	intr := m.NewInterrupts()
	completed := false
	intr.Handle(syscall.SIGUSR1, func(os.Signal) {
		completed = true
		m.SignalDeviceUpdate()
	})

	done := make(chan struct{})
	go func() {
		m.WaitUntil(func() bool { return completed })
		close(done)
	}()

	// The device raises its completion interrupt from its own goroutine
	// while holding the lock, so completed is written under the lock.
	go func() {
		time.Sleep(10 * time.Millisecond)
		m.Lock()
		intr.Inject(syscall.SIGUSR1)
		m.Unlock()
	}()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("completion interrupt never woke the waiter")
	}
	intr.Stop()
}

func TestStopWaitsForHandlers(t *testing.T) {
	m := New(Options{})
	intr := m.NewInterrupts()
	entered := make(chan struct{})
	release := make(chan struct{})
	intr.Handle(syscall.SIGUSR1, func(os.Signal) {
		close(entered)
		<-release
	})

	go intr.Inject(syscall.SIGUSR1)
	<-entered

	stopped := make(chan struct{})
	go func() {
		intr.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatalf("Stop returned while a handler was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatalf("Stop did not return after the handler finished")
	}

	// Stop is idempotent.
	intr.Stop()
}

func TestInterruptsLifecycleErrors(t *testing.T) {
	m := New(Options{})
	intr := m.NewInterrupts()
	if err := intr.Start(); err == nil {
		t.Errorf("Start() with no handlers succeeded")
	}
	if err := intr.Handle(syscall.SIGUSR2, func(os.Signal) {}); err != nil {
		t.Fatalf("Handle() = %v", err)
	}
	if err := intr.Start(); err != nil {
		t.Fatalf("Start() = %v", err)
	}
	defer intr.Stop()
	if err := intr.Start(); err == nil {
		t.Errorf("second Start() succeeded")
	}
	if err := intr.Handle(syscall.SIGUSR2, func(os.Signal) {}); err == nil {
		t.Errorf("Handle() after Start succeeded")
	}
}
