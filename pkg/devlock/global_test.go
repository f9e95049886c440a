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
	"strings"
	"testing"
	"time"

	"acl.dev/devlock/pkg/metric"
)

func TestDefaultLifecycle(t *testing.T) {
	defer Shutdown()

	m := Init(Options{DevicePollInterval: time.Millisecond})
	if Default() != m {
		t.Fatalf("Default() is not the manager returned by Init")
	}

	Lock()
	if !IsLocked() || !IsLockedCallback() || !m.IsLocked() {
		t.Errorf("package functions disagree about the lock state")
	}
	n := SuspendLock()
	if n != 1 || IsLocked() {
		t.Errorf("SuspendLock() = %d, IsLocked() = %t, want 1, false", n, IsLocked())
	}
	ResumeLock(n)
	AssertLocked()
	SignalDeviceUpdate()
	WaitForDeviceUpdate()
	YieldLockAndThread()
	Unlock()
	AssertUnlocked()

	SignalHandlerEntered()
	if !IsInsideSignal() {
		t.Errorf("IsInsideSignal() = false")
	}
	SignalHandlerExited()

	BlockSignals()
	UnblockSignals()

	Shutdown()
	if d := Default(); d == m {
		t.Errorf("Default() returned the manager after Shutdown")
	}
}

func TestFromContext(t *testing.T) {
	defer Shutdown()

	m := New(Options{})
	if got := FromContext(WithManager(context.Background(), m)); got != m {
		t.Errorf("FromContext() did not return the carried manager")
	}
	if got := FromContext(context.Background()); got != Default() {
		t.Errorf("FromContext() without a manager is not Default()")
	}
}

func TestMetrics(t *testing.T) {
	defer Shutdown()

	m := Init(Options{})
	m.Lock()
	m.Lock()
	m.Unlock()
	m.Unlock()

	values := make(map[string]uint64)
	for _, s := range metric.Values() {
		if strings.HasPrefix(s.Name, "/devlock/") {
			values[s.Name] = s.Value
		}
	}
	if got := values["/devlock/acquisitions"]; got != 1 {
		t.Errorf("/devlock/acquisitions = %d, want 1", got)
	}
	if got := values["/devlock/recursive"]; got != 1 {
		t.Errorf("/devlock/recursive = %d, want 1", got)
	}
	if _, ok := values["/devlock/waiters"]; !ok {
		t.Errorf("/devlock/waiters not exported: %v", values)
	}
}

// violations returns the /devlock/violations sample for op.
func violations(t *testing.T, op string) uint64 {
	t.Helper()
	for _, s := range metric.Values() {
		if s.Name == "/devlock/violations" && s.FieldValue == op {
			return s.Value
		}
	}
	t.Fatalf("/devlock/violations{op=%q} not exported", op)
	return 0
}

func TestViolationMetricByOp(t *testing.T) {
	defer Shutdown()

	m := Init(Options{})
	unlocks := violations(t, "Unlock")
	resumes := violations(t, "ResumeLock")

	expectContractPanic(t, "Unlock", m.Unlock)
	expectContractPanic(t, "Unlock", m.Unlock)

	if got := violations(t, "Unlock") - unlocks; got != 2 {
		t.Errorf("/devlock/violations{op=Unlock} grew by %d, want 2", got)
	}
	if got := violations(t, "ResumeLock") - resumes; got != 0 {
		t.Errorf("/devlock/violations{op=ResumeLock} grew by %d, want 0", got)
	}
	if got := m.Stats().Violations; got != 2 {
		t.Errorf("Stats().Violations = %d, want 2", got)
	}
}

func TestViolationOpsAreExported(t *testing.T) {
	defer Shutdown()
	Default()

	got := make(map[string]bool)
	for _, s := range metric.Values() {
		if s.Name == "/devlock/violations" {
			got[s.FieldValue] = true
		}
	}
	for _, op := range violationOps {
		if !got[op] {
			t.Errorf("/devlock/violations has no sample for %q", op)
		}
	}
}
