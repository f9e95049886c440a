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

package sighandling

import (
	"runtime"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/sys/unix"
)

var setComparer = cmp.Comparer(func(a, b SignalSet) bool { return a.Equal(b) })

func TestSetOps(t *testing.T) {
	s := MakeSet(unix.SIGUSR1, unix.SIGTERM)
	if !s.Contains(unix.SIGUSR1) || !s.Contains(unix.SIGTERM) {
		t.Errorf("set %v is missing members", s)
	}
	if s.Contains(unix.SIGUSR2) {
		t.Errorf("set %v contains SIGUSR2", s)
	}
	if got, want := s.String(), "{SIGUSR1,SIGTERM}"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if s.Equal(MakeSet(unix.SIGUSR1)) {
		t.Errorf("%v compares equal to {SIGUSR1}", s)
	}
	full := FullSet()
	for sig := unix.Signal(1); sig <= maxSignal; sig++ {
		if !full.Contains(sig) {
			t.Errorf("FullSet() is missing signal %d", sig)
		}
	}
}

func TestBlockAllRestores(t *testing.T) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	// Start from a mask that is not empty, so restoring to "nothing
	// blocked" would be detected.
	orig, err := Current()
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	defer SetMask(orig)
	extra := MakeSet(unix.SIGUSR2)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &extra.set, nil); err != nil {
		t.Fatalf("PthreadSigmask failed: %v", err)
	}

	before, err := Current()
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	if !before.Contains(unix.SIGUSR2) {
		t.Fatalf("mask %v does not contain SIGUSR2", before)
	}

	old, err := BlockAll()
	if err != nil {
		t.Fatalf("BlockAll() failed: %v", err)
	}
	if diff := cmp.Diff(before, old, setComparer); diff != "" {
		t.Errorf("BlockAll returned a different previous mask (-want +got):\n%s", diff)
	}

	blocked, err := Current()
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	for _, sig := range []unix.Signal{unix.SIGUSR1, unix.SIGTERM, unix.SIGINT, unix.SIGCHLD} {
		if !blocked.Contains(sig) {
			t.Errorf("signal %v not blocked after BlockAll: %v", sig, blocked)
		}
	}

	if err := SetMask(old); err != nil {
		t.Fatalf("SetMask() failed: %v", err)
	}
	after, err := Current()
	if err != nil {
		t.Fatalf("Current() failed: %v", err)
	}
	if diff := cmp.Diff(before, after, setComparer); diff != "" {
		t.Errorf("mask not restored (-want +got):\n%s", diff)
	}
}
