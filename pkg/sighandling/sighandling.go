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

// Package sighandling reads and changes the signal delivery mask of the
// calling OS thread.
//
// Every function here acts on the current thread only. Callers must pin the
// goroutine with runtime.LockOSThread for as long as a changed mask is in
// effect, and must restore the mask before unpinning.
//
// The package only exists on Linux. Other platforms have no per-thread
// signal mask this code can manage.
package sighandling

import (
	"fmt"
	"strings"
	"unsafe"

	"golang.org/x/sys/unix"
)

// wordBits is the number of signals held by one word of unix.Sigset_t.
const wordBits = int(unsafe.Sizeof(unix.Sigset_t{}.Val[0])) * 8

// maxSignal is the highest signal number the kernel delivers.
const maxSignal = 64

// SignalSet is a set of signals, as used by the thread signal mask.
type SignalSet struct {
	set unix.Sigset_t
}

// FullSet returns a set holding every signal.
func FullSet() SignalSet {
	var s SignalSet
	for i := range s.set.Val {
		// The word type differs between architectures.
		s.set.Val[i] = ^(s.set.Val[i] & 0)
	}
	return s
}

// MakeSet returns a set holding exactly sigs.
func MakeSet(sigs ...unix.Signal) SignalSet {
	var s SignalSet
	for _, sig := range sigs {
		s.Add(sig)
	}
	return s
}

func index(sig unix.Signal) (int, uint) {
	if sig < 1 || sig > maxSignal {
		panic(fmt.Sprintf("signal %d out of range", sig))
	}
	n := int(sig) - 1
	return n / wordBits, uint(n % wordBits)
}

// Add adds sig to the set.
func (s *SignalSet) Add(sig unix.Signal) {
	w, b := index(sig)
	s.set.Val[w] |= 1 << b
}

// Contains returns true if sig is in the set.
func (s SignalSet) Contains(sig unix.Signal) bool {
	w, b := index(sig)
	return uint64(s.set.Val[w])>>b&1 != 0
}

// Equal returns true if s and o hold the same signals. Only the signals the
// kernel delivers are compared.
func (s SignalSet) Equal(o SignalSet) bool {
	for sig := unix.Signal(1); sig <= maxSignal; sig++ {
		if s.Contains(sig) != o.Contains(sig) {
			return false
		}
	}
	return true
}

// String implements fmt.Stringer.String.
func (s SignalSet) String() string {
	var names []string
	for sig := unix.Signal(1); sig <= maxSignal; sig++ {
		if !s.Contains(sig) {
			continue
		}
		if name := unix.SignalName(sig); name != "" {
			names = append(names, name)
		} else {
			names = append(names, fmt.Sprintf("SIG%d", int(sig)))
		}
	}
	return "{" + strings.Join(names, ",") + "}"
}

// Current returns the signal mask of the calling thread.
func Current() (SignalSet, error) {
	var old SignalSet
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, nil, &old.set); err != nil {
		return SignalSet{}, fmt.Errorf("reading signal mask: %w", err)
	}
	return old, nil
}

// BlockAll blocks every signal on the calling thread and returns the mask
// that was in effect before. The kernel never blocks SIGKILL and SIGSTOP.
func BlockAll() (SignalSet, error) {
	full := FullSet()
	var old SignalSet
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &full.set, &old.set); err != nil {
		return SignalSet{}, fmt.Errorf("blocking signals: %w", err)
	}
	return old, nil
}

// SetMask replaces the signal mask of the calling thread with s.
func SetMask(s SignalSet) error {
	if err := unix.PthreadSigmask(unix.SIG_SETMASK, &s.set, nil); err != nil {
		return fmt.Errorf("restoring signal mask: %w", err)
	}
	return nil
}
