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
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff"
)

func TestThreadID(t *testing.T) {
	id := ThreadID()
	if id <= 0 {
		t.Fatalf("ThreadID() = %d, want positive", id)
	}
	other := make(chan int64)
	go func() { other <- ThreadID() }()
	if o := <-other; o == id {
		t.Errorf("two goroutines share id %d", id)
	}
	if got, want := ProcessID(), os.Getpid(); got != want {
		t.Errorf("ProcessID() = %d, want %d", got, want)
	}
}

func TestYieldLockAndThread(t *testing.T) {
	m := New(Options{})
	m.Lock()
	m.Lock()

	var entered atomic.Bool
	go func() {
		m.Lock()
		entered.Store(true)
		m.Unlock()
	}()

	deadline := time.Now().Add(10 * time.Second)
	for !entered.Load() {
		if time.Now().After(deadline) {
			t.Fatalf("waiting goroutine never got the lock")
		}
		m.YieldLockAndThread()
		if got := depth(m); got != 2 {
			t.Fatalf("depth after yield = %d, want 2", got)
		}
	}
	m.Unlock()
	m.Unlock()
}

func TestYieldUnlocked(t *testing.T) {
	m := New(Options{})
	m.YieldLockAndThread()
	if m.IsLocked() {
		t.Errorf("YieldLockAndThread took the lock")
	}
}

func TestPoll(t *testing.T) {
	m := New(Options{})
	m.Lock()
	defer m.Unlock()

	// The flag is only written under the lock, so it can only change while
	// Poll has the lock suspended.
	flag := false
	go func() {
		m.Lock()
		flag = true
		m.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := m.Poll(ctx, func() bool {
		if !m.IsLocked() {
			t.Errorf("condition evaluated without the lock")
		}
		return flag
	}, backoff.NewConstantBackOff(time.Millisecond))
	if err != nil {
		t.Fatalf("Poll() = %v", err)
	}
	if got := depth(m); got != 1 {
		t.Errorf("depth after Poll = %d, want 1", got)
	}
}

func TestPollExhausted(t *testing.T) {
	m := New(Options{})
	err := m.Poll(context.Background(), func() bool { return false }, &backoff.StopBackOff{})
	if !errors.Is(err, ErrPollExhausted) {
		t.Errorf("Poll() = %v, want %v", err, ErrPollExhausted)
	}
}

func TestPollCancelled(t *testing.T) {
	m := New(Options{})
	m.Lock()
	defer m.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.Poll(ctx, func() bool { return false }, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Poll() = %v, want %v", err, context.Canceled)
	}
	if !m.IsLocked() {
		t.Errorf("lock not restored after a cancelled Poll")
	}
}

func TestCallbacks(t *testing.T) {
	m := New(Options{})
	cb := m.Callbacks()
	if cb.IsLocked() || cb.IsInsideSignal() {
		t.Fatalf("callbacks report state on an idle manager")
	}
	m.Lock()
	if !cb.IsLocked() {
		t.Errorf("IsLocked callback = false with the lock held")
	}
	m.RunSignalHandler(func() {
		if cb.IsLocked() {
			t.Errorf("IsLocked callback = true inside a handler")
		}
		if !cb.IsInsideSignal() {
			t.Errorf("IsInsideSignal callback = false inside a handler")
		}
	})
	m.Unlock()
}
