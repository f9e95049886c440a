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

// Package devlock implements the global device lock of the host runtime.
//
// A single recursive lock serializes every access to shared device state:
// command queues, memory-mapped registers and completion tracking. The lock
// is owned by goroutines. Each goroutine has its own recursion count, so a
// helper can take the lock again without knowing whether its caller already
// holds it, and IsLocked answers for the calling goroutine only.
//
// Interrupt handlers never block on the lock. They bracket their body with
// SignalHandlerEntered and SignalHandlerExited (or use RunSignalHandler),
// which hides the recursion count of the goroutine they interrupted and
// restores it afterwards.
//
// Misuse of the API (unlocking without a lock, nesting handlers, waiting for
// a device update without the lock, ...) is a programming error. It panics
// with an error wrapping ErrContract. The checks other than the unlock
// balance are compiled out with the devlock_noassert build tag.
//
// Lock ordering: Manager.mu > Manager.tmu, notifier.mu. tmu and notifier.mu
// are leaves and are never held while blocking.
package devlock

import (
	"context"
	"sync/atomic"
	"time"

	"acl.dev/devlock/pkg/goid"
	"acl.dev/devlock/pkg/log"
	"acl.dev/devlock/pkg/sync"
	"acl.dev/devlock/pkg/tmutex"
)

// Options configures a Manager. The zero value is valid.
type Options struct {
	// DevicePollInterval, if non-zero, bounds how long WaitForDeviceUpdate
	// sleeps before returning with a spurious wakeup. It protects waiters
	// against notifications raised by interrupt handlers that race with
	// the waiter's condition check.
	DevicePollInterval time.Duration

	// SlowLockThreshold, if non-zero, makes Lock log a warning whenever
	// acquiring the lock took longer than this.
	SlowLockThreshold time.Duration

	// SlowLockLogInterval limits slow lock warnings to one per interval.
	// Defaults to one second.
	SlowLockLogInterval time.Duration

	// Logger receives the manager's diagnostics. Defaults to the global
	// logger.
	Logger log.Logger
}

// threadState is the per-goroutine view of the lock. Only the goroutine it
// belongs to reads or writes it.
type threadState struct {
	id int64

	// count is the recursion count visible to the goroutine.
	count int

	// insideSignal is set between SignalHandlerEntered and
	// SignalHandlerExited.
	insideSignal bool

	// savedCount holds count while insideSignal is set.
	savedCount int

	// mask is the signal mask snapshot taken by BlockSignals.
	mask maskState
}

func (t *threadState) idle() bool {
	return t.count == 0 && !t.insideSignal && !t.mask.active
}

// Manager is a recursive global lock together with its device update
// notifier. Most programs use the process-wide instance returned by Default;
// independent instances are useful in tests.
type Manager struct {
	opts    Options
	logger  log.Logger
	slowLog log.Logger

	// mu is the underlying mutex. It is held while any goroutine has a
	// non-zero recursion count, or is inside WaitForDeviceUpdate's
	// reacquisition.
	mu *tmutex.Mutex

	// owner is the goroutine id holding mu, or 0.
	owner atomic.Int64

	// tmu protects threads.
	tmu sync.Mutex

	// threads holds the state of every goroutine that is not idle.
	threads map[int64]*threadState

	notify notifier
	stats  counters
}

// New returns a new, unlocked Manager.
func New(opts Options) *Manager {
	if opts.SlowLockLogInterval == 0 {
		opts.SlowLockLogInterval = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Log()
	}
	return &Manager{
		opts:    opts,
		logger:  logger,
		slowLog: log.RateLimitedLogger(logger, opts.SlowLockLogInterval),
		mu:      tmutex.New(),
		threads: make(map[int64]*threadState),
	}
}

// thread returns the state of the calling goroutine, creating it if needed.
func (m *Manager) thread() *threadState {
	id := goid.Get()
	m.tmu.Lock()
	defer m.tmu.Unlock()
	t, ok := m.threads[id]
	if !ok {
		t = &threadState{id: id}
		m.threads[id] = t
	}
	return t
}

// lookup returns the state of the calling goroutine, or nil if it is idle.
func (m *Manager) lookup() *threadState {
	id := goid.Get()
	m.tmu.Lock()
	defer m.tmu.Unlock()
	return m.threads[id]
}

// forget drops t if it has returned to the idle state.
func (m *Manager) forget(t *threadState) {
	if !t.idle() {
		return
	}
	m.tmu.Lock()
	delete(m.threads, t.id)
	m.tmu.Unlock()
}

// Owner returns the id of the goroutine holding the lock, or 0 if it is free.
// The answer may be stale by the time the caller looks at it.
func (m *Manager) Owner() int64 {
	return m.owner.Load()
}

// contextID is the manager's type for context.Context.Value keys.
type contextID int

const (
	// CtxManager is a Context.Value key for a *Manager.
	CtxManager contextID = iota
)

// WithManager returns a copy of ctx carrying m.
func WithManager(ctx context.Context, m *Manager) context.Context {
	return context.WithValue(ctx, CtxManager, m)
}

// FromContext returns the Manager carried by ctx, or Default if there is none.
func FromContext(ctx context.Context) *Manager {
	if m, ok := ctx.Value(CtxManager).(*Manager); ok && m != nil {
		return m
	}
	return Default()
}

var (
	// defaultMu serializes Init and Shutdown.
	defaultMu sync.Mutex

	// defaultManager is the process-wide manager.
	defaultManager atomic.Pointer[Manager]
)

// Init creates the process-wide manager with opts and registers its metrics.
// It replaces a previous instance, which must not be in use.
func Init(opts Options) *Manager {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	m := New(opts)
	if old := defaultManager.Swap(m); old != nil {
		old.warnIfBusy("Init")
	}
	registerMetrics()
	m.logger.Debugf("Device lock initialized: poll interval %v, slow lock threshold %v", opts.DevicePollInterval, opts.SlowLockThreshold)
	return m
}

// Default returns the process-wide manager, creating it with default options
// on first use.
func Default() *Manager {
	if m := defaultManager.Load(); m != nil {
		return m
	}
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if m := defaultManager.Load(); m != nil {
		return m
	}
	m := New(Options{})
	defaultManager.Store(m)
	registerMetrics()
	return m
}

// Shutdown tears down the process-wide manager. A later Default or Init
// creates a fresh one.
func Shutdown() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if old := defaultManager.Swap(nil); old != nil {
		old.warnIfBusy("Shutdown")
	}
}

func (m *Manager) warnIfBusy(op string) {
	if owner := m.Owner(); owner != 0 {
		m.logger.Warningf("%s: device lock still held by goroutine %d", op, owner)
	}
}
