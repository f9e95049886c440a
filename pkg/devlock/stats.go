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
	"errors"
	"sync/atomic"

	"acl.dev/devlock/pkg/log"
	"acl.dev/devlock/pkg/metric"
	"acl.dev/devlock/pkg/sync"
)

// counters are the manager's event counters.
type counters struct {
	acquisitions  atomic.Uint64
	recursive     atomic.Uint64
	contended     atomic.Uint64
	slow          atomic.Uint64
	suspends      atomic.Uint64
	yields        atomic.Uint64
	waits         atomic.Uint64
	wakeups       atomic.Uint64
	signals       atomic.Uint64
	signalEntries atomic.Uint64
	masks         atomic.Uint64
	violations    atomic.Uint64
}

// Stats is a snapshot of a manager's activity.
type Stats struct {
	// Acquisitions counts acquisitions of the underlying mutex.
	Acquisitions uint64

	// Recursive counts Lock calls that only incremented the count.
	Recursive uint64

	// Contended counts acquisitions that had to block.
	Contended uint64

	// Slow counts acquisitions that exceeded Options.SlowLockThreshold.
	Slow uint64

	Suspends      uint64
	Yields        uint64
	Waits         uint64
	Wakeups       uint64
	Signals       uint64
	SignalEntries uint64
	Masks         uint64
	Violations    uint64

	// Threads is the number of goroutines with non-idle lock state.
	Threads int

	// Waiters is the number of goroutines blocked acquiring the mutex.
	Waiters int

	// Held is whether some goroutine holds the mutex.
	Held bool
}

// Stats returns a snapshot of m's counters.
func (m *Manager) Stats() Stats {
	m.tmu.Lock()
	threads := len(m.threads)
	m.tmu.Unlock()
	return Stats{
		Acquisitions:  m.stats.acquisitions.Load(),
		Recursive:     m.stats.recursive.Load(),
		Contended:     m.stats.contended.Load(),
		Slow:          m.stats.slow.Load(),
		Suspends:      m.stats.suspends.Load(),
		Yields:        m.stats.yields.Load(),
		Waits:         m.stats.waits.Load(),
		Wakeups:       m.stats.wakeups.Load(),
		Signals:       m.stats.signals.Load(),
		SignalEntries: m.stats.signalEntries.Load(),
		Masks:         m.stats.masks.Load(),
		Violations:    m.stats.violations.Load(),
		Threads:       threads,
		Waiters:       m.mu.Waiters(),
		Held:          m.mu.Held(),
	}
}

var registerOnce sync.Once

// violationOps are the operations that can report a contract violation.
var violationOps = []string{
	"AssertLocked",
	"AssertLockedOrInSignal",
	"AssertUnlocked",
	"BlockSignals",
	"Lock",
	"ResumeLock",
	"SignalDeviceUpdate",
	"SignalHandlerEntered",
	"SignalHandlerExited",
	"UnblockSignals",
	"Unlock",
	"WaitForDeviceUpdate",
}

// violationsByOp counts the contract violations of every manager in the
// process, by operation. It is nil until metrics are registered.
var violationsByOp atomic.Pointer[metric.Uint64Metric]

// registerMetrics exports the process-wide manager's counters. The metrics
// read whichever manager is current when they are sampled.
func registerMetrics() {
	registerOnce.Do(func() {
		cumulative := []struct {
			name, desc string
			get        func(Stats) uint64
		}{
			{"/devlock/acquisitions", "Number of acquisitions of the device lock.", func(s Stats) uint64 { return s.Acquisitions }},
			{"/devlock/recursive", "Number of recursive device lock acquisitions.", func(s Stats) uint64 { return s.Recursive }},
			{"/devlock/contended", "Number of device lock acquisitions that blocked.", func(s Stats) uint64 { return s.Contended }},
			{"/devlock/slow", "Number of device lock acquisitions above the slow lock threshold.", func(s Stats) uint64 { return s.Slow }},
			{"/devlock/suspends", "Number of device lock suspensions.", func(s Stats) uint64 { return s.Suspends }},
			{"/devlock/yields", "Number of lock yields.", func(s Stats) uint64 { return s.Yields }},
			{"/devlock/device_waits", "Number of waits for a device update.", func(s Stats) uint64 { return s.Waits }},
			{"/devlock/device_wakeups", "Number of device update waits ended by a notification.", func(s Stats) uint64 { return s.Wakeups }},
			{"/devlock/device_signals", "Number of device update notifications.", func(s Stats) uint64 { return s.Signals }},
			{"/devlock/signal_handlers", "Number of signal handler entries.", func(s Stats) uint64 { return s.SignalEntries }},
			{"/devlock/signal_masks", "Number of BlockSignals calls.", func(s Stats) uint64 { return s.Masks }},
		}
		var errs []error
		for _, c := range cumulative {
			get := c.get
			errs = append(errs, metric.RegisterCustomUint64Metric(c.name, true, c.desc, func(...string) uint64 {
				return get(currentStats())
			}))
		}
		v, err := metric.NewUint64Metric("/devlock/violations", "Number of lock contract violations.", metric.NewField("op", violationOps...))
		if err == nil {
			violationsByOp.Store(v)
		}
		errs = append(errs, err,
			metric.RegisterCustomUint64Metric("/devlock/waiters", false, "Number of goroutines waiting for the device lock.", func(...string) uint64 {
				return uint64(currentStats().Waiters)
			}),
			metric.RegisterCustomUint64Metric("/devlock/threads", false, "Number of goroutines with device lock state.", func(...string) uint64 {
				return uint64(currentStats().Threads)
			}))
		// Registration only fails if metrics were frozen before the first
		// manager was created. The lock works without them.
		if err := errors.Join(errs...); err != nil {
			log.Warningf("Device lock metrics not exported: %v", err)
		}
	})
}

// currentStats returns the process-wide manager's stats, or zeroes after
// Shutdown.
func currentStats() Stats {
	if m := defaultManager.Load(); m != nil {
		return m.Stats()
	}
	return Stats{}
}
