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
	"fmt"
	"sync"
	"testing"
	"time"

	"acl.dev/devlock/pkg/log"
)

// recorder is a log.Emitter that keeps formatted messages.
type recorder struct {
	mu   sync.Mutex
	msgs []string
}

func (r *recorder) Emit(_ int, level log.Level, _ time.Time, format string, v ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, level.String()+": "+fmt.Sprintf(format, v...))
}

func (r *recorder) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.msgs...)
}

// newTestManager returns a manager that logs to a recorder.
func newTestManager(opts Options) (*Manager, *recorder) {
	r := &recorder{}
	opts.Logger = &log.BasicLogger{Level: log.Debug, Emitter: r}
	return New(opts), r
}

// expectContractPanic runs fn and fails the test unless it panics with a
// ContractError for op.
func expectContractPanic(t *testing.T, op string, fn func()) {
	t.Helper()
	defer func() {
		t.Helper()
		r := recover()
		if r == nil {
			t.Fatalf("%s did not panic", op)
		}
		err, ok := r.(error)
		if !ok {
			t.Fatalf("%s panicked with %v, want an error", op, r)
		}
		if !errors.Is(err, ErrContract) {
			t.Fatalf("%s panicked with %v, want ErrContract", op, err)
		}
		var ce *ContractError
		if !errors.As(err, &ce) || ce.Op != op {
			t.Fatalf("%s panicked with %v, want a ContractError for %s", op, err, op)
		}
		if ce.Thread != ThreadID() {
			t.Errorf("ContractError.Thread = %d, want %d", ce.Thread, ThreadID())
		}
	}()
	fn()
}

// depth returns the calling goroutine's recursion count without changing it.
func depth(m *Manager) int {
	n := m.SuspendLock()
	m.ResumeLock(n)
	return n
}
