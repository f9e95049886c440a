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

	"acl.dev/devlock/pkg/log"
)

// ErrContract is wrapped by every error the Manager panics with when its API
// is misused.
var ErrContract = errors.New("devlock: contract violation")

// ContractError describes a misuse of the lock API.
type ContractError struct {
	// Op is the operation that detected the misuse.
	Op string

	// Thread is the goroutine that made the call.
	Thread int64

	// Msg describes what went wrong.
	Msg string
}

// Error implements error.Error.
func (e *ContractError) Error() string {
	return fmt.Sprintf("devlock: %s on goroutine %d: %s", e.Op, e.Thread, e.Msg)
}

// Unwrap returns ErrContract.
func (e *ContractError) Unwrap() error {
	return ErrContract
}

// fail reports a contract violation unconditionally. It logs the caller's
// stack and panics.
func (m *Manager) fail(op string, thread int64, format string, v ...any) {
	err := &ContractError{Op: op, Thread: thread, Msg: fmt.Sprintf(format, v...)}
	m.stats.violations.Add(1)
	if v := violationsByOp.Load(); v != nil {
		v.Increment(op)
	}
	log.TracebackTo(m.logger, "%v", err)
	panic(err)
}

// assertf is like fail, but is a no-op when assertions are compiled out.
func (m *Manager) assertf(cond bool, op string, thread int64, format string, v ...any) {
	if assertionsEnabled && !cond {
		m.fail(op, thread, format, v...)
	}
}

// fatalf panics on a failure of the host OS or of the manager's own
// bookkeeping. These are not recoverable.
func (m *Manager) fatalf(op string, err error) {
	err = fmt.Errorf("devlock: %s: %w", op, err)
	log.TracebackTo(m.logger, "%v", err)
	panic(err)
}
