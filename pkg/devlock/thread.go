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

	"acl.dev/devlock/pkg/goid"
	"acl.dev/devlock/pkg/sync"
)

// ThreadID returns the id of the calling goroutine. This is the identity the
// lock is owned by, and the value logged in the goroutine column.
func ThreadID() int64 {
	return goid.Get()
}

// ProcessID returns the id of the host process.
func ProcessID() int {
	return os.Getpid()
}

// YieldLockAndThread releases the lock completely, yields the processor and
// reacquires the lock to the same depth. It is meant for polling loops that
// must let other goroutines make progress while re-checking state protected
// by the lock. It is a plain yield if the lock is not held.
func (m *Manager) YieldLockAndThread() {
	n := m.SuspendLock()
	m.stats.yields.Add(1)
	sync.Goyield()
	m.ResumeLock(n)
}
