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

// Callbacks exposes the lock queries that lower layers need, as plain
// functions, so they can check the lock without importing this package.
type Callbacks struct {
	IsLocked       func() bool
	IsInsideSignal func() bool
}

// Callbacks returns the query callbacks bound to m.
func (m *Manager) Callbacks() Callbacks {
	return Callbacks{
		IsLocked:       m.IsLocked,
		IsInsideSignal: m.IsInsideSignal,
	}
}

// IsLockedCallback reports whether the calling goroutine holds the
// process-wide lock. Its signature matches what device backends register as
// their lock check.
func IsLockedCallback() bool {
	return Default().IsLocked()
}
