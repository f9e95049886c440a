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

// The functions below operate on the process-wide manager returned by
// Default.

// Lock calls Default().Lock.
func Lock() { Default().Lock() }

// Unlock calls Default().Unlock.
func Unlock() { Default().Unlock() }

// IsLocked calls Default().IsLocked.
func IsLocked() bool { return Default().IsLocked() }

// SuspendLock calls Default().SuspendLock.
func SuspendLock() int { return Default().SuspendLock() }

// ResumeLock calls Default().ResumeLock.
func ResumeLock(n int) { Default().ResumeLock(n) }

// AssertLocked calls Default().AssertLocked.
func AssertLocked() { Default().AssertLocked() }

// AssertUnlocked calls Default().AssertUnlocked.
func AssertUnlocked() { Default().AssertUnlocked() }

// AssertLockedOrInSignal calls Default().AssertLockedOrInSignal.
func AssertLockedOrInSignal() { Default().AssertLockedOrInSignal() }

// SignalHandlerEntered calls Default().SignalHandlerEntered.
func SignalHandlerEntered() { Default().SignalHandlerEntered() }

// SignalHandlerExited calls Default().SignalHandlerExited.
func SignalHandlerExited() { Default().SignalHandlerExited() }

// IsInsideSignal calls Default().IsInsideSignal.
func IsInsideSignal() bool { return Default().IsInsideSignal() }

// BlockSignals calls Default().BlockSignals.
func BlockSignals() { Default().BlockSignals() }

// UnblockSignals calls Default().UnblockSignals.
func UnblockSignals() { Default().UnblockSignals() }

// WaitForDeviceUpdate calls Default().WaitForDeviceUpdate.
func WaitForDeviceUpdate() { Default().WaitForDeviceUpdate() }

// SignalDeviceUpdate calls Default().SignalDeviceUpdate.
func SignalDeviceUpdate() { Default().SignalDeviceUpdate() }

// YieldLockAndThread calls Default().YieldLockAndThread.
func YieldLockAndThread() { Default().YieldLockAndThread() }
