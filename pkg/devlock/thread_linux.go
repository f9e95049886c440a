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

package devlock

import (
	"golang.org/x/sys/unix"
)

// OSThreadID returns the id of the OS thread currently running the calling
// goroutine. Unless the goroutine is wired with runtime.LockOSThread, the
// value may change at any time.
func OSThreadID() int {
	return unix.Gettid()
}
