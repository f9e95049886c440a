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

// Package goid reports the identity of the calling goroutine.
//
// Goroutine ids are what the devlock package uses as "thread" identity: the
// recursion count of the global lock belongs to the goroutine that took it.
package goid

import (
	"bytes"
	"fmt"
	"runtime"
	"strconv"
)

// prefix is the start of every traceback header, e.g.
// "goroutine 18 [running]:".
var prefix = []byte("goroutine ")

// Get returns the id of the calling goroutine. Ids are positive and are never
// reused while the process runs.
func Get() int64 {
	var stack [64]byte
	b := stack[:runtime.Stack(stack[:], false)]
	id, err := parse(b)
	if err != nil {
		panic(err)
	}
	return id
}

// parse extracts the goroutine id from a traceback header.
func parse(b []byte) (int64, error) {
	if !bytes.HasPrefix(b, prefix) {
		return 0, fmt.Errorf("malformed goroutine header %q", b)
	}
	b = b[len(prefix):]
	i := bytes.IndexByte(b, ' ')
	if i <= 0 {
		return 0, fmt.Errorf("malformed goroutine header %q", b)
	}
	id, err := strconv.ParseInt(string(b[:i]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed goroutine id %q: %w", b[:i], err)
	}
	return id, nil
}
