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

// Package gate provides a primitive that lets interrupt delivery be shut down
// while handlers may still be running.
package gate

import (
	"sync/atomic"
)

const closedBit = 1 << 31

// Gate admits any number of goroutines until it is closed. Entering never
// blocks: it either succeeds immediately or fails because the gate is closed.
// Close blocks until every goroutine that entered has left.
//
// Users:
//
//	if !g.Enter() {
//		// Interrupts are shut down.
//		return
//	}
//	defer g.Leave()
//	deliver(sig)
//
// Closer:
//
//	g.Close()
//	// No handler is running and none will start.
//
// The zero value is an open gate. Only one goroutine may call Close.
type Gate struct {
	users atomic.Uint32
	done  chan struct{}
}

// Enter tries to enter the gate. On success the caller must eventually call
// Leave.
func (g *Gate) Enter() bool {
	if g == nil {
		return false
	}
	for {
		v := g.users.Load()
		if v&closedBit != 0 {
			return false
		}
		if g.users.CompareAndSwap(v, v+1) {
			return true
		}
	}
}

// Leave leaves the gate after a successful Enter. The last goroutine to leave
// a closed gate releases the closer.
func (g *Gate) Leave() {
	v := g.users.Add(^uint32(0))
	if (v+1)&^closedBit == 0 {
		panic("gate: leave with zero users")
	}
	if v == closedBit {
		close(g.done)
	}
}

// Close stops new goroutines from entering and waits for those inside to
// leave.
func (g *Gate) Close() {
	// done must exist before the closed bit is visible to Leave.
	if g.done == nil {
		g.done = make(chan struct{})
	}
	if old := g.users.Or(closedBit); old&^closedBit != 0 {
		<-g.done
	}
}

// Closed reports whether Close has been called.
func (g *Gate) Closed() bool {
	return g.users.Load()&closedBit != 0
}
