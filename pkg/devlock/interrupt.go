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
	"os"
	"os/signal"

	"acl.dev/devlock/pkg/gate"
	"acl.dev/devlock/pkg/sync"
)

// Handler handles an interrupt. It runs as a signal handler of the manager:
// IsLocked is false, IsInsideSignal is true, and it may call
// SignalDeviceUpdate but must not call Lock.
type Handler func(sig os.Signal)

// Interrupts routes host signals to handlers that run under the manager's
// signal state.
//
// Handlers are registered with Handle before Start. Start subscribes to the
// registered signals and delivers each one on a dispatcher goroutine. Inject
// delivers a signal synchronously on the calling goroutine, which is how
// simulated devices raise interrupts. Stop unsubscribes and waits for every
// running handler to return.
type Interrupts struct {
	m *Manager

	// mu protects the fields below.
	mu       sync.Mutex
	handlers map[os.Signal][]Handler
	started  bool
	stopped  bool
	ch       chan os.Signal
	stop     chan struct{}
	exited   chan struct{}

	// gate is entered by every delivery.
	gate gate.Gate
}

// NewInterrupts returns an interrupt router bound to m.
func (m *Manager) NewInterrupts() *Interrupts {
	return &Interrupts{
		m:        m,
		handlers: make(map[os.Signal][]Handler),
	}
}

// Handle registers h for sig. Handlers for the same signal run in
// registration order.
func (i *Interrupts) Handle(sig os.Signal, h Handler) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started || i.stopped {
		return errors.New("devlock: Handle after Start")
	}
	i.handlers[sig] = append(i.handlers[sig], h)
	return nil
}

// Start subscribes to every signal with a handler and starts delivering them.
func (i *Interrupts) Start() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.started || i.stopped {
		return errors.New("devlock: interrupts already started")
	}
	if len(i.handlers) == 0 {
		return errors.New("devlock: no interrupt handlers registered")
	}
	sigs := make([]os.Signal, 0, len(i.handlers))
	for sig := range i.handlers {
		sigs = append(sigs, sig)
	}
	i.ch = make(chan os.Signal, len(sigs))
	i.stop = make(chan struct{})
	i.exited = make(chan struct{})
	signal.Notify(i.ch, sigs...)
	i.started = true
	go i.dispatch()
	return nil
}

func (i *Interrupts) dispatch() {
	defer close(i.exited)
	for {
		select {
		case sig := <-i.ch:
			i.Inject(sig)
		case <-i.stop:
			return
		}
	}
}

// Inject delivers sig to its handlers on the calling goroutine. It returns
// false if delivery has been stopped.
func (i *Interrupts) Inject(sig os.Signal) bool {
	if !i.gate.Enter() {
		return false
	}
	defer i.gate.Leave()
	i.mu.Lock()
	hs := i.handlers[sig]
	i.mu.Unlock()
	if len(hs) == 0 {
		return true
	}
	i.m.RunSignalHandler(func() {
		for _, h := range hs {
			h(sig)
		}
	})
	return true
}

// Stop unsubscribes from signals and waits for running handlers to return.
// No handler runs after Stop returns. Stop may be called more than once, but
// not from a handler.
func (i *Interrupts) Stop() {
	i.mu.Lock()
	if i.stopped {
		i.mu.Unlock()
		return
	}
	i.stopped = true
	started := i.started
	i.mu.Unlock()

	if started {
		signal.Stop(i.ch)
		close(i.stop)
		<-i.exited
	}
	i.gate.Close()
}
