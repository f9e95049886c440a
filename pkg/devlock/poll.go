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
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"

	"acl.dev/devlock/pkg/sync"
)

// ErrPollExhausted is returned by Poll when the backoff policy gives up.
var ErrPollExhausted = errors.New("devlock: poll gave up")

// Poll re-evaluates cond until it returns true. Between attempts the lock is
// released, the goroutine sleeps for the delay chosen by b and yields, and the
// lock is reacquired to the same depth. cond therefore runs with the lock
// held if and only if the caller holds it.
//
// A nil b yields between attempts without sleeping. Poll returns ctx.Err()
// if ctx is cancelled and ErrPollExhausted if b returns backoff.Stop.
func (m *Manager) Poll(ctx context.Context, cond func() bool, b backoff.BackOff) error {
	if b == nil {
		b = &backoff.ZeroBackOff{}
	}
	b.Reset()
	for {
		if cond() {
			return nil
		}
		d := b.NextBackOff()
		if d == backoff.Stop {
			return ErrPollExhausted
		}
		if err := m.pause(ctx, d); err != nil {
			return err
		}
	}
}

// pause sleeps for d with the lock suspended.
func (m *Manager) pause(ctx context.Context, d time.Duration) error {
	n := m.SuspendLock()
	defer m.ResumeLock(n)
	m.stats.yields.Add(1)
	if d > 0 {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	sync.Goyield()
	return ctx.Err()
}
