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

// Package cleanup runs teardown steps on every exit path of a function, and
// lets the function keep them on success.
package cleanup

import (
	"errors"
	"io"
)

// Cleanup is a stack of teardown steps. The zero value is empty and ready to
// use:
//
//	var cu cleanup.Cleanup
//	defer cu.Clean()
//	f, err := os.Open(name)
//	...
//	cu.AddCloser(f)
//	...
//	cu.Release() // Keep f open for the caller.
type Cleanup struct {
	steps []func() error
}

// Make returns a Cleanup holding f.
func Make(f func()) Cleanup {
	var c Cleanup
	c.Add(f)
	return c
}

// Add pushes f.
func (c *Cleanup) Add(f func()) {
	c.steps = append(c.steps, func() error {
		f()
		return nil
	})
}

// AddErr pushes f, whose error is reported by Clean.
func (c *Cleanup) AddErr(f func() error) {
	c.steps = append(c.steps, f)
}

// AddCloser pushes closing cl.
func (c *Cleanup) AddCloser(cl io.Closer) {
	c.AddErr(cl.Close)
}

// Clean runs every step, most recent first, and empties the stack. It returns
// the errors of all failed steps joined together.
func (c *Cleanup) Clean() error {
	steps := c.steps
	c.steps = nil
	return run(steps)
}

// Release empties the stack without running it and returns a function that
// runs the released steps.
func (c *Cleanup) Release() func() error {
	steps := c.steps
	c.steps = nil
	return func() error { return run(steps) }
}

func run(steps []func() error) error {
	var errs []error
	for i := len(steps) - 1; i >= 0; i-- {
		if err := steps[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
