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

package cmd

import (
	"runtime"

	"acl.dev/devlock/pkg/devlock"
	"acl.dev/devlock/pkg/sighandling"
)

// maskCycle reads the thread's mask around a BlockSignals/UnblockSignals pair.
func maskCycle(m *devlock.Manager) (maskReport, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	before, err := sighandling.Current()
	if err != nil {
		return maskReport{}, err
	}
	m.BlockSignals()
	during, err := sighandling.Current()
	m.UnblockSignals()
	if err != nil {
		return maskReport{}, err
	}
	after, err := sighandling.Current()
	if err != nil {
		return maskReport{}, err
	}
	return maskReport{
		before:   before.String(),
		during:   during.String(),
		after:    after.String(),
		restored: before.Equal(after),
	}, nil
}
