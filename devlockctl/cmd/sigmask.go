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

package cmd

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/subcommands"

	"acl.dev/devlock/devlockctl/cmd/util"
	"acl.dev/devlock/pkg/devlock"
)

// Sigmask implements subcommands.Command for the "sigmask" command.
type Sigmask struct{}

// Name implements subcommands.Command.Name.
func (*Sigmask) Name() string {
	return "sigmask"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Sigmask) Synopsis() string {
	return "block and unblock signals on the current thread and verify the mask is restored"
}

// Usage implements subcommands.Command.Usage.
func (*Sigmask) Usage() string {
	return `sigmask - prints the thread's signal mask before, during and after
BlockSignals/UnblockSignals, and fails unless the original mask is restored.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (*Sigmask) SetFlags(*flag.FlagSet) {}

// Execute implements subcommands.Command.Execute.
func (*Sigmask) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	if !devlock.SignalMasksSupported {
		util.Fatalf("signal masks are not supported on this platform")
	}
	if err := checkMask(os.Stdout, devlock.FromContext(ctx)); err != nil {
		util.Fatalf("%v", err)
	}
	return subcommands.ExitSuccess
}

// maskReport is what checkMask observed.
type maskReport struct {
	before, during, after string
	restored              bool
}

func (r maskReport) write(w io.Writer) {
	fmt.Fprintf(w, "before: %s\n", r.before)
	fmt.Fprintf(w, "during: %s\n", r.during)
	fmt.Fprintf(w, "after:  %s\n", r.after)
}

// checkMask runs the block/unblock cycle on m and writes the report to w.
func checkMask(w io.Writer, m *devlock.Manager) error {
	r, err := maskCycle(m)
	if err != nil {
		return err
	}
	r.write(w)
	if !r.restored {
		return fmt.Errorf("signal mask not restored: was %s, now %s", r.before, r.after)
	}
	return nil
}
