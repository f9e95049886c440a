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
	"os"

	"github.com/google/subcommands"

	"acl.dev/devlock/devlockctl/cmd/util"
	"acl.dev/devlock/devlockctl/config"
	"acl.dev/devlock/pkg/devlock"
	"acl.dev/devlock/pkg/metric"
)

// Metrics implements subcommands.Command for the "metrics" command.
type Metrics struct {
	warmup bool
}

// Name implements subcommands.Command.Name.
func (*Metrics) Name() string {
	return "metrics"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Metrics) Synopsis() string {
	return "print device lock metrics in Prometheus format"
}

// Usage implements subcommands.Command.Usage.
func (*Metrics) Usage() string {
	return `metrics [-warmup] - prints the device lock metrics in Prometheus text format,
after running a short workload if -warmup is set.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (m *Metrics) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&m.warmup, "warmup", true, "run a short workload before printing.")
}

// Execute implements subcommands.Command.Execute.
func (m *Metrics) Execute(ctx context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	if m.warmup {
		opts := stressOpts{Workers: 4, Iterations: 1000, MaxDepth: 3, Completions: 100}
		if _, err := runStress(ctx, devlock.FromContext(ctx), opts); err != nil {
			util.Fatalf("warmup failed: %v", err)
		}
	}
	if err := metric.WritePrometheus(os.Stdout, conf.MetricPrefix); err != nil {
		util.Fatalf("writing metrics: %v", err)
	}
	return subcommands.ExitSuccess
}
