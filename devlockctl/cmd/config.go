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
	"os"
	"strings"

	"github.com/google/subcommands"

	"acl.dev/devlock/devlockctl/cmd/util"
	"acl.dev/devlock/devlockctl/config"
)

// Config implements subcommands.Command for the "config" command.
type Config struct {
	format string
}

// Name implements subcommands.Command.Name.
func (*Config) Name() string {
	return "config"
}

// Synopsis implements subcommands.Command.Synopsis.
func (*Config) Synopsis() string {
	return "print the effective configuration"
}

// Usage implements subcommands.Command.Usage.
func (*Config) Usage() string {
	return `config [-format=flags|toml] - prints the configuration after flags and the
config file have been applied.
`
}

// SetFlags implements subcommands.Command.SetFlags.
func (c *Config) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.format, "format", "toml", "output format: toml (default) or flags.")
}

// Execute implements subcommands.Command.Execute.
func (c *Config) Execute(_ context.Context, f *flag.FlagSet, args ...any) subcommands.ExitStatus {
	if f.NArg() != 0 {
		f.Usage()
		return subcommands.ExitUsageError
	}
	conf := args[0].(*config.Config)

	switch c.format {
	case "flags":
		fmt.Fprintln(os.Stdout, strings.Join(conf.ToFlags(), " "))
	case "toml":
		out, err := conf.ToTOML()
		if err != nil {
			util.Fatalf("encoding config: %v", err)
		}
		fmt.Fprint(os.Stdout, out)
	default:
		util.Fatalf("invalid format %q, must be 'toml' or 'flags'", c.format)
	}
	return subcommands.ExitSuccess
}
