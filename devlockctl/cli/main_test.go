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

package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"

	"acl.dev/devlock/pkg/log"
)

func TestCommands(t *testing.T) {
	var names []string
	forEachCmd(func(cmd subcommands.Command, _ string) {
		names = append(names, cmd.Name())
	})
	want := []string{"help", "flags", "stress", "interrupts", "sigmask", "config", "metrics"}
	if diff := cmp.Diff(want, names); diff != "" {
		t.Errorf("registered commands (-want +got):\n%s", diff)
	}
}

func TestNewEmitter(t *testing.T) {
	for _, format := range []string{"text", "json", "logrus"} {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			e := newEmitter(format, &buf)
			e.Emit(0, log.Info, time.Now(), "device lock depth %d", 3)
			if !strings.Contains(buf.String(), "device lock depth 3") {
				t.Errorf("%s emitter wrote %q", format, buf.String())
			}
		})
	}
}
