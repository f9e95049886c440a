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

// Package config provides basic infrastructure to set configuration settings
// for devlockctl. Each setting is a field of Config with a matching flag, and
// may also be given in a TOML file passed with --config.
package config

import (
	"fmt"
	"reflect"
	"time"

	"acl.dev/devlock/pkg/devlock"
	"acl.dev/devlock/pkg/log"
)

// Config holds configuration that is not part of a single subcommand.
//
// Follow these steps to add a new flag:
//  1. Create a new field in Config.
//  2. Add a field tag with the flag name and the TOML key.
//  3. Register the flag in flags.go.
//  4. Add any validation in validate.
type Config struct {
	// ConfigFile is the TOML file settings are read from. Flags given on
	// the command line take precedence over the file.
	ConfigFile string `flag:"config" toml:"-"`

	// LogFilename is the filename to log to, if not empty.
	LogFilename string `flag:"log" toml:"log"`

	// LogFormat is the log format: text, json or logrus.
	LogFormat string `flag:"log-format" toml:"log-format"`

	// Debug indicates that debug logging should be enabled.
	Debug bool `flag:"debug" toml:"debug"`

	// DebugLog is the path to log debug information to, if not empty. If it
	// ends with "/", a file is created inside the directory with a default
	// name.
	DebugLog string `flag:"debug-log" toml:"debug-log"`

	// DebugLogFormat is the log format for the debug log.
	DebugLogFormat string `flag:"debug-log-format" toml:"debug-log-format"`

	// AlsoLogToStderr allows sending log messages to stderr.
	AlsoLogToStderr bool `flag:"alsologtostderr" toml:"alsologtostderr"`

	// DevicePollInterval bounds how long a device update wait sleeps
	// without a notification. Zero waits for a notification.
	DevicePollInterval time.Duration `flag:"device-poll-interval" toml:"device-poll-interval"`

	// SlowLockThreshold is the acquisition latency above which a warning is
	// logged. Zero disables the warning.
	SlowLockThreshold time.Duration `flag:"slow-lock-threshold" toml:"slow-lock-threshold"`

	// SlowLockLogInterval limits slow lock warnings to one per interval.
	SlowLockLogInterval time.Duration `flag:"slow-lock-log-interval" toml:"slow-lock-log-interval"`

	// MetricPrefix is prepended to exported metric names.
	MetricPrefix string `flag:"metric-prefix" toml:"metric-prefix"`
}

func (c *Config) validate() error {
	for _, f := range []struct {
		name, value string
	}{
		{"log-format", c.LogFormat},
		{"debug-log-format", c.DebugLogFormat},
	} {
		switch f.value {
		case "text", "json", "logrus":
		default:
			return fmt.Errorf("invalid --%s %q, must be 'text', 'json', or 'logrus'", f.name, f.value)
		}
	}
	for _, f := range []struct {
		name  string
		value time.Duration
	}{
		{"device-poll-interval", c.DevicePollInterval},
		{"slow-lock-threshold", c.SlowLockThreshold},
		{"slow-lock-log-interval", c.SlowLockLogInterval},
	} {
		if f.value < 0 {
			return fmt.Errorf("--%s must not be negative, got %v", f.name, f.value)
		}
	}
	for _, r := range c.MetricPrefix {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_') {
			return fmt.Errorf("invalid --metric-prefix %q: only letters, digits and '_' are allowed", c.MetricPrefix)
		}
	}
	return nil
}

// ManagerOptions returns the lock manager options described by c.
func (c *Config) ManagerOptions() devlock.Options {
	return devlock.Options{
		DevicePollInterval:  c.DevicePollInterval,
		SlowLockThreshold:   c.SlowLockThreshold,
		SlowLockLogInterval: c.SlowLockLogInterval,
	}
}

// Log logs important aspects of the configuration to the given log function.
func (c *Config) Log() {
	log.Infof("Config:")
	obj := reflect.ValueOf(c).Elem()
	st := obj.Type()
	for i := 0; i < st.NumField(); i++ {
		name, ok := st.Field(i).Tag.Lookup("flag")
		if !ok {
			continue
		}
		log.Infof("\t%s: %s", name, getVal(obj.Field(i)))
	}
}
