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

// Package util groups helpers shared by devlockctl commands.
package util

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"acl.dev/devlock/pkg/log"
)

// ErrorLogger is where error messages should be written to. These messages
// are consumed by the caller of devlockctl.
var ErrorLogger io.Writer

// Fatalf logs the message with the caller's stack, writes it to stderr and
// exits with a failure status code.
func Fatalf(format string, args ...any) {
	log.Traceback("FATAL ERROR: "+format, args...)
	writeError(format, args...)
	// Return an error that is unlikely to be used by the application.
	os.Exit(128)
}

// Infof writes an info message to the log and to stdout.
func Infof(format string, args ...any) {
	log.Infof(format, args...)
	fmt.Fprintf(os.Stdout, format+"\n", args...)
}

// jsonError is the structure of an error written to ErrorLogger.
type jsonError struct {
	Msg   string    `json:"msg"`
	Level string    `json:"level"`
	Time  time.Time `json:"time"`
}

func writeError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, msg)
	if ErrorLogger == nil {
		return
	}
	b, err := json.Marshal(jsonError{Msg: msg, Level: "error", Time: time.Now()})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error marshaling error message: %v\n", err)
		return
	}
	ErrorLogger.Write(append(b, '\n'))
}
