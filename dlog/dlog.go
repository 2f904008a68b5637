// SPDX-FileCopyrightText: © 2023 Siemens AG
// SPDX-License-Identifier: MIT

// Package dlog provides global conditional logging for dataset components.
package dlog

import (
	"fmt"
	"log"
)

var enabled = false

// Enable turns on conditional log output.
func Enable() {
	enabled = true
}

// A Logger represents a logger object that logs output in the manner of the
// standard logger but can be conditionally enabled. By default, conditional
// logging is disabled.
type Logger struct {
	logger *log.Logger // standard logger with prefix
}

// New creates a new conditional logger with the given prefix.
func New(prefixFormat string, prefixArgs ...any) *Logger {
	return &Logger{
		log.New(
			log.Default().Writer(),
			fmt.Sprintf(prefixFormat, prefixArgs...),
			log.Ldate|log.Ltime|log.Lmicroseconds|log.Lmsgprefix,
		),
	}
}

// Printf logs output conditionally (if enabled with -l command line option) in
// the manner of log.Printf.
func (l *Logger) Printf(format string, a ...any) {
	if !enabled {
		return
	}
	l.logger.Printf(format, a...)
}

// Errorf logs output unconditionally, i.e. always, in the manner of log.Printf.
func (l *Logger) Errorf(format string, a ...any) {
	l.logger.Printf(format, a...)
}

// ShortID returns the first segment of a string in UUID v4 format; otherwise
// the complete string is returned. Used to keep log lines short when
// identifying objects/sessions by their full id.
func ShortID(id string) string {
	for i, r := range id {
		if r == '-' {
			return id[:i]
		}
	}
	return id
}
