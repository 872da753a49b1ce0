/* SPDX-License-Identifier: MIT
 *
 * Copyright (C) 2020-2026 seclink contributors.
 */

// Package seclog provides the small leveled logger used throughout
// seclink, in the style of wireguard-go's device.Logger: two
// format-string funcs, no structured fields, no third-party logging
// dependency.
package seclog

import (
	"fmt"
	"log"
	"os"
)

// Level selects which of Logger's funcs actually write output.
type Level int

const (
	Silent Level = iota
	Error
	Verbose
)

// ParseLevel maps a config/flag string to a Level.
func ParseLevel(s string) Level {
	switch s {
	case "verbose", "debug":
		return Verbose
	case "error":
		return Error
	default:
		return Silent
	}
}

// Logger holds the two logging entry points consumed by the rest of
// seclink. Fields are funcs, not methods, so call sites never need a
// nil check: a Silent-level Logger's funcs are no-ops.
type Logger struct {
	Verbosef func(format string, args ...any)
	Errorf   func(format string, args ...any)
}

func discard(string, ...any) {}

// New builds a Logger writing to os.Stderr, prefixed with prefix,
// at the given level.
func New(level Level, prefix string) *Logger {
	logger := log.New(os.Stderr, prefix, log.Ldate|log.Ltime)
	l := &Logger{Verbosef: discard, Errorf: discard}
	if level >= Error {
		l.Errorf = func(format string, args ...any) {
			logger.Println("ERROR:", fmt.Sprintf(format, args...))
		}
	}
	if level >= Verbose {
		l.Verbosef = func(format string, args ...any) {
			logger.Println(fmt.Sprintf(format, args...))
		}
	}
	return l
}
