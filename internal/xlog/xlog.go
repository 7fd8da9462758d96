// Copyright 2025 The bytecode-localopt Authors
// This file is part of the bytecode-localopt library.
//
// The bytecode-localopt library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The bytecode-localopt library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the bytecode-localopt library. If not, see <http://www.gnu.org/licenses/>.

// Package xlog wraps github.com/ethereum/go-ethereum/log the way the
// teacher's log/log_by_filter.go wraps conditional logging: a filter guards
// whether a call actually reaches the logger at all, rather than relying on
// level filtering alone. Here the filter is "diagnostics are enabled": the
// four passes call Diagnosticf when they change a method, and those calls
// reach the logger only after the CLI driver has switched diagnostics on.
package xlog

import (
	"sync/atomic"

	"github.com/ethereum/go-ethereum/log"
)

var diagnosticsEnabled atomic.Bool

// SetDiagnostics toggles whether Diagnosticf reaches the logger. Off by
// default, matching the core's "emits no I/O" contract until a caller
// (the CLI driver) opts in.
func SetDiagnostics(enabled bool) { diagnosticsEnabled.Store(enabled) }

// DiagnosticsEnabled reports the current toggle state.
func DiagnosticsEnabled() bool { return diagnosticsEnabled.Load() }

// Diagnosticf logs at Debug level, gated by SetDiagnostics, tagging every
// line with the emitting pass's name.
func Diagnosticf(pass, msg string, ctx ...interface{}) {
	if !diagnosticsEnabled.Load() {
		return
	}
	log.Debug(msg, append([]interface{}{"pass", pass}, ctx...)...)
}

// Warnf always reaches the logger regardless of the diagnostics toggle —
// used for conditions worth surfacing even without --diagnostics, such as a
// failed call-graph or closure-removal update that pass (C) continues past.
func Warnf(msg string, ctx ...interface{}) {
	log.Warn(msg, ctx...)
}
