// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package camproc

import (
	"log/slog"

	"github.com/gogpu/camproc/internal/logging"
)

// SetLogger configures the logger for camproc and all its sub-packages.
// By default, camproc produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by camproc:
//   - [slog.LevelDebug]: per-frame diagnostics (generations, dispatch sizes, cell results)
//   - [slog.LevelInfo]: lifecycle events (backend selected, device opened)
//   - [slog.LevelWarn]: degraded paths (backend fallback, publish or cell failures)
//
// Example:
//
//	camproc.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	logging.Set(l)
}

// Logger returns the current logger used by camproc.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return logging.Logger()
}
