// File: send/logger.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package send

import (
	"io"
	"log/slog"
	"sync/atomic"
)

var defaultLogger atomic.Pointer[slog.Logger]

func init() {
	defaultLogger.Store(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// SetLogger sets the logger used by streams created without WithLogger.
// A nil logger silences the package.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	defaultLogger.Store(l)
}

func logger() *slog.Logger { return defaultLogger.Load() }
