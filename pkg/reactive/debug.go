package reactive

import (
	"log/slog"
	"sync/atomic"
)

// debugLog is the optional trace sink for effect runs, dep triggers,
// and subscription changes. Nil (the default) means tracing is off;
// the hot paths in effect.go/dep.go check for that before building any
// log arguments, so an idle debug log costs one atomic load.
var debugLog atomic.Pointer[slog.Logger]

// SetDebugLog installs logger as the trace sink for the reactivity
// kernel, or clears it when logger is nil. Unlike the scheduler's or
// vdom's error logging, this is purely diagnostic: nothing here
// affects which effects run or when.
func SetDebugLog(logger *slog.Logger) {
	debugLog.Store(logger)
}

func traceLog() *slog.Logger {
	return debugLog.Load()
}
