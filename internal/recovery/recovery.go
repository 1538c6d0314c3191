// Package recovery implements panic containment for the processor and
// reader goroutines. OmniFS has exactly one thing that must survive a
// panic in a single request (the processor goroutine), not a
// multi-strategy degraded-component system with fallbacks and circuit
// breakers layered underneath it — those concerns already live in
// internal/circuit and pkg/retry. This package only answers one question:
// did the function panic, and if so, what should be reported instead of
// letting the goroutine die.
package recovery

import (
	"fmt"
	"runtime/debug"

	"github.com/omnifs/omnifs/internal/logging"
	omnierrors "github.com/omnifs/omnifs/pkg/errors"
)

// Guard runs fn and converts any panic into an *OmniError instead of
// propagating it, so a bug in one request's handling cannot take down the
// processor goroutine. The stack trace is logged at Error level before the
// panic is contained.
func Guard(log *logging.Logger, component, operation string, fn func()) (err *omnierrors.OmniError) {
	defer func() {
		if r := recover(); r != nil {
			stack := string(debug.Stack())
			if log != nil {
				log.Error("recovered from panic", map[string]any{
					"component": component,
					"operation": operation,
					"panic":     fmt.Sprint(r),
					"stack":     stack,
				})
			}
			err = omnierrors.New(omnierrors.IOError, fmt.Sprintf("internal error: %v", r)).
				WithComponent(component).
				WithOperation(operation)
		}
	}()
	fn()
	return nil
}

// Go runs fn in its own goroutine, logging and discarding any panic rather
// than letting it crash the process. Used for reader goroutines, which have
// no response channel to report a panic back on.
func Go(log *logging.Logger, component string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				if log != nil {
					log.Error("recovered from panic in background goroutine", map[string]any{
						"component": component,
						"panic":     fmt.Sprint(r),
						"stack":     string(debug.Stack()),
					})
				}
			}
		}()
		fn()
	}()
}
