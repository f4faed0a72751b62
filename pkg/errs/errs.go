// Package errs classifies the compile-time and runtime error kinds the
// rest of the module raises, and provides the call-with-error-handling
// wrapper every user-code entry point (render, setup, hooks, watchers,
// event handlers, scheduler jobs) is guarded by.
package errs

import "fmt"

// CompileKind identifies a template-compilation error.
type CompileKind string

const (
	InvalidEndTag             CompileKind = "invalid-end-tag"
	MissingEndTag             CompileKind = "missing-end-tag"
	EOFInTag                  CompileKind = "eof-in-tag"
	EOFInComment              CompileKind = "eof-in-comment"
	EOFInAttribute            CompileKind = "eof-in-attribute"
	DuplicateAttribute        CompileKind = "duplicate-attribute"
	MissingAttributeValue     CompileKind = "missing-attribute-value"
	UnexpectedCharInAttrName  CompileKind = "unexpected-character-in-attribute-name"
	UnexpectedCharInAttrValue CompileKind = "unexpected-character-in-attribute-value"
	MissingInterpolationEnd   CompileKind = "missing-interpolation-end"
	InvalidExpression         CompileKind = "invalid-expression"
	IgnoredSideEffectTag      CompileKind = "ignored-side-effect-tag"
	MissingDirectiveName      CompileKind = "missing-directive-name"
)

// Location is a byte-offset plus line/column source position.
type Location struct {
	Offset int
	Line   int
	Column int
}

// CompileError is one diagnostic raised while tokenizing or parsing a
// template. The compiler never stops at the first one: every error is
// routed through a per-compilation callback so parsing can continue
// and collect the rest.
type CompileError struct {
	Kind     CompileKind
	Message  string
	Location Location
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%d:%d: %s: %s", e.Location.Line, e.Location.Column, e.Kind, e.Message)
}

// Collector accumulates CompileErrors during one compilation pass.
// It is the "per-compilation error callback" the spec describes,
// reified as a value instead of a bare func so callers can inspect
// the accumulated set afterward.
type Collector struct {
	errors []*CompileError
}

func NewCollector() *Collector { return &Collector{} }

// Report is the callback signature passed into the tokenizer/parser.
func (c *Collector) Report(kind CompileKind, loc Location, format string, args ...any) {
	c.errors = append(c.errors, &CompileError{
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Location: loc,
	})
}

func (c *Collector) Errors() []*CompileError { return c.errors }
func (c *Collector) HasErrors() bool         { return len(c.errors) > 0 }

// RuntimeKind identifies a runtime error kind, all of which propagate
// through CallWithErrorHandling rather than aborting the caller.
type RuntimeKind string

const (
	RenderFunctionError       RuntimeKind = "render-function-error"
	SchedulerError            RuntimeKind = "scheduler-error"
	WatcherCallbackError      RuntimeKind = "watcher-callback-error"
	SetupFunctionError        RuntimeKind = "setup-function-error"
	LifecycleHookError        RuntimeKind = "lifecycle-hook-error"
	NativeEventHandlerError   RuntimeKind = "native-event-handler-error"
	ComponentEventHandlerError RuntimeKind = "component-event-handler-error"
)

// RuntimeError wraps a recovered panic or returned error with the kind
// of call site it came from and, when known, the offending component's
// descriptor name (used in recursive-update diagnostics).
type RuntimeError struct {
	Kind      RuntimeKind
	Component string
	Cause     error
}

func (e *RuntimeError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("%s in %s: %v", e.Kind, e.Component, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

// Handler receives every RuntimeError the module produces. It is the
// "process-level handler" errors surface to once no errorCaptured hook
// swallows them. Returning true means "handled, do not propagate
// further" (mirrors an errorCaptured hook returning a truthy value).
type Handler func(err *RuntimeError) (handled bool)

// CallWithErrorHandling invokes fn, converting a panic into a
// RuntimeError of the given kind and routing it through capture before
// falling back to handler. It never re-panics: every user-code call
// site in this module goes through here so one bad render, hook, or
// event handler cannot unwind the reconciler or the scheduler.
func CallWithErrorHandling(kind RuntimeKind, component string, capture func(*RuntimeError) bool, handler Handler, fn func()) (err *RuntimeError) {
	defer func() {
		if r := recover(); r != nil {
			cause, ok := r.(error)
			if !ok {
				cause = fmt.Errorf("%v", r)
			}
			err = &RuntimeError{Kind: kind, Component: component, Cause: cause}
			if capture != nil && capture(err) {
				return
			}
			if handler != nil {
				handler(err)
			}
		}
	}()
	fn()
	return nil
}
