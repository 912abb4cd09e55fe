package vdom

import (
	"errors"
	"fmt"
	"strings"

	"loom/internal/asyncrt"
)

var (
	// ErrWrongGoroutine is returned when the runtime is used from a
	// goroutine other than the one that created it.
	ErrWrongGoroutine = errors.New("runtime used from a foreign goroutine")
	// ErrUpdateLoop is returned by Drain when the iteration guard trips.
	ErrUpdateLoop = errors.New("update loop did not converge")
	// ErrUnmounted is returned for operations on a dropped scope.
	ErrUnmounted = errors.New("scope is not mounted")
	// ErrSuspended is returned by Suspend while its work is pending. A body
	// that returns it renders nothing until the work completes.
	ErrSuspended = errors.New("render suspended")
)

// HookOrderError reports a hook call sequence that differs from the first
// render of the scope.
type HookOrderError struct {
	Scope     ScopeID
	Component string
	Index     int
	Want      string
	Got       string
}

func (e *HookOrderError) Error() string {
	switch {
	case e.Want == "":
		return fmt.Sprintf("component %s (scope %s): hook %d (%s) was not called on the first render", e.Component, e.Scope, e.Index, e.Got)
	case e.Got == "":
		return fmt.Sprintf("component %s (scope %s): hook %d (%s) was not called on this render", e.Component, e.Scope, e.Index, e.Want)
	default:
		return fmt.Sprintf("component %s (scope %s): hook %d was %s, now %s", e.Component, e.Scope, e.Index, e.Want, e.Got)
	}
}

// DuplicateKeyError reports two keyed siblings sharing a key.
type DuplicateKeyError struct {
	Key    string
	First  int
	Second int
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q at positions %d and %d", e.Key, e.First, e.Second)
}

// MixedKeysError reports keyed and unkeyed siblings in one list.
type MixedKeysError struct {
	Keyed   int
	Unkeyed int
}

func (e *MixedKeysError) Error() string {
	return fmt.Sprintf("list mixes %d keyed and %d unkeyed children", e.Keyed, e.Unkeyed)
}

// SlotMismatchError reports a render output whose values do not fit its
// template.
type SlotMismatchError struct {
	Template string
	Msg      string
}

func (e *SlotMismatchError) Error() string {
	return fmt.Sprintf("template %s: %s", e.Template, e.Msg)
}

// StaleOutputError reports a VNode from a superseded render generation.
type StaleOutputError struct {
	Node string
}

func (e *StaleOutputError) Error() string {
	return fmt.Sprintf("render output %s belongs to a superseded render", e.Node)
}

// RenderPanicError wraps a panic recovered from a component body.
type RenderPanicError struct {
	Component string
	Value     any
	Stack     []byte
}

func (e *RenderPanicError) Error() string {
	return fmt.Sprintf("component %s panicked: %v", e.Component, e.Value)
}

// ContextError reports a context value no ancestor provides.
type ContextError struct {
	Type string
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("no ancestor provides context %s", e.Type)
}

// CapturedError is an error delivered to an error boundary.
type CapturedError struct {
	Scope     ScopeID
	Component string
	Task      asyncrt.TaskID
	Err       error
}

func (c CapturedError) Error() string {
	var sb strings.Builder
	sb.WriteString(c.Component)
	if c.Task != 0 {
		fmt.Fprintf(&sb, " task %d", c.Task)
	}
	sb.WriteString(": ")
	sb.WriteString(c.Err.Error())
	return sb.String()
}

func (c CapturedError) Unwrap() error { return c.Err }
