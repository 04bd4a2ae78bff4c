package libeval

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrStackInvariant indicates a program finished with other than exactly
	// one value on the operand stack.
	ErrStackInvariant = errors.New("stack invariant violated")

	// ErrStackUnderflow indicates an operator popped an empty stack.
	ErrStackUnderflow = errors.New("stack underflow")

	// ErrHostFailure indicates a host callback panicked.
	ErrHostFailure = errors.New("host callback failed")
)

// Stage identifies the pipeline stage an error was raised in.
type Stage int

const (
	// StageParse covers lexical and grammar failures.
	StageParse Stage = iota
	// StageCodeGen covers well-formed input that cannot be resolved.
	StageCodeGen
	// StageRuntime covers host failures during execution.
	StageRuntime
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageParse:
		return "parse"
	case StageCodeGen:
		return "codegen"
	case StageRuntime:
		return "runtime"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// Error is a compile or runtime diagnostic located in the source text.
type Error struct {
	Stage    Stage
	Message  string
	Offset   int  // byte offset into the source, -1 when unknown
	Advisory bool // advisory diagnostics never latch the error status
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s error at offset %d: %s", e.Stage, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s error: %s", e.Stage, e.Message)
}

// ErrorStatus is the latched error state of a compilation. Only the first
// non-advisory error is latched.
type ErrorStatus struct {
	Pending bool
	Stage   Stage
	Message string
	Offset  int
}

// Err returns the latched error as an *Error, or nil.
func (s ErrorStatus) Err() error {
	if !s.Pending {
		return nil
	}
	return &Error{Stage: s.Stage, Message: s.Message, Offset: s.Offset}
}

// RuntimeError wraps a failure raised while executing a program.
type RuntimeError struct {
	Op    OpCode
	Cause error
}

// Error returns the error message.
func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error in %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RuntimeError) Unwrap() error {
	return e.Cause
}
