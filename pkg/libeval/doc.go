// Package libeval compiles small boolean and arithmetic expressions into
// programs for a stack machine and runs them against host objects.
//
// Expressions are the condition and assertion language of design rules:
//
//	A.Type == 'via' && A.Width < 0.3mm
//	A.NetClass != B.NetClass || A.existsOnLayer('F.Cu')
//
// Numbers may carry a unit suffix, which the UnitResolver converts into a
// base unit at compile time. Strings compare case-insensitively; a string
// literal containing '*' or '?' is matched as a wildcard pattern when it is
// the right operand of == or !=.
//
// # Pipeline
//
//	source → lexer → parser (push tokens) → AST arena → code generator → Program
//
// The parser and the code generator are iterative, so the nesting depth of
// an expression is bounded by memory, not by the goroutine stack.
//
// # Basic Usage
//
//	c := libeval.NewCompiler(units.Board())
//	prog, err := c.Compile("A.Width >= 0.2mm", host)
//	if err != nil {
//	    // prog is still runnable and evaluates to 0
//	}
//
//	ctx := libeval.NewContext()
//	ctx.Bind("A", item)
//	v := prog.Run(ctx)
//	ok := v.AsDouble() != 0
//
// # Errors
//
// Compilation errors are *Error values tagged with a Stage and the byte
// offset they refer to. Only the first error is latched into ErrorStatus;
// Diagnostics returns all of them, including the advisory raised when a
// lone number has no unit. Unresolved names compile to a constant 0.
//
// Execution fails closed: a host error, a host panic or a malformed stack
// makes Run return numeric 0. RunE returns the cause.
//
// # Concurrency
//
// A Compiler is not safe for concurrent use. A compiled Program is
// immutable and may be run from many goroutines, each with its own Context.
package libeval
