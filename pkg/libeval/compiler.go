package libeval

import (
	"log/slog"
	"strings"
)

// Host resolves the names an expression refers to. Either method returns
// nil when the name is unknown.
type Host interface {
	// ResolveIdentifier resolves object.field. A bare identifier is
	// resolved with an empty field.
	ResolveIdentifier(object, field string) VarRef

	// ResolveFunction resolves a method name.
	ResolveFunction(name string) FuncRef
}

// VarRef reads a host value at run time.
type VarRef interface {
	GetValue(ctx *Context) (Value, error)
}

// FuncRef is a host method. Call pops its arguments from the context stack
// (the last argument on top) and pushes exactly one result. self is the
// receiver resolved from the object name, or nil.
//
// During code generation Call is invoked once on a preflight context with
// literal arguments, or Undefined for non-literal ones. Functions validate
// their arguments there and report problems through Context.ReportError.
type FuncRef interface {
	Call(ctx *Context, self VarRef) error
}

// VarRefFunc adapts a function to VarRef.
type VarRefFunc func(ctx *Context) (Value, error)

// GetValue calls f(ctx).
func (f VarRefFunc) GetValue(ctx *Context) (Value, error) {
	return f(ctx)
}

// FuncRefFunc adapts a function to FuncRef.
type FuncRefFunc func(ctx *Context, self VarRef) error

// Call calls f(ctx, self).
func (f FuncRefFunc) Call(ctx *Context, self VarRef) error {
	return f(ctx, self)
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Compiler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Compiler translates expression source into Programs. A Compiler is not
// safe for concurrent use; give each goroutine its own. The Programs it
// produces may be shared.
type Compiler struct {
	resolver UnitResolver
	tree     tree
	root     nodeID
	source   string

	status ErrorStatus
	diags  []*Error
	errh   func(msg string, offset int)

	logger *slog.Logger
}

// NewCompiler creates a compiler using resolver for unit suffixes. A nil
// resolver disables units.
func NewCompiler(resolver UnitResolver, opts ...Option) *Compiler {
	c := &Compiler{
		resolver: resolver,
		root:     noNode,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetErrorCallback installs fn to receive every diagnostic as it is raised.
func (c *Compiler) SetErrorCallback(fn func(msg string, offset int)) {
	c.errh = fn
}

// Clear drops the AST and all diagnostics of the previous compilation.
func (c *Compiler) Clear() {
	c.tree.reset()
	c.root = noNode
	c.source = ""
	c.status = ErrorStatus{}
	c.diags = nil
}

// Compile translates src into a Program, resolving names through host.
// The returned Program is never nil: on failure it evaluates to 0 and the
// first error is returned as *Error. Empty input evaluates to 1.
func (c *Compiler) Compile(src string, host Host) (*Program, error) {
	c.Clear()
	c.source = src

	prog := &Program{}

	if strings.TrimSpace(src) == "" {
		one := Number(1)
		prog.emit(UOP{Op: OpPushConst, Value: &one})
		return prog, nil
	}

	if !c.parse(src) {
		zero := Number(0)
		prog.emit(UOP{Op: OpPushConst, Value: &zero})
		c.logger.Debug("expression rejected",
			"stage", c.status.Stage.String(),
			"offset", c.status.Offset,
			"error", c.status.Message)
		return prog, c.status.Err()
	}

	c.generate(prog, host)

	if err := c.status.Err(); err != nil {
		c.logger.Debug("expression compiled with errors",
			"offset", c.status.Offset,
			"error", c.status.Message)
		return prog, err
	}
	return prog, nil
}

// parse runs the lexer and parser to completion and reports whether the
// source was accepted.
func (c *Compiler) parse(src string) bool {
	onError := func(msg string, offset int) {
		c.report(StageParse, msg, offset, false)
	}

	lex := newLexer(src, c.resolver, onError)
	accepted := false
	p := newParser(&c.tree, onError, func(root nodeID) {
		c.root = root
		accepted = true
	})

	for {
		tok := lex.Next()
		// A lexical error ends the token stream; the parse has already failed.
		if c.status.Pending {
			return false
		}
		switch p.feed(tok) {
		case parseAccept:
			return accepted
		case parseError:
			return false
		}
		if tok.Kind == TokEnd {
			c.report(StageParse, "unexpected end of expression", tok.Offset, false)
			return false
		}
	}
}

// ErrorStatus returns the latched error of the last compilation.
func (c *Compiler) ErrorStatus() ErrorStatus {
	return c.status
}

// Diagnostics returns every diagnostic of the last compilation, including
// advisories.
func (c *Compiler) Diagnostics() []*Error {
	return c.diags
}

// DumpTree renders the AST of the last successful parse.
func (c *Compiler) DumpTree() string {
	return c.tree.dump(c.root)
}

func (c *Compiler) report(stage Stage, msg string, offset int, advisory bool) {
	e := &Error{Stage: stage, Message: msg, Offset: offset, Advisory: advisory}
	c.diags = append(c.diags, e)

	if !advisory {
		if c.status.Pending {
			return
		}
		c.status = ErrorStatus{Pending: true, Stage: stage, Message: msg, Offset: offset}
	}
	if c.errh != nil {
		c.errh(msg, offset)
	}
}
