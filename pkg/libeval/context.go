package libeval

import "sync"

const arenaChunk = 64

// Context is the execution state of one program run: an operand stack, an
// arena of scratch values, the objects bound for the host and the error
// callback. A Context is owned by a single goroutine; reuse it across runs
// to avoid allocation.
type Context struct {
	chunks [][]Value
	used   int

	stack     []*Value
	sp        int
	underflow bool

	objects   map[string]any
	preflight bool

	errh   func(msg string, offset int)
	errors []string
}

// NewContext returns an empty execution context.
func NewContext() *Context {
	return &Context{objects: make(map[string]any)}
}

var contextPool = sync.Pool{
	New: func() any { return NewContext() },
}

func acquireContext() *Context {
	return contextPool.Get().(*Context)
}

func releaseContext(ctx *Context) {
	ctx.Reset()
	ctx.objects = make(map[string]any)
	ctx.errh = nil
	ctx.preflight = false
	contextPool.Put(ctx)
}

// Bind associates a host object with name, typically "A" or "B".
func (c *Context) Bind(name string, obj any) {
	if c.objects == nil {
		c.objects = make(map[string]any)
	}
	c.objects[name] = obj
}

// Object returns the host object bound to name, or nil.
func (c *Context) Object(name string) any {
	return c.objects[name]
}

// IsPreflight reports whether the context is a code-generation dry run in
// which host functions validate their arguments instead of computing.
func (c *Context) IsPreflight() bool {
	return c.preflight
}

// AllocValue returns a fresh Undefined value from the arena. The pointer
// stays valid until the next Reset.
func (c *Context) AllocValue() *Value {
	chunk, idx := c.used/arenaChunk, c.used%arenaChunk
	if chunk == len(c.chunks) {
		c.chunks = append(c.chunks, make([]Value, arenaChunk))
	}
	c.used++
	v := &c.chunks[chunk][idx]
	*v = Value{}
	return v
}

// Push places v on the operand stack.
func (c *Context) Push(v *Value) {
	if c.sp < len(c.stack) {
		c.stack[c.sp] = v
	} else {
		c.stack = append(c.stack, v)
	}
	c.sp++
}

// Pop removes and returns the top of the operand stack. Popping an empty
// stack yields an Undefined value and marks the run as failed.
func (c *Context) Pop() *Value {
	if c.sp == 0 {
		c.underflow = true
		return c.AllocValue()
	}
	c.sp--
	v := c.stack[c.sp]
	c.stack[c.sp] = nil
	return v
}

// SP returns the number of values on the operand stack.
func (c *Context) SP() int {
	return c.sp
}

// Reset clears the stack, the arena and recorded errors. Bound objects and
// the error callback are kept.
func (c *Context) Reset() {
	for i := 0; i < c.sp; i++ {
		c.stack[i] = nil
	}
	c.sp = 0
	c.used = 0
	c.underflow = false
	c.errors = c.errors[:0]
}

// SetErrorCallback installs fn to receive runtime and preflight errors.
func (c *Context) SetErrorCallback(fn func(msg string, offset int)) {
	c.errh = fn
}

// ReportError records a diagnostic raised by the VM or a host function.
func (c *Context) ReportError(msg string) {
	c.errors = append(c.errors, msg)
	if c.errh != nil {
		c.errh(msg, -1)
	}
}

// Errors returns the diagnostics reported since the last Reset.
func (c *Context) Errors() []string {
	return c.errors
}
