package libeval

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// generate walks the AST in post-order with an explicit work stack and
// emits the program. Unresolvable references are reported and replaced by
// a numeric 0 so the program stays runnable.
func (c *Compiler) generate(prog *Program, host Host) {
	var (
		bareNumbers int
		bareOffset  int
		bareText    string
	)

	stack := []nodeID{c.root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		n := c.tree.at(id)

		if !n.visited {
			n.visited = true
			stack = append(stack, c.children(id, host)...)
			continue
		}
		stack = stack[:len(stack)-1]

		if n.failed {
			emitZero(prog)
			continue
		}

		switch n.kind {
		case nodeNumber:
			v, ok := c.number(n)
			if !ok {
				c.report(StageCodeGen, "numeric literal out of range", n.offset, false)
				emitZero(prog)
				continue
			}
			if n.unit < 0 {
				bareNumbers++
				bareOffset = n.offset
				bareText = n.text
			}
			prog.emit(UOP{Op: OpPushConst, Value: &v})

		case nodeString:
			v := String(n.text)
			if HasWildcard(n.text) {
				v = Pattern(n.text)
			}
			prog.emit(UOP{Op: OpPushConst, Value: &v})

		case nodeIdent:
			ref := resolveIdentifier(host, n.text, "")
			if ref == nil {
				c.report(StageCodeGen, fmt.Sprintf("unrecognized item '%s'", n.text), n.offset, false)
				emitZero(prog)
				continue
			}
			prog.emit(UOP{Op: OpPushVar, Ref: ref})

		case nodeStructRef:
			if n.op != nil {
				prog.emit(*n.op)
				continue
			}
			c.emitField(prog, host, n)

		case nodeFuncCall:
			name := c.tree.at(n.left)
			c.report(StageCodeGen, fmt.Sprintf("function '%s' called without an object", name.text), name.offset, false)
			emitZero(prog)

		default:
			op, ok := nodeOps[n.kind]
			if !ok {
				c.report(StageCodeGen, fmt.Sprintf("unexpected %s", n.kind), n.offset, false)
				emitZero(prog)
				continue
			}
			prog.emit(UOP{Op: op})
		}
	}

	if bareNumbers == 1 && c.resolver != nil {
		if names := c.resolver.SupportedUnits(); len(names) > 0 {
			c.report(StageCodeGen,
				fmt.Sprintf("missing units for '%s' (%s)", bareText, strings.Join(names, ", ")),
				bareOffset, true)
		}
	}
}

// children returns the nodes to visit before id, in reverse order of
// evaluation. Method calls are resolved here so that a failed call skips
// its arguments entirely.
func (c *Compiler) children(id nodeID, host Host) []nodeID {
	n := c.tree.at(id)
	switch n.kind {
	case nodeNumber, nodeString, nodeIdent, nodeUnit, nodeFuncCall:
		return nil

	case nodeStructRef:
		if c.tree.at(n.right).kind != nodeFuncCall {
			return nil
		}
		args, ok := c.resolveCall(host, n)
		if !ok {
			n.failed = true
			return nil
		}
		out := make([]nodeID, len(args))
		for i, a := range args {
			out[len(args)-1-i] = a
		}
		return out

	case nodeNot, nodeNeg:
		return []nodeID{n.left}

	default:
		return []nodeID{n.right, n.left}
	}
}

// resolveCall resolves obj.method(args) and runs the method once in
// preflight mode with the literal arguments. On success the METHOD_CALL
// instruction is stored on the node and the arguments are returned in
// evaluation order.
func (c *Compiler) resolveCall(host Host, n *node) ([]nodeID, bool) {
	obj := c.tree.at(n.left)
	call := c.tree.at(n.right)
	name := c.tree.at(call.left)

	fn := resolveFunction(host, name.text)
	if fn == nil {
		c.report(StageCodeGen, fmt.Sprintf("unrecognized function '%s'", name.text), name.offset, false)
		return nil, false
	}
	self := resolveIdentifier(host, obj.text, "")
	if self == nil {
		c.report(StageCodeGen, fmt.Sprintf("unrecognized item '%s'", obj.text), obj.offset, false)
		return nil, false
	}

	args := c.tree.args(call.right)
	if !c.preflight(fn, self, args, name.offset) {
		return nil, false
	}

	n.op = &UOP{Op: OpMethodCall, Func: fn, Ref: self}
	return args, true
}

func (c *Compiler) preflight(fn FuncRef, self VarRef, args []nodeID, offset int) (ok bool) {
	ctx := acquireContext()
	defer releaseContext(ctx)

	ctx.preflight = true
	ok = true
	ctx.SetErrorCallback(func(msg string, _ int) {
		ok = false
		c.report(StageCodeGen, msg, offset, false)
	})

	for _, id := range args {
		a := c.tree.at(id)
		slot := ctx.AllocValue()
		switch a.kind {
		case nodeString:
			*slot = String(a.text)
			if HasWildcard(a.text) {
				*slot = Pattern(a.text)
			}
		case nodeNumber:
			*slot, _ = c.number(a)
		}
		ctx.Push(slot)
	}

	defer func() {
		if r := recover(); r != nil {
			ok = false
			c.report(StageCodeGen, fmt.Sprintf("%v", r), offset, false)
		}
	}()

	if err := fn.Call(ctx, self); err != nil {
		c.report(StageCodeGen, err.Error(), offset, false)
		return false
	}
	return ok
}

// number converts a NUMBER node, scaling through the resolver when a unit
// is attached. ok is false when the literal, or its value in base units,
// does not fit a float64.
func (c *Compiler) number(n *node) (v Value, ok bool) {
	f, err := strconv.ParseFloat(n.text, 64)
	if err != nil {
		return Number(0), false
	}
	if n.unit >= 0 && c.resolver != nil {
		f = c.resolver.Convert(n.text, n.unit)
		v = Quantity(f, c.resolver.UnitKind(n.unit))
	} else {
		v = Number(f)
	}
	return v, !math.IsInf(f, 0) && !math.IsNaN(f)
}

func (c *Compiler) emitField(prog *Program, host Host, n *node) {
	obj := c.tree.at(n.left)
	field := c.tree.at(n.right)

	if ref := resolveIdentifier(host, obj.text, field.text); ref != nil {
		prog.emit(UOP{Op: OpPushVar, Ref: ref})
		return
	}
	if resolveIdentifier(host, obj.text, "") == nil {
		c.report(StageCodeGen, fmt.Sprintf("unrecognized item '%s'", obj.text), obj.offset, false)
	} else {
		c.report(StageCodeGen, fmt.Sprintf("unrecognized property '%s'", field.text), field.offset, false)
	}
	emitZero(prog)
}

func emitZero(prog *Program) {
	zero := Number(0)
	prog.emit(UOP{Op: OpPushConst, Value: &zero})
}

func resolveIdentifier(host Host, object, field string) VarRef {
	if host == nil {
		return nil
	}
	return host.ResolveIdentifier(object, field)
}

func resolveFunction(host Host, name string) FuncRef {
	if host == nil {
		return nil
	}
	return host.ResolveFunction(name)
}
