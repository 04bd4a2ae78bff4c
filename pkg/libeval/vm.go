package libeval

import (
	"fmt"

	"ruleforge-hq/anvil/pkg/units"
)

// RunE executes the program against ctx and returns the single value left
// on the stack. Any fault yields numeric 0 together with an error: a host
// error or panic is returned as *RuntimeError, a malformed stack as
// ErrStackInvariant or ErrStackUnderflow. The context's stack and arena
// are reset before the run; bound objects are kept.
func (p *Program) RunE(ctx *Context) (result Value, err error) {
	if ctx == nil {
		ctx = acquireContext()
		defer releaseContext(ctx)
	}
	ctx.Reset()

	op := OpPushConst
	defer func() {
		if r := recover(); r != nil {
			result = Number(0)
			err = &RuntimeError{Op: op, Cause: fmt.Errorf("%w: %v", ErrHostFailure, r)}
		}
	}()

	for i := range p.code {
		u := &p.code[i]
		op = u.Op

		if err := step(ctx, u); err != nil {
			return Number(0), &RuntimeError{Op: u.Op, Cause: err}
		}
		if ctx.underflow {
			return Number(0), &RuntimeError{Op: u.Op, Cause: ErrStackUnderflow}
		}
	}

	if ctx.SP() != 1 {
		return Number(0), fmt.Errorf("%w: %d values on stack", ErrStackInvariant, ctx.SP())
	}
	return *ctx.Pop(), nil
}

// Run executes the program and returns its result, or numeric 0 on any
// fault. Callers that need the failure cause use RunE.
func (p *Program) Run(ctx *Context) Value {
	v, _ := p.RunE(ctx)
	return v
}

func step(ctx *Context, u *UOP) error {
	switch u.Op {
	case OpPushConst:
		if u.Value == nil {
			ctx.Push(ctx.AllocValue())
			return nil
		}
		ctx.Push(u.Value)

	case OpPushVar:
		v, err := u.Ref.GetValue(ctx)
		if err != nil {
			return err
		}
		slot := ctx.AllocValue()
		*slot = v
		ctx.Push(slot)

	case OpMethodCall:
		return u.Func.Call(ctx, u.Ref)

	case OpNot:
		arg := ctx.Pop()
		res := ctx.AllocValue()
		*res = Bool(arg.AsDouble() == 0).WithUnit(arg.Unit())
		ctx.Push(res)

	case OpNegate:
		arg := ctx.Pop()
		res := ctx.AllocValue()
		*res = Quantity(-arg.AsDouble(), arg.Unit())
		ctx.Push(res)

	default:
		if !u.Op.binary() {
			return fmt.Errorf("unknown opcode %d", int(u.Op))
		}
		right := ctx.Pop()
		left := ctx.Pop()
		res := ctx.AllocValue()
		*res = binaryOp(ctx, u.Op, left, right)
		ctx.Push(res)
	}
	return nil
}

func binaryOp(ctx *Context, op OpCode, left, right *Value) Value {
	a, b := left.AsDouble(), right.AsDouble()

	unit := left.Unit()
	if unit == units.None {
		unit = right.Unit()
	}

	switch op {
	case OpAdd:
		return Quantity(a+b, unit)
	case OpSub:
		return Quantity(a-b, unit)
	case OpMul:
		return Quantity(a*b, unit)
	case OpDiv:
		if b == 0 {
			ctx.ReportError("division by zero")
			return Quantity(0, unit)
		}
		return Quantity(a/b, unit)
	case OpLess:
		return Bool(a < b)
	case OpGreater:
		return Bool(a > b)
	case OpLessEqual:
		return Bool(a <= b)
	case OpGreaterEqual:
		return Bool(a >= b)
	case OpEqual:
		return Bool(left.EqualTo(right))
	case OpNotEqual:
		return Bool(left.NotEqualTo(right))
	case OpAnd:
		return Bool(a != 0 && b != 0)
	case OpOr:
		return Bool(a != 0 || b != 0)
	}
	return Number(0)
}
