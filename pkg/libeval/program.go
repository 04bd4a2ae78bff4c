package libeval

import (
	"fmt"
	"strings"
)

// OpCode identifies a micro-operation of the stack machine.
type OpCode int

const (
	OpPushConst OpCode = iota
	OpPushVar
	OpMethodCall
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpEqual
	OpNotEqual
	OpAnd
	OpOr
	OpNot
	OpNegate
)

var opNames = [...]string{
	OpPushConst:    "PUSH_CONST",
	OpPushVar:      "PUSH_VAR",
	OpMethodCall:   "METHOD_CALL",
	OpAdd:          "ADD",
	OpSub:          "SUB",
	OpMul:          "MUL",
	OpDiv:          "DIV",
	OpLess:         "LESS",
	OpGreater:      "GREATER",
	OpLessEqual:    "LESS_EQUAL",
	OpGreaterEqual: "GREATER_EQUAL",
	OpEqual:        "EQUAL",
	OpNotEqual:     "NOT_EQUAL",
	OpAnd:          "AND",
	OpOr:           "OR",
	OpNot:          "NOT",
	OpNegate:       "NEGATE",
}

// String returns the opcode mnemonic.
func (o OpCode) String() string {
	if int(o) >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("op(%d)", int(o))
}

// binary reports whether the opcode pops two operands.
func (o OpCode) binary() bool {
	return o >= OpAdd && o <= OpOr
}

var nodeOps = map[nodeKind]OpCode{
	nodeAdd:          OpAdd,
	nodeSub:          OpSub,
	nodeMul:          OpMul,
	nodeDiv:          OpDiv,
	nodeLess:         OpLess,
	nodeGreater:      OpGreater,
	nodeLessEqual:    OpLessEqual,
	nodeGreaterEqual: OpGreaterEqual,
	nodeEqual:        OpEqual,
	nodeNotEqual:     OpNotEqual,
	nodeAnd:          OpAnd,
	nodeOr:           OpOr,
	nodeNot:          OpNot,
	nodeNeg:          OpNegate,
}

// UOP is a single instruction. Which payload fields are set depends on Op:
// PUSH_CONST carries Value, PUSH_VAR carries Ref, METHOD_CALL carries Func
// and optionally Ref as the receiver.
type UOP struct {
	Op    OpCode
	Value *Value
	Ref   VarRef
	Func  FuncRef
}

// String renders the instruction for listings.
func (u *UOP) String() string {
	switch u.Op {
	case OpPushConst:
		if u.Value == nil {
			return "PUSH_CONST <nil>"
		}
		if u.Value.Type() == TypeString {
			return fmt.Sprintf("PUSH_CONST %q", u.Value.AsString())
		}
		return "PUSH_CONST " + u.Value.String()
	case OpPushVar:
		return fmt.Sprintf("PUSH_VAR %T", u.Ref)
	case OpMethodCall:
		if u.Ref != nil {
			return fmt.Sprintf("METHOD_CALL %T self=%T", u.Func, u.Ref)
		}
		return fmt.Sprintf("METHOD_CALL %T", u.Func)
	default:
		return u.Op.String()
	}
}

// Program is a compiled expression: a linear sequence of UOPs. A Program
// is immutable after compilation and may be run concurrently, each run
// using its own Context.
type Program struct {
	code []UOP
}

func (p *Program) emit(u UOP) *UOP {
	p.code = append(p.code, u)
	return &p.code[len(p.code)-1]
}

// Len returns the number of instructions.
func (p *Program) Len() int {
	return len(p.code)
}

// Code returns a copy of the instruction sequence.
func (p *Program) Code() []UOP {
	out := make([]UOP, len(p.code))
	copy(out, p.code)
	return out
}

// Dump renders a human-readable listing of the program.
func (p *Program) Dump() string {
	var sb strings.Builder
	for i := range p.code {
		fmt.Fprintf(&sb, "%04d %s\n", i, p.code[i].String())
	}
	return sb.String()
}
