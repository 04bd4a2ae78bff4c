package libeval

import "fmt"

// parseEvent is the outcome of feeding one token to the parser.
type parseEvent int

const (
	parseContinue parseEvent = iota
	parseAccept
	parseError
)

type parserState int

const (
	expectOperand  parserState = iota
	expectOperator             // after a complete operand
	afterNumber                // a UNIT may still attach to the number
	afterIdent                 // '.' or '(' may still follow the identifier
	expectMember               // an identifier must follow '.'
	afterMember                // '(' may still turn the member into a method call
	expectEnd                  // only end of input may follow ';'
	parserFailed
)

type frameKind int

const (
	frameOp frameKind = iota
	frameParen
	frameCall
)

// frame is an entry on the parser's operator stack.
type frame struct {
	kind   frameKind
	op     nodeKind
	unary  bool
	offset int

	// call frames
	name     nodeID
	receiver nodeID
	args     nodeID
	base     int
}

// Binding strength of operators, lowest first.
const (
	precOr = iota + 1
	precAnd
	precCompare
	precAdd
	precMul
	precUnary
)

var binaryOps = map[TokenKind]struct {
	kind nodeKind
	prec int
}{
	TokOr:           {nodeOr, precOr},
	TokAnd:          {nodeAnd, precAnd},
	TokEqual:        {nodeEqual, precCompare},
	TokNotEqual:     {nodeNotEqual, precCompare},
	TokLess:         {nodeLess, precCompare},
	TokGreater:      {nodeGreater, precCompare},
	TokLessEqual:    {nodeLessEqual, precCompare},
	TokGreaterEqual: {nodeGreaterEqual, precCompare},
	TokPlus:         {nodeAdd, precAdd},
	TokMinus:        {nodeSub, precAdd},
	TokMul:          {nodeMul, precMul},
	TokDiv:          {nodeDiv, precMul},
}

func (f *frame) prec() int {
	if f.unary {
		return precUnary
	}
	switch f.op {
	case nodeOr:
		return precOr
	case nodeAnd:
		return precAnd
	case nodeAdd, nodeSub:
		return precAdd
	case nodeMul, nodeDiv:
		return precMul
	default:
		return precCompare
	}
}

// parser is a push-token shift/reduce engine. Tokens are fed one at a time
// and AST nodes are built into the shared tree arena. It keeps explicit
// operand and operator stacks and never recurses on nesting depth.
type parser struct {
	tree     *tree
	operands []nodeID
	frames   []frame
	state    parserState

	pendingObj    nodeID
	pendingMember nodeID

	onError  func(msg string, offset int)
	onAccept func(root nodeID)
}

func newParser(t *tree, onError func(string, int), onAccept func(nodeID)) *parser {
	return &parser{
		tree:          t,
		pendingObj:    noNode,
		pendingMember: noNode,
		onError:       onError,
		onAccept:      onAccept,
	}
}

// feed consumes one token.
func (p *parser) feed(tok Token) parseEvent {
	switch p.state {
	case parserFailed:
		return parseError

	case expectEnd:
		if tok.Kind == TokEnd {
			return p.finish(tok)
		}
		return p.fail(fmt.Sprintf("unexpected %s after ';'", tok.Kind), tok.Offset)

	case expectMember:
		if tok.Kind != TokIdent {
			return p.fail(fmt.Sprintf("expected member name after '.', found %s", tok.Kind), tok.Offset)
		}
		p.pendingMember = p.tree.leaf(nodeIdent, tok.Text, tok.Offset)
		p.state = afterMember
		return parseContinue

	case afterMember:
		obj := p.pendingObj
		if tok.Kind == TokLParen {
			p.openCall(p.pendingMember, obj, tok.Offset)
			return parseContinue
		}
		ref := p.tree.branch(nodeStructRef, obj, p.pendingMember, p.tree.at(obj).offset)
		p.operands = append(p.operands, ref)
		p.state = expectOperator
		return p.feed(tok)

	case afterIdent:
		switch tok.Kind {
		case TokDot:
			p.state = expectMember
			return parseContinue
		case TokLParen:
			p.openCall(p.pendingObj, noNode, tok.Offset)
			return parseContinue
		}
		p.operands = append(p.operands, p.pendingObj)
		p.state = expectOperator
		return p.feed(tok)

	case afterNumber:
		if tok.Kind == TokUnit {
			unit := p.tree.add(node{kind: nodeUnit, text: tok.Text, unit: tok.Unit, offset: tok.Offset, left: noNode, right: noNode})
			num := p.tree.at(p.operands[len(p.operands)-1])
			num.left = unit
			num.unit = tok.Unit
			p.state = expectOperator
			return parseContinue
		}
		p.state = expectOperator
		return p.feed(tok)

	case expectOperand:
		return p.operand(tok)

	default:
		return p.operator(tok)
	}
}

func (p *parser) operand(tok Token) parseEvent {
	switch tok.Kind {
	case TokNumber:
		p.operands = append(p.operands, p.tree.leaf(nodeNumber, tok.Text, tok.Offset))
		p.state = afterNumber

	case TokString:
		p.operands = append(p.operands, p.tree.leaf(nodeString, tok.Text, tok.Offset))
		p.state = expectOperator

	case TokIdent:
		p.pendingObj = p.tree.leaf(nodeIdent, tok.Text, tok.Offset)
		p.state = afterIdent

	case TokLParen:
		p.frames = append(p.frames, frame{kind: frameParen, offset: tok.Offset})

	case TokNot:
		p.frames = append(p.frames, frame{kind: frameOp, op: nodeNot, unary: true, offset: tok.Offset})

	case TokMinus:
		p.frames = append(p.frames, frame{kind: frameOp, op: nodeNeg, unary: true, offset: tok.Offset})

	case TokRParen:
		top := p.top()
		if top == nil || top.kind != frameCall || top.args != noNode || len(p.operands) != top.base {
			return p.fail("unexpected ')'", tok.Offset)
		}
		p.closeCall()

	case TokUnit:
		return p.fail(fmt.Sprintf("unit '%s' must follow a number", tok.Text), tok.Offset)

	case TokEnd:
		return p.fail("unexpected end of expression", tok.Offset)

	default:
		return p.fail(fmt.Sprintf("unexpected %s", tok.Kind), tok.Offset)
	}
	return parseContinue
}

func (p *parser) operator(tok Token) parseEvent {
	if op, ok := binaryOps[tok.Kind]; ok {
		if !p.reduce(op.prec) {
			return parseError
		}
		p.frames = append(p.frames, frame{kind: frameOp, op: op.kind, offset: tok.Offset})
		p.state = expectOperand
		return parseContinue
	}

	switch tok.Kind {
	case TokComma:
		if !p.reduce(0) {
			return parseError
		}
		top := p.top()
		if top == nil || top.kind != frameCall {
			return p.fail("unexpected ','", tok.Offset)
		}
		p.takeArg(top)
		p.state = expectOperand
		return parseContinue

	case TokRParen:
		if !p.reduce(0) {
			return parseError
		}
		top := p.top()
		switch {
		case top == nil:
			return p.fail("unbalanced ')'", tok.Offset)
		case top.kind == frameParen:
			p.frames = p.frames[:len(p.frames)-1]
		default:
			p.takeArg(top)
			p.closeCall()
		}
		p.state = expectOperator
		return parseContinue

	case TokSemicolon:
		if !p.reduce(0) {
			return parseError
		}
		if len(p.frames) > 0 {
			return p.fail("missing ')'", tok.Offset)
		}
		p.state = expectEnd
		return parseContinue

	case TokEnd:
		return p.finish(tok)

	case TokUnit:
		return p.fail(fmt.Sprintf("unit '%s' must follow a number", tok.Text), tok.Offset)

	default:
		return p.fail(fmt.Sprintf("unexpected %s", tok.Kind), tok.Offset)
	}
}

func (p *parser) finish(tok Token) parseEvent {
	if !p.reduce(0) {
		return parseError
	}
	if len(p.frames) > 0 {
		return p.fail("missing ')'", tok.Offset)
	}
	if len(p.operands) != 1 {
		return p.fail("malformed expression", tok.Offset)
	}
	p.onAccept(p.operands[0])
	return parseAccept
}

// reduce builds operator nodes while the top operator binds at least as
// tightly as prec. Parentheses and calls stop the reduction.
func (p *parser) reduce(prec int) bool {
	for {
		top := p.top()
		if top == nil || top.kind != frameOp || top.prec() < prec {
			return true
		}
		f := *top
		p.frames = p.frames[:len(p.frames)-1]

		need := 2
		if f.unary {
			need = 1
		}
		if len(p.operands) < need {
			p.fail("missing operand", f.offset)
			return false
		}

		var id nodeID
		if f.unary {
			x := p.pop()
			id = p.tree.branch(f.op, x, noNode, f.offset)
		} else {
			r := p.pop()
			l := p.pop()
			id = p.tree.branch(f.op, l, r, f.offset)
		}
		p.operands = append(p.operands, id)
	}
}

func (p *parser) openCall(name, receiver nodeID, offset int) {
	p.frames = append(p.frames, frame{
		kind:     frameCall,
		offset:   offset,
		name:     name,
		receiver: receiver,
		args:     noNode,
		base:     len(p.operands),
	})
	p.state = expectOperand
}

// takeArg moves the completed argument on top of the operand stack onto
// the call's argument chain. The newest argument heads the chain.
func (p *parser) takeArg(call *frame) {
	if len(p.operands) <= call.base {
		return
	}
	arg := p.pop()
	call.args = p.tree.branch(nodeArgList, arg, call.args, p.tree.at(arg).offset)
}

func (p *parser) closeCall() {
	f := p.frames[len(p.frames)-1]
	p.frames = p.frames[:len(p.frames)-1]

	nameNode := p.tree.at(f.name)
	id := p.tree.branch(nodeFuncCall, f.name, f.args, nameNode.offset)
	if f.receiver != noNode {
		id = p.tree.branch(nodeStructRef, f.receiver, id, p.tree.at(f.receiver).offset)
	}
	p.operands = append(p.operands, id)
	p.state = expectOperator
}

func (p *parser) top() *frame {
	if len(p.frames) == 0 {
		return nil
	}
	return &p.frames[len(p.frames)-1]
}

func (p *parser) pop() nodeID {
	id := p.operands[len(p.operands)-1]
	p.operands = p.operands[:len(p.operands)-1]
	return id
}

func (p *parser) fail(msg string, offset int) parseEvent {
	p.state = parserFailed
	if p.onError != nil {
		p.onError(msg, offset)
	}
	return parseError
}
