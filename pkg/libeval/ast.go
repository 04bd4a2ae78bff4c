package libeval

import (
	"fmt"
	"strings"
)

// nodeKind tags an AST node as a terminal or an operator.
type nodeKind int

const (
	nodeNumber nodeKind = iota
	nodeUnit
	nodeString
	nodeIdent
	nodeStructRef
	nodeFuncCall
	nodeArgList
	nodeAdd
	nodeSub
	nodeMul
	nodeDiv
	nodeLess
	nodeGreater
	nodeLessEqual
	nodeGreaterEqual
	nodeEqual
	nodeNotEqual
	nodeAnd
	nodeOr
	nodeNot
	nodeNeg
)

var nodeNames = [...]string{
	nodeNumber:       "NUMBER",
	nodeUnit:         "UNIT",
	nodeString:       "STRING",
	nodeIdent:        "IDENTIFIER",
	nodeStructRef:    "STRUCT_REF",
	nodeFuncCall:     "FUNC_CALL",
	nodeArgList:      "ARG_LIST",
	nodeAdd:          "ADD",
	nodeSub:          "SUB",
	nodeMul:          "MUL",
	nodeDiv:          "DIV",
	nodeLess:         "LESS",
	nodeGreater:      "GREATER",
	nodeLessEqual:    "LESS_EQUAL",
	nodeGreaterEqual: "GREATER_EQUAL",
	nodeEqual:        "EQUAL",
	nodeNotEqual:     "NOT_EQUAL",
	nodeAnd:          "AND",
	nodeOr:           "OR",
	nodeNot:          "NOT",
	nodeNeg:          "NEGATE",
}

func (k nodeKind) String() string {
	if int(k) < len(nodeNames) {
		return nodeNames[k]
	}
	return fmt.Sprintf("node(%d)", int(k))
}

// nodeID indexes a node in the tree arena.
type nodeID int32

const noNode nodeID = -1

// node is a binary-branching AST node. Terminals carry their literal text;
// a NUMBER may carry a UNIT node as its left child.
type node struct {
	kind   nodeKind
	text   string
	unit   int
	offset int
	left   nodeID
	right  nodeID

	// code generation state
	visited bool
	op      *UOP
	failed  bool
}

// tree is an index arena of nodes owned by a Compiler and cleared at the
// start of every compilation.
type tree struct {
	nodes []node
}

func (t *tree) reset() {
	t.nodes = t.nodes[:0]
}

func (t *tree) add(n node) nodeID {
	t.nodes = append(t.nodes, n)
	return nodeID(len(t.nodes) - 1)
}

func (t *tree) at(id nodeID) *node {
	return &t.nodes[id]
}

func (t *tree) leaf(kind nodeKind, text string, offset int) nodeID {
	return t.add(node{kind: kind, text: text, offset: offset, unit: -1, left: noNode, right: noNode})
}

func (t *tree) branch(kind nodeKind, left, right nodeID, offset int) nodeID {
	return t.add(node{kind: kind, offset: offset, unit: -1, left: left, right: right})
}

// args flattens a right-leaning ARG_LIST chain into left-to-right order.
func (t *tree) args(list nodeID) []nodeID {
	var out []nodeID
	for list != noNode {
		n := t.at(list)
		out = append(out, n.left)
		list = n.right
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// dump renders the subtree at root, one node per line, using an explicit
// stack so deeply nested input cannot exhaust the goroutine stack.
func (t *tree) dump(root nodeID) string {
	if root == noNode || int(root) >= len(t.nodes) {
		return ""
	}

	type item struct {
		id    nodeID
		depth int
	}

	var sb strings.Builder
	stack := []item{{root, 0}}
	for len(stack) > 0 {
		it := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		n := t.at(it.id)
		sb.WriteString(strings.Repeat("  ", it.depth))
		sb.WriteString(n.kind.String())
		if n.text != "" {
			fmt.Fprintf(&sb, " %q", n.text)
		}
		fmt.Fprintf(&sb, " @%d\n", n.offset)

		if n.right != noNode {
			stack = append(stack, item{n.right, it.depth + 1})
		}
		if n.left != noNode {
			stack = append(stack, item{n.left, it.depth + 1})
		}
	}
	return sb.String()
}
