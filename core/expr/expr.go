// Package expr defines the predicate abstract syntax tree used by query,
// update, delete, count and exists commands. A tree describes a boolean
// condition over a single bound row: field accesses reference row columns,
// everything else is either composed with comparison/logical operators or
// constant-folded by the dialect translator before rendering.
//
// The node kinds form a closed set; translators dispatch over Kind
// exhaustively and reject anything they have no rendering rule for.
package expr

// Kind discriminates the node variants of the tree.
type Kind string

// Node kinds.
const (
	KindConstant   Kind = "constant"
	KindField      Kind = "field"
	KindMember     Kind = "member"
	KindCompare    Kind = "compare"
	KindLogical    Kind = "logical"
	KindArithmetic Kind = "arithmetic"
	KindCall       Kind = "call"
)

// Operator names the operation of a compare, logical or arithmetic node, or
// the method of a call node.
type Operator string

// Comparison operators.
const (
	OpEq Operator = "eq"
	OpNe Operator = "ne"
	OpLt Operator = "lt"
	OpLe Operator = "le"
	OpGt Operator = "gt"
	OpGe Operator = "ge"
)

// Logical operators.
const (
	OpAnd Operator = "and"
	OpOr  Operator = "or"
)

// Arithmetic operators. Constructible so captured computations can be folded;
// a dialect translator rejects them when they depend on the row.
const (
	OpAdd Operator = "add"
	OpSub Operator = "sub"
	OpMul Operator = "mul"
	OpDiv Operator = "div"
)

// String-pattern call methods with dedicated rendering rules.
const (
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
)

// Node is one node of the predicate tree. Which fields are meaningful depends
// on Kind: Value for constants, Name for fields and members and calls, Recv
// for members and calls, Left/Right for binary nodes, Args for calls.
// Nodes are treated as immutable once built.
type Node struct {
	Kind  Kind
	Op    Operator
	Name  string
	Value any
	Recv  *Node
	Left  *Node
	Right *Node
	Args  []*Node
}

// Value creates a constant node. A nil value is an explicit NULL literal, not
// an absent node.
func Value(v any) *Node {
	return &Node{Kind: KindConstant, Value: v}
}

// Field creates a column reference rooted at the predicate's bound row.
func Field(name string) *Node {
	return &Node{Kind: KindField, Name: name}
}

// Member creates a property access on a receiver node. Rooted at the row it
// renders as a column named by the terminal member; rooted anywhere else it is
// constant-folded.
func Member(recv *Node, name string) *Node {
	return &Node{Kind: KindMember, Name: name, Recv: recv}
}

func compare(op Operator, left, right *Node) *Node {
	return &Node{Kind: KindCompare, Op: op, Left: left, Right: right}
}

// Eq creates an equality comparison.
func Eq(left, right *Node) *Node { return compare(OpEq, left, right) }

// Ne creates an inequality comparison.
func Ne(left, right *Node) *Node { return compare(OpNe, left, right) }

// Lt creates a less-than comparison.
func Lt(left, right *Node) *Node { return compare(OpLt, left, right) }

// Le creates a less-than-or-equal comparison.
func Le(left, right *Node) *Node { return compare(OpLe, left, right) }

// Gt creates a greater-than comparison.
func Gt(left, right *Node) *Node { return compare(OpGt, left, right) }

// Ge creates a greater-than-or-equal comparison.
func Ge(left, right *Node) *Node { return compare(OpGe, left, right) }

// And creates a boolean conjunction.
func And(left, right *Node) *Node {
	return &Node{Kind: KindLogical, Op: OpAnd, Left: left, Right: right}
}

// Or creates a boolean disjunction.
func Or(left, right *Node) *Node {
	return &Node{Kind: KindLogical, Op: OpOr, Left: left, Right: right}
}

func arithmetic(op Operator, left, right *Node) *Node {
	return &Node{Kind: KindArithmetic, Op: op, Left: left, Right: right}
}

// Add creates an addition node.
func Add(left, right *Node) *Node { return arithmetic(OpAdd, left, right) }

// Sub creates a subtraction node.
func Sub(left, right *Node) *Node { return arithmetic(OpSub, left, right) }

// Mul creates a multiplication node.
func Mul(left, right *Node) *Node { return arithmetic(OpMul, left, right) }

// Div creates a division node.
func Div(left, right *Node) *Node { return arithmetic(OpDiv, left, right) }

// Contains creates a substring-match call on the receiver.
func Contains(recv, arg *Node) *Node {
	return Call(recv, OpContains, arg)
}

// StartsWith creates a prefix-match call on the receiver.
func StartsWith(recv, arg *Node) *Node {
	return Call(recv, OpStartsWith, arg)
}

// EndsWith creates a suffix-match call on the receiver.
func EndsWith(recv, arg *Node) *Node {
	return Call(recv, OpEndsWith, arg)
}

// Call creates a method-call node. Calls whose method has no rendering rule
// and whose receiver depends on the row fail translation; closed calls are
// constant-folded.
func Call(recv *Node, method Operator, args ...*Node) *Node {
	return &Node{Kind: KindCall, Op: method, Name: string(method), Recv: recv, Args: args}
}

// DependsOnRow reports whether any node of the subtree references the bound
// row. Subtrees for which this is false are closed and can be evaluated to a
// single value before rendering.
func DependsOnRow(n *Node) bool {
	if n == nil {
		return false
	}
	if n.Kind == KindField {
		return true
	}
	if DependsOnRow(n.Recv) || DependsOnRow(n.Left) || DependsOnRow(n.Right) {
		return true
	}
	for _, arg := range n.Args {
		if DependsOnRow(arg) {
			return true
		}
	}
	return false
}
