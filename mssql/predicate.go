package mssql

import (
	"fmt"
	"strings"

	"github.com/CyberdineDevelopment/go-datakit/core/command"
	"github.com/CyberdineDevelopment/go-datakit/core/expr"
)

// paramContext carries the globally unique parameter numbering for one
// translation call. A fresh context is allocated per top-level Translate and
// threaded by reference through every recursive step, so parameter names come
// out in left-to-right rendering order. It is never stored on the translator.
type paramContext struct {
	n      int
	params []command.Parameter
}

func newParamContext() *paramContext {
	return &paramContext{}
}

// bind allocates the next placeholder, records the value and returns the
// placeholder name. A nil value binds an explicit NULL parameter.
func (c *paramContext) bind(value any) string {
	name := fmt.Sprintf("@p%d", c.n)
	c.n++
	c.params = append(c.params, command.Parameter{Name: name, Value: value})
	return name
}

// quoteIdentifier bracket-quotes an identifier, escaping closing brackets.
func quoteIdentifier(s string) string {
	return "[" + strings.ReplaceAll(s, "]", "]]") + "]"
}

var compareSQL = map[expr.Operator]string{
	expr.OpEq: "=",
	expr.OpNe: "<>",
	expr.OpLt: "<",
	expr.OpLe: "<=",
	expr.OpGt: ">",
	expr.OpGe: ">=",
}

var logicalSQL = map[expr.Operator]string{
	expr.OpAnd: "AND",
	expr.OpOr:  "OR",
}

// columnRef renders a row-rooted field access as a quoted column reference.
// Only the terminal field name is used; path qualification is dropped.
func columnRef(n *expr.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case expr.KindField:
		return quoteIdentifier(n.Name), true
	case expr.KindMember:
		if expr.DependsOnRow(n) {
			return quoteIdentifier(n.Name), true
		}
	}
	return "", false
}

// translateExpr renders a predicate subtree into a SQL fragment, binding
// parameters on ctx. Any subtree with no row dependency is constant-folded to
// a single bound literal, regardless of nesting depth; everything else is
// dispatched over the closed node-kind set, and a node with no rendering rule
// fails with UnsupportedExpressionError rather than being approximated.
func translateExpr(n *expr.Node, ctx *paramContext) (string, error) {
	if n == nil {
		return "", fmt.Errorf("cannot translate nil expression node")
	}

	if !expr.DependsOnRow(n) {
		value, err := expr.Eval(n)
		if err != nil {
			return "", fmt.Errorf("constant folding failed: %w", err)
		}
		return ctx.bind(value), nil
	}

	switch n.Kind {
	case expr.KindField, expr.KindMember:
		col, ok := columnRef(n)
		if !ok {
			return "", &command.UnsupportedExpressionError{Kind: string(n.Kind)}
		}
		return col, nil

	case expr.KindCompare:
		left, err := translateOperand(n.Left, ctx)
		if err != nil {
			return "", err
		}
		right, err := translateOperand(n.Right, ctx)
		if err != nil {
			return "", err
		}
		op, ok := compareSQL[n.Op]
		if !ok {
			return "", &command.UnsupportedExpressionError{Kind: fmt.Sprintf("%s.%s", n.Kind, n.Op)}
		}
		return "(" + left + " " + op + " " + right + ")", nil

	case expr.KindLogical:
		left, err := translateOperand(n.Left, ctx)
		if err != nil {
			return "", err
		}
		right, err := translateOperand(n.Right, ctx)
		if err != nil {
			return "", err
		}
		op, ok := logicalSQL[n.Op]
		if !ok {
			return "", &command.UnsupportedExpressionError{Kind: fmt.Sprintf("%s.%s", n.Kind, n.Op)}
		}
		return "(" + left + " " + op + " " + right + ")", nil

	case expr.KindCall:
		return translateCall(n, ctx)

	default:
		// Arithmetic over row fields lands here: no rendering rule.
		return "", &command.UnsupportedExpressionError{Kind: string(n.Kind)}
	}
}

// translateOperand renders a child fragment for composition under a compare
// or logical node. Rendered call fragments are bare, so they get one paren
// pair here to nest like any other condition; a call standing alone at the
// top level stays unwrapped.
func translateOperand(n *expr.Node, ctx *paramContext) (string, error) {
	s, err := translateExpr(n, ctx)
	if err != nil {
		return "", err
	}
	if n.Kind == expr.KindCall && expr.DependsOnRow(n) {
		return "(" + s + ")", nil
	}
	return s, nil
}

// translateCall renders the supported string-pattern methods. The receiver
// must be a row-rooted field access and the argument must constant-fold to a
// string.
func translateCall(n *expr.Node, ctx *paramContext) (string, error) {
	var pattern func(string) string
	switch n.Op {
	case expr.OpContains:
		pattern = func(s string) string { return "%" + s + "%" }
	case expr.OpStartsWith:
		pattern = func(s string) string { return s + "%" }
	case expr.OpEndsWith:
		pattern = func(s string) string { return "%" + s }
	default:
		return "", &command.UnsupportedExpressionError{Kind: fmt.Sprintf("%s.%s", n.Kind, n.Name)}
	}

	col, ok := columnRef(n.Recv)
	if !ok {
		return "", fmt.Errorf("string method %s requires a row field receiver", n.Op)
	}
	if len(n.Args) != 1 {
		return "", fmt.Errorf("string method %s requires exactly one argument", n.Op)
	}
	if expr.DependsOnRow(n.Args[0]) {
		return "", &command.UnsupportedExpressionError{Kind: fmt.Sprintf("%s.%s", n.Kind, n.Name)}
	}
	value, err := expr.Eval(n.Args[0])
	if err != nil {
		return "", fmt.Errorf("constant folding failed: %w", err)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("string method %s requires a string argument, got %T", n.Op, value)
	}
	return col + " LIKE " + ctx.bind(pattern(s)), nil
}
