package expr

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Eval evaluates a closed subtree, one with no row dependency, to a concrete
// value. It is the constant-folding step of translation: captured outer
// values, properties of literals and helper computations all reduce to a
// single literal regardless of nesting depth. Evaluating a row-dependent node
// is an error, never a panic.
func Eval(n *Node) (any, error) {
	if n == nil {
		return nil, fmt.Errorf("cannot evaluate nil expression node")
	}
	switch n.Kind {
	case KindConstant:
		return n.Value, nil
	case KindField:
		return nil, fmt.Errorf("cannot evaluate row-dependent field %q", n.Name)
	case KindMember:
		recv, err := Eval(n.Recv)
		if err != nil {
			return nil, err
		}
		return member(recv, n.Name)
	case KindArithmetic:
		return evalArithmetic(n)
	case KindCompare:
		return evalCompare(n)
	case KindLogical:
		return evalLogical(n)
	case KindCall:
		return evalCall(n)
	default:
		return nil, fmt.Errorf("cannot evaluate expression node kind %q", n.Kind)
	}
}

// member resolves a property access on an evaluated receiver using reflection.
// Maps with string keys and struct fields (through any level of pointers) are
// supported.
func member(recv any, name string) (any, error) {
	if recv == nil {
		return nil, fmt.Errorf("cannot access member %q of nil value", name)
	}
	v := reflect.ValueOf(recv)
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return nil, fmt.Errorf("cannot access member %q of nil value", name)
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot access member %q of map with %s keys", name, v.Type().Key())
		}
		entry := v.MapIndex(reflect.ValueOf(name))
		if !entry.IsValid() {
			return nil, fmt.Errorf("member %q not present in map", name)
		}
		return entry.Interface(), nil
	case reflect.Struct:
		field := v.FieldByName(name)
		if !field.IsValid() {
			return nil, fmt.Errorf("member %q not found on %s", name, v.Type())
		}
		if !field.CanInterface() {
			return nil, fmt.Errorf("member %q on %s is unexported", name, v.Type())
		}
		return field.Interface(), nil
	default:
		return nil, fmt.Errorf("cannot access member %q of %T", name, recv)
	}
}

func evalArithmetic(n *Node) (any, error) {
	left, err := Eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := Eval(n.Right)
	if err != nil {
		return nil, err
	}

	if li, lok := toInt64(left); lok {
		if ri, rok := toInt64(right); rok {
			switch n.Op {
			case OpAdd:
				return li + ri, nil
			case OpSub:
				return li - ri, nil
			case OpMul:
				return li * ri, nil
			case OpDiv:
				if ri == 0 {
					return nil, fmt.Errorf("division by zero in constant expression")
				}
				return li / ri, nil
			}
		}
	}

	lf, lok := ToFloat64(left)
	rf, rok := ToFloat64(right)
	if !lok || !rok {
		return nil, fmt.Errorf("arithmetic %s requires numeric operands, got %T and %T", n.Op, left, right)
	}
	switch n.Op {
	case OpAdd:
		return lf + rf, nil
	case OpSub:
		return lf - rf, nil
	case OpMul:
		return lf * rf, nil
	case OpDiv:
		if rf == 0 {
			return nil, fmt.Errorf("division by zero in constant expression")
		}
		return lf / rf, nil
	default:
		return nil, fmt.Errorf("unknown arithmetic operator %q", n.Op)
	}
}

func evalCompare(n *Node) (any, error) {
	left, err := Eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := Eval(n.Right)
	if err != nil {
		return nil, err
	}
	switch n.Op {
	case OpEq:
		return reflect.DeepEqual(left, right), nil
	case OpNe:
		return !reflect.DeepEqual(left, right), nil
	}
	lf, lok := ToFloat64(left)
	rf, rok := ToFloat64(right)
	if !lok || !rok {
		return nil, fmt.Errorf("comparison %s requires numeric operands, got %T and %T", n.Op, left, right)
	}
	switch n.Op {
	case OpLt:
		return lf < rf, nil
	case OpLe:
		return lf <= rf, nil
	case OpGt:
		return lf > rf, nil
	case OpGe:
		return lf >= rf, nil
	default:
		return nil, fmt.Errorf("unknown comparison operator %q", n.Op)
	}
}

func evalLogical(n *Node) (any, error) {
	left, err := Eval(n.Left)
	if err != nil {
		return nil, err
	}
	right, err := Eval(n.Right)
	if err != nil {
		return nil, err
	}
	lb, lok := left.(bool)
	rb, rok := right.(bool)
	if !lok || !rok {
		return nil, fmt.Errorf("logical %s requires boolean operands, got %T and %T", n.Op, left, right)
	}
	switch n.Op {
	case OpAnd:
		return lb && rb, nil
	case OpOr:
		return lb || rb, nil
	default:
		return nil, fmt.Errorf("unknown logical operator %q", n.Op)
	}
}

// evalCall resolves a closed call either through a built-in string method or
// by reflection over the receiver's method set.
func evalCall(n *Node) (any, error) {
	recv, err := Eval(n.Recv)
	if err != nil {
		return nil, err
	}
	args := make([]any, len(n.Args))
	for i, arg := range n.Args {
		v, err := Eval(arg)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	switch n.Op {
	case OpContains, OpStartsWith, OpEndsWith:
		s, sok := recv.(string)
		if !sok || len(args) != 1 {
			return nil, fmt.Errorf("string method %s requires a string receiver and one argument", n.Op)
		}
		needle, nok := args[0].(string)
		if !nok {
			return nil, fmt.Errorf("string method %s requires a string argument, got %T", n.Op, args[0])
		}
		switch n.Op {
		case OpContains:
			return strings.Contains(s, needle), nil
		case OpStartsWith:
			return strings.HasPrefix(s, needle), nil
		default:
			return strings.HasSuffix(s, needle), nil
		}
	}

	return callMethod(recv, n.Name, args)
}

// callMethod invokes a named method on the receiver via reflection. The method
// must return a single value, optionally followed by an error.
func callMethod(recv any, name string, args []any) (any, error) {
	if recv == nil {
		return nil, fmt.Errorf("cannot call method %q on nil receiver", name)
	}
	rv := reflect.ValueOf(recv)
	m := rv.MethodByName(name)
	if !m.IsValid() {
		return nil, fmt.Errorf("method %q not found on %T", name, recv)
	}
	mt := m.Type()
	if mt.NumIn() != len(args) {
		return nil, fmt.Errorf("method %q expects %d arguments, got %d", name, mt.NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		av := reflect.ValueOf(arg)
		if !av.IsValid() || !av.Type().AssignableTo(mt.In(i)) {
			return nil, fmt.Errorf("argument %d of method %q is not assignable to %s", i, name, mt.In(i))
		}
		in[i] = av
	}
	out := m.Call(in)
	switch len(out) {
	case 1:
		return out[0].Interface(), nil
	case 2:
		if errVal := out[1].Interface(); errVal != nil {
			callErr, ok := errVal.(error)
			if !ok {
				return nil, fmt.Errorf("method %q second return value is not an error", name)
			}
			return nil, fmt.Errorf("method %q failed: %w", name, callErr)
		}
		return out[0].Interface(), nil
	default:
		return nil, fmt.Errorf("method %q must return one value or a value and an error", name)
	}
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int:
		return int64(val), true
	case int8:
		return int64(val), true
	case int16:
		return int64(val), true
	case int32:
		return int64(val), true
	case int64:
		return val, true
	case uint:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	default:
		return 0, false
	}
}

// ToFloat64 converts a value of the common numeric types to a float64. It
// returns the converted value and whether the conversion succeeded.
func ToFloat64(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case float32:
		return float64(val), true
	case float64:
		return val, true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
