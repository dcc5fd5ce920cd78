package rules

import (
	"fmt"
	"math"
	"regexp"
)

// node is one element of a compiled expression tree. Evaluation is a
// recursive walk; nodes never mutate after compilation so a tree can be
// evaluated from many goroutines at once.
type node interface {
	eval(s *evalState) any
}

type evalState struct {
	fields map[string]any
	fault  error
}

func (s *evalState) fail(err error) {
	if s.fault == nil {
		s.fault = err
	}
}

type literalNode struct {
	value any
}

func (n *literalNode) eval(*evalState) any { return n.value }

// fieldNode reads a dotted path from the record, e.g. FromFull.Email.
type fieldNode struct {
	path []string
}

func (n *fieldNode) eval(s *evalState) any {
	var v any = s.fields[n.path[0]]
	for _, name := range n.path[1:] {
		v = property(v, name)
	}
	return v
}

// propertyNode reads a path from a computed value, e.g. first(ToFull).Email.
type propertyNode struct {
	object node
	path   []string
}

func (n *propertyNode) eval(s *evalState) any {
	v := n.object.eval(s)
	for _, name := range n.path {
		v = property(v, name)
	}
	return v
}

type negateNode struct {
	operand node
}

func (n *negateNode) eval(s *evalState) any {
	f, ok := toNumber(n.operand.eval(s))
	if !ok {
		return nil
	}
	return -f
}

type notNode struct {
	operand node
}

func (n *notNode) eval(s *evalState) any {
	return !truthy(n.operand.eval(s))
}

type arithNode struct {
	op          tokenKind
	left, right node
}

func (n *arithNode) eval(s *evalState) any {
	x, okX := toNumber(n.left.eval(s))
	y, okY := toNumber(n.right.eval(s))
	if !okX || !okY {
		return nil
	}
	switch n.op {
	case tokPlus:
		return x + y
	case tokMinus:
		return x - y
	case tokStar:
		return x * y
	case tokSlash:
		return x / y
	case tokMod:
		return math.Mod(x, y)
	case tokCaret:
		return math.Pow(x, y)
	}
	return nil
}

type compareNode struct {
	op          tokenKind
	left, right node
}

func (n *compareNode) eval(s *evalState) any {
	a := n.left.eval(s)
	b := n.right.eval(s)
	switch n.op {
	case tokEq:
		return equalValues(a, b)
	case tokNe:
		return !equalValues(a, b)
	default:
		return compareValues(n.op, a, b)
	}
}

// logicalNode short-circuits: the right side is not evaluated when the left
// side already decides the result.
type logicalNode struct {
	op          tokenKind
	left, right node
}

func (n *logicalNode) eval(s *evalState) any {
	left := truthy(n.left.eval(s))
	if n.op == tokAnd {
		if !left {
			return false
		}
		return truthy(n.right.eval(s))
	}
	if left {
		return true
	}
	return truthy(n.right.eval(s))
}

// matchNode implements ~=. re is set when the pattern is a string literal and
// was compiled together with the rule.
type matchNode struct {
	left    node
	pattern node
	re      *regexp.Regexp
}

func (n *matchNode) eval(s *evalState) any {
	text, ok := n.left.eval(s).(string)
	if !ok {
		return false
	}
	re := n.re
	if re == nil {
		src, ok := toText(n.pattern.eval(s))
		if !ok {
			return false
		}
		var err error
		re, err = regexp.Compile(src)
		if err != nil {
			s.fail(fmt.Errorf("pattern %q: %w", src, err))
			return false
		}
	}
	return re.MatchString(text)
}

type membershipNode struct {
	value  node
	items  []node
	negate bool
}

func (n *membershipNode) eval(s *evalState) any {
	v := n.value.eval(s)
	found := false
	if v != nil {
		for _, item := range n.items {
			if equalValues(v, item.eval(s)) {
				found = true
				break
			}
		}
	}
	return found != n.negate
}

type callNode struct {
	name string
	fn   Function
	args []node
}

func (n *callNode) eval(s *evalState) any {
	args := make([]any, len(n.args))
	for i, arg := range n.args {
		args[i] = arg.eval(s)
	}
	return n.fn.Call(args)
}

type conditionalNode struct {
	cond, then, otherwise node
}

func (n *conditionalNode) eval(s *evalState) any {
	if truthy(n.cond.eval(s)) {
		return n.then.eval(s)
	}
	return n.otherwise.eval(s)
}
