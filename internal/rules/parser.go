package rules

import (
	"regexp"
	"strconv"
)

// parser is a recursive-descent parser. Precedence, loosest first:
//
//	if/then/else
//	or
//	and
//	not
//	== != < > <= >= ~= in, not in   (non-associative)
//	+ -
//	* / mod
//	unary -
//	^                               (right-associative)
//	postfix .Name, Name of x
type parser struct {
	src       string
	toks      []token
	pos       int
	functions map[string]Function
}

func parse(src string, functions map[string]Function) (node, error) {
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks, functions: functions}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		return nil, p.unexpected(tok)
	}
	return root, nil
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+offset]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) accept(kind tokenKind) bool {
	if p.peek().kind == kind {
		p.advance()
		return true
	}
	return false
}

func (p *parser) expect(kind tokenKind) (token, error) {
	tok := p.peek()
	if tok.kind != kind {
		return tok, newCompileError(p.src, tok.pos, "expected %s but found %s", kind, describe(tok))
	}
	return p.advance(), nil
}

func (p *parser) unexpected(tok token) error {
	if tok.kind == tokRParen {
		return newCompileError(p.src, tok.pos, "unbalanced parentheses: unexpected ')'")
	}
	return newCompileError(p.src, tok.pos, "unexpected %s", describe(tok))
}

func describe(tok token) string {
	switch tok.kind {
	case tokIdent:
		return "identifier " + strconv.Quote(tok.text)
	case tokNumber:
		return "number " + tok.text
	case tokString:
		return "string " + strconv.Quote(tok.text)
	}
	return tok.kind.String()
}

func (p *parser) parseExpr() (node, error) {
	if p.accept(tokIf) {
		cond, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokThen); err != nil {
			return nil, err
		}
		then, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokElse); err != nil {
			return nil, err
		}
		otherwise, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &conditionalNode{cond: cond, then: then, otherwise: otherwise}, nil
	}
	return p.parseOr()
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.accept(tokOr) {
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: tokOr, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.accept(tokAnd) {
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &logicalNode{op: tokAnd, left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.accept(tokNot) {
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &notNode{operand: operand}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}

	tok := p.peek()
	switch tok.kind {
	case tokEq, tokNe, tokLt, tokGt, tokLe, tokGe:
		p.advance()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return p.noChain(&compareNode{op: tok.kind, left: left, right: right})
	case tokMatch:
		p.advance()
		return p.parseMatch(left)
	case tokIn:
		p.advance()
		items, err := p.parseList()
		if err != nil {
			return nil, err
		}
		return p.noChain(&membershipNode{value: left, items: items})
	case tokNot:
		if p.peekAt(1).kind == tokIn {
			p.advance()
			p.advance()
			items, err := p.parseList()
			if err != nil {
				return nil, err
			}
			return p.noChain(&membershipNode{value: left, items: items, negate: true})
		}
	}
	return left, nil
}

// noChain rejects a second comparison such as a < b < c.
func (p *parser) noChain(n node) (node, error) {
	switch tok := p.peek(); tok.kind {
	case tokEq, tokNe, tokLt, tokGt, tokLe, tokGe, tokMatch, tokIn:
		return nil, newCompileError(p.src, tok.pos, "comparison operators cannot be chained")
	}
	return n, nil
}

func (p *parser) parseMatch(left node) (node, error) {
	patTok := p.peek()
	pattern, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	n := &matchNode{left: left, pattern: pattern}
	if lit, ok := pattern.(*literalNode); ok {
		src, ok := lit.value.(string)
		if !ok {
			return nil, newCompileError(p.src, patTok.pos, "right side of ~= must be a string pattern")
		}
		re, err := regexp.Compile(src)
		if err != nil {
			return nil, newCompileError(p.src, patTok.pos, "invalid pattern %q: %v", src, err)
		}
		n.re = re
	}
	return p.noChain(n)
}

func (p *parser) parseList() ([]node, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var items []node
	if p.accept(tokRParen) {
		return items, nil
	}
	for {
		item, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.accept(tokComma) {
			continue
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return items, nil
	}
}

func (p *parser) parseAdditive() (node, error) {
	left, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokPlus && tok.kind != tokMinus {
			return left, nil
		}
		p.advance()
		right, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		left = &arithNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseMultiplicative() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		tok := p.peek()
		if tok.kind != tokStar && tok.kind != tokSlash && tok.kind != tokMod {
			return left, nil
		}
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &arithNode{op: tok.kind, left: left, right: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	if p.accept(tokMinus) {
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &negateNode{operand: operand}, nil
	}
	return p.parsePower()
}

func (p *parser) parsePower() (node, error) {
	base, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.accept(tokCaret) {
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &arithNode{op: tokCaret, left: base, right: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePostfix() (node, error) {
	n, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	path, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if len(path) > 0 {
		if field, ok := n.(*fieldNode); ok {
			field.path = append(field.path, path...)
			return field, nil
		}
		return &propertyNode{object: n, path: path}, nil
	}
	return n, nil
}

func (p *parser) parsePath() ([]string, error) {
	var path []string
	for p.accept(tokDot) {
		tok, err := p.expect(tokIdent)
		if err != nil {
			return nil, err
		}
		path = append(path, tok.text)
	}
	return path, nil
}

func (p *parser) parsePrimary() (node, error) {
	tok := p.peek()
	switch tok.kind {
	case tokNumber:
		p.advance()
		f, err := strconv.ParseFloat(tok.text, 64)
		if err != nil {
			return nil, newCompileError(p.src, tok.pos, "malformed number %q", tok.text)
		}
		return &literalNode{value: f}, nil

	case tokString:
		p.advance()
		return &literalNode{value: tok.text}, nil

	case tokLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if p.peek().kind != tokRParen {
			return nil, newCompileError(p.src, p.peek().pos, "unbalanced parentheses: expected ')' but found %s", describe(p.peek()))
		}
		p.advance()
		return inner, nil

	case tokIdent:
		p.advance()
		if p.peek().kind == tokLParen {
			return p.parseCall(tok)
		}
		path := []string{tok.text}
		rest, err := p.parsePath()
		if err != nil {
			return nil, err
		}
		path = append(path, rest...)
		if p.accept(tokOf) {
			object, err := p.parsePostfix()
			if err != nil {
				return nil, err
			}
			return &propertyNode{object: object, path: path}, nil
		}
		return &fieldNode{path: path}, nil
	}

	if tok.kind == tokEOF {
		return nil, newCompileError(p.src, tok.pos, "unexpected end of rule")
	}
	return nil, p.unexpected(tok)
}

func (p *parser) parseCall(name token) (node, error) {
	fn, ok := p.functions[name.text]
	if !ok {
		return nil, newCompileError(p.src, name.pos, "unknown function %q", name.text)
	}
	p.advance() // (

	var args []node
	if !p.accept(tokRParen) {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.accept(tokComma) {
				continue
			}
			if p.peek().kind != tokRParen {
				return nil, newCompileError(p.src, p.peek().pos, "unbalanced parentheses: expected ')' but found %s", describe(p.peek()))
			}
			p.advance()
			break
		}
	}

	if !fn.arityOK(len(args)) {
		return nil, newCompileError(p.src, name.pos, "%s() takes %s, got %d", name.text, arityText(fn), len(args))
	}
	return &callNode{name: name.text, fn: fn, args: args}, nil
}

func arityText(fn Function) string {
	switch {
	case fn.MaxArgs < 0:
		return "at least " + strconv.Itoa(fn.MinArgs) + " argument(s)"
	case fn.MinArgs == fn.MaxArgs:
		return strconv.Itoa(fn.MinArgs) + " argument(s)"
	default:
		return strconv.Itoa(fn.MinArgs) + " to " + strconv.Itoa(fn.MaxArgs) + " arguments"
	}
}
