package rules

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokLParen
	tokRParen
	tokComma
	tokDot
	tokEq
	tokNe
	tokLt
	tokGt
	tokLe
	tokGe
	tokMatch
	tokPlus
	tokMinus
	tokStar
	tokSlash
	tokCaret

	// keywords
	tokAnd
	tokOr
	tokNot
	tokIn
	tokIf
	tokThen
	tokElse
	tokMod
	tokOf
)

var keywords = map[string]tokenKind{
	"and":  tokAnd,
	"or":   tokOr,
	"not":  tokNot,
	"in":   tokIn,
	"if":   tokIf,
	"then": tokThen,
	"else": tokElse,
	"mod":  tokMod,
	"of":   tokOf,
}

var punctuation = map[byte]tokenKind{
	'(': tokLParen, ')': tokRParen, ',': tokComma, '.': tokDot,
	'<': tokLt, '>': tokGt, '+': tokPlus, '-': tokMinus,
	'*': tokStar, '/': tokSlash, '^': tokCaret,
}

var tokenNames = map[tokenKind]string{
	tokEOF:    "end of rule",
	tokNumber: "number",
	tokString: "string",
	tokIdent:  "identifier",
	tokLParen: "'('",
	tokRParen: "')'",
	tokComma:  "','",
	tokDot:    "'.'",
	tokEq:     "'=='",
	tokNe:     "'!='",
	tokLt:     "'<'",
	tokGt:     "'>'",
	tokLe:     "'<='",
	tokGe:     "'>='",
	tokMatch:  "'~='",
	tokPlus:   "'+'",
	tokMinus:  "'-'",
	tokStar:   "'*'",
	tokSlash:  "'/'",
	tokCaret:  "'^'",
	tokAnd:    "'and'",
	tokOr:     "'or'",
	tokNot:    "'not'",
	tokIn:     "'in'",
	tokIf:     "'if'",
	tokThen:   "'then'",
	tokElse:   "'else'",
	tokMod:    "'mod'",
	tokOf:     "'of'",
}

func (k tokenKind) String() string {
	if name, ok := tokenNames[k]; ok {
		return name
	}
	return "token"
}

type token struct {
	kind tokenKind
	text string // identifier name, decoded string literal or number text
	pos  int    // byte offset in the rule
}

// lexer turns rule text into tokens. Identifiers accept letters, digits,
// '_' and '$'; dots are separate tokens so paths are resolved by the parser.
type lexer struct {
	src string
	pos int
}

func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	var toks []token
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.kind == tokEOF {
			return toks, nil
		}
	}
}

func (l *lexer) errorf(pos int, format string, args ...any) error {
	return newCompileError(l.src, pos, format, args...)
}

func (l *lexer) next() (token, error) {
	l.skipSpace()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: l.pos}, nil
	}

	start := l.pos
	c := l.src[l.pos]

	switch {
	case c == '"' || c == '\'':
		return l.lexString(c)
	case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		return l.lexNumber()
	case isIdentStart(c):
		return l.lexIdent(), nil
	}

	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "==":
		l.pos += 2
		return token{kind: tokEq, pos: start}, nil
	case "!=":
		l.pos += 2
		return token{kind: tokNe, pos: start}, nil
	case "<=":
		l.pos += 2
		return token{kind: tokLe, pos: start}, nil
	case ">=":
		l.pos += 2
		return token{kind: tokGe, pos: start}, nil
	case "~=":
		l.pos += 2
		return token{kind: tokMatch, pos: start}, nil
	}

	if kind, ok := punctuation[c]; ok {
		l.pos++
		return token{kind: kind, pos: start}, nil
	}

	r, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	if c == '=' || c == '!' || c == '~' {
		return token{}, l.errorf(start, "unknown operator %q", string(r))
	}
	return token{}, l.errorf(start, "unexpected character %q", string(r))
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r, size := utf8.DecodeRuneInString(l.src[l.pos:])
		if !unicode.IsSpace(r) {
			return
		}
		l.pos += size
	}
}

func (l *lexer) lexString(quote byte) (token, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch c {
		case quote:
			l.pos++
			return token{kind: tokString, text: b.String(), pos: start}, nil
		case '\\':
			if l.pos+1 >= len(l.src) {
				return token{}, l.errorf(start, "unterminated string literal")
			}
			esc := l.src[l.pos+1]
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '\\', '"', '\'':
				b.WriteByte(esc)
			default:
				// unknown escapes keep the backslash so regex classes like \d survive
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
			l.pos += 2
		default:
			b.WriteByte(c)
			l.pos++
		}
	}
	return token{}, l.errorf(start, "unterminated string literal")
}

func (l *lexer) lexNumber() (token, error) {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		if l.pos >= len(l.src) || !isDigit(l.src[l.pos]) {
			return token{}, l.errorf(start, "malformed number %q", l.src[start:l.pos])
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		l.pos++
		if l.pos < len(l.src) && (l.src[l.pos] == '+' || l.src[l.pos] == '-') {
			l.pos++
		}
		if l.pos >= len(l.src) || !isDigit(l.src[l.pos]) {
			return token{}, l.errorf(start, "malformed number %q", l.src[start:l.pos])
		}
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(l.src) && isIdentStart(l.src[l.pos]) {
		return token{}, l.errorf(start, "malformed number %q", l.src[start:l.pos+1])
	}
	return token{kind: tokNumber, text: l.src[start:l.pos], pos: start}, nil
}

func (l *lexer) lexIdent() token {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	word := l.src[start:l.pos]
	if kind, ok := keywords[word]; ok {
		return token{kind: kind, text: word, pos: start}
	}
	return token{kind: tokIdent, text: word, pos: start}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
