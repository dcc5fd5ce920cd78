// Package rules compiles and evaluates label rules, the small expression
// language users write to label inbound mail automatically.
//
// A rule such as
//
//	FromFull.Email ~= "@acme\\.com$" and not contains(Subject, "newsletter")
//
// is compiled once into an expression tree and evaluated against the fields
// of a record. Evaluation never fails halfway: missing fields read as null and
// every operator and function has a defined result for null input.
//
// Rules that call random() are not repeatable. Two evaluations of the same
// rule against the same record may disagree, so labels built on random()
// do not describe a stable set of emails.
//
// Precedence follows the usual arithmetic reading, which is not always the
// one older filtrex rules were written against: not binds looser than a
// comparison, so `not Tag == "x"` means `not (Tag == "x")`, and ^ binds
// tighter than unary minus, so -2^2 is -4.
package rules

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
)

// Record is the data a predicate is evaluated against.
type Record interface {
	Fields() map[string]any
}

// MapRecord adapts a plain map to Record.
type MapRecord map[string]any

func (m MapRecord) Fields() map[string]any { return m }

// Engine compiles rules against an immutable function table. Engines are
// safe for concurrent use.
type Engine struct {
	functions map[string]Function
	cache     *predicateCache
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	extra     map[string]Function
	random    func() float64
	cacheSize int
}

// WithFunctions adds functions to the table, replacing builtins of the same name.
func WithFunctions(fns map[string]Function) Option {
	return func(c *engineConfig) {
		for name, fn := range fns {
			c.extra[name] = fn
		}
	}
}

// WithRandom replaces the source behind random().
func WithRandom(src func() float64) Option {
	return func(c *engineConfig) {
		c.random = src
	}
}

// WithCacheSize keeps up to n compiled rules keyed by their text. Zero
// disables caching.
func WithCacheSize(n int) Option {
	return func(c *engineConfig) {
		c.cacheSize = n
	}
}

// NewEngine returns an engine with the builtin functions plus any added
// through options.
func NewEngine(opts ...Option) *Engine {
	cfg := engineConfig{
		extra:     make(map[string]Function),
		random:    rand.Float64,
		cacheSize: 256,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	functions := builtinFunctions(cfg.random)
	for name, fn := range cfg.extra {
		functions[name] = fn
	}

	e := &Engine{functions: functions}
	if cfg.cacheSize > 0 {
		e.cache = newPredicateCache(cfg.cacheSize)
	}
	return e
}

// Predicate is a compiled rule.
type Predicate struct {
	text string
	root node
}

// Text returns the rule source the predicate was compiled from.
func (p *Predicate) Text() string { return p.text }

// Compile parses rule text. Blank rules yield ErrEmptyRule; malformed rules
// yield a *CompileError.
func (e *Engine) Compile(rule string) (*Predicate, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return nil, ErrEmptyRule
	}
	if e.cache != nil {
		if entry, ok := e.cache.get(rule); ok {
			return entry.predicate, entry.err
		}
	}

	root, err := parse(rule, e.functions)
	var p *Predicate
	if err == nil {
		p = &Predicate{text: rule, root: root}
	}
	if e.cache != nil {
		e.cache.put(rule, p, err)
	}
	return p, err
}

// Validate reports whether rule compiles. Blank rules are valid: they mean
// the label is only assigned by hand.
func (e *Engine) Validate(rule string) error {
	_, err := e.Compile(rule)
	if errors.Is(err, ErrEmptyRule) {
		return nil
	}
	return err
}

// Matches compiles and evaluates rule in one step. Any compile or runtime
// problem counts as no match.
func (e *Engine) Matches(rule string, rec Record) bool {
	p, err := e.Compile(rule)
	if err != nil {
		return false
	}
	ok, err := p.Evaluate(rec)
	return err == nil && ok
}

// Evaluate runs the predicate against rec and reports whether the result is
// truthy. A non-nil error is always an *EvaluationFault and the boolean is
// false.
func (p *Predicate) Evaluate(rec Record) (bool, error) {
	v, err := p.Value(rec)
	if err != nil {
		return false, err
	}
	return truthy(v), nil
}

// Value runs the predicate and returns the raw result instead of its truth value.
func (p *Predicate) Value(rec Record) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &EvaluationFault{Rule: p.text, Cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	var fields map[string]any
	if rec != nil {
		fields = rec.Fields()
	}
	s := &evalState{fields: fields}
	v := p.root.eval(s)
	if s.fault != nil {
		return nil, &EvaluationFault{Rule: p.text, Cause: s.fault}
	}
	return v, nil
}
