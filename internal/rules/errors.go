package rules

import (
	"errors"
	"fmt"
)

// ErrEmptyRule is returned by Compile for rules that are blank after trimming.
var ErrEmptyRule = errors.New("rule is empty")

// CompileError reports malformed rule text. Pos is the byte offset where the
// problem was detected.
type CompileError struct {
	Rule string
	Pos  int
	Msg  string
}

func newCompileError(rule string, pos int, format string, args ...any) *CompileError {
	return &CompileError{Rule: rule, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("invalid rule: %s (at position %d)", e.Msg, e.Pos)
}

// EvaluationFault is an unexpected condition while running a compiled rule,
// such as a dynamic pattern that fails to compile. Callers that only need a
// yes/no answer treat it as a non-match.
type EvaluationFault struct {
	Rule  string
	Cause error
}

func (e *EvaluationFault) Error() string {
	return fmt.Sprintf("rule evaluation failed: %v", e.Cause)
}

func (e *EvaluationFault) Unwrap() error {
	return e.Cause
}
