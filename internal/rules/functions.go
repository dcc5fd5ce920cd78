package rules

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Function is a callable exposed to rules. MaxArgs < 0 means variadic.
// Call must be total: it receives evaluated arguments of any type and
// returns nil rather than panicking on unexpected input.
type Function struct {
	MinArgs int
	MaxArgs int
	Call    func(args []any) any
}

func (f Function) arityOK(n int) bool {
	return n >= f.MinArgs && (f.MaxArgs < 0 || n <= f.MaxArgs)
}

func numeric1(fn func(float64) float64) Function {
	return Function{MinArgs: 1, MaxArgs: 1, Call: func(args []any) any {
		f, ok := toNumber(args[0])
		if !ok {
			return nil
		}
		return fn(f)
	}}
}

func extreme(pick func(a, b float64) float64) Function {
	return Function{MinArgs: 1, MaxArgs: -1, Call: func(args []any) any {
		var out float64
		for i, arg := range args {
			f, ok := toNumber(arg)
			if !ok {
				return nil
			}
			if i == 0 {
				out = f
				continue
			}
			out = pick(out, f)
		}
		return out
	}}
}

func stringPair(test func(s, sub string) bool) Function {
	return Function{MinArgs: 2, MaxArgs: 2, Call: func(args []any) any {
		s, ok := args[0].(string)
		if !ok {
			return false
		}
		sub, ok := args[1].(string)
		if !ok {
			return false
		}
		return test(strings.ToLower(s), strings.ToLower(sub))
	}}
}

func stringMap(fn func(string) string) Function {
	return Function{MinArgs: 1, MaxArgs: 1, Call: func(args []any) any {
		s, ok := args[0].(string)
		if !ok {
			return ""
		}
		return fn(s)
	}}
}

// builtinFunctions returns the math builtins plus the mail extensions.
// random is the source behind random(); it is deliberately not seeded from
// the record, so rules using it are not repeatable.
func builtinFunctions(random func() float64) map[string]Function {
	return map[string]Function{
		"abs":   numeric1(math.Abs),
		"ceil":  numeric1(math.Ceil),
		"floor": numeric1(math.Floor),
		"round": numeric1(func(f float64) float64 { return math.Floor(f + 0.5) }),
		"sqrt":  numeric1(math.Sqrt),
		"log":   numeric1(math.Log),
		"log2":  numeric1(math.Log2),
		"log10": numeric1(math.Log10),
		"max":   extreme(math.Max),
		"min":   extreme(math.Min),
		"random": {MinArgs: 0, MaxArgs: 0, Call: func([]any) any {
			return random()
		}},
		"exists": {MinArgs: 1, MaxArgs: 1, Call: func(args []any) any {
			return args[0] != nil
		}},
		"empty": {MinArgs: 1, MaxArgs: 1, Call: func(args []any) any {
			switch x := args[0].(type) {
			case nil:
				return true
			case string:
				return x == ""
			}
			if list, ok := asList(args[0]); ok {
				return len(list) == 0
			}
			return false
		}},

		"contains":   stringPair(strings.Contains),
		"startsWith": stringPair(strings.HasPrefix),
		"endsWith":   stringPair(strings.HasSuffix),
		"first": {MinArgs: 1, MaxArgs: 1, Call: func(args []any) any {
			list, ok := asList(args[0])
			if !ok || len(list) == 0 {
				return nil
			}
			return list[0]
		}},
		"len": {MinArgs: 1, MaxArgs: 1, Call: func(args []any) any {
			if s, ok := args[0].(string); ok {
				return float64(utf8.RuneCountInString(s))
			}
			if list, ok := asList(args[0]); ok {
				return float64(len(list))
			}
			return float64(0)
		}},
		"lower": stringMap(strings.ToLower),
		"upper": stringMap(strings.ToUpper),
	}
}

// FunctionNames lists the functions known to the engine, sorted.
func (e *Engine) FunctionNames() []string {
	names := make([]string, 0, len(e.functions))
	for name := range e.functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
