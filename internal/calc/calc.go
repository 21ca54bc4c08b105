// Package calc evaluates arithmetic expressions from chat input. The grammar
// is restricted to numbers, the five binary operators, a postfix percent,
// parentheses, and a fixed whitelist of functions and constants; there is no
// dynamic evaluation anywhere, so hostile input has nothing to escape into.
package calc

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies evaluation failures.
type Kind string

const (
	KindNone            Kind = ""
	KindEmpty           Kind = "empty"
	KindInvalidChars    Kind = "invalid_chars"
	KindForbidden       Kind = "forbidden"
	KindUnknownFunction Kind = "unknown_function"
	KindSyntax          Kind = "syntax"
	KindDivisionByZero  Kind = "division_by_zero"
	KindMath            Kind = "math"
	KindType            Kind = "type"
	KindNaN             Kind = "nan"
	KindInfinite        Kind = "infinite"
)

// Result is the outcome of one evaluation.
type Result struct {
	OK         bool
	Value      float64
	ErrKind    Kind
	Err        string
	Expression string
	Formatted  string
}

func (r Result) String() string {
	if r.OK {
		return r.Formatted
	}
	if r.Err != "" {
		return r.Err
	}
	return "Error"
}

var validPattern = regexp.MustCompile(`^[0-9\s+\-*/().,%^a-zA-Z_]+$`)

// Substrings that signal an attempted breakout rather than arithmetic. The
// grammar alone already makes them inert; rejecting them keeps the user
// feedback honest instead of reporting a confusing syntax error.
var forbiddenPatterns = []string{
	"__", "import", "exec", "eval", "open", "file", "input",
	"globals", "locals", "getattr", "setattr", "delattr",
	"compile", "dir", "vars",
}

// Evaluate parses and evaluates an arithmetic expression.
func Evaluate(expression string) Result {
	original := strings.TrimSpace(expression)
	if original == "" {
		return failure(original, KindEmpty, "Empty expression")
	}

	if !validPattern.MatchString(original) {
		return failure(original, KindInvalidChars, "Invalid characters in expression")
	}
	lowered := strings.ToLower(original)
	for _, pattern := range forbiddenPatterns {
		if strings.Contains(lowered, pattern) {
			return failure(original, KindForbidden, "Forbidden pattern: "+pattern)
		}
	}

	tokens, err := tokenize(original)
	if err != nil {
		return failure(original, KindSyntax, "Invalid syntax: "+err.Error())
	}

	tokens = desugarPercents(tokens)

	root, err := parse(tokens)
	if err != nil {
		return fromEvalError(original, err)
	}

	value, err := root.eval()
	if err != nil {
		return fromEvalError(original, err)
	}

	if math.IsNaN(value) {
		return failure(original, KindNaN, "Result is NaN (undefined)")
	}
	if math.IsInf(value, 0) {
		return failure(original, KindInfinite, "Result is infinite")
	}

	return Result{
		OK:         true,
		Value:      value,
		Expression: original,
		Formatted:  formatValue(value),
	}
}

func fromEvalError(expr string, err error) Result {
	var ee *evalError
	if errors.As(err, &ee) {
		msg := ee.msg
		switch ee.kind {
		case KindDivisionByZero:
			msg = "Division by zero"
		case KindSyntax:
			msg = "Invalid syntax"
		}
		return failure(expr, ee.kind, msg)
	}
	return failure(expr, KindSyntax, "Calculation error")
}

func failure(expr string, kind Kind, msg string) Result {
	return Result{ErrKind: kind, Err: msg, Expression: expr}
}

// formatValue renders a result: integral values without a decimal point,
// very small or very large magnitudes in 6-significant-digit form, and
// everything else with up to 10 decimal places, trailing zeros stripped.
func formatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}

	abs := math.Abs(v)
	if abs < 1e-4 || abs > 1e10 {
		return strconv.FormatFloat(v, 'g', 6, 64)
	}

	rounded := math.Round(v*1e10) / 1e10
	if rounded == math.Trunc(rounded) {
		return strconv.FormatFloat(rounded, 'f', -1, 64)
	}
	s := strconv.FormatFloat(rounded, 'f', 10, 64)
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}
