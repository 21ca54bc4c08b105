package calc

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

type tokenKind int

const (
	tokNumber tokenKind = iota
	tokPercent
	tokIdent
	tokOperator
	tokLParen
	tokRParen
	tokComma
)

type token struct {
	kind tokenKind
	text string
	val  float64
}

func numberToken(v float64) token {
	return token{kind: tokNumber, text: strconv.FormatFloat(v, 'g', -1, 64), val: v}
}

// tokenize splits an expression into number, identifier, and operator tokens.
// A numeric literal with a trailing '%' becomes a single percent token; the
// desugar pass rewrites those before parsing.
func tokenize(expr string) ([]token, error) {
	tokens := make([]token, 0, len(expr)/2)
	i := 0
	for i < len(expr) {
		ch := rune(expr[i])
		switch {
		case unicode.IsSpace(ch):
			i++
		case ch >= '0' && ch <= '9' || ch == '.':
			start := i
			seenDot := false
			for i < len(expr) && (expr[i] >= '0' && expr[i] <= '9' || expr[i] == '.') {
				if expr[i] == '.' {
					if seenDot {
						return nil, fmt.Errorf("malformed number near %q", expr[start:i+1])
					}
					seenDot = true
				}
				i++
			}
			text := expr[start:i]
			val, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed number %q", text)
			}
			// Trailing '%' binds to the literal.
			j := i
			for j < len(expr) && unicode.IsSpace(rune(expr[j])) {
				j++
			}
			if j < len(expr) && expr[j] == '%' {
				i = j + 1
				tokens = append(tokens, token{kind: tokPercent, text: text + "%", val: val})
				continue
			}
			tokens = append(tokens, token{kind: tokNumber, text: text, val: val})
		case isIdentStart(ch):
			start := i
			for i < len(expr) && isIdentPart(rune(expr[i])) {
				i++
			}
			tokens = append(tokens, token{kind: tokIdent, text: strings.ToLower(expr[start:i])})
		case strings.ContainsRune("+-*/^", ch):
			tokens = append(tokens, token{kind: tokOperator, text: string(ch)})
			i++
		case ch == '(':
			tokens = append(tokens, token{kind: tokLParen, text: "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{kind: tokRParen, text: ")"})
			i++
		case ch == ',':
			tokens = append(tokens, token{kind: tokComma, text: ","})
			i++
		case ch == '%':
			return nil, fmt.Errorf("'%%' must follow a number")
		default:
			return nil, fmt.Errorf("unexpected character %q", string(ch))
		}
	}
	return tokens, nil
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}
