package calc

import (
	"fmt"
	"math"
)

// The grammar is deliberately closed: the AST can only hold numbers, unary
// sign, the five binary operators, constants, and whitelisted calls. Nothing
// an input string contains can reach outside this set.

type node interface {
	eval() (float64, error)
}

type numberNode struct {
	val float64
}

func (n numberNode) eval() (float64, error) { return n.val, nil }

type unaryNode struct {
	neg     bool
	operand node
}

func (n unaryNode) eval() (float64, error) {
	v, err := n.operand.eval()
	if err != nil {
		return 0, err
	}
	if n.neg {
		return -v, nil
	}
	return v, nil
}

type binaryNode struct {
	op          string
	left, right node
}

func (n binaryNode) eval() (float64, error) {
	l, err := n.left.eval()
	if err != nil {
		return 0, err
	}
	r, err := n.right.eval()
	if err != nil {
		return 0, err
	}
	switch n.op {
	case "+":
		return l + r, nil
	case "-":
		return l - r, nil
	case "*":
		return l * r, nil
	case "/":
		if r == 0 {
			return 0, &evalError{kind: KindDivisionByZero, msg: "division by zero"}
		}
		return l / r, nil
	case "^":
		return math.Pow(l, r), nil
	}
	return 0, &evalError{kind: KindSyntax, msg: fmt.Sprintf("unknown operator %q", n.op)}
}

type constNode struct {
	name string
}

func (n constNode) eval() (float64, error) {
	v, ok := constants[n.name]
	if !ok {
		return 0, &evalError{kind: KindUnknownFunction, msg: fmt.Sprintf("unknown name: %s", n.name)}
	}
	return v, nil
}

type callNode struct {
	name string
	args []node
}

func (n callNode) eval() (float64, error) {
	def, ok := functions[n.name]
	if !ok {
		return 0, &evalError{kind: KindUnknownFunction, msg: fmt.Sprintf("unknown function: %s", n.name)}
	}
	if len(n.args) < def.minArgs || len(n.args) > def.maxArgs {
		return 0, &evalError{kind: KindType, msg: fmt.Sprintf("%s expects %d argument(s)", n.name, def.minArgs)}
	}
	vals := make([]float64, len(n.args))
	for i, arg := range n.args {
		v, err := arg.eval()
		if err != nil {
			return 0, err
		}
		vals[i] = v
	}
	return def.fn(vals)
}

type evalError struct {
	kind Kind
	msg  string
}

func (e *evalError) Error() string { return e.msg }

type parser struct {
	tokens []token
	pos    int
}

func parse(tokens []token) (node, error) {
	if len(tokens) == 0 {
		return nil, &evalError{kind: KindSyntax, msg: "empty expression"}
	}
	p := &parser{tokens: tokens}
	root, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.tokens) {
		return nil, &evalError{kind: KindSyntax, msg: fmt.Sprintf("unexpected token %q", p.tokens[p.pos].text)}
	}
	return root, nil
}

func (p *parser) peek() (token, bool) {
	if p.pos >= len(p.tokens) {
		return token{}, false
	}
	return p.tokens[p.pos], true
}

// expr := term (('+'|'-') term)*
func (p *parser) parseExpr() (node, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOperator || (t.text != "+" && t.text != "-") {
			return left, nil
		}
		p.pos++
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text, left: left, right: right}
	}
}

// term := unary (('*'|'/') unary)*
func (p *parser) parseTerm() (node, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t, ok := p.peek()
		if !ok || t.kind != tokOperator || (t.text != "*" && t.text != "/") {
			return left, nil
		}
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = binaryNode{op: t.text, left: left, right: right}
	}
}

// unary := ('+'|'-') unary | power
func (p *parser) parseUnary() (node, error) {
	t, ok := p.peek()
	if ok && t.kind == tokOperator && (t.text == "+" || t.text == "-") {
		p.pos++
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return unaryNode{neg: t.text == "-", operand: operand}, nil
	}
	return p.parsePower()
}

// power := atom ('^' unary)?  right-associative
func (p *parser) parsePower() (node, error) {
	base, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	t, ok := p.peek()
	if ok && t.kind == tokOperator && t.text == "^" {
		p.pos++
		exponent, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return binaryNode{op: "^", left: base, right: exponent}, nil
	}
	return base, nil
}

func (p *parser) parseAtom() (node, error) {
	t, ok := p.peek()
	if !ok {
		return nil, &evalError{kind: KindSyntax, msg: "unexpected end of expression"}
	}
	switch t.kind {
	case tokNumber:
		p.pos++
		return numberNode{val: t.val}, nil
	case tokIdent:
		p.pos++
		next, ok := p.peek()
		if ok && next.kind == tokLParen {
			if _, known := functions[t.text]; !known {
				return nil, &evalError{kind: KindUnknownFunction, msg: fmt.Sprintf("unknown function: %s", t.text)}
			}
			p.pos++
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return callNode{name: t.text, args: args}, nil
		}
		if _, known := constants[t.text]; !known {
			return nil, &evalError{kind: KindUnknownFunction, msg: fmt.Sprintf("unknown name: %s", t.text)}
		}
		return constNode{name: t.text}, nil
	case tokLParen:
		p.pos++
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	}
	return nil, &evalError{kind: KindSyntax, msg: fmt.Sprintf("unexpected token %q", t.text)}
}

func (p *parser) parseArgs() ([]node, error) {
	t, ok := p.peek()
	if ok && t.kind == tokRParen {
		p.pos++
		return nil, nil
	}
	var args []node
	for {
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		t, ok := p.peek()
		if !ok {
			return nil, &evalError{kind: KindSyntax, msg: "missing closing parenthesis"}
		}
		if t.kind == tokComma {
			p.pos++
			continue
		}
		if t.kind == tokRParen {
			p.pos++
			return args, nil
		}
		return nil, &evalError{kind: KindSyntax, msg: fmt.Sprintf("unexpected token %q in arguments", t.text)}
	}
}

func (p *parser) expect(kind tokenKind, text string) error {
	t, ok := p.peek()
	if !ok || t.kind != kind {
		return &evalError{kind: KindSyntax, msg: fmt.Sprintf("expected %q", text)}
	}
	p.pos++
	return nil
}

// evalTokens parses and evaluates a token slice. The percent pass uses it to
// compute the running left-hand value ahead of a '+'/'-' percent literal.
func evalTokens(tokens []token) (float64, error) {
	root, err := parse(tokens)
	if err != nil {
		return 0, err
	}
	return root.eval()
}
