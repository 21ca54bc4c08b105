package calc

// desugarPercents rewrites percent literals into plain numbers before
// parsing. The rule is left-context-sensitive: scanning back from the
// percent literal, the nearest additive operator makes the percent apply to
// the cumulative value of everything left of that operator, while a
// multiplicative operator degrades it to a bare fraction.
//
//	100 + 10%  -> 100 + 10     (10% of the accumulated 100)
//	200 - 5%   -> 200 - 10
//	50 * 10%   -> 50 * 0.1
//	10%        -> 0.1
//
// If the accumulated prefix fails to evaluate the literal silently degrades
// to a bare fraction, matching the evaluator's historical behaviour.
func desugarPercents(tokens []token) []token {
	out := make([]token, 0, len(tokens))

	for _, t := range tokens {
		if t.kind != tokPercent {
			out = append(out, t)
			continue
		}

		fraction := t.val / 100
		replaced := false

	scan:
		for j := len(out) - 1; j >= 0; j-- {
			if out[j].kind != tokOperator {
				continue
			}
			switch out[j].text {
			case "+", "-":
				if base, err := evalTokens(out[:j]); err == nil {
					out = append(out, numberToken(base*t.val/100))
				} else {
					out = append(out, numberToken(fraction))
				}
				replaced = true
				break scan
			case "*", "/":
				out = append(out, numberToken(fraction))
				replaced = true
				break scan
			}
		}

		if !replaced {
			out = append(out, numberToken(fraction))
		}
	}

	return out
}
