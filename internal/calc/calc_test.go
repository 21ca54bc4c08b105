package calc

import (
	"math"
	"testing"
)

func evalOK(t *testing.T, expr string) float64 {
	t.Helper()
	res := Evaluate(expr)
	if !res.OK {
		t.Fatalf("Evaluate(%q) failed: %s (%s)", expr, res.Err, res.ErrKind)
	}
	return res.Value
}

func TestBasicArithmetic(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"2+2", 4},
		{"2 + 3 * 4", 14},
		{"(2 + 3) * 4", 20},
		{"10 / 4", 2.5},
		{"2^10", 1024},
		{"2^3^2", 512}, // right-associative
		{"-5 + 3", -2},
		{"sqrt(16)", 4},
		{"abs(-7.5)", 7.5},
		{"pow(2, 8)", 256},
		{"floor(2.9)", 2},
		{"ceil(2.1)", 3},
		{"factorial(5)", 120},
		{"log(1000)", 3},
	}

	for _, tc := range cases {
		if got := evalOK(t, tc.expr); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestTrigUsesDegrees(t *testing.T) {
	if got := evalOK(t, "sin(90)"); math.Abs(got-1) > 1e-9 {
		t.Fatalf("sin(90) = %v, want 1", got)
	}
	if got := evalOK(t, "cos(180)"); math.Abs(got+1) > 1e-9 {
		t.Fatalf("cos(180) = %v, want -1", got)
	}
	if got := evalOK(t, "asin(1)"); math.Abs(got-90) > 1e-9 {
		t.Fatalf("asin(1) = %v, want 90 degrees", got)
	}
}

func TestPercentDesugaring(t *testing.T) {
	cases := []struct {
		expr string
		want float64
	}{
		{"100 + 10%", 110},
		{"200 - 5%", 190},
		{"50 * 10%", 5},
		{"100 / 10%", 1000},
		{"10%", 0.1},
		{"100 + 10% + 5%", 115.5}, // second percent sees the accumulated 110
		{"(1+2)*10%", 0.3},        // multiplicative context wins, fraction rule
	}

	for _, tc := range cases {
		if got := evalOK(t, tc.expr); math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
		}
	}
}

func TestPercentIsNotNaiveSubstitution(t *testing.T) {
	got := evalOK(t, "100 + 10%")
	if math.Abs(got-100.1) < 1e-9 {
		t.Fatal("percent applied as naive /100 substitution; must scale by the left-hand value")
	}
	if got != 110 {
		t.Fatalf("100 + 10%% = %v, want 110", got)
	}
}

func TestDivisionByZero(t *testing.T) {
	res := Evaluate("1/0")
	if res.OK {
		t.Fatal("1/0 should fail")
	}
	if res.ErrKind != KindDivisionByZero {
		t.Fatalf("1/0 kind = %s, want %s", res.ErrKind, KindDivisionByZero)
	}
}

func TestValidatorRejectsBreakoutAttempts(t *testing.T) {
	for _, expr := range []string{
		"__import__('os')",
		"eval(1)",
		"exec(1)",
		"1 + eval(2)",
		"getattr(a, b)",
		"open(f)",
	} {
		res := Evaluate(expr)
		if res.OK {
			t.Fatalf("Evaluate(%q) should fail", expr)
		}
		if res.ErrKind != KindForbidden && res.ErrKind != KindInvalidChars {
			t.Fatalf("Evaluate(%q) kind = %s, want forbidden/invalid", expr, res.ErrKind)
		}
	}
}

func TestUnknownFunctionRejected(t *testing.T) {
	res := Evaluate("system(1)")
	if res.OK || res.ErrKind != KindUnknownFunction {
		t.Fatalf("system(1) kind = %s, want %s", res.ErrKind, KindUnknownFunction)
	}
}

func TestErrorKinds(t *testing.T) {
	cases := []struct {
		expr string
		kind Kind
	}{
		{"", KindEmpty},
		{"  ", KindEmpty},
		{"2 +", KindSyntax},
		{"(2+3", KindSyntax},
		{"2 @ 3", KindInvalidChars},
		{"pow(2)", KindType},
		{"factorial(-1)", KindMath},
		{"factorial(2.5)", KindMath},
		{"sqrt(-1)", KindNaN},
		{"exp(10000)", KindInfinite},
	}

	for _, tc := range cases {
		res := Evaluate(tc.expr)
		if res.OK {
			t.Fatalf("Evaluate(%q) should fail", tc.expr)
		}
		if res.ErrKind != tc.kind {
			t.Fatalf("Evaluate(%q) kind = %s, want %s", tc.expr, res.ErrKind, tc.kind)
		}
	}
}

func TestConstants(t *testing.T) {
	if got := evalOK(t, "pi"); math.Abs(got-math.Pi) > 1e-12 {
		t.Fatalf("pi = %v", got)
	}
	if got := evalOK(t, "2 * e"); math.Abs(got-2*math.E) > 1e-12 {
		t.Fatalf("2*e = %v", got)
	}
}

func TestFormatting(t *testing.T) {
	cases := []struct {
		expr string
		want string
	}{
		{"2+2", "4"},
		{"8 / 2", "4"},
		{"10 / 4", "2.5"},
		{"1 / 3", "0.3333333333"},
		{"2^50", "1.1259e+15"},
		{"1 / 100000", "1e-05"},
	}

	for _, tc := range cases {
		res := Evaluate(tc.expr)
		if !res.OK {
			t.Fatalf("Evaluate(%q) failed: %s", tc.expr, res.Err)
		}
		if res.Formatted != tc.want {
			t.Fatalf("Evaluate(%q).Formatted = %q, want %q", tc.expr, res.Formatted, tc.want)
		}
	}
}
