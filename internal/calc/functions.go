package calc

import (
	"fmt"
	"math"
)

type funcDef struct {
	minArgs int
	maxArgs int
	fn      func(args []float64) (float64, error)
}

func unary(f func(float64) float64) funcDef {
	return funcDef{minArgs: 1, maxArgs: 1, fn: func(args []float64) (float64, error) {
		return f(args[0]), nil
	}}
}

// Trigonometric functions take and return degrees.
var functions = map[string]funcDef{
	"sqrt":  unary(math.Sqrt),
	"abs":   unary(math.Abs),
	"floor": unary(math.Floor),
	"ceil":  unary(math.Ceil),
	"exp":   unary(math.Exp),
	"log":   unary(math.Log10),
	"ln":    unary(math.Log),
	"sin":   unary(func(x float64) float64 { return math.Sin(x * math.Pi / 180) }),
	"cos":   unary(func(x float64) float64 { return math.Cos(x * math.Pi / 180) }),
	"tan":   unary(func(x float64) float64 { return math.Tan(x * math.Pi / 180) }),
	"asin":  unary(func(x float64) float64 { return math.Asin(x) * 180 / math.Pi }),
	"acos":  unary(func(x float64) float64 { return math.Acos(x) * 180 / math.Pi }),
	"atan":  unary(func(x float64) float64 { return math.Atan(x) * 180 / math.Pi }),
	"pow": {minArgs: 2, maxArgs: 2, fn: func(args []float64) (float64, error) {
		return math.Pow(args[0], args[1]), nil
	}},
	"round": {minArgs: 1, maxArgs: 2, fn: func(args []float64) (float64, error) {
		if len(args) == 1 {
			return math.Round(args[0]), nil
		}
		scale := math.Pow(10, math.Trunc(args[1]))
		return math.Round(args[0]*scale) / scale, nil
	}},
	"factorial": {minArgs: 1, maxArgs: 1, fn: factorial},
}

var constants = map[string]float64{
	"pi": math.Pi,
	"e":  math.E,
}

func factorial(args []float64) (float64, error) {
	x := args[0]
	if x != math.Trunc(x) || x < 0 {
		return 0, &evalError{kind: KindMath, msg: "factorial requires a non-negative integer"}
	}
	if x > 170 {
		return 0, &evalError{kind: KindMath, msg: fmt.Sprintf("factorial(%d) overflows", int(x))}
	}
	result := 1.0
	for i := 2.0; i <= x; i++ {
		result *= i
	}
	return result, nil
}
