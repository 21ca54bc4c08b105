package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/armcoincrypto/Armcalc/internal/calc"
	"github.com/armcoincrypto/Armcalc/internal/units"
)

func evalExpression(expression string) string {
	result := calc.Evaluate(expression)
	if !result.OK {
		return result.Err
	}
	return fmt.Sprintf("%s = %s", expression, result.Formatted)
}

func convertUnits(amountStr, fromUnit, toUnit string) (string, error) {
	amount, err := strconv.ParseFloat(strings.ReplaceAll(amountStr, ",", ""), 64)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q", amountStr)
	}

	result := units.Convert(amount, fromUnit, toUnit)
	if result == nil {
		return "", fmt.Errorf("cannot convert %s to %s", fromUnit, toUnit)
	}
	return result.Formatted(), nil
}
