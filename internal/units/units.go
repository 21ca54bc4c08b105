// Package units performs table-driven measurement conversions. Linear
// categories share a base unit per category; temperature is affine and
// handled separately via a Celsius pivot.
package units

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Result describes one completed conversion.
type Result struct {
	Amount   float64
	FromUnit string
	ToUnit   string
	Value    float64
	Category string
}

// Formatted renders the conversion for display.
func (r Result) Formatted() string {
	return fmt.Sprintf("%s %s = %s %s", formatQuantity(r.Amount), r.FromUnit, formatQuantity(r.Value), r.ToUnit)
}

func formatQuantity(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 100:
		return fmt.Sprintf("%.2f", v)
	case abs >= 1:
		return trimZeros(fmt.Sprintf("%.4f", v))
	default:
		return trimZeros(fmt.Sprintf("%.6f", v))
	}
}

func trimZeros(s string) string {
	s = strings.TrimRight(s, "0")
	return strings.TrimRight(s, ".")
}

// Factors into each category's base unit: meters, grams, liters, square
// meters, meters per second, bytes. Aliases map onto the same factor.
var categories = map[string]map[string]float64{
	"distance": {
		"km": 1000, "m": 1, "cm": 0.01, "mm": 0.001,
		"mi": 1609.344, "mile": 1609.344, "miles": 1609.344,
		"ft": 0.3048, "feet": 0.3048, "foot": 0.3048,
		"in": 0.0254, "inch": 0.0254, "inches": 0.0254,
		"yd": 0.9144, "yard": 0.9144, "yards": 0.9144,
		"nm": 1852,
	},
	"weight": {
		"kg": 1000, "g": 1, "mg": 0.001,
		"lb": 453.592, "lbs": 453.592, "pound": 453.592, "pounds": 453.592,
		"oz": 28.3495, "ounce": 28.3495, "ounces": 28.3495,
		"ton": 1e6, "tonne": 1e6,
		"st": 6350.29, "stone": 6350.29,
	},
	"volume": {
		"l": 1, "liter": 1, "litre": 1, "ml": 0.001,
		"gal": 3.78541, "gallon": 3.78541,
		"qt": 0.946353, "quart": 0.946353,
		"pt": 0.473176, "pint": 0.473176,
		"cup": 0.236588,
		"fl_oz": 0.0295735, "floz": 0.0295735,
	},
	"area": {
		"sqm": 1, "m2": 1,
		"sqkm": 1e6, "km2": 1e6,
		"sqft": 0.092903, "ft2": 0.092903,
		"sqmi": 2589988, "mi2": 2589988,
		"acre": 4046.86, "hectare": 10000, "ha": 10000,
	},
	"speed": {
		"ms": 1, "m/s": 1,
		"kmh": 0.277778, "km/h": 0.277778, "kph": 0.277778,
		"mph": 0.44704, "mi/h": 0.44704,
		"knot": 0.514444, "knots": 0.514444, "kt": 0.514444,
	},
	"data": {
		"b": 1, "byte": 1, "bytes": 1,
		"kb": 1 << 10, "kilobyte": 1 << 10,
		"mb": 1 << 20, "megabyte": 1 << 20,
		"gb": 1 << 30, "gigabyte": 1 << 30,
		"tb": 1 << 40, "terabyte": 1 << 40,
		"pb": 1 << 50, "petabyte": 1 << 50,
	},
}

var temperatureAliases = map[string]string{
	"c": "c", "celsius": "c",
	"f": "f", "fahrenheit": "f",
	"k": "k", "kelvin": "k",
}

var unitToCategory = func() map[string]string {
	index := make(map[string]string)
	for category, table := range categories {
		for unit := range table {
			index[unit] = category
		}
	}
	return index
}()

func normalize(unit string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(unit)), " ", "_")
}

// Convert converts amount between two units of the same category. It returns
// nil for unknown units and for cross-category requests.
func Convert(amount float64, fromUnit, toUnit string) *Result {
	fromNorm := normalize(fromUnit)
	toNorm := normalize(toUnit)

	if _, ok := temperatureAliases[fromNorm]; ok {
		return convertTemperature(amount, fromUnit, toUnit)
	}
	if _, ok := temperatureAliases[toNorm]; ok {
		return convertTemperature(amount, fromUnit, toUnit)
	}

	fromCategory, ok := unitToCategory[fromNorm]
	if !ok {
		return nil
	}
	toCategory, ok := unitToCategory[toNorm]
	if !ok {
		return nil
	}
	if fromCategory != toCategory {
		return nil
	}

	table := categories[fromCategory]
	value := amount * table[fromNorm] / table[toNorm]

	return &Result{
		Amount:   amount,
		FromUnit: fromUnit,
		ToUnit:   toUnit,
		Value:    value,
		Category: fromCategory,
	}
}

// convertTemperature pivots through Celsius because the scales are affine,
// not proportional.
func convertTemperature(amount float64, fromUnit, toUnit string) *Result {
	from, ok := temperatureAliases[normalize(fromUnit)]
	if !ok {
		return nil
	}
	to, ok := temperatureAliases[normalize(toUnit)]
	if !ok {
		return nil
	}

	var celsius float64
	switch from {
	case "c":
		celsius = amount
	case "f":
		celsius = (amount - 32) * 5 / 9
	case "k":
		celsius = amount - 273.15
	}

	var value float64
	switch to {
	case "c":
		value = celsius
	case "f":
		value = celsius*9/5 + 32
	case "k":
		value = celsius + 273.15
	}

	return &Result{
		Amount:   amount,
		FromUnit: displayTemperature(fromUnit),
		ToUnit:   displayTemperature(toUnit),
		Value:    value,
		Category: "temperature",
	}
}

func displayTemperature(unit string) string {
	if len(unit) == 1 {
		return strings.ToUpper(unit)
	}
	lower := strings.ToLower(unit)
	return strings.ToUpper(lower[:1]) + lower[1:]
}

// Supported returns the unit names per category, sorted.
func Supported() map[string][]string {
	result := make(map[string][]string, len(categories)+1)
	for category, table := range categories {
		names := make([]string, 0, len(table))
		for unit := range table {
			names = append(names, unit)
		}
		sort.Strings(names)
		result[category] = names
	}
	result["temperature"] = []string{"c", "f", "k"}
	return result
}
