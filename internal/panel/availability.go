package panel

import (
	"context"
	"fmt"
	"strings"
)

// RateProber answers "is this pair quotable right now". It runs the same
// lookup the conversion itself uses, so an available verdict here cannot
// disagree with the subsequent convert.
type RateProber interface {
	HasRate(ctx context.Context, fromCode, toCode, method, location string) bool
}

// Suggestion is one concrete alternative selector value that would make the
// pair quotable.
type Suggestion struct {
	Field   string // "amd_unit", "network", "rub_method"
	Value   string
	Display string
}

// Availability is the verdict for a panel's current selection.
type Availability struct {
	Available     bool
	FromCode      string
	ToCode        string
	Method        string
	Reason        string
	Suggestions   []Suggestion
	Adjusted      bool
	AdjustmentMsg string
}

const maxSuggestions = 3

// CheckAvailability probes the panel's current pair and, when unavailable,
// collects up to three alternative selector values that do resolve.
func CheckAvailability(ctx context.Context, state State, prober RateProber) Availability {
	fromCode, toCode, method := state.FeedCodes()

	if prober.HasRate(ctx, fromCode, toCode, method, "") {
		return Availability{
			Available: true,
			FromCode:  fromCode,
			ToCode:    toCode,
			Method:    method,
		}
	}

	result := Availability{
		FromCode: fromCode,
		ToCode:   toCode,
		Method:   method,
		Reason: fmt.Sprintf("%s → %s not available",
			strings.ToUpper(state.FromCode), strings.ToUpper(state.ToCode)),
	}

	// Probe alternatives selector by selector, holding the other side at its
	// resolved code; the first hit per selector is enough, and it also
	// sharpens the reason.
	if state.ToCode == "amd" {
		for _, unit := range AMDUnits {
			if unit == state.AMDUnit {
				continue
			}
			if prober.HasRate(ctx, fromCode, amdCode(unit), method, "") {
				result.Suggestions = append(result.Suggestions, Suggestion{
					Field: "amd_unit", Value: unit, Display: "AMD " + titleWord(unit),
				})
				result.Reason = fmt.Sprintf("AMD %s not available", titleWord(state.AMDUnit))
				break
			}
		}
	}
	if state.FromCode == "amd" {
		for _, unit := range AMDUnits {
			if unit == state.AMDUnit {
				continue
			}
			if prober.HasRate(ctx, amdCode(unit), toCode, method, "") {
				result.Suggestions = append(result.Suggestions, Suggestion{
					Field: "amd_unit", Value: unit, Display: "AMD " + titleWord(unit),
				})
				result.Reason = fmt.Sprintf("AMD %s not available", titleWord(state.AMDUnit))
				break
			}
		}
	}

	if state.FromCode == "usdt" {
		for _, net := range USDTNetworks {
			if net == state.USDTNetwork {
				continue
			}
			if prober.HasRate(ctx, "USDT"+strings.ToUpper(net), toCode, method, "") {
				result.Suggestions = append(result.Suggestions, Suggestion{
					Field: "network", Value: net, Display: "USDT " + strings.ToUpper(net),
				})
				result.Reason = fmt.Sprintf("USDT %s not available", strings.ToUpper(state.USDTNetwork))
				break
			}
		}
	}
	if state.ToCode == "usdt" {
		for _, net := range USDTNetworks {
			if net == state.USDTNetwork {
				continue
			}
			if prober.HasRate(ctx, fromCode, "USDT"+strings.ToUpper(net), method, "") {
				result.Suggestions = append(result.Suggestions, Suggestion{
					Field: "network", Value: net, Display: "USDT " + strings.ToUpper(net),
				})
				result.Reason = fmt.Sprintf("USDT %s not available", strings.ToUpper(state.USDTNetwork))
				break
			}
		}
	}

	if state.ToCode == "rub" {
		for _, meth := range RUBMethods {
			if meth == state.RUBMethod {
				continue
			}
			if prober.HasRate(ctx, fromCode, "RUB", meth, "") {
				result.Suggestions = append(result.Suggestions, Suggestion{
					Field: "rub_method", Value: meth, Display: "RUB " + titleWord(meth),
				})
				result.Reason = fmt.Sprintf("RUB %s not available", titleWord(state.RUBMethod))
				break
			}
		}
	}
	if state.FromCode == "rub" {
		for _, meth := range RUBMethods {
			if meth == state.RUBMethod {
				continue
			}
			if prober.HasRate(ctx, "RUB", toCode, meth, "") {
				result.Suggestions = append(result.Suggestions, Suggestion{
					Field: "rub_method", Value: meth, Display: "RUB " + titleWord(meth),
				})
				result.Reason = fmt.Sprintf("RUB %s not available", titleWord(state.RUBMethod))
				break
			}
		}
	}

	if len(result.Suggestions) > maxSuggestions {
		result.Suggestions = result.Suggestions[:maxSuggestions]
	}
	return result
}

// AutoFix applies the first suggestion when the current selection is
// unavailable, then re-checks. The returned state is the (possibly adjusted)
// panel; the verdict carries what was changed.
func AutoFix(ctx context.Context, state State, prober RateProber, enabled bool) (State, Availability) {
	result := CheckAvailability(ctx, state, prober)
	if result.Available || !enabled || len(result.Suggestions) == 0 {
		return state, result
	}

	s := result.Suggestions[0]
	var msg string
	switch s.Field {
	case "amd_unit":
		msg = fmt.Sprintf("AMD %s → AMD %s (not available)", titleWord(state.AMDUnit), titleWord(s.Value))
		state = state.SetAMDUnit(s.Value)
	case "network":
		msg = fmt.Sprintf("USDT %s → USDT %s (not available)",
			strings.ToUpper(state.USDTNetwork), strings.ToUpper(s.Value))
		state = state.SetNetwork(s.Value)
	case "rub_method":
		msg = fmt.Sprintf("RUB %s → RUB %s (not available)", titleWord(state.RUBMethod), titleWord(s.Value))
		state = state.SetRUBMethod(s.Value)
	default:
		return state, result
	}

	fixed := CheckAvailability(ctx, state, prober)
	fixed.Adjusted = true
	fixed.AdjustmentMsg = msg
	return state, fixed
}

// AllowedOptions reports which selector values resolve to a quotable rate
// for the current pair.
type AllowedOptions struct {
	Networks   map[string]bool
	AMDUnits   map[string]bool
	RUBMethods map[string]bool
}

// ProbeAllowedOptions probes every selector value relevant to the pair.
func ProbeAllowedOptions(ctx context.Context, state State, prober RateProber) AllowedOptions {
	allowed := AllowedOptions{
		Networks:   make(map[string]bool),
		AMDUnits:   make(map[string]bool),
		RUBMethods: make(map[string]bool),
	}

	fromCode, toCode, method := state.FeedCodes()

	if state.InvolvesUSDT() {
		for _, net := range USDTNetworks {
			from, to := fromCode, toCode
			if state.FromCode == "usdt" {
				from = "USDT" + strings.ToUpper(net)
			}
			if state.ToCode == "usdt" {
				to = "USDT" + strings.ToUpper(net)
			}
			if prober.HasRate(ctx, from, to, method, "") {
				allowed.Networks[net] = true
			}
		}
	}

	if state.InvolvesAMD() {
		for _, unit := range AMDUnits {
			from, to := fromCode, toCode
			if state.FromCode == "amd" {
				from = amdCode(unit)
			}
			if state.ToCode == "amd" {
				to = amdCode(unit)
			}
			if prober.HasRate(ctx, from, to, method, "") {
				allowed.AMDUnits[unit] = true
			}
		}
	}

	if state.InvolvesRUB() {
		for _, meth := range RUBMethods {
			if prober.HasRate(ctx, fromCode, toCode, meth, "") {
				allowed.RUBMethods[meth] = true
			}
		}
	}

	return allowed
}

func amdCode(unit string) string {
	if unit == "card" {
		return "CARDAMD"
	}
	return "CASHAMD"
}
