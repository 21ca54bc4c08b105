// Package rates resolves user-facing currency tokens against the feed
// snapshot and produces directional quotes with fixed-point conversion.
package rates

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/armcoincrypto/Armcalc/internal/feed"
)

// codeVariants maps a generic user token to the canonical feed codes to try,
// in lookup order.
var codeVariants = map[string][]string{
	"USDT":      {"USDTTRC20", "USDTBEP20", "USDTERC20", "USDT"},
	"USDTTRC20": {"USDTTRC20"},
	"USDTBEP20": {"USDTBEP20"},
	"USDTERC20": {"USDTERC20"},
	"AMD":       {"CASHAMD", "CARDAMD", "AMD"},
	"CASHAMD":   {"CASHAMD"},
	"CARDAMD":   {"CARDAMD"},
	"USD":       {"CASHUSD", "USD"},
	"CASHUSD":   {"CASHUSD"},
	"RUB":       {"SBERRUB", "TCSBRUB", "ACRUB", "VTBRUB", "RUB"},
}

// Options carry the configured default units used when a generic token must
// collapse to a single code.
type Options struct {
	DefaultUSDTUnit  string
	DefaultAMDUnit   string
	DefaultUSDUnit   string
	DefaultRUBMethod string
}

func (o *Options) applyDefaults() {
	if o.DefaultUSDTUnit == "" {
		o.DefaultUSDTUnit = "USDTTRC20"
	}
	if o.DefaultAMDUnit == "" {
		o.DefaultAMDUnit = "CASHAMD"
	}
	if o.DefaultUSDUnit == "" {
		o.DefaultUSDUnit = "CASHUSD"
	}
	if o.DefaultRUBMethod == "" {
		o.DefaultRUBMethod = "sberbank"
	}
}

// Quote is a resolved directional rate. Constructed per lookup, never cached.
type Quote struct {
	FromCode    string
	ToCode      string
	Rate        decimal.Decimal
	Method      string
	FromDisplay string
	ToDisplay   string
	ResolvedAt  time.Time
}

// Convert applies the rate with round-half-up at two decimal places.
func (q Quote) Convert(amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(q.Rate).Round(2)
}

// Service answers rate queries over the feed cache. Lookups never return an
// error: an unresolvable pair yields a nil quote and upstream trouble stays
// on the cache's last-error field.
type Service struct {
	cache  *feed.Cache
	opts   Options
	logger zerolog.Logger
}

// NewService constructs a rate service over the given cache.
func NewService(cache *feed.Cache, opts Options, logger zerolog.Logger) *Service {
	opts.applyDefaults()
	return &Service{
		cache:  cache,
		opts:   opts,
		logger: logger.With().Str("component", "rates").Logger(),
	}
}

// NormalizeMethod resolves a payment-method alias to its canonical name,
// returning "" for unknown input.
func (s *Service) NormalizeMethod(method string) string {
	return feed.MethodAliases[strings.ToLower(strings.TrimSpace(method))]
}

// NormalizeCode collapses a generic token to its configured default feed
// code. Already-canonical codes pass through unchanged.
func (s *Service) NormalizeCode(code string) string {
	upper := strings.ToUpper(strings.TrimSpace(code))
	switch upper {
	case "USDTTRC20", "USDTBEP20", "CASHAMD", "CARDAMD", "CASHUSD":
		return upper
	case "USDT":
		return s.opts.DefaultUSDTUnit
	case "AMD":
		return s.opts.DefaultAMDUnit
	case "USD":
		return s.opts.DefaultUSDUnit
	}
	return upper
}

// GetRate resolves a pair to a quote, trying every (from,to) variant
// combination with location+method, then method only, then neither. A RUB
// target without a method recurses once with the configured default method.
// Nil means no quotable direction exists.
func (s *Service) GetRate(ctx context.Context, fromCode, toCode, method, location string) *Quote {
	s.cache.Ensure(ctx)

	fromUpper := strings.ToUpper(strings.TrimSpace(fromCode))
	toUpper := strings.ToUpper(strings.TrimSpace(toCode))
	normMethod := s.NormalizeMethod(method)
	normLocation := strings.ToUpper(strings.TrimSpace(location))

	fromVariants, ok := codeVariants[fromUpper]
	if !ok {
		fromVariants = []string{s.NormalizeCode(fromCode)}
	}
	toVariants, ok := codeVariants[toUpper]
	if !ok {
		toVariants = []string{s.NormalizeCode(toCode)}
	}

	// A RUB target with a method pins the variant list to that method's code.
	if toUpper == "RUB" && normMethod != "" {
		if code, ok := feed.MethodToCode[normMethod]; ok {
			toVariants = []string{code}
		}
	}

	for _, fromVar := range fromVariants {
		for _, toVar := range toVariants {
			if d, ok := s.cache.Find(fromVar, toVar, normMethod, normLocation); ok {
				return s.quote(fromVar, toVar, normMethod, d)
			}
		}
	}

	if toUpper == "RUB" && normMethod == "" {
		return s.GetRate(ctx, fromCode, toCode, s.opts.DefaultRUBMethod, location)
	}

	return nil
}

func (s *Service) quote(fromVar, toVar, normMethod string, d feed.Direction) *Quote {
	method := d.Method
	if method == "" {
		method = normMethod
	}
	return &Quote{
		FromCode:    fromVar,
		ToCode:      toVar,
		Rate:        d.Rate(),
		Method:      method,
		FromDisplay: s.DisplayName(fromVar, ""),
		ToDisplay:   s.DisplayName(toVar, method),
		ResolvedAt:  time.Now(),
	}
}

// HasRate reports whether the pair is quotable right now.
func (s *Service) HasRate(ctx context.Context, fromCode, toCode, method, location string) bool {
	return s.GetRate(ctx, fromCode, toCode, method, location) != nil
}

// ListDirections returns the current snapshot filtered by optional from/to
// codes. The to filter also matches the normalized RUB code.
func (s *Service) ListDirections(ctx context.Context, filterFrom, filterTo string) []feed.Direction {
	s.cache.Ensure(ctx)

	directions := s.cache.Directions()
	if filterFrom == "" && filterTo == "" {
		return directions
	}

	fromUpper := strings.ToUpper(strings.TrimSpace(filterFrom))
	toUpper := strings.ToUpper(strings.TrimSpace(filterTo))

	filtered := directions[:0]
	for _, d := range directions {
		if fromUpper != "" && d.FromCode != fromUpper {
			continue
		}
		if toUpper != "" && d.ToCode != toUpper && d.NormalizedTo() != toUpper {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered
}

// DisplayName renders a feed code for humans: "USDT (TRC20)", "AMD (Cash)",
// "RUB (Sberbank)".
func (s *Service) DisplayName(code, method string) string {
	upper := strings.ToUpper(code)

	if method != "" {
		return "RUB (" + titleWord(method) + ")"
	}
	if strings.HasSuffix(upper, "RUB") && len(upper) > 3 {
		if m := feed.MethodForCode(upper); m != "" {
			return "RUB (" + titleWord(m) + ")"
		}
		return "RUB"
	}
	if strings.HasPrefix(upper, "USDT") {
		if network := upper[4:]; network != "" {
			return "USDT (" + network + ")"
		}
		return "USDT"
	}
	if strings.HasSuffix(upper, "AMD") && len(upper) > 3 {
		return "AMD (" + titleWord(upper[:len(upper)-3]) + ")"
	}
	if strings.HasSuffix(upper, "USD") && len(upper) > 3 {
		return "USD (" + titleWord(upper[:len(upper)-3]) + ")"
	}
	return upper
}

// IsPriorityPair reports whether the pair belongs to the feed-quoted set:
// AMD<->USDT, USD<->USDT, and anything involving RUB or a RUB method code.
// Purely static, independent of cache state.
func IsPriorityPair(fromCode, toCode string) bool {
	f := strings.ToUpper(strings.TrimSpace(fromCode))
	t := strings.ToUpper(strings.TrimSpace(toCode))

	if (f == "AMD" && t == "USDT") || (f == "USDT" && t == "AMD") {
		return true
	}
	if (f == "USD" && t == "USDT") || (f == "USDT" && t == "USD") {
		return true
	}
	if f == "RUB" || t == "RUB" {
		return true
	}
	for _, code := range feed.MethodToCode {
		if f == code || t == code {
			return true
		}
	}
	return false
}

// Info exposes cache diagnostics.
func (s *Service) Info() feed.CacheInfo {
	return s.cache.Info()
}

func titleWord(w string) string {
	lower := strings.ToLower(w)
	if lower == "" {
		return ""
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}
