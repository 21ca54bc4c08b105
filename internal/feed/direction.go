// Package feed fetches, parses, and caches exchange-direction documents from
// the upstream rate source. The upstream format is not contractually fixed,
// so parsing works through ordered lists of candidate tag and field names.
package feed

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Direction is one quotable feed entry. The rate is OutAmount/InAmount.
type Direction struct {
	FromCode  string
	ToCode    string
	FromName  string
	ToName    string
	InAmount  decimal.Decimal
	OutAmount decimal.Decimal
	Method    string
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	Location  string
}

// Rate reports how much ToCode one unit of FromCode buys.
func (d Direction) Rate() decimal.Decimal {
	if d.InAmount.IsZero() {
		return decimal.Zero
	}
	return d.OutAmount.Div(d.InAmount)
}

// NormalizedTo collapses RUB payment-method codes (SBERRUB, TCSBRUB, ...)
// into plain RUB for filter convenience.
func (d Direction) NormalizedTo() string {
	code := strings.ToUpper(d.ToCode)
	if strings.HasSuffix(code, "RUB") && len(code) > 3 {
		return "RUB"
	}
	return code
}

// MethodToCode maps canonical RUB payment methods to their feed codes.
var MethodToCode = map[string]string{
	"sberbank":   "SBERRUB",
	"tinkoff":    "TCSBRUB",
	"alfabank":   "ACRUB",
	"vtb":        "VTBRUB",
	"raiffeisen": "RFRUB",
	"qiwi":       "QWRUB",
	"yoomoney":   "YAMRUB",
}

// MethodAliases maps user-facing method spellings to canonical names.
var MethodAliases = map[string]string{
	"sber":       "sberbank",
	"sberbank":   "sberbank",
	"tink":       "tinkoff",
	"tinkoff":    "tinkoff",
	"alfa":       "alfabank",
	"alfabank":   "alfabank",
	"alpha":      "alfabank",
	"vtb":        "vtb",
	"raif":       "raiffeisen",
	"raiffeisen": "raiffeisen",
	"qiwi":       "qiwi",
	"yoomoney":   "yoomoney",
	"yandex":     "yoomoney",
}

// MethodForCode reverses MethodToCode, matching either the exact code or a
// code suffix (some feeds prefix the bank code).
func MethodForCode(code string) string {
	upper := strings.ToUpper(code)
	for method, methodCode := range MethodToCode {
		if upper == methodCode || strings.HasSuffix(upper, methodCode) {
			return method
		}
	}
	return ""
}
