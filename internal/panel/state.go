// Package panel implements the per-user conversion panel: a small state
// machine over amount, currency pair, and method selectors, plus the
// availability checks that keep the panel's selection quotable.
package panel

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTTL is how long an untouched panel state stays alive.
const DefaultTTL = 30 * time.Minute

// Selectable option sets, in display order.
var (
	Currencies   = []string{"usdt", "amd", "usd", "rub"}
	USDTNetworks = []string{"trc20", "bep20", "erc20", "ton", "sol"}
	AMDUnits     = []string{"cash", "card"}
	RUBMethods   = []string{"sberbank", "tinkoff", "alfa", "vtb"}
)

var (
	ErrAmountInvalid     = errors.New("invalid number format")
	ErrAmountNotPositive = errors.New("amount must be positive")
	ErrAmountTooLarge    = errors.New("amount too large")
)

var amountCeiling = decimal.NewFromInt(1_000_000_000)

var usdtNetworkCodes = map[string]string{
	"trc20": "USDTTRC20",
	"bep20": "USDTBEP20",
	"erc20": "USDTERC20",
	"ton":   "USDTTON",
	"sol":   "USDTSOL",
}

// State is one user's panel. Transitions are value-semantic: every setter
// returns the next state and leaves the receiver untouched, which keeps them
// trivially testable. The from/to pair is never equal: setting one side to
// the other's value swaps them instead.
type State struct {
	Amount      decimal.Decimal `json:"amount"`
	FromCode    string          `json:"from_code"`
	ToCode      string          `json:"to_code"`
	USDTNetwork string          `json:"usdt_network"`
	AMDUnit     string          `json:"amd_unit"`
	RUBMethod   string          `json:"rub_method"`
	LastResult  string          `json:"last_result,omitempty"`
	LastRate    string          `json:"last_rate,omitempty"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewState returns the default panel: 100 USDT (TRC20) to AMD cash.
func NewState() State {
	return State{
		Amount:      decimal.NewFromInt(100),
		FromCode:    "usdt",
		ToCode:      "amd",
		USDTNetwork: "trc20",
		AMDUnit:     "cash",
		RUBMethod:   "sberbank",
		UpdatedAt:   time.Now(),
	}
}

// Expired reports whether the state has been idle past ttl.
func (s State) Expired(ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return time.Since(s.UpdatedAt) > ttl
}

func (s State) touched() State {
	s.UpdatedAt = time.Now()
	return s
}

// SetAmount parses and applies a user-entered amount. Commas and spaces are
// stripped, so "1,000" reads as one thousand.
func (s State) SetAmount(raw string) (State, error) {
	cleaned := strings.TrimSpace(strings.NewReplacer(",", "", " ", "").Replace(raw))
	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return s, ErrAmountInvalid
	}
	if amount.Sign() <= 0 {
		return s, ErrAmountNotPositive
	}
	if amount.Cmp(amountCeiling) >= 0 {
		return s, ErrAmountTooLarge
	}

	s.Amount = amount
	s.LastResult = ""
	return s.touched(), nil
}

// SetFrom selects the source currency, swapping when it collides with the
// target. Unknown codes are ignored.
func (s State) SetFrom(code string) State {
	code = strings.ToLower(code)
	if !validOption(Currencies, code) {
		return s
	}
	if code == s.ToCode {
		s.ToCode = s.FromCode
	}
	s.FromCode = code
	s.LastResult = ""
	return s.touched()
}

// SetTo selects the target currency, swapping on collision.
func (s State) SetTo(code string) State {
	code = strings.ToLower(code)
	if !validOption(Currencies, code) {
		return s
	}
	if code == s.FromCode {
		s.FromCode = s.ToCode
	}
	s.ToCode = code
	s.LastResult = ""
	return s.touched()
}

// Swap exchanges the from and to currencies.
func (s State) Swap() State {
	s.FromCode, s.ToCode = s.ToCode, s.FromCode
	s.LastResult = ""
	return s.touched()
}

// SetNetwork selects the USDT network. Unknown values are ignored.
func (s State) SetNetwork(network string) State {
	network = strings.ToLower(network)
	if !validOption(USDTNetworks, network) {
		return s
	}
	s.USDTNetwork = network
	s.LastResult = ""
	return s.touched()
}

// SetAMDUnit selects cash or card AMD.
func (s State) SetAMDUnit(unit string) State {
	unit = strings.ToLower(unit)
	if !validOption(AMDUnits, unit) {
		return s
	}
	s.AMDUnit = unit
	s.LastResult = ""
	return s.touched()
}

// SetRUBMethod selects the RUB payment method.
func (s State) SetRUBMethod(method string) State {
	method = strings.ToLower(method)
	if !validOption(RUBMethods, method) {
		return s
	}
	s.RUBMethod = method
	s.LastResult = ""
	return s.touched()
}

// SetResult records the latest conversion output on the state.
func (s State) SetResult(result, rate string) State {
	s.LastResult = result
	s.LastRate = rate
	return s.touched()
}

// FeedCodes resolves the panel selection to concrete feed codes and an
// optional RUB method.
func (s State) FeedCodes() (fromCode, toCode, method string) {
	fromCode = s.resolveCode(s.FromCode)
	toCode = s.resolveCode(s.ToCode)
	if s.FromCode == "rub" || s.ToCode == "rub" {
		method = s.RUBMethod
	}
	return fromCode, toCode, method
}

func (s State) resolveCode(code string) string {
	switch code {
	case "usdt":
		if c, ok := usdtNetworkCodes[s.USDTNetwork]; ok {
			return c
		}
		return "USDTTRC20"
	case "amd":
		if s.AMDUnit == "card" {
			return "CARDAMD"
		}
		return "CASHAMD"
	case "usd":
		return "CASHUSD"
	}
	return strings.ToUpper(code)
}

// DisplayFrom returns the source currency label and its selector detail.
func (s State) DisplayFrom() (code, detail string) {
	return s.displaySide(s.FromCode)
}

// DisplayTo returns the target currency label and its selector detail.
func (s State) DisplayTo() (code, detail string) {
	return s.displaySide(s.ToCode)
}

func (s State) displaySide(side string) (string, string) {
	code := strings.ToUpper(side)
	switch side {
	case "usdt":
		return code, strings.ToUpper(s.USDTNetwork)
	case "amd":
		return code, titleWord(s.AMDUnit)
	case "rub":
		return code, titleWord(s.RUBMethod)
	}
	return code, ""
}

// InvolvesUSDT reports whether either side is USDT.
func (s State) InvolvesUSDT() bool { return s.FromCode == "usdt" || s.ToCode == "usdt" }

// InvolvesAMD reports whether either side is AMD.
func (s State) InvolvesAMD() bool { return s.FromCode == "amd" || s.ToCode == "amd" }

// InvolvesRUB reports whether either side is RUB.
func (s State) InvolvesRUB() bool { return s.FromCode == "rub" || s.ToCode == "rub" }

func validOption(options []string, v string) bool {
	for _, o := range options {
		if o == v {
			return true
		}
	}
	return false
}

func titleWord(w string) string {
	if w == "" {
		return ""
	}
	return strings.ToUpper(w[:1]) + w[1:]
}
