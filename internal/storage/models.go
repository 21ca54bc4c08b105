package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// HistoryEntry is one persisted user action: an evaluated expression, a unit
// conversion, a rate lookup.
type HistoryEntry struct {
	ID        int64
	UserID    int64
	Input     string
	Result    string
	EntryType string
	CreatedAt time.Time
}

// Formatted renders the entry for display.
func (e HistoryEntry) Formatted() string {
	return e.Input + " = " + e.Result
}

// History entry types.
const (
	EntryCalc    = "calc"
	EntryConvert = "convert"
	EntryUnits   = "units"
	EntryPrice   = "price"
	EntryRate    = "rate"
)

// RateSnapshot is one sampled observation of a tracked pair's feed rate.
type RateSnapshot struct {
	Bucket    time.Time
	FromCode  string
	ToCode    string
	Method    string
	Rate      decimal.Decimal
	Source    string
	CreatedAt time.Time
}
