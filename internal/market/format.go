package market

import (
	"math"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// MistPerSui is the number of MIST in one SUI.
const MistPerSui = 1_000_000_000

var (
	thousand        = decimal.NewFromInt(1000)
	maxMist         = decimal.NewFromBigInt(new(big.Int).SetUint64(math.MaxUint64), 0)
	volumeSuffixes  = []string{"", "K", "M", "B"}
	endDateLayouts  = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}
	endLabelLayout  = "Jan 2, 2006 15:04"
	endLabelDayOnly = "Jan 2, 2006"
)

// FormatVolume abbreviates an amount with K, M and B suffixes.
// Amounts below one thousand print as whole numbers; larger ones keep one decimal.
func FormatVolume(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}

	d := decimal.NewFromFloat(v)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	level := 0
	scaled := d.Round(0)
	for level < len(volumeSuffixes)-1 && scaled.GreaterThanOrEqual(thousand) {
		level++
		scaled = d.Shift(int32(-3 * level)).Round(1)
	}

	if level == 0 {
		return sign + scaled.StringFixed(0)
	}
	return sign + scaled.StringFixed(1) + volumeSuffixes[level]
}

// ToMist converts a SUI amount into MIST, rounding to the nearest unit.
// Negative amounts convert to zero and amounts beyond a uint64 saturate.
func ToMist(sui decimal.Decimal) uint64 {
	if sui.IsNegative() {
		return 0
	}
	mist, ok := MistFromSui(sui)
	if !ok {
		return math.MaxUint64
	}
	return mist
}

// MistFromSui converts a SUI amount into MIST, rounding to the nearest unit.
// It reports false when the result is negative or does not fit a uint64.
func MistFromSui(sui decimal.Decimal) (uint64, bool) {
	mist := sui.Shift(9).Round(0)
	if mist.IsNegative() || mist.GreaterThan(maxMist) {
		return 0, false
	}
	return mist.BigInt().Uint64(), true
}

// FromMist converts a MIST amount into SUI.
func FromMist(mist uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(mist), -9)
}

// ParseEndDate parses the end timestamp of a record. It accepts RFC 3339 and
// plain dates; a plain date ends at 23:59:59 UTC that day.
func ParseEndDate(raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range endDateLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		if layout == "2006-01-02" {
			t = t.Add(24*time.Hour - time.Second)
		}
		return t.UTC(), true
	}
	return time.Time{}, false
}

func safeDecimal(v float64) decimal.Decimal {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}
