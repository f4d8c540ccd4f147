package market

import (
	"encoding/json"
	"math"
	"strings"
)

// DefaultOptions is used whenever a record carries no usable outcome list.
var DefaultOptions = []string{"Yes", "No"}

// ParseOptions decodes the JSON outcome list of a record.
// Missing, malformed or empty lists yield a fresh copy of DefaultOptions.
func ParseOptions(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return defaultOptions()
	}

	var options []string
	if err := json.Unmarshal([]byte(raw), &options); err != nil || len(options) == 0 {
		return defaultOptions()
	}
	return options
}

// ParseOdds decodes the JSON probability list of a record, aligned with n outcomes.
// The second return value is false when the uniform fallback was used:
// missing or malformed JSON, a length mismatch, or values outside [0,1].
func ParseOdds(raw string, n int) ([]float64, bool) {
	if n <= 0 {
		return nil, false
	}
	if strings.TrimSpace(raw) == "" {
		return Uniform(n), false
	}

	var odds []float64
	if err := json.Unmarshal([]byte(raw), &odds); err != nil || len(odds) != n {
		return Uniform(n), false
	}
	for _, p := range odds {
		if math.IsNaN(p) || p < 0 || p > 1 {
			return Uniform(n), false
		}
	}
	return odds, true
}

// Uniform returns n equal probabilities summing to one.
func Uniform(n int) []float64 {
	if n <= 0 {
		return nil
	}
	odds := make([]float64, n)
	for i := range odds {
		odds[i] = 1.0 / float64(n)
	}
	return odds
}

// IsBinary reports whether the outcomes are exactly Yes and No, in any order.
func IsBinary(options []string) bool {
	if len(options) != 2 {
		return false
	}
	hasYes, hasNo := false, false
	for _, o := range options {
		switch o {
		case "Yes":
			hasYes = true
		case "No":
			hasNo = true
		}
	}
	return hasYes && hasNo
}

// OddsFromStakes converts per-outcome pool stakes (MIST) into pari-mutuel
// implied probabilities: stake / total. An empty pool is uniform.
func OddsFromStakes(stakes []uint64) []float64 {
	if len(stakes) == 0 {
		return nil
	}

	var total float64
	for _, s := range stakes {
		total += float64(s)
	}
	if total == 0 {
		return Uniform(len(stakes))
	}

	odds := make([]float64, len(stakes))
	for i, s := range stakes {
		odds[i] = float64(s) / total
	}
	return odds
}

func defaultOptions() []string {
	return append([]string(nil), DefaultOptions...)
}
