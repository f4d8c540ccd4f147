package market

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// HistoryRange is a chart time window understood by the backend
type HistoryRange string

const (
	Range5m HistoryRange = "5m"
	Range1h HistoryRange = "1h"
	Range6h HistoryRange = "6h"
	Range1d HistoryRange = "1d"
	Range1w HistoryRange = "1w"
	Range1M HistoryRange = "1M"

	DefaultHistoryRange = Range1M
)

var historyRanges = []HistoryRange{Range5m, Range1h, Range6h, Range1d, Range1w, Range1M}

// ParseHistoryRange validates a range. Empty input selects DefaultHistoryRange.
// Ranges are case-sensitive: "1m" is not "1M".
func ParseHistoryRange(raw string) (HistoryRange, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultHistoryRange, nil
	}
	for _, r := range historyRanges {
		if string(r) == raw {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown history range %q (want one of 5m, 1h, 6h, 1d, 1w, 1M)", raw)
}

// ChartPoint is one sample of an outcome's price series
type ChartPoint struct {
	Time    time.Time
	Percent float64
}

// Series is the price line of one outcome
type Series struct {
	Outcome string
	Points  []ChartPoint
}

// Chart turns history snapshots into one percentage series per outcome.
// Points with an unparseable timestamp or price payload are skipped.
// Prices may be an array aligned with options or an object keyed by outcome name.
func Chart(options []string, points []HistoryPoint) []Series {
	series := make([]Series, len(options))
	for i, name := range options {
		series[i] = Series{Outcome: name}
	}
	if len(options) == 0 {
		return series
	}

	type sample struct {
		at     time.Time
		prices []float64
	}
	samples := make([]sample, 0, len(points))
	for _, p := range points {
		ts, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			continue
		}
		prices, ok := decodePrices(p.OptionPrices, options)
		if !ok {
			continue
		}
		samples = append(samples, sample{at: ts.UTC(), prices: prices})
	}
	sort.SliceStable(samples, func(i, j int) bool { return samples[i].at.Before(samples[j].at) })

	for _, s := range samples {
		for i, price := range s.prices {
			series[i].Points = append(series[i].Points, ChartPoint{
				Time:    s.at,
				Percent: math.Round(price*1000) / 10,
			})
		}
	}
	return series
}

func decodePrices(raw string, options []string) ([]float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}

	if strings.HasPrefix(raw, "[") {
		var list []float64
		if err := json.Unmarshal([]byte(raw), &list); err != nil || len(list) != len(options) {
			return nil, false
		}
		return list, validPrices(list)
	}

	var byName map[string]float64
	if err := json.Unmarshal([]byte(raw), &byName); err != nil {
		return nil, false
	}
	list := make([]float64, len(options))
	for i, name := range options {
		v, ok := byName[name]
		if !ok {
			return nil, false
		}
		list[i] = v
	}
	return list, validPrices(list)
}

func validPrices(list []float64) bool {
	for _, v := range list {
		if math.IsNaN(v) || v < 0 || v > 1 {
			return false
		}
	}
	return true
}
