package market

import "strings"

// Contract is a market record as served by the backend.
// Options and OutcomeOdds are JSON-encoded arrays stored as strings.
type Contract struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Address     string  `json:"address"`
	Description string  `json:"description,omitempty"`
	Options     string  `json:"options,omitempty"`      // e.g. ["Yes","No"]
	CategoryID  *int64  `json:"category_id,omitempty"`
	TotalVolume float64 `json:"total_volume"`           // SUI
	OutcomeOdds string  `json:"outcome_odds,omitempty"` // e.g. [0.3,0.7]
	EndDate     string  `json:"end_date,omitempty"`
	Resolved    bool    `json:"resolved,omitempty"`
	Winner      *int    `json:"winner,omitempty"`
}

// Category groups markets for browsing
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

// Pseudo categories are browsing filters seeded next to the real ones;
// a market can never be created inside them.
const (
	CategoryAll = "All"
	CategoryNew = "New"
)

// Pseudo reports whether the category is a browsing filter rather than a real grouping.
func (c Category) Pseudo() bool {
	return strings.EqualFold(c.Name, CategoryAll) || strings.EqualFold(c.Name, CategoryNew)
}

// HistoryPoint is one price snapshot of a market
type HistoryPoint struct {
	ID           int64   `json:"id"`
	ContractID   int64   `json:"contract_id"`
	Timestamp    string  `json:"timestamp"`     // RFC 3339
	OptionPrices string  `json:"option_prices"` // [0.5,0.5] or {"Yes":0.5,"No":0.5}
	TotalVolume  float64 `json:"total_volume,omitempty"`
}

// DefaultRules is shown when a market carries no description.
const DefaultRules = "This market will resolve to the option that occurs. Result is determined by the designated Oracle."
