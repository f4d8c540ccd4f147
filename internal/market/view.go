package market

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// OutcomeView is the display state of one outcome
type OutcomeView struct {
	Index       int
	Name        string
	Probability float64
	Percent     int             // round(probability * 100)
	Pool        decimal.Decimal // estimated share of the volume, SUI
	PoolMist    uint64
	Winner      bool
}

// View is the denormalized display state of a market
type View struct {
	ID          int64
	Name        string
	Address     string
	Description string
	CategoryID  *int64

	Outcomes     []OutcomeView
	Binary       bool
	OddsFallback bool // odds were missing or unusable and a uniform split is shown

	Volume      decimal.Decimal // SUI
	VolumeMist  uint64
	VolumeLabel string

	EndDate  *time.Time
	EndLabel string // empty when the market has no usable end date

	Resolved    bool
	WinnerIndex int // -1 when no valid winner is known
	BettingOpen bool

	Favorite bool
}

// Derive builds the view of a market record for a viewer with the given favorites.
// It never mutates its inputs and never fails: unusable optional fields fall back to defaults.
func Derive(c Contract, favorites FavoriteSet) View {
	options := ParseOptions(c.Options)
	odds, ok := ParseOdds(c.OutcomeOdds, len(options))

	volume := safeDecimal(c.TotalVolume)

	v := View{
		ID:           c.ID,
		Name:         c.Name,
		Address:      c.Address,
		Description:  c.Description,
		CategoryID:   copyID(c.CategoryID),
		Binary:       IsBinary(options),
		OddsFallback: !ok,
		Volume:       volume,
		VolumeMist:   ToMist(volume),
		VolumeLabel:  FormatVolume(volume.InexactFloat64()),
		Resolved:     c.Resolved,
		WinnerIndex:  -1,
		BettingOpen:  !c.Resolved,
		Favorite:     favorites.Has(c.ID),
	}

	if c.Resolved && c.Winner != nil && *c.Winner >= 0 && *c.Winner < len(options) {
		v.WinnerIndex = *c.Winner
	}

	v.Outcomes = make([]OutcomeView, len(options))
	for i, name := range options {
		pool := decimal.NewFromFloat(odds[i]).Mul(volume)
		v.Outcomes[i] = OutcomeView{
			Index:       i,
			Name:        name,
			Probability: odds[i],
			Percent:     int(math.Round(odds[i] * 100)),
			Pool:        pool,
			PoolMist:    ToMist(pool),
			Winner:      i == v.WinnerIndex,
		}
	}

	if end, ok := ParseEndDate(c.EndDate); ok {
		v.EndDate = &end
		if end.Hour() == 23 && end.Minute() == 59 && end.Second() == 59 {
			v.EndLabel = "Ends " + end.Format(endLabelDayOnly)
		} else {
			v.EndLabel = "Ends " + end.Format(endLabelLayout)
		}
	}

	return v
}

// DeriveAll derives views for a list of records, preserving order.
func DeriveAll(contracts []Contract, favorites FavoriteSet) []View {
	views := make([]View, len(contracts))
	for i, c := range contracts {
		views[i] = Derive(c, favorites)
	}
	return views
}

// WinnerName returns the winning outcome name, or "" when there is none.
func (v View) WinnerName() string {
	if v.WinnerIndex < 0 || v.WinnerIndex >= len(v.Outcomes) {
		return ""
	}
	return v.Outcomes[v.WinnerIndex].Name
}

// Expired reports whether the end date has passed at now.
func (v View) Expired(now time.Time) bool {
	return v.EndDate != nil && now.After(*v.EndDate)
}

// Rules returns the description, or the default resolution rules when empty.
func (v View) Rules() string {
	if v.Description == "" {
		return DefaultRules
	}
	return v.Description
}

// OptionNames returns the outcome names in order.
func (v View) OptionNames() []string {
	names := make([]string, len(v.Outcomes))
	for i, o := range v.Outcomes {
		names[i] = o.Name
	}
	return names
}

func copyID(id *int64) *int64 {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
