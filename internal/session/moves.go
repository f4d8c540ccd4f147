package session

import (
	"context"
	"math"

	"github.com/liamashdown/suimarket/internal/market"
	"github.com/liamashdown/suimarket/internal/metrics"
)

// Move is a change of an outcome's displayed percentage between two polls
type Move struct {
	MarketID int64
	Market   string
	Outcome  string
	From     int
	To       int
}

// Delta is the signed change in percentage points
func (m Move) Delta() int { return m.To - m.From }

// OddsMoves compares two snapshots and returns every outcome whose
// percentage changed by at least minPoints. Markets missing from either
// snapshot, or whose outcome list changed, are skipped.
func OddsMoves(prev, cur []market.View, minPoints int) []Move {
	before := make(map[int64]market.View, len(prev))
	for _, v := range prev {
		before[v.ID] = v
	}

	var moves []Move
	for _, v := range cur {
		old, ok := before[v.ID]
		if !ok || len(old.Outcomes) != len(v.Outcomes) {
			continue
		}
		for i, o := range v.Outcomes {
			if old.Outcomes[i].Name != o.Name {
				break
			}
			delta := o.Percent - old.Outcomes[i].Percent
			if delta == 0 || abs(delta) < minPoints {
				continue
			}
			moves = append(moves, Move{
				MarketID: v.ID,
				Market:   v.Name,
				Outcome:  o.Name,
				From:     old.Outcomes[i].Percent,
				To:       o.Percent,
			})
		}
	}
	metrics.RecordOddsMoves(len(moves))
	return moves
}

// StakeReader reads on-chain pool stakes of a market object
type StakeReader interface {
	MarketStakes(ctx context.Context, marketID string) ([]uint64, error)
}

// Drift compares the backend's odds with those implied by on-chain stakes
type Drift struct {
	MarketID  int64
	Backend   []int // percentages
	Chain     []int
	MaxPoints int // largest absolute difference
}

// ChainDrift reads the market's stakes and reports how far the displayed
// percentages are from the on-chain pari-mutuel odds.
func ChainDrift(ctx context.Context, reader StakeReader, v market.View) (*Drift, error) {
	stakes, err := reader.MarketStakes(ctx, v.Address)
	if err != nil {
		return nil, err
	}

	odds := market.OddsFromStakes(stakes)
	d := &Drift{MarketID: v.ID}
	for i, p := range odds {
		d.Chain = append(d.Chain, int(math.Round(p*100)))
		if i < len(v.Outcomes) {
			d.Backend = append(d.Backend, v.Outcomes[i].Percent)
			if diff := abs(d.Chain[i] - v.Outcomes[i].Percent); diff > d.MaxPoints {
				d.MaxPoints = diff
			}
		}
	}
	if len(odds) != len(v.Outcomes) {
		d.MaxPoints = 100
	}
	return d, nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
