package session

import (
	"context"
	"errors"
	"testing"

	"github.com/liamashdown/suimarket/internal/market"
)

func TestOddsMoves(t *testing.T) {
	prev := market.DeriveAll([]market.Contract{
		{ID: 1, Name: "A", OutcomeOdds: `[0.5,0.5]`},
		{ID: 2, Name: "B", OutcomeOdds: `[0.2,0.8]`},
		{ID: 3, Name: "C", OutcomeOdds: `[0.9,0.1]`},
	}, nil)
	cur := market.DeriveAll([]market.Contract{
		{ID: 1, Name: "A", OutcomeOdds: `[0.55,0.45]`},
		{ID: 2, Name: "B", OutcomeOdds: `[0.21,0.79]`},
		{ID: 4, Name: "D", OutcomeOdds: `[0.5,0.5]`},
	}, nil)

	moves := OddsMoves(prev, cur, 2)
	if len(moves) != 2 {
		t.Fatalf("moves = %+v, want 2", moves)
	}
	if moves[0].MarketID != 1 || moves[0].Outcome != "Yes" || moves[0].Delta() != 5 {
		t.Errorf("moves[0] = %+v", moves[0])
	}
	if moves[1].Delta() != -5 {
		t.Errorf("moves[1] = %+v", moves[1])
	}
}

type stakeStub struct {
	stakes []uint64
	err    error
}

func (s stakeStub) MarketStakes(ctx context.Context, id string) ([]uint64, error) {
	return s.stakes, s.err
}

func TestChainDrift(t *testing.T) {
	v := market.Derive(market.Contract{ID: 1, Address: "0x1", OutcomeOdds: `[0.5,0.5]`}, nil)

	d, err := ChainDrift(context.Background(), stakeStub{stakes: []uint64{300, 100}}, v)
	if err != nil {
		t.Fatal(err)
	}
	if d.MaxPoints != 25 || d.Chain[0] != 75 || d.Backend[0] != 50 {
		t.Errorf("drift = %+v", d)
	}

	d, _ = ChainDrift(context.Background(), stakeStub{stakes: []uint64{1, 1, 1}}, v)
	if d.MaxPoints != 100 {
		t.Errorf("outcome count mismatch MaxPoints = %d, want 100", d.MaxPoints)
	}

	if _, err := ChainDrift(context.Background(), stakeStub{err: errors.New("rpc")}, v); err == nil {
		t.Error("expected error")
	}
}
