package market

import "testing"

func TestFilter(t *testing.T) {
	sports, crypto := int64(3), int64(5)
	list := []Contract{
		{ID: 1, Name: "Will BTC close above 100k?", CategoryID: &crypto},
		{ID: 2, Name: "Cup final", Description: "Which team lifts the trophy", CategoryID: &sports},
		{ID: 3, Name: "ETH merge date"},
	}
	favs := NewFavoriteSet(2, 3)

	ids := func(cs []Contract) []int64 {
		out := make([]int64, len(cs))
		for i, c := range cs {
			out[i] = c.ID
		}
		return out
	}

	tests := []struct {
		name string
		q    Query
		want []int64
	}{
		{"no filter", Query{}, []int64{1, 2, 3}},
		{"category", Query{CategoryID: &crypto}, []int64{1}},
		{"search name case insensitive", Query{Search: "btc"}, []int64{1}},
		{"search description", Query{Search: " TROPHY "}, []int64{2}},
		{"newest first", Query{NewestFirst: true}, []int64{3, 2, 1}},
		{"favorites only", Query{FavoritesOnly: true}, []int64{2, 3}},
		{"no match", Query{Search: "election"}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(list, tt.q, favs))
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got %v, want %v", got, tt.want)
					break
				}
			}
		})
	}

	if list[0].ID != 1 || list[2].ID != 3 {
		t.Error("Filter reordered its input")
	}
}

func TestFindCategory(t *testing.T) {
	cats := []Category{{ID: 1, Name: "All"}, {ID: 3, Name: "Sports"}}
	c, ok := FindCategory(cats, "sports")
	if !ok || c.ID != 3 {
		t.Errorf("FindCategory(sports) = %+v, %v", c, ok)
	}
	if !cats[0].Pseudo() || cats[1].Pseudo() {
		t.Error("Pseudo() misclassified categories")
	}
	if _, ok := FindCategory(cats, "Weather"); ok {
		t.Error("found a missing category")
	}
}
