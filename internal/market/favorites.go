package market

import "sort"

// FavoriteSet is the set of market ids a wallet has bookmarked.
// A nil set is valid and empty for reads.
type FavoriteSet map[int64]struct{}

// NewFavoriteSet builds a set from market ids
func NewFavoriteSet(ids ...int64) FavoriteSet {
	s := make(FavoriteSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports membership
func (s FavoriteSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Add marks id as favorite
func (s FavoriteSet) Add(id int64) {
	s[id] = struct{}{}
}

// Remove unmarks id
func (s FavoriteSet) Remove(id int64) {
	delete(s, id)
}

// Toggle flips membership of id and returns the new membership.
func (s FavoriteSet) Toggle(id int64) bool {
	if s.Has(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// Clone returns an independent copy
func (s FavoriteSet) Clone() FavoriteSet {
	c := make(FavoriteSet, len(s))
	for id := range s {
		c[id] = struct{}{}
	}
	return c
}

// IDs returns the members in ascending order
func (s FavoriteSet) IDs() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
