package market

import (
	"sort"
	"strings"
)

// Query selects which markets a listing shows
type Query struct {
	Search        string
	CategoryID    *int64
	NewestFirst   bool
	FavoritesOnly bool
}

// Filter applies a query to a record list on the client side.
// The input slice is left untouched.
func Filter(contracts []Contract, q Query, favorites FavoriteSet) []Contract {
	needle := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]Contract, 0, len(contracts))
	for _, c := range contracts {
		if q.CategoryID != nil && (c.CategoryID == nil || *c.CategoryID != *q.CategoryID) {
			continue
		}
		if q.FavoritesOnly && !favorites.Has(c.ID) {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.Description), needle) {
			continue
		}
		out = append(out, c)
	}

	if q.NewestFirst {
		sort.SliceStable(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	}
	return out
}

// FindCategory looks a category up by case-insensitive name
func FindCategory(categories []Category, name string) (Category, bool) {
	for _, c := range categories {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, true
		}
	}
	return Category{}, false
}
