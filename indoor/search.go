package indoor

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// Location is a searchable place backed by a catalog layer.
type Location struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Category string `json:"category"`
	Layer    string `json:"layer"`
	Color    string `json:"color"`
}

// Locations lists every catalog layer as a Location, ordered by key.
func Locations(catalog *LayerCatalog) []Location {
	keys := catalog.Keys()
	out := make([]Location, 0, len(keys))
	for _, key := range keys {
		info := catalog.Lookup(key)
		out = append(out, Location{
			ID:       key,
			Name:     info.Name,
			Type:     info.Type,
			Category: catalog.CategoryOf(info.Type),
			Layer:    key,
			Color:    info.Color,
		})
	}
	return out
}

// locationNames adapts a Location slice to fuzzy.Source.
type locationNames []Location

func (l locationNames) String(i int) string { return l[i].Name }
func (l locationNames) Len() int            { return len(l) }

// Search returns the locations matching query, restricted to category when
// it is set. Case-insensitive substring matches on name or type come
// first; fuzzy subsequence matches on the name follow, best score first.
func Search(catalog *LayerCatalog, query, category string) []Location {
	var pool []Location
	for _, loc := range Locations(catalog) {
		if category == "" || loc.Category == category {
			pool = append(pool, loc)
		}
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return pool
	}

	var (
		results []Location
		rest    []Location
	)
	for _, loc := range pool {
		if strings.Contains(strings.ToLower(loc.Name), q) || strings.Contains(strings.ToLower(loc.Type), q) {
			results = append(results, loc)
		} else {
			rest = append(rest, loc)
		}
	}

	for _, m := range fuzzy.FindFrom(q, locationNames(rest)) {
		results = append(results, rest[m.Index])
	}
	return results
}

// CategoryCounts returns the number of catalog locations per category id.
func CategoryCounts(catalog *LayerCatalog) map[string]int {
	counts := make(map[string]int)
	for _, loc := range Locations(catalog) {
		counts[loc.Category]++
	}
	return counts
}

// Stats summarizes a loaded dataset.
type Stats struct {
	Version     string         `json:"version"`
	Features    int            `json:"features"`
	Supported   int            `json:"supported"`
	Skipped     int            `json:"skipped"`
	UnknownKeys []string       `json:"unknownKeys,omitempty"`
	ByCategory  map[string]int `json:"byCategory"`
	ByType      map[string]int `json:"byType"`
	SouthWest   *LatLng        `json:"southWest,omitempty"`
	NorthEast   *LatLng        `json:"northEast,omitempty"`
}

// DatasetStats counts a dataset's features by category and type.
func DatasetStats(ds *Dataset, catalog *LayerCatalog) Stats {
	s := Stats{
		Version:     ds.Version,
		Features:    len(ds.Entries),
		Skipped:     len(ds.Skipped),
		UnknownKeys: ds.UnknownKeys,
		ByCategory:  make(map[string]int),
		ByType:      make(map[string]int),
	}
	for _, e := range ds.Entries {
		if e.Supported() {
			s.Supported++
		}
		s.ByType[e.Layer.Type]++
		s.ByCategory[catalog.CategoryOf(e.Layer.Type)]++
	}
	if !ds.Bounds.Empty() {
		sw, ne := ds.Bounds.SouthWest(), ds.Bounds.NorthEast()
		s.SouthWest, s.NorthEast = &sw, &ne
	}
	return s
}
