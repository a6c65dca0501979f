package indoor

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// minRectSize keeps degenerate (zero-width) rectangles valid for rtreego.
const minRectSize = 1e-9

// indexedEntry adapts an Entry to rtreego.Spatial.
type indexedEntry struct {
	entry *Entry
	rect  rtreego.Rect
}

func (e *indexedEntry) Bounds() rtreego.Rect { return e.rect }

func toRect(b orb.Bound) (rtreego.Rect, error) {
	lengths := []float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]}
	for i := range lengths {
		if lengths[i] < minRectSize {
			lengths[i] = minRectSize
		}
	}
	return rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, lengths)
}

// SpatialIndex answers point and rectangle queries over a dataset's
// supported features.
type SpatialIndex struct {
	tree *rtreego.Rtree
	size int
}

// NewSpatialIndex indexes every entry that has bounds.
func NewSpatialIndex(entries []*Entry) *SpatialIndex {
	idx := &SpatialIndex{tree: rtreego.NewTree(2, 25, 50)}
	for _, e := range entries {
		if e.Bounds.Empty() {
			continue
		}
		rect, err := toRect(e.Bounds.Bound())
		if err != nil {
			continue
		}
		idx.tree.Insert(&indexedEntry{entry: e, rect: rect})
		idx.size++
	}
	return idx
}

// Size returns the number of indexed features.
func (s *SpatialIndex) Size() int { return s.size }

// FeatureAt returns the topmost feature whose outer ring contains p:
// highest render priority first, then the one drawn last.
func (s *SpatialIndex) FeatureAt(p orb.Point) (FeatureID, bool) {
	if s == nil || s.size == 0 {
		return 0, false
	}
	rect, err := toRect(orb.Bound{Min: p, Max: p})
	if err != nil {
		return 0, false
	}

	var best *Entry
	for _, hit := range s.tree.SearchIntersect(rect) {
		e := hit.(*indexedEntry).entry
		if !containsOuter(e.Shape, p) {
			continue
		}
		if best == nil || topmost(e, best) {
			best = e
		}
	}
	if best == nil {
		return 0, false
	}
	return best.ID, true
}

// FeaturesIn returns the ids of features whose bounds intersect b, sorted
// by id.
func (s *SpatialIndex) FeaturesIn(b Bounds) []FeatureID {
	if s == nil || s.size == 0 || b.Empty() {
		return nil
	}
	rect, err := toRect(b.Bound())
	if err != nil {
		return nil
	}
	hits := s.tree.SearchIntersect(rect)
	ids := make([]FeatureID, 0, len(hits))
	for _, hit := range hits {
		ids = append(ids, hit.(*indexedEntry).entry.ID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func topmost(a, b *Entry) bool {
	pa, pb := a.Layer.Priority(), b.Layer.Priority()
	if pa != pb {
		return pa > pb
	}
	return a.ID > b.ID
}

func containsOuter(s Shape, p orb.Point) bool {
	for _, r := range OuterRings(s) {
		if planar.RingContains(r, p) {
			return true
		}
	}
	return false
}
