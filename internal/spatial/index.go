// Package spatial provides an R-tree bounding-box index over zone
// features. The index is a pure performance layer: candidate sets are
// supersets of the true hits, and classification through the index
// must match a brute-force scan exactly.
package spatial

import (
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"

	"github.com/skyfence-jp/skyfence/internal/zone"
)

// minExtent pads degenerate bounding boxes; rtreego rejects rectangles
// with zero-length sides.
const minExtent = 1e-9

type entry struct {
	feature *zone.Feature
	rect    rtreego.Rect
	ord     int // input position, preserved for first-match-wins
}

// Bounds implements the rtreego.Spatial interface.
func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// Index is an immutable bounding-box index over a zone collection.
// Build a new one when the zone set changes; never mutate in place.
type Index struct {
	tree *rtreego.Rtree
	size int
}

// Build bulk-loads the bounding boxes of all features into an R-tree.
// Features with no geometry are skipped.
func Build(features []*zone.Feature) *Index {
	tree := rtreego.NewTree(2, 25, 50)
	n := 0
	for i, f := range features {
		if len(f.Geometry) == 0 {
			continue
		}
		b := f.Bound()
		lengths := []float64{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1]}
		for d := range lengths {
			if lengths[d] < minExtent {
				lengths[d] = minExtent
			}
		}
		rect, err := rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, lengths)
		if err != nil {
			continue
		}
		tree.Insert(&entry{feature: f, rect: rect, ord: i})
		n++
	}
	return &Index{tree: tree, size: n}
}

// Len returns the number of indexed features.
func (idx *Index) Len() int {
	return idx.size
}

// Candidates returns every feature whose bounding box contains the
// point, in the order the features were given to Build. The caller
// still has to run the exact containment test; bounding-box inclusion
// is necessary, not sufficient.
func (idx *Index) Candidates(pt orb.Point) []*zone.Feature {
	rect := rtreego.Point{pt[0], pt[1]}.ToRect(minExtent)
	spatials := idx.tree.SearchIntersect(rect)

	entries := make([]*entry, 0, len(spatials))
	for _, s := range spatials {
		e := s.(*entry)
		// Discard near-misses introduced by the query-rect padding.
		if !e.feature.Bound().Contains(pt) {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].ord < entries[j].ord })

	out := make([]*zone.Feature, len(entries))
	for i, e := range entries {
		out[i] = e.feature
	}
	return out
}
