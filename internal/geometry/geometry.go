// Package geometry implements the geometric predicates behind zone
// classification: boundary-inclusive point containment, segment
// intersection, and geodesic overlap-area computation.
//
// Boundary rule: a point lying exactly on a polygon edge or vertex is
// inside. The same rule backs all three query types so that point,
// path, and polygon verdicts agree on shared boundaries.
package geometry

import (
	"math"

	cgeom "github.com/ctessum/geom"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
	"github.com/rotisserie/eris"
)

// onSegmentEps bounds the cross-product magnitude below which a point
// counts as lying on a segment. Coordinates are decimal degrees.
const onSegmentEps = 1e-12

// approxOverlapFactor scales min(area(a), area(b)) when the polygon
// clipper cannot produce an intersection for degenerate input.
const approxOverlapFactor = 0.01

// ValidateRing checks that a ring has at least four points and is
// closed (first point equals last point).
func ValidateRing(ring orb.Ring) error {
	if len(ring) < 4 {
		return eris.Errorf("geometry: ring has %d points, want at least 4", len(ring))
	}
	if ring[0] != ring[len(ring)-1] {
		return eris.New("geometry: ring is not closed")
	}
	return nil
}

// ValidatePolygon checks every ring of a polygon.
func ValidatePolygon(poly orb.Polygon) error {
	if len(poly) == 0 {
		return eris.New("geometry: polygon has no rings")
	}
	for _, ring := range poly {
		if err := ValidateRing(ring); err != nil {
			return err
		}
	}
	return nil
}

// PointOnSegment reports whether p lies on the segment a-b, endpoints
// included.
func PointOnSegment(p, a, b orb.Point) bool {
	cross := (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
	if math.Abs(cross) > onSegmentEps {
		return false
	}
	return p[0] >= math.Min(a[0], b[0])-onSegmentEps && p[0] <= math.Max(a[0], b[0])+onSegmentEps &&
		p[1] >= math.Min(a[1], b[1])-onSegmentEps && p[1] <= math.Max(a[1], b[1])+onSegmentEps
}

// pointOnBoundary reports whether p lies on any edge of the polygon.
func pointOnBoundary(p orb.Point, poly orb.Polygon) bool {
	for _, ring := range poly {
		for i := 0; i < len(ring)-1; i++ {
			if PointOnSegment(p, ring[i], ring[i+1]) {
				return true
			}
		}
	}
	return false
}

// PointInPolygon reports whether the point is inside the polygon,
// counting the boundary as inside.
func PointInPolygon(p orb.Point, poly orb.Polygon) bool {
	if pointOnBoundary(p, poly) {
		return true
	}
	return planar.PolygonContains(poly, p)
}

// PointInMultiPolygon reports whether the point is inside any member
// polygon, counting boundaries as inside.
func PointInMultiPolygon(p orb.Point, mp orb.MultiPolygon) bool {
	for _, poly := range mp {
		if PointInPolygon(p, poly) {
			return true
		}
	}
	return false
}

// SegmentIntersection returns the proper intersection point of segments
// a1-a2 and b1-b2. Parallel and collinear segments report no
// intersection, including the overlapping-collinear case; callers that
// need overlap handling must detect it separately.
func SegmentIntersection(a1, a2, b1, b2 orb.Point) (orb.Point, bool) {
	d1 := orb.Point{a2[0] - a1[0], a2[1] - a1[1]}
	d2 := orb.Point{b2[0] - b1[0], b2[1] - b1[1]}

	denom := d1[0]*d2[1] - d1[1]*d2[0]
	if denom == 0 {
		return orb.Point{}, false
	}

	t := ((b1[0]-a1[0])*d2[1] - (b1[1]-a1[1])*d2[0]) / denom
	s := ((b1[0]-a1[0])*d1[1] - (b1[1]-a1[1])*d1[0]) / denom
	if t < 0 || t > 1 || s < 0 || s > 1 {
		return orb.Point{}, false
	}

	return orb.Point{a1[0] + t*d1[0], a1[1] + t*d1[1]}, true
}

// SegmentPolygonIntersections returns every intersection of segment
// a-b with the polygon's edges, in edge order.
func SegmentPolygonIntersections(a, b orb.Point, poly orb.Polygon) []orb.Point {
	var out []orb.Point
	for _, ring := range poly {
		for i := 0; i < len(ring)-1; i++ {
			if pt, ok := SegmentIntersection(a, b, ring[i], ring[i+1]); ok {
				out = append(out, pt)
			}
		}
	}
	return out
}

// Area returns the geodesic area of the polygon in square meters.
func Area(poly orb.Polygon) float64 {
	return math.Abs(geo.Area(poly))
}

// MultiPolygonArea returns the geodesic area of a multi-polygon in
// square meters.
func MultiPolygonArea(mp orb.MultiPolygon) float64 {
	return math.Abs(geo.Area(mp))
}

// OverlapArea returns the area of the intersection of a and b in
// square meters. When the clipper cannot handle the input (degenerate
// or self-intersecting rings) it falls back to an approximation of
// min(area(a), area(b)) * 0.01 and reports approx=true instead of
// failing; callers surface the flag rather than an error.
func OverlapArea(a, b orb.Polygon) (area float64, approx bool) {
	if err := ValidatePolygon(a); err != nil {
		return approxOverlap(a, b), true
	}
	if err := ValidatePolygon(b); err != nil {
		return approxOverlap(a, b), true
	}

	clipped, ok := clipIntersection(a, b)
	if !ok {
		return approxOverlap(a, b), true
	}
	if len(clipped) == 0 {
		return 0, false
	}
	return MultiPolygonArea(clipped), false
}

// approxOverlap is the documented fallback estimate for inputs the
// clipper rejects.
func approxOverlap(a, b orb.Polygon) float64 {
	return math.Min(Area(a), Area(b)) * approxOverlapFactor
}

// clipIntersection runs the polygon clipper, absorbing panics from
// numerically degenerate input. The intersection of two polygons can
// have several disjoint pieces, so the result is a multi-polygon.
func clipIntersection(a, b orb.Polygon) (result orb.MultiPolygon, ok bool) {
	defer func() {
		if recover() != nil {
			result, ok = nil, false
		}
	}()
	out := toClipPolygon(a).Intersection(toClipPolygon(b))
	if out == nil {
		return nil, true
	}
	return fromClipPolygonal(out), true
}

func toClipPolygon(p orb.Polygon) cgeom.Polygon {
	out := make(cgeom.Polygon, len(p))
	for i, ring := range p {
		path := make([]cgeom.Point, 0, len(ring))
		for _, pt := range ring {
			path = append(path, cgeom.Point{X: pt[0], Y: pt[1]})
		}
		out[i] = path
	}
	return out
}

// fromClipPolygonal rebuilds orb polygons from the clipper's contour
// lists. Within each clipper polygon, contours wound like the first one
// open a new polygon and contours wound the opposite way become holes
// in the polygon they follow, so disjoint intersection pieces stay
// separate instead of collapsing into one outer-plus-holes polygon.
func fromClipPolygonal(pg cgeom.Polygonal) orb.MultiPolygon {
	var out orb.MultiPolygon
	for _, poly := range pg.Polygons() {
		start := len(out)
		var outer orb.Orientation
		for _, path := range poly {
			ring := make(orb.Ring, 0, len(path)+1)
			for _, pt := range path {
				ring = append(ring, orb.Point{pt.X, pt.Y})
			}
			// The clipper emits open rings; close them for orb.
			if len(ring) > 0 && ring[0] != ring[len(ring)-1] {
				ring = append(ring, ring[0])
			}
			if len(ring) < 4 {
				continue
			}
			if o := ring.Orientation(); len(out) == start || o == outer {
				outer = o
				out = append(out, orb.Polygon{ring})
				continue
			}
			out[len(out)-1] = append(out[len(out)-1], ring)
		}
	}
	return out
}
