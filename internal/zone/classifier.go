package zone

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"

	"github.com/skyfence-jp/skyfence/internal/geometry"
)

// dangerOverlapRatio is the overlap share of the query polygon's own
// area above which an area query escalates from WARNING to DANGER.
const dangerOverlapRatio = 0.2

// ratio comparisons happen on a rounded value so that an overlap of
// exactly the threshold is not tipped over by float noise.
const ratioPrecision = 1e9

// CandidateSource yields the zones whose bounding box contains a
// point, preserving zone input order. A plain Collection scans
// everything; spatial.Index narrows via its R-tree. Both must lead the
// classifier to identical verdicts.
type CandidateSource interface {
	Candidates(pt orb.Point) []*Feature
}

// Collection is the brute-force CandidateSource over a zone slice.
type Collection []*Feature

// Candidates returns every feature whose bounding box contains the
// point, in input order.
func (c Collection) Candidates(pt orb.Point) []*Feature {
	var out []*Feature
	for _, f := range c {
		if f.Bound().Contains(pt) {
			out = append(out, f)
		}
	}
	return out
}

// PointVerdict is the result of a point query.
type PointVerdict struct {
	Colliding bool     `json:"isColliding"`
	Kind      string   `json:"zoneKind,omitempty"`
	AreaName  string   `json:"areaName,omitempty"`
	Severity  Severity `json:"severity"`
	Color     string   `json:"color"`
	Message   string   `json:"message"`
}

// PathVerdict is the result of a path query.
type PathVerdict struct {
	Colliding     bool        `json:"isColliding"`
	Intersections []orb.Point `json:"intersectionPoints"`
	Severity      Severity    `json:"severity"`
	Message       string      `json:"message"`
}

// PolygonVerdict is the result of an area query.
type PolygonVerdict struct {
	Colliding    bool     `json:"isColliding"`
	OverlapArea  float64  `json:"overlapArea"`  // m^2
	OverlapRatio float64  `json:"overlapRatio"` // overlap / own area, in [0,1]
	Severity     Severity `json:"severity"`
	Message      string   `json:"message"`
	Approximate  bool     `json:"approximate,omitempty"`
}

// Classifier turns geometric hits into typed verdicts using a style
// table.
type Classifier struct {
	styles StyleTable
}

// NewClassifier builds a classifier; a nil table means DefaultStyles.
func NewClassifier(styles StyleTable) *Classifier {
	if styles == nil {
		styles = DefaultStyles
	}
	return &Classifier{styles: styles}
}

// ClassifyPoint returns the verdict for the first zone, in input
// order, whose polygon contains the point. First match wins: when
// zones overlap, the verdict depends on zone order. Callers that need
// a different priority must order their zones accordingly.
func (c *Classifier) ClassifyPoint(pt orb.Point, src CandidateSource) PointVerdict {
	for _, f := range src.Candidates(pt) {
		if geometry.PointInMultiPolygon(pt, f.Geometry) {
			style := c.styles.For(f.Kind)
			return PointVerdict{
				Colliding: true,
				Kind:      f.Kind,
				AreaName:  f.Name,
				Severity:  style.Severity,
				Color:     style.Color,
				Message:   fmt.Sprintf("point is inside %s zone %q", f.Kind, f.Name),
			}
		}
	}
	return PointVerdict{
		Severity: SeveritySafe,
		Color:    DefaultSafeColor,
		Message:  "point is outside all restricted zones",
	}
}

// ClassifyPath tests the path against every zone and collects all
// boundary crossings in path order. Unlike point queries this is
// exhaustive, and any crossing makes the verdict DANGER.
func (c *Classifier) ClassifyPath(path orb.LineString, zones []*Feature) PathVerdict {
	if len(path) < 2 {
		return PathVerdict{
			Severity: SeveritySafe,
			Message:  "path has fewer than two points, nothing to test",
		}
	}

	var hits []orb.Point
	for i := 0; i < len(path)-1; i++ {
		for _, f := range zones {
			for _, poly := range f.Geometry {
				hits = append(hits, geometry.SegmentPolygonIntersections(path[i], path[i+1], poly)...)
			}
		}
	}

	if len(hits) == 0 {
		return PathVerdict{
			Severity: SeveritySafe,
			Message:  "path does not cross any restricted zone boundary",
		}
	}
	return PathVerdict{
		Colliding:     true,
		Intersections: hits,
		Severity:      SeverityDanger,
		Message:       fmt.Sprintf("path crosses restricted zone boundaries at %d points", len(hits)),
	}
}

// ClassifyPolygon sums the overlap between the query polygon and every
// zone. The ratio is overlap area over the query polygon's own area;
// above 0.2 the verdict is DANGER, any overlap below that is WARNING.
func (c *Classifier) ClassifyPolygon(poly orb.Polygon, zones []*Feature) PolygonVerdict {
	if err := geometry.ValidatePolygon(poly); err != nil {
		return PolygonVerdict{
			Severity: SeveritySafe,
			Message:  fmt.Sprintf("query polygon rejected: %v", err),
		}
	}

	ownArea := geometry.Area(poly)
	if ownArea == 0 {
		return PolygonVerdict{
			Severity: SeveritySafe,
			Message:  "query polygon has zero area",
		}
	}

	var total float64
	var approx bool
	for _, f := range zones {
		for _, zp := range f.Geometry {
			area, a := geometry.OverlapArea(poly, zp)
			total += area
			approx = approx || a
		}
	}

	if total == 0 {
		return PolygonVerdict{
			Severity: SeveritySafe,
			Message:  "polygon does not overlap any restricted zone",
		}
	}

	ratio := math.Round(total/ownArea*ratioPrecision) / ratioPrecision
	if ratio > 1 {
		ratio = 1
	}

	severity := SeverityWarning
	if ratio > dangerOverlapRatio {
		severity = SeverityDanger
	}
	return PolygonVerdict{
		Colliding:    true,
		OverlapArea:  total,
		OverlapRatio: ratio,
		Severity:     severity,
		Message:      fmt.Sprintf("polygon overlaps restricted zones over %.1f%% of its area", ratio*100),
		Approximate:  approx,
	}
}
