package zone

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func squareZone(kind, name string, minLng, minLat, maxLng, maxLat float64) *Feature {
	return &Feature{
		Kind: kind,
		Name: name,
		Geometry: orb.MultiPolygon{orb.Polygon{orb.Ring{
			{minLng, minLat},
			{maxLng, minLat},
			{maxLng, maxLat},
			{minLng, maxLat},
			{minLng, minLat},
		}}},
	}
}

// ---------------------------------------------------------------------------
// ClassifyPoint
// ---------------------------------------------------------------------------

func TestClassifyPoint_Containment(t *testing.T) {
	c := NewClassifier(nil)
	zones := Collection{squareZone(KindDID, "Shinjuku", 0, 0, 1, 1)}

	hit := c.ClassifyPoint(orb.Point{0.5, 0.5}, zones)
	assert.True(t, hit.Colliding)
	assert.Equal(t, KindDID, hit.Kind)
	assert.Equal(t, "Shinjuku", hit.AreaName)
	assert.Equal(t, SeverityDanger, hit.Severity)
	assert.Equal(t, DefaultStyles.For(KindDID).Color, hit.Color)
	assert.NotEmpty(t, hit.Message)

	miss := c.ClassifyPoint(orb.Point{2, 2}, zones)
	assert.False(t, miss.Colliding)
	assert.Empty(t, miss.Kind)
	assert.Equal(t, SeveritySafe, miss.Severity)
}

func TestClassifyPoint_BoundaryIsInside(t *testing.T) {
	c := NewClassifier(nil)
	zones := Collection{squareZone(KindRedZone, "base", 0, 0, 1, 1)}

	v := c.ClassifyPoint(orb.Point{1, 0.5}, zones)
	assert.True(t, v.Colliding)
}

func TestClassifyPoint_FirstMatchWins(t *testing.T) {
	c := NewClassifier(nil)
	did := squareZone(KindDID, "city", 0, 0, 2, 2)
	airport := squareZone(KindAirport, "field", 0, 0, 2, 2)
	pt := orb.Point{1, 1}

	v := c.ClassifyPoint(pt, Collection{did, airport})
	assert.Equal(t, KindDID, v.Kind)

	// Swapping the input order flips the verdict: ordering is part of
	// the contract, not an accident.
	v = c.ClassifyPoint(pt, Collection{airport, did})
	assert.Equal(t, KindAirport, v.Kind)
	assert.Equal(t, SeverityWarning, v.Severity)
}

func TestClassifyPoint_UnknownKindEscalates(t *testing.T) {
	c := NewClassifier(nil)
	zones := Collection{squareZone("NO_SUCH_KIND", "x", 0, 0, 1, 1)}

	v := c.ClassifyPoint(orb.Point{0.5, 0.5}, zones)
	assert.True(t, v.Colliding)
	assert.Equal(t, SeverityDanger, v.Severity)
}

func TestClassifyPoint_CustomStyles(t *testing.T) {
	styles := StyleTable{KindDID: {Severity: SeverityWarning, Color: "#abcdef"}}
	c := NewClassifier(styles)
	zones := Collection{squareZone(KindDID, "soft", 0, 0, 1, 1)}

	v := c.ClassifyPoint(orb.Point{0.5, 0.5}, zones)
	assert.Equal(t, SeverityWarning, v.Severity)
	assert.Equal(t, "#abcdef", v.Color)
}

// ---------------------------------------------------------------------------
// ClassifyPath
// ---------------------------------------------------------------------------

func TestClassifyPath_Exhaustive(t *testing.T) {
	c := NewClassifier(nil)
	zones := []*Feature{
		squareZone(KindDID, "a", 1, 0, 2, 2),
		squareZone(KindRedZone, "b", 4, 0, 5, 2),
	}
	// A straight path crossing both zones: two crossings each.
	path := orb.LineString{{0, 1}, {6, 1}}

	v := c.ClassifyPath(path, zones)
	assert.True(t, v.Colliding)
	assert.Equal(t, SeverityDanger, v.Severity)
	require.GreaterOrEqual(t, len(v.Intersections), 2)

	// One crossing per zone boundary touched: entry and exit of both.
	assert.Len(t, v.Intersections, 4)
}

func TestClassifyPath_NoCrossing(t *testing.T) {
	c := NewClassifier(nil)
	zones := []*Feature{squareZone(KindDID, "a", 1, 0, 2, 2)}

	v := c.ClassifyPath(orb.LineString{{0, 5}, {6, 5}}, zones)
	assert.False(t, v.Colliding)
	assert.Equal(t, SeveritySafe, v.Severity)
	assert.Empty(t, v.Intersections)
}

func TestClassifyPath_Degenerate(t *testing.T) {
	c := NewClassifier(nil)
	zones := []*Feature{squareZone(KindDID, "a", 0, 0, 1, 1)}

	for _, path := range []orb.LineString{nil, {}, {{0.5, 0.5}}} {
		v := c.ClassifyPath(path, zones)
		assert.False(t, v.Colliding)
		assert.Equal(t, SeveritySafe, v.Severity)
		assert.NotEmpty(t, v.Message)
	}
}

// ---------------------------------------------------------------------------
// ClassifyPolygon
// ---------------------------------------------------------------------------

func TestClassifyPolygon_RatioBoundary(t *testing.T) {
	c := NewClassifier(nil)
	query := orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}

	tests := []struct {
		name     string
		zoneMax  float64 // zone spans lng [0, zoneMax] over the full lat range
		severity Severity
	}{
		{"exactly 20 percent", 0.2, SeverityWarning},
		{"21 percent", 0.21, SeverityDanger},
		{"full overlap", 1.0, SeverityDanger},
		{"small overlap", 0.05, SeverityWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			zones := []*Feature{squareZone(KindDID, "z", 0, 0, tt.zoneMax, 1)}
			v := c.ClassifyPolygon(query, zones)
			require.True(t, v.Colliding)
			assert.Equal(t, tt.severity, v.Severity)
			assert.InDelta(t, tt.zoneMax, v.OverlapRatio, 0.001)
			assert.Greater(t, v.OverlapArea, 0.0)
		})
	}
}

func TestClassifyPolygon_NoOverlap(t *testing.T) {
	c := NewClassifier(nil)
	query := orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	zones := []*Feature{squareZone(KindDID, "far", 10, 10, 11, 11)}

	v := c.ClassifyPolygon(query, zones)
	assert.False(t, v.Colliding)
	assert.Equal(t, SeveritySafe, v.Severity)
	assert.Zero(t, v.OverlapArea)
	assert.Zero(t, v.OverlapRatio)
}

func TestClassifyPolygon_SumsAcrossZones(t *testing.T) {
	c := NewClassifier(nil)
	query := orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	// Two disjoint slivers of 15% each: jointly past the DANGER bar.
	zones := []*Feature{
		squareZone(KindDID, "west", 0, 0, 0.15, 1),
		squareZone(KindRedZone, "east", 0.85, 0, 1, 1),
	}

	v := c.ClassifyPolygon(query, zones)
	require.True(t, v.Colliding)
	assert.InDelta(t, 0.3, v.OverlapRatio, 0.001)
	assert.Equal(t, SeverityDanger, v.Severity)
}

func TestClassifyPolygon_MalformedQueryDegradesToSafe(t *testing.T) {
	c := NewClassifier(nil)
	open := orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}
	zones := []*Feature{squareZone(KindDID, "z", 0, 0, 1, 1)}

	v := c.ClassifyPolygon(open, zones)
	assert.False(t, v.Colliding)
	assert.Equal(t, SeveritySafe, v.Severity)
	assert.Contains(t, v.Message, "rejected")
}

func TestClassifyPolygon_DegenerateZoneUsesApproximation(t *testing.T) {
	c := NewClassifier(nil)
	query := orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}}
	zones := []*Feature{{
		Kind:     KindDID,
		Name:     "broken",
		Geometry: orb.MultiPolygon{orb.Polygon{orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}}}},
	}}

	v := c.ClassifyPolygon(query, zones)
	assert.True(t, v.Colliding)
	assert.True(t, v.Approximate)
	assert.Equal(t, SeverityWarning, v.Severity)
}
