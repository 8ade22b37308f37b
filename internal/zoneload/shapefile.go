package zoneload

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skyfence-jp/skyfence/internal/zone"
)

// LoadShapefile reads polygon records from a shapefile as zones of the
// given kind. The display name is taken from a "name" attribute field
// when present (case-insensitive, trailing NULs stripped the way dbf
// writers pad them).
func LoadShapefile(path, kind string) ([]*zone.Feature, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoneload: open shapefile %s", path)
	}
	defer func() { _ = reader.Close() }()

	// Build field name → index map.
	fields := reader.Fields()
	nameIdx := -1
	for i, f := range fields {
		name := strings.TrimRight(f.String(), "\x00")
		if strings.EqualFold(name, "name") {
			nameIdx = i
			break
		}
	}

	if kind == "" {
		kind = zone.KindDID
	}

	var out []*zone.Feature
	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}

		mp := polygonToMultiPolygon(poly)
		if len(mp) == 0 {
			skipped++
			continue
		}

		var name string
		if nameIdx >= 0 {
			name = NormalizeName(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		}
		out = append(out, &zone.Feature{Kind: kind, Name: name, Geometry: mp})
	}

	if skipped > 0 {
		zap.L().Debug("zoneload: skipped shapefile records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

// polygonToMultiPolygon converts a shapefile polygon's parts into
// closed orb rings. Shapefile rings separate outer from inner by
// winding order; each outer ring starts a new polygon and subsequent
// inner rings attach to it as holes.
func polygonToMultiPolygon(p *shp.Polygon) orb.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	var mp orb.MultiPolygon
	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}

		ring := make(orb.Ring, 0, end-start+1)
		for j := start; j < end; j++ {
			ring = append(ring, orb.Point{p.Points[j].X, p.Points[j].Y})
		}
		if len(ring) < 3 {
			continue
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}

		// Shapefile outer rings wind clockwise; counter-clockwise
		// rings are holes in the preceding outer ring.
		if ring.Orientation() == orb.CCW && len(mp) > 0 {
			mp[len(mp)-1] = append(mp[len(mp)-1], ring)
			continue
		}
		mp = append(mp, orb.Polygon{ring})
	}
	return mp
}
