package store

import (
	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// encodeGeometry converts a zone multi-polygon to EWKB with SRID 4326
// for the geometry column.
func encodeGeometry(mp orb.MultiPolygon) ([]byte, error) {
	g := geom.NewMultiPolygon(geom.XY).SetSRID(4326)
	for _, poly := range mp {
		p := geom.NewPolygon(geom.XY)
		for _, ring := range poly {
			coords := make([]geom.Coord, 0, len(ring))
			for _, pt := range ring {
				coords = append(coords, geom.Coord{pt[0], pt[1]})
			}
			r, err := geom.NewLinearRing(geom.XY).SetCoords(coords)
			if err != nil {
				return nil, eris.Wrap(err, "store: build ring")
			}
			if err := p.Push(r); err != nil {
				return nil, eris.Wrap(err, "store: push ring")
			}
		}
		if err := g.Push(p); err != nil {
			return nil, eris.Wrap(err, "store: push polygon")
		}
	}

	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode EWKB")
	}
	return data, nil
}

// decodeGeometry is the inverse of encodeGeometry. It also accepts a
// bare Polygon for forward compatibility with hand-loaded rows.
func decodeGeometry(data []byte) (orb.MultiPolygon, error) {
	t, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode EWKB")
	}

	switch g := t.(type) {
	case *geom.MultiPolygon:
		mp := make(orb.MultiPolygon, 0, g.NumPolygons())
		for i := 0; i < g.NumPolygons(); i++ {
			mp = append(mp, polygonFromGeom(g.Polygon(i)))
		}
		return mp, nil
	case *geom.Polygon:
		return orb.MultiPolygon{polygonFromGeom(g)}, nil
	default:
		return nil, eris.Errorf("store: unexpected geometry type %T", t)
	}
}

func polygonFromGeom(p *geom.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, p.NumLinearRings())
	for i := 0; i < p.NumLinearRings(); i++ {
		coords := p.LinearRing(i).Coords()
		ring := make(orb.Ring, 0, len(coords))
		for _, c := range coords {
			ring = append(ring, orb.Point{c[0], c[1]})
		}
		out = append(out, ring)
	}
	return out
}
