// Package zoneload ingests restricted-zone polygons from GeoJSON and
// shapefile sources into zone features.
package zoneload

import (
	"io"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/skyfence-jp/skyfence/internal/zone"
)

// NormalizeName canonicalizes a zone display name: NFKC folds
// full-width ASCII and half-width kana variants common in Japanese
// source data, then surrounding whitespace is trimmed.
func NormalizeName(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// DecodeGeoJSON reads a GeoJSON FeatureCollection and returns its
// polygonal features as zones. Non-polygonal geometries are skipped
// with a debug log, not treated as errors.
func DecodeGeoJSON(r io.Reader) ([]*zone.Feature, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "zoneload: read geojson")
	}

	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, eris.Wrap(err, "zoneload: parse geojson")
	}

	var out []*zone.Feature
	var skipped int
	for _, f := range fc.Features {
		var mp orb.MultiPolygon
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			mp = orb.MultiPolygon{g}
		case orb.MultiPolygon:
			mp = g
		default:
			skipped++
			continue
		}

		props := map[string]any(f.Properties)
		out = append(out, &zone.Feature{
			Kind:     zone.ResolveKind(props),
			Name:     NormalizeName(propString(props, "name", "areaName")),
			Geometry: mp,
		})
	}

	if skipped > 0 {
		zap.L().Debug("zoneload: skipped non-polygonal geojson features",
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

// LoadGeoJSON reads zones from a GeoJSON file.
func LoadGeoJSON(path string) ([]*zone.Feature, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zoneload: open %s", path)
	}
	defer func() { _ = f.Close() }()
	return DecodeGeoJSON(f)
}

// propString returns the first non-empty string property among keys.
func propString(props map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := props[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
