// Package mesh converts between WGS84 coordinates and the Japan standard
// area mesh (JIS X 0410). A mesh code is a fixed-width decimal string
// naming one rectangular cell at one of three nesting levels:
//
//	level 1: 4 digits, 40' lat x 1 deg lng (~80 km)
//	level 2: 6 digits, each level-1 cell split 8x8 (~10 km)
//	level 3: 8 digits, each level-2 cell split 10x10 (~1 km)
//
// Codes are hierarchical: the level-2 code of a point starts with its
// level-1 code, and the level-3 code starts with its level-2 code.
package mesh

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
)

// Level identifies one of the three mesh nesting levels.
type Level int

const (
	Level1 Level = 1
	Level2 Level = 2
	Level3 Level = 3
)

// Japan bounding region accepted by the converter. Coordinates outside
// this box are rejected, never clamped.
const (
	MinLat = 20.0
	MaxLat = 46.0
	MinLng = 122.0
	MaxLng = 154.0
)

// Cell extents in degrees per level.
const (
	lat1 = 40.0 / 60.0 // 40 minutes
	lng1 = 1.0
	lat2 = lat1 / 8
	lng2 = lng1 / 8
	lat3 = lat2 / 10
	lng3 = lng2 / 10
)

// Code is a validated mesh code. The zero value is not a valid code;
// obtain one from LatLngToCode or Parse.
type Code string

// codeLen maps level to expected code length.
func codeLen(level Level) int {
	switch level {
	case Level1:
		return 4
	case Level2:
		return 6
	case Level3:
		return 8
	}
	return 0
}

// InBounds reports whether the coordinate lies inside the Japan
// bounding region handled by the converter.
func InBounds(lat, lng float64) bool {
	return lat >= MinLat && lat <= MaxLat && lng >= MinLng && lng <= MaxLng
}

// LatLngToCode quantizes a coordinate to the mesh code of the cell that
// contains it at the given level.
func LatLngToCode(lat, lng float64, level Level) (Code, error) {
	if codeLen(level) == 0 {
		return "", eris.Errorf("mesh: unknown level %d", int(level))
	}
	if !InBounds(lat, lng) {
		return "", eris.Errorf("mesh: coordinate (%.6f, %.6f) outside Japan bounds [%g..%g, %g..%g]",
			lat, lng, MinLat, MaxLat, MinLng, MaxLng)
	}

	// Level 1: lat in 40-minute bands, lng in 1-degree bands. Points
	// sitting exactly on the region maxima belong to the last band,
	// not to a band outside the region.
	p := math.Floor(lat * 1.5)
	if p >= MaxLat*1.5 {
		p = MaxLat*1.5 - 1
	}
	u := math.Floor(lng) - 100
	if u >= MaxLng-100 {
		u = MaxLng - 100 - 1
	}
	code := fmt.Sprintf("%02d%02d", int(p), int(u))
	if level == Level1 {
		return Code(code), nil
	}

	// Level 2: 8x8 subdivision of the level-1 cell.
	latRem := lat*1.5 - p
	lngRem := lng - (u + 100)
	q := clampDigit(math.Floor(latRem*8), 7)
	v := clampDigit(math.Floor(lngRem*8), 7)
	code += fmt.Sprintf("%d%d", q, v)
	if level == Level2 {
		return Code(code), nil
	}

	// Level 3: 10x10 subdivision of the level-2 cell.
	r := clampDigit(math.Floor((latRem*8-float64(q))*10), 9)
	w := clampDigit(math.Floor((lngRem*8-float64(v))*10), 9)
	code += fmt.Sprintf("%d%d", r, w)
	return Code(code), nil
}

// clampDigit keeps a subdivision index inside [0, max]; points sitting
// exactly on the upper edge of a cell would otherwise spill into the
// next cell's digit range.
func clampDigit(f float64, max int) int {
	d := int(f)
	if d < 0 {
		return 0
	}
	if d > max {
		return max
	}
	return d
}

// Parse validates a raw string as a mesh code. It checks length and
// digit content only; use IsValid to additionally check bounds.
func Parse(s string) (Code, error) {
	switch len(s) {
	case 4, 6, 8:
	default:
		return "", eris.Errorf("mesh: code %q has length %d, want 4, 6 or 8", s, len(s))
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", eris.Errorf("mesh: code %q contains non-digit %q", s, s[i])
		}
	}
	return Code(s), nil
}

// Level reports the nesting level encoded by the code length.
func (c Code) Level() Level {
	switch len(c) {
	case 4:
		return Level1
	case 6:
		return Level2
	case 8:
		return Level3
	}
	return 0
}

// CellSize returns the lat/lng extent in degrees of cells at a level.
func CellSize(level Level) (dLat, dLng float64) {
	switch level {
	case Level1:
		return lat1, lng1
	case Level2:
		return lat2, lng2
	default:
		return lat3, lng3
	}
}

// southWest returns the south-west corner of the cell.
func (c Code) southWest() (lat, lng float64) {
	p := float64(digit(c, 0)*10 + digit(c, 1))
	u := float64(digit(c, 2)*10 + digit(c, 3))
	lat = p / 1.5
	lng = u + 100
	if len(c) >= 6 {
		lat += float64(digit(c, 4)) * lat2
		lng += float64(digit(c, 5)) * lng2
	}
	if len(c) == 8 {
		lat += float64(digit(c, 6)) * lat3
		lng += float64(digit(c, 7)) * lng3
	}
	return lat, lng
}

func digit(c Code, i int) int {
	return int(c[i] - '0')
}

// Center returns the coordinate at the center of the cell.
func (c Code) Center() (lat, lng float64) {
	swLat, swLng := c.southWest()
	dLat, dLng := CellSize(c.Level())
	return swLat + dLat/2, swLng + dLng/2
}

// BBox returns the exact cell rectangle.
func (c Code) BBox() orb.Bound {
	swLat, swLng := c.southWest()
	dLat, dLng := CellSize(c.Level())
	return orb.Bound{
		Min: orb.Point{swLng, swLat},
		Max: orb.Point{swLng + dLng, swLat + dLat},
	}
}

// Surrounding returns the 3x3 neighborhood of the cell (itself plus up
// to eight neighbors) at the same level, row by row from south-west to
// north-east. Neighbors whose center falls outside the Japan bounds
// are dropped; duplicates at region edges are preserved as produced.
func Surrounding(c Code) []Code {
	level := c.Level()
	if level == 0 {
		return nil
	}
	centerLat, centerLng := c.Center()
	dLat, dLng := CellSize(level)

	out := make([]Code, 0, 9)
	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			lat := centerLat + float64(dy)*dLat
			lng := centerLng + float64(dx)*dLng
			code, err := LatLngToCode(lat, lng, level)
			if err != nil {
				continue
			}
			out = append(out, code)
		}
	}
	return out
}

// IsValid reports whether s is a well-formed mesh code whose cell
// center lies inside the Japan bounds.
func IsValid(s string) bool {
	c, err := Parse(s)
	if err != nil {
		return false
	}
	lat, lng := c.Center()
	return InBounds(lat, lng)
}
