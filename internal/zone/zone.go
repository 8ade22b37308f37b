// Package zone models restricted-flight zones and classifies query
// geometry against them.
package zone

import (
	"os"

	"github.com/paulmach/orb"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Recognized zone kinds.
const (
	KindDID        = "DID"
	KindAirport    = "AIRPORT"
	KindRedZone    = "RED_ZONE"
	KindYellowZone = "YELLOW_ZONE"
)

// Severity is the coarse risk tier attached to a verdict.
type Severity string

const (
	SeverityDanger  Severity = "DANGER"
	SeverityWarning Severity = "WARNING"
	SeveritySafe    Severity = "SAFE"
)

// Feature is one restricted zone: a multi-polygon with a kind and a
// display name. Features are read-only once built; classification
// never mutates them.
type Feature struct {
	ID       string
	Kind     string
	Name     string
	Geometry orb.MultiPolygon
}

// Bound returns the feature's bounding box.
func (f *Feature) Bound() orb.Bound {
	return f.Geometry.Bound()
}

// ResolveKind reads the zone kind from feature properties: zoneKind,
// then the legacy type attribute, then DID.
func ResolveKind(props map[string]any) string {
	if k, ok := props["zoneKind"].(string); ok && k != "" {
		return k
	}
	if k, ok := props["type"].(string); ok && k != "" {
		return k
	}
	return KindDID
}

// Style is the severity and display color associated with a zone kind.
type Style struct {
	Severity Severity `yaml:"severity"`
	Color    string   `yaml:"color"`
}

// StyleTable maps zone kinds to styles. Unknown kinds resolve to the
// danger default so an unrecognized restriction is never downplayed.
type StyleTable map[string]Style

// DefaultSafeColor is used for non-colliding verdicts.
const DefaultSafeColor = "#2ecc71"

// defaultDangerColor is the fallback for unrecognized kinds. It is
// distinct from every recognized kind's color.
const defaultDangerColor = "#8e44ad"

// DefaultStyles is the built-in kind table. DID and RED_ZONE are both
// hard restrictions but keep visually distinct colors.
var DefaultStyles = StyleTable{
	KindDID:        {Severity: SeverityDanger, Color: "#e74c3c"},
	KindAirport:    {Severity: SeverityWarning, Color: "#f39c12"},
	KindRedZone:    {Severity: SeverityDanger, Color: "#c0392b"},
	KindYellowZone: {Severity: SeverityWarning, Color: "#f1c40f"},
}

// For returns the style for a kind, falling back to DANGER with the
// default color for unrecognized kinds.
func (t StyleTable) For(kind string) Style {
	if s, ok := t[kind]; ok {
		return s
	}
	return Style{Severity: SeverityDanger, Color: defaultDangerColor}
}

// LoadStyles reads a yaml kind→style override file and returns the
// default table with the overrides applied.
func LoadStyles(path string) (StyleTable, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "zone: read styles %s", path)
	}

	var overrides map[string]Style
	if err := yaml.Unmarshal(raw, &overrides); err != nil {
		return nil, eris.Wrapf(err, "zone: parse styles %s", path)
	}

	table := make(StyleTable, len(DefaultStyles)+len(overrides))
	for k, v := range DefaultStyles {
		table[k] = v
	}
	for k, v := range overrides {
		switch v.Severity {
		case SeverityDanger, SeverityWarning:
		default:
			return nil, eris.Errorf("zone: style for %s has invalid severity %q", k, v.Severity)
		}
		table[k] = v
	}
	return table, nil
}
