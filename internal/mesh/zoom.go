package mesh

// ZoomConfig tells a viewport-driven caller which mesh level to request
// at a given map zoom and how many cells it may fetch per render pass.
// The cap bounds request fan-out toward the weather collaborator.
type ZoomConfig struct {
	Level    Level `json:"level"`
	MaxCells int   `json:"maxCells"`
}

// ConfigForZoom returns the mesh policy for a map zoom level.
func ConfigForZoom(zoom float64) ZoomConfig {
	switch {
	case zoom < 7:
		return ZoomConfig{Level: Level1, MaxCells: 50}
	case zoom < 10:
		return ZoomConfig{Level: Level2, MaxCells: 200}
	default:
		return ZoomConfig{Level: Level3, MaxCells: 500}
	}
}
