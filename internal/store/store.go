// Package store persists named zone datasets locally so repeated
// classification runs do not re-parse source files. Datasets are
// replaced wholesale on import, mirroring the rebuild-not-mutate
// discipline of the spatial index.
package store

import (
	"context"
	"time"

	"github.com/skyfence-jp/skyfence/internal/zone"
)

// DatasetInfo describes one stored zone dataset.
type DatasetInfo struct {
	Name       string    `json:"name"`
	Features   int       `json:"features"`
	ImportedAt time.Time `json:"imported_at"`
}

// Store is the zone dataset persistence interface.
type Store interface {
	// ImportDataset replaces the named dataset with the given zones and
	// returns the number of features written.
	ImportDataset(ctx context.Context, name string, feats []*zone.Feature) (int, error)

	// LoadDataset returns the zones of a named dataset in import order.
	LoadDataset(ctx context.Context, name string) ([]*zone.Feature, error)

	// ListDatasets returns all stored datasets.
	ListDatasets(ctx context.Context) ([]DatasetInfo, error)

	Close() error
}
