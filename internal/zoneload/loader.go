package zoneload

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/skyfence-jp/skyfence/internal/zone"
)

// maxConcurrentFiles bounds parallel parsing during directory loads.
const maxConcurrentFiles = 4

// LoadDir loads every .geojson, .json and .shp file under dir, in
// parallel, and returns the combined zones in filename order so that
// first-match-wins classification is reproducible across runs.
func LoadDir(ctx context.Context, dir string) ([]*zone.Feature, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, eris.Wrapf(err, "zoneload: read dir %s", dir)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".geojson", ".json", ".shp":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)

	byPath := make(map[string][]*zone.Feature, len(paths))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFiles)
	for _, path := range paths {
		path := path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			var feats []*zone.Feature
			var err error
			if strings.EqualFold(filepath.Ext(path), ".shp") {
				feats, err = LoadShapefile(path, "")
			} else {
				feats, err = LoadGeoJSON(path)
			}
			if err != nil {
				return err
			}

			mu.Lock()
			byPath[path] = feats
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []*zone.Feature
	for _, path := range paths {
		out = append(out, byPath[path]...)
	}

	zap.L().Info("zoneload: loaded zone directory",
		zap.String("dir", dir),
		zap.Int("files", len(paths)),
		zap.Int("zones", len(out)),
	)
	return out, nil
}
