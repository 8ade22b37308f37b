package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/skyfence-jp/skyfence/internal/zone"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS zone_datasets (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	imported_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS zone_features (
	id         TEXT PRIMARY KEY,
	dataset_id TEXT NOT NULL REFERENCES zone_datasets(id) ON DELETE CASCADE,
	seq        INTEGER NOT NULL,
	kind       TEXT NOT NULL,
	name       TEXT NOT NULL DEFAULT '',
	geom       BLOB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_zone_features_dataset ON zone_features(dataset_id, seq);
`

// Migrate creates the schema if it does not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ImportDataset replaces the named dataset in a single transaction.
// The previous contents are dropped first; a failed import rolls back
// to the old state.
func (s *SQLiteStore) ImportDataset(ctx context.Context, name string, feats []*zone.Feature) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM zone_datasets WHERE name = ?`, name); err != nil {
		return 0, eris.Wrap(err, "sqlite: drop old dataset")
	}

	dsID := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO zone_datasets (id, name, imported_at) VALUES (?, ?, ?)`,
		dsID, name, time.Now().UTC(),
	); err != nil {
		return 0, eris.Wrap(err, "sqlite: insert dataset")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO zone_features (id, dataset_id, seq, kind, name, geom) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare feature insert")
	}
	defer func() { _ = stmt.Close() }()

	n := 0
	for i, f := range feats {
		geomBlob, err := encodeGeometry(f.Geometry)
		if err != nil {
			return 0, err
		}
		id := f.ID
		if id == "" {
			id = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, id, dsID, i, f.Kind, f.Name, geomBlob); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert feature %d", i)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit import")
	}
	return n, nil
}

// LoadDataset returns the zones of a named dataset in import order.
func (s *SQLiteStore) LoadDataset(ctx context.Context, name string) ([]*zone.Feature, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.kind, f.name, f.geom
		FROM zone_features f
		JOIN zone_datasets d ON d.id = f.dataset_id
		WHERE d.name = ?
		ORDER BY f.seq`, name)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query dataset")
	}
	defer func() { _ = rows.Close() }()

	var out []*zone.Feature
	for rows.Next() {
		var f zone.Feature
		var geomBlob []byte
		if err := rows.Scan(&f.ID, &f.Kind, &f.Name, &geomBlob); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan feature")
		}
		mp, err := decodeGeometry(geomBlob)
		if err != nil {
			return nil, err
		}
		f.Geometry = mp
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate features")
	}
	if out == nil {
		return nil, eris.Errorf("sqlite: dataset %q not found or empty", name)
	}
	return out, nil
}

// ListDatasets returns all stored datasets with feature counts.
func (s *SQLiteStore) ListDatasets(ctx context.Context) ([]DatasetInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.name, COUNT(f.id), d.imported_at
		FROM zone_datasets d
		LEFT JOIN zone_features f ON f.dataset_id = d.id
		GROUP BY d.id
		ORDER BY d.name`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list datasets")
	}
	defer func() { _ = rows.Close() }()

	var out []DatasetInfo
	for rows.Next() {
		var info DatasetInfo
		if err := rows.Scan(&info.Name, &info.Features, &info.ImportedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dataset")
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate datasets")
	}
	return out, nil
}
