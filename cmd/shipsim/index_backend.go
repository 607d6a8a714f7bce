package main

import (
	"path/filepath"

	"shipsim.dev/internal/persistence/indexdb"
	"shipsim.dev/internal/sim/tuning"
)

// openRunIndex returns nil when indexing is off. Relative db paths live in
// the run directory.
func openRunIndex(runDir string, tune tuning.Tuning, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB || !tune.IndexDB.Enabled {
		return nil, nil
	}
	path := tune.IndexDB.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(runDir, path)
	}
	return indexdb.OpenSQLite(path, indexdb.Options{EveryTicks: tune.IndexDB.EveryTicks})
}
