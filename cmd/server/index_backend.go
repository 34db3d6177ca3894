package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"tunnelrun.ai/internal/persistence/indexdb"
	"tunnelrun.ai/internal/persistence/snapshot"
	"tunnelrun.ai/internal/sim/catalogs"
	"tunnelrun.ai/internal/sim/match"
	"tunnelrun.ai/internal/sim/tuning"
)

type runtimeIndex interface {
	match.TickLogger
	match.ResultSink
	Close() error
	UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
	Stats() indexdb.Stats
}

func openRuntimeIndex(dataDir string, disableDB bool) (runtimeIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("TUNNELRUN_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "index.db"))
	default:
		return nil, fmt.Errorf("unsupported TUNNELRUN_INDEX_BACKEND: %s", backend)
	}
}
