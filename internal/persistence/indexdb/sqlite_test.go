package indexdb

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"tunnelrun.ai/internal/persistence/snapshot"
	"tunnelrun.ai/internal/sim/catalogs"
	"tunnelrun.ai/internal/sim/match"
	"tunnelrun.ai/internal/sim/tuning"
)

func openForRead(t *testing.T, path string) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteIndex_TicksMatchesSnapshots(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "index.db")

	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	for i := uint64(1); i <= 3; i++ {
		if err := idx.WriteTick(match.TickLogEntry{MatchID: "m1", Tick: i, Key: "d", Level: 1, Step: int(i), Score: 0, Lives: 3, State: "running", Digest: "d"}); err != nil {
			t.Fatalf("WriteTick: %v", err)
		}
	}
	idx.RecordSnapshot("/abs/m1-3.snap.zst", snapshot.SnapshotV1{
		Header:  snapshot.Header{Version: snapshot.Version, MatchID: "m1", Tick: 3},
		Seed:    42,
		State:   "running",
		Level:   1,
		Lives:   3,
		Enemies: []snapshot.EnemyV1{{ID: "E000001", Kind: "Pooka"}},
	})
	if err := idx.RecordMatch(match.MatchRecord{MatchID: "m1", Player: "ana", Outcome: "lost", Level: 2, Score: 1300, TotalSteps: 40, Ticks: 3, Seed: 42}); err != nil {
		t.Fatalf("RecordMatch: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := idx.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	db := openForRead(t, path)

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM ticks WHERE match_id='m1'`).Scan(&n); err != nil {
		t.Fatalf("count ticks: %v", err)
	}
	if n != 3 {
		t.Fatalf("ticks=%d want 3", n)
	}

	var (
		player  string
		outcome string
		score   int
		steps   int
	)
	row := db.QueryRow(`SELECT player,outcome,score,total_steps FROM matches WHERE match_id='m1'`)
	if err := row.Scan(&player, &outcome, &score, &steps); err != nil {
		t.Fatalf("scan match: %v", err)
	}
	if player != "ana" || outcome != "lost" || score != 1300 || steps != 40 {
		t.Fatalf("match row mismatch: %s %s %d %d", player, outcome, score, steps)
	}

	var (
		snapPath string
		enemies  int
		seed     int64
	)
	row = db.QueryRow(`SELECT path,enemies,seed FROM snapshots WHERE match_id='m1' AND tick=3`)
	if err := row.Scan(&snapPath, &enemies, &seed); err != nil {
		t.Fatalf("scan snapshot: %v", err)
	}
	if snapPath != "/abs/m1-3.snap.zst" || enemies != 1 || seed != 42 {
		t.Fatalf("snapshot row mismatch: %q %d %d", snapPath, enemies, seed)
	}
}

func TestSQLiteIndex_QueueDropStats(t *testing.T) {
	s := &SQLiteIndex{ch: make(chan req, 1)}
	s.ch <- req{kind: reqTick, tick: match.TickLogEntry{Tick: 1}}

	_ = s.WriteTick(match.TickLogEntry{Tick: 2})
	_ = s.RecordMatch(match.MatchRecord{MatchID: "m"})
	s.RecordSnapshot("/tmp/2.snap.zst", snapshot.SnapshotV1{})

	st := s.Stats()
	if st.DropTickTotal != 1 || st.DropMatchTotal != 1 || st.DropSnapshotTotal != 1 {
		t.Fatalf("drop stats mismatch: %+v", st)
	}
	if st.QueueDepth != 1 || st.QueueCapacity != 1 {
		t.Fatalf("queue stats mismatch: depth=%d cap=%d", st.QueueDepth, st.QueueCapacity)
	}
}

func TestSQLiteIndex_UpsertCatalogs(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "configs")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	raw := []byte("levels:\n  - level: 1\n    enemies: [Pooka]\nscoring:\n  Pooka: [200]\n")
	if err := os.WriteFile(filepath.Join(cfgDir, "levels.yaml"), raw, 0o644); err != nil {
		t.Fatalf("write levels: %v", err)
	}
	cats, err := catalogs.Load(cfgDir)
	if err != nil {
		t.Fatalf("catalogs.Load: %v", err)
	}

	path := filepath.Join(dir, "index.db")
	idx, err := OpenSQLite(path)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	if err := idx.UpsertCatalogs(cfgDir, cats, tuning.Defaults()); err != nil {
		t.Fatalf("UpsertCatalogs: %v", err)
	}
	_ = idx.Close()

	db := openForRead(t, path)
	var digest string
	if err := db.QueryRow(`SELECT digest FROM catalogs WHERE name='levels'`).Scan(&digest); err != nil {
		t.Fatalf("scan levels: %v", err)
	}
	if digest != cats.Digest {
		t.Fatalf("digest=%q want %q", digest, cats.Digest)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM catalogs WHERE name='tuning'`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("tuning row count=%d err=%v", n, err)
	}
}
