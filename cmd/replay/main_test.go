package main

import (
	"path/filepath"
	"strings"
	"testing"

	persistlog "tunnelrun.ai/internal/persistence/log"
	"tunnelrun.ai/internal/sim/game"
	"tunnelrun.ai/internal/sim/match"
	"tunnelrun.ai/internal/sim/tuning"
)

func newGame(t *testing.T, tu tuning.Tuning) *game.Game {
	t.Helper()
	g, err := game.New(game.Config{Tuning: tu})
	if err != nil {
		t.Fatalf("game.New: %v", err)
	}
	if err := g.Start("ana"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	return g
}

// record plays keys the way the match runner does and returns its tick log.
func record(t *testing.T, tu tuning.Tuning, matchID string, keys []string) []match.TickLogEntry {
	t.Helper()
	g := newGame(t, tu)
	var out []match.TickLogEntry
	for i, k := range keys {
		g.Keypress(k)
		snap, ok := g.Step()
		if !ok {
			break
		}
		out = append(out, match.TickLogEntry{
			MatchID: matchID,
			Tick:    uint64(i + 1),
			Key:     g.LastKey(),
			Level:   snap.Level,
			Step:    snap.Step,
			Score:   snap.Score,
			Lives:   snap.Lives,
			State:   g.State().String(),
			Digest:  g.Digest(),
		})
	}
	return out
}

func testKeys() []string {
	pattern := []string{"s", "s", "s", "a", "A", "", "d", "d", "B", "w", "x", "s"}
	var keys []string
	for i := 0; i < 5; i++ {
		keys = append(keys, pattern...)
	}
	return keys
}

func TestReplayMatchesRecordedDigests(t *testing.T) {
	tu := tuning.Defaults()
	entries := record(t, tu, "m1", testKeys())
	if len(entries) == 0 {
		t.Fatalf("nothing recorded")
	}

	checked, err := replay(newGame(t, tu), entries)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if checked != len(entries) {
		t.Fatalf("checked=%d want %d", checked, len(entries))
	}
}

func TestReplayDetectsDivergence(t *testing.T) {
	tu := tuning.Defaults()
	entries := record(t, tu, "m1", testKeys())
	if len(entries) < 6 {
		t.Fatalf("only %d entries", len(entries))
	}
	entries[5].Digest = strings.Repeat("0", 64)

	checked, err := replay(newGame(t, tu), entries)
	if err == nil || !strings.Contains(err.Error(), "digest mismatch at tick 6") {
		t.Fatalf("err=%v", err)
	}
	if checked != 6 {
		t.Fatalf("checked=%d want 6", checked)
	}
}

func TestLoadEntriesFiltersByMatch(t *testing.T) {
	dir := t.TempDir()
	tl := persistlog.NewTickLogger(dir)
	for i := uint64(1); i <= 4; i++ {
		_ = tl.WriteTick(match.TickLogEntry{MatchID: "a", Tick: i, Digest: "x"})
		_ = tl.WriteTick(match.TickLogEntry{MatchID: "b", Tick: i, Digest: "y"})
	}
	if err := tl.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := loadEntries(filepath.Join(dir, "events"), "b", 3)
	if err != nil {
		t.Fatalf("loadEntries: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries", len(got))
	}
	for i, e := range got {
		if e.MatchID != "b" || e.Tick != uint64(i+1) {
			t.Fatalf("entry %d = %+v", i, e)
		}
	}
}

func TestReplayRejectsTickGap(t *testing.T) {
	tu := tuning.Defaults()
	entries := record(t, tu, "m1", testKeys())
	entries = append(entries[:2], entries[3:]...)
	if _, err := replay(newGame(t, tu), entries); err == nil || !strings.Contains(err.Error(), "tick gap") {
		t.Fatalf("err=%v", err)
	}
}
