package log

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"tunnelrun.ai/internal/sim/match"
)

func TestTickLoggerRotatesAndReadsBack(t *testing.T) {
	dir := t.TempDir()
	l := NewTickLogger(dir)
	clock := time.Date(2026, 3, 1, 10, 59, 0, 0, time.UTC)
	l.w.now = func() time.Time { return clock }

	for i := uint64(1); i <= 3; i++ {
		if err := l.WriteTick(match.TickLogEntry{MatchID: "m1", Tick: i, Key: "d", Digest: "x"}); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	clock = clock.Add(2 * time.Minute)
	if err := l.WriteTick(match.TickLogEntry{MatchID: "m1", Tick: 4}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	files, err := ListFiles(filepath.Join(dir, "events"), "events")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("files=%v", files)
	}
	if filepath.Base(files[0]) != "events-2026-03-01-10.jsonl.zst" {
		t.Fatalf("first=%s", files[0])
	}

	var ticks []uint64
	for _, f := range files {
		err := ReadJSONL(f, func(line []byte) error {
			var e match.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return err
			}
			ticks = append(ticks, e.Tick)
			return nil
		})
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
	}
	if len(ticks) != 4 || ticks[0] != 1 || ticks[3] != 4 {
		t.Fatalf("ticks=%v", ticks)
	}
}

func TestResultLogger(t *testing.T) {
	dir := t.TempDir()
	l := NewResultLogger(dir)
	if err := l.RecordMatch(match.MatchRecord{MatchID: "m1", Outcome: "won", Score: 900}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	files, err := ListFiles(filepath.Join(dir, "results"), "results")
	if err != nil || len(files) != 1 {
		t.Fatalf("files=%v err=%v", files, err)
	}
	var got match.MatchRecord
	if err := ReadJSONL(files[0], func(line []byte) error { return json.Unmarshal(line, &got) }); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.MatchID != "m1" || got.Score != 900 {
		t.Fatalf("got=%+v", got)
	}
}
