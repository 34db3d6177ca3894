package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"tunnelrun.ai/internal/persistence/snapshot"
)

type MatchArchiveMeta struct {
	MatchID    string `json:"match_id"`
	Player     string `json:"player"`
	Outcome    string `json:"outcome"`
	EndTick    uint64 `json:"end_tick"`
	Seed       int64  `json:"seed"`
	Level      int    `json:"level"`
	Score      int    `json:"score"`
	TotalSteps int    `json:"total_steps"`
	Snapshot   string `json:"snapshot"`
	CreatedAt  string `json:"created_at"`
}

// ArchiveMatchSnapshot copies a final checkpoint into `dataDir/archives/match_<id>/`.
// Checkpoints of a match still in progress are ignored (archived=false).
func ArchiveMatchSnapshot(dataDir, snapshotPath string, snap snapshot.SnapshotV1) (archivedPath string, archived bool, err error) {
	if snap.Outcome == "" || snap.Header.MatchID == "" {
		return "", false, nil
	}

	archiveDir := filepath.Join(dataDir, "archives", fmt.Sprintf("match_%s", snap.Header.MatchID))
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}

	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := MatchArchiveMeta{
		MatchID:    snap.Header.MatchID,
		Player:     snap.Player,
		Outcome:    snap.Outcome,
		EndTick:    snap.Header.Tick,
		Seed:       snap.Seed,
		Level:      snap.Level,
		Score:      snap.Score,
		TotalSteps: snap.TotalSteps,
		Snapshot:   filepath.Base(dst),
		CreatedAt:  time.Now().UTC().Format(time.RFC3339Nano),
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
