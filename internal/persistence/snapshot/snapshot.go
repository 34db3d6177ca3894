package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

type Header struct {
	Version int    `json:"version"`
	MatchID string `json:"match_id"`
	Tick    uint64 `json:"tick"`
}

// SnapshotV1 is a match checkpoint: enough to inspect the board and, with the
// tick log, to replay the match from its start.
type SnapshotV1 struct {
	Header Header `json:"header"`

	Seed          int64  `json:"seed"`
	TickRate      int    `json:"tick_rate_hz"`
	Timeout       int    `json:"timeout"`
	MaxRopeLen    int    `json:"max_rope_len"`
	CatalogDigest string `json:"catalog_digest"`

	Player     string `json:"player"`
	State      string `json:"state"`
	Outcome    string `json:"outcome,omitempty"`
	Level      int    `json:"level"`
	Step       int    `json:"step"`
	TotalSteps int    `json:"total_steps"`
	Score      int    `json:"score"`
	Lives      int    `json:"lives"`
	Digest     string `json:"digest"`

	Terrain TerrainV1 `json:"terrain"`
	DigDug  [2]int    `json:"digdug"`
	Enemies []EnemyV1 `json:"enemies"`
	Rocks   []RockV1  `json:"rocks"`
	Rope    *RopeV1   `json:"rope,omitempty"`
}

// TerrainV1 stores the tile grid column-major (index x*H+y), run-length
// encoded with encoding.EncodeTiles.
type TerrainV1 struct {
	W        int    `json:"w"`
	H        int    `json:"h"`
	TilesRLE string `json:"tiles_rle"`
}

type EnemyV1 struct {
	ID   string `json:"id"`
	Kind string `json:"kind"`
	Pos  [2]int `json:"pos"`
}

type RockV1 struct {
	ID  string `json:"id"`
	Pos [2]int `json:"pos"`
}

type RopeV1 struct {
	Dir   int      `json:"dir"`
	Cells [][2]int `json:"cells"`
}

// Path is where the checkpoint for tick lives under a data dir.
func Path(dataDir string, h Header) string {
	return filepath.Join(dataDir, "snapshots", fmt.Sprintf("%s-%d.snap.zst", h.MatchID, h.Tick))
}

func WriteSnapshot(path string, snap SnapshotV1) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	defer enc.Close()

	bw := bufio.NewWriterSize(enc, 64*1024)
	defer bw.Flush()

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		return err
	}

	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		return fmt.Errorf("gob encode: %w", err)
	}
	return nil
}

// ReadHeader decodes only the JSON header line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("decode header: %w", err)
	}
	return h, nil
}

func ReadSnapshot(path string) (SnapshotV1, error) {
	var snap SnapshotV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 64*1024)

	// The header is repeated inside the gob body.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	return snap, nil
}
