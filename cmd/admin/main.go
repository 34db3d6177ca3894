package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"tunnelrun.ai/internal/persistence/archive"
	"tunnelrun.ai/internal/persistence/snapshot"
	"tunnelrun.ai/internal/sim/encoding"
	"tunnelrun.ai/internal/sim/kernel/model"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "state":
			stateCmd(os.Args[2:])
			return
		case "quit":
			quitCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		}
	}
	listCmd(os.Args[1:])
}

// listCmd prints the archived (finished) matches found under the data dir.
func listCmd(args []string) {
	fs := flag.NewFlagSet("admin", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	_ = fs.Parse(args)

	metas, err := listArchives(*dataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read:", err)
		os.Exit(1)
	}
	for _, m := range metas {
		printJSON(m)
	}
}

func listArchives(dataDir string) ([]archive.MatchArchiveMeta, error) {
	base := filepath.Join(dataDir, "archives")
	entries, err := os.ReadDir(base)
	if err != nil {
		return nil, err
	}
	var out []archive.MatchArchiveMeta
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		b, err := os.ReadFile(filepath.Join(base, e.Name(), "meta.json"))
		if err != nil {
			continue
		}
		var m archive.MatchArchiveMeta
		if err := json.Unmarshal(b, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out, nil
}

func snapshotCmd(args []string) {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	path := fs.String("path", "", "path to .snap.zst")
	headerOnly := fs.Bool("header", false, "print only the header line")
	_ = fs.Parse(args)

	if *path == "" {
		fmt.Fprintln(os.Stderr, "missing -path")
		os.Exit(2)
	}
	if *headerOnly {
		h, err := snapshot.ReadHeader(*path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read header:", err)
			os.Exit(1)
		}
		printJSON(h)
		return
	}
	snap, err := snapshot.ReadSnapshot(*path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read snapshot:", err)
		os.Exit(1)
	}
	printJSON(summarize(snap))
}

type snapshotSummary struct {
	Header  snapshot.Header `json:"header"`
	Player  string          `json:"player"`
	State   string          `json:"state"`
	Outcome string          `json:"outcome,omitempty"`
	Level   int             `json:"level"`
	Step    int             `json:"step"`
	Score   int             `json:"score"`
	Lives   int             `json:"lives"`
	Size    [2]int          `json:"size"`
	Dug     int             `json:"dug"`
	DigDug  [2]int          `json:"digdug"`
	Enemies int             `json:"enemies"`
	Rocks   int             `json:"rocks"`
	Rope    int             `json:"rope"`
	Digest  string          `json:"digest"`
}

func summarize(s snapshot.SnapshotV1) snapshotSummary {
	out := snapshotSummary{
		Header:  s.Header,
		Player:  s.Player,
		State:   s.State,
		Outcome: s.Outcome,
		Level:   s.Level,
		Step:    s.Step,
		Score:   s.Score,
		Lives:   s.Lives,
		Size:    [2]int{s.Terrain.W, s.Terrain.H},
		DigDug:  s.DigDug,
		Enemies: len(s.Enemies),
		Rocks:   len(s.Rocks),
		Digest:  s.Digest,
	}
	if s.Rope != nil {
		out.Rope = len(s.Rope.Cells)
	}
	if tiles, err := encoding.DecodeTiles(s.Terrain.TilesRLE, s.Terrain.W*s.Terrain.H); err == nil {
		for _, t := range tiles {
			if model.Tile(t) == model.TilePassage {
				out.Dug++
			}
		}
	}
	return out
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
