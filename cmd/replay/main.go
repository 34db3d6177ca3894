package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	persistlog "tunnelrun.ai/internal/persistence/log"
	"tunnelrun.ai/internal/persistence/snapshot"
	"tunnelrun.ai/internal/sim/catalogs"
	"tunnelrun.ai/internal/sim/game"
	"tunnelrun.ai/internal/sim/match"
	"tunnelrun.ai/internal/sim/tuning"
)

func main() {
	var (
		dataDir    = flag.String("data", "./data", "runtime data directory (events under <data>/events)")
		matchID    = flag.String("match", "", "match id to replay (defaults to the snapshot's match)")
		snapPath   = flag.String("snapshot", "", "checkpoint of the match (optional; supplies seed and rope length)")
		configDir  = flag.String("configs", "./configs", "config directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		toTick     = flag.Uint64("to_tick", 0, "stop at tick (inclusive, optional)")
	)
	flag.Parse()

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil && !os.IsNotExist(err) {
		fmt.Fprintln(os.Stderr, "load tuning:", err)
		os.Exit(1)
	}
	cats, err := catalogs.Load(*configDir)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintln(os.Stderr, "load catalogs:", err)
			os.Exit(1)
		}
		cats = catalogs.Defaults()
	}

	player := "replay"
	id := strings.TrimSpace(*matchID)
	if *snapPath != "" {
		snap, err := snapshot.ReadSnapshot(*snapPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "read snapshot:", err)
			os.Exit(1)
		}
		fmt.Printf("snapshot v%d match=%s tick=%d seed=%d level=%d score=%d outcome=%q\n",
			snap.Header.Version, snap.Header.MatchID, snap.Header.Tick, snap.Seed, snap.Level, snap.Score, snap.Outcome)
		if id == "" {
			id = snap.Header.MatchID
		}
		if snap.CatalogDigest != "" && snap.CatalogDigest != cats.Digest {
			fmt.Fprintf(os.Stderr, "warning: catalog digest differs from the match (%s != %s)\n", cats.Digest, snap.CatalogDigest)
		}
		tune.Seed = snap.Seed
		tune.Timeout = snap.Timeout
		tune.MaxRopeLen = snap.MaxRopeLen
		if snap.TickRate > 0 {
			tune.TickRateHz = snap.TickRate
		}
		if snap.Player != "" {
			player = snap.Player
		}
	}
	if id == "" {
		fmt.Fprintln(os.Stderr, "missing -match (or -snapshot)")
		os.Exit(2)
	}

	entries, err := loadEntries(filepath.Join(*dataDir, "events"), id, *toTick)
	if err != nil {
		fmt.Fprintln(os.Stderr, "read events:", err)
		os.Exit(1)
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "no ticks for match %s in %s\n", id, filepath.Join(*dataDir, "events"))
		os.Exit(1)
	}

	g, err := game.New(game.Config{Tuning: tune, Catalogs: cats})
	if err != nil {
		fmt.Fprintln(os.Stderr, "game:", err)
		os.Exit(1)
	}
	if err := g.Start(player); err != nil {
		fmt.Fprintln(os.Stderr, "start:", err)
		os.Exit(1)
	}
	checked, err := replay(g, entries)
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("replay ok: match=%s checked=%d ticks state=%s score=%d level=%d\n", id, checked, g.State(), g.Score(), g.Level())
}

// loadEntries collects one match's tick log lines in file order.
func loadEntries(eventsDir, matchID string, toTick uint64) ([]match.TickLogEntry, error) {
	files, err := persistlog.ListFiles(eventsDir, "events")
	if err != nil {
		return nil, err
	}
	var out []match.TickLogEntry
	errDone := errors.New("done")
	for _, path := range files {
		err := persistlog.ReadJSONL(path, func(line []byte) error {
			var e match.TickLogEntry
			if err := json.Unmarshal(line, &e); err != nil {
				return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
			}
			if e.MatchID != matchID {
				return nil
			}
			if toTick != 0 && e.Tick > toTick {
				return errDone
			}
			out = append(out, e)
			return nil
		})
		if errors.Is(err, errDone) {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

// replay feeds each logged key into g and checks the resulting digest.
func replay(g *game.Game, entries []match.TickLogEntry) (int, error) {
	checked := 0
	for i, e := range entries {
		if want := uint64(i + 1); e.Tick != want {
			return checked, fmt.Errorf("tick gap: want=%d got=%d", want, e.Tick)
		}
		g.Keypress(e.Key)
		if _, ok := g.Step(); !ok {
			return checked, fmt.Errorf("tick %d: game not running (state=%s)", e.Tick, g.State())
		}
		checked++
		if got := g.Digest(); got != e.Digest {
			return checked, fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", e.Tick, got, e.Digest)
		}
		if got := g.State().String(); got != e.State {
			return checked, fmt.Errorf("state mismatch at tick %d: got=%s want=%s", e.Tick, got, e.State)
		}
	}
	return checked, nil
}
