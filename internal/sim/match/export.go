package match

import (
	"tunnelrun.ai/internal/persistence/snapshot"
	"tunnelrun.ai/internal/sim/encoding"
	"tunnelrun.ai/internal/sim/kernel/model"
)

// ExportSnapshot captures the current match as a checkpoint. Loop goroutine only.
func (m *Match) ExportSnapshot(tick uint64) snapshot.SnapshotV1 {
	g := m.game
	s := g.Snapshot()
	info := g.Info()

	out := snapshot.SnapshotV1{
		Header:        snapshot.Header{Version: snapshot.Version, MatchID: m.id, Tick: tick},
		Seed:          m.cfg.Tuning.Seed,
		TickRate:      m.cfg.Tuning.TickRateHz,
		Timeout:       m.cfg.Tuning.Timeout,
		MaxRopeLen:    m.cfg.Tuning.MaxRopeLen,
		CatalogDigest: m.cats.Digest,
		Player:        g.Player(),
		State:         g.State().String(),
		Outcome:       string(g.Outcome()),
		Level:         s.Level,
		Step:          s.Step,
		TotalSteps:    g.TotalSteps(),
		Score:         s.Score,
		Lives:         s.Lives,
		Digest:        g.Digest(),
		DigDug:        xy(s.DigDug),
	}

	tiles := make([]uint8, 0, info.Size.W*info.Size.H)
	for _, col := range info.Map {
		for _, t := range col {
			tiles = append(tiles, uint8(t))
		}
	}
	out.Terrain = snapshot.TerrainV1{W: info.Size.W, H: info.Size.H, TilesRLE: encoding.EncodeTiles(tiles)}

	for _, e := range s.Enemies {
		out.Enemies = append(out.Enemies, snapshot.EnemyV1{ID: e.ID, Kind: string(e.Name), Pos: xy(e.Pos)})
	}
	for _, r := range s.Rocks {
		out.Rocks = append(out.Rocks, snapshot.RockV1{ID: r.ID, Pos: xy(r.Pos)})
	}
	if s.Rope != nil {
		rope := &snapshot.RopeV1{Dir: int(s.Rope.Dir)}
		for _, p := range s.Rope.Pos {
			rope.Cells = append(rope.Cells, xy(p))
		}
		out.Rope = rope
	}
	return out
}

func xy(p model.Point) [2]int { return [2]int{p.X, p.Y} }
