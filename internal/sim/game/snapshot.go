package game

import "tunnelrun.ai/internal/sim/kernel/model"

// Snapshot is the per-tick state sent to renderers. It shares nothing with the
// live Game.
type Snapshot struct {
	Level   int            `json:"level"`
	Step    int            `json:"step"`
	Timeout int            `json:"timeout"`
	Player  string         `json:"player"`
	Score   int            `json:"score"`
	Lives   int            `json:"lives"`
	DigDug  model.Point    `json:"digdug"`
	Enemies []EnemySummary `json:"enemies"`
	Rocks   []RockSummary  `json:"rocks"`
	Rope    *RopeSummary   `json:"rope,omitempty"`
}

type EnemySummary struct {
	Name model.EnemyKind `json:"name"`
	ID   string          `json:"id"`
	Pos  model.Point     `json:"pos"`
}

type RockSummary struct {
	ID  string      `json:"id"`
	Pos model.Point `json:"pos"`
}

type RopeSummary struct {
	Dir model.Direction `json:"dir"`
	Pos []model.Point   `json:"pos"`
}

// Snapshot projects the current state without stepping. Before the first Start
// it reports an empty board.
func (g *Game) Snapshot() Snapshot {
	if g.player == nil {
		return Snapshot{Level: g.level, Timeout: g.cfg.Timeout, Enemies: []EnemySummary{}, Rocks: []RockSummary{}}
	}
	return g.snapshot()
}

func (g *Game) snapshot() Snapshot {
	s := Snapshot{
		Level:   g.level,
		Step:    g.step,
		Timeout: g.cfg.Timeout,
		Player:  g.name,
		Score:   g.score,
		Lives:   g.player.Lives(),
		DigDug:  g.player.Pos(),
		Enemies: make([]EnemySummary, 0, len(g.enemies)),
		Rocks:   make([]RockSummary, 0, len(g.rocks)),
	}
	for _, e := range g.enemies {
		s.Enemies = append(s.Enemies, EnemySummary{Name: e.Kind(), ID: e.ID(), Pos: e.Pos()})
	}
	for _, r := range g.rocks {
		s.Rocks = append(s.Rocks, RockSummary{ID: r.ID(), Pos: r.Pos()})
	}
	if !g.rope.Empty() {
		s.Rope = &RopeSummary{Dir: g.rope.Direction(), Pos: g.rope.Cells()}
	}
	return s
}

// Info is the match-setup record sent once to a renderer.
type Info struct {
	Size    model.Size `json:"size"`
	Map     [][]int    `json:"map"`
	FPS     int        `json:"fps"`
	Timeout int        `json:"timeout"`
	Lives   int        `json:"lives"`
	Score   int        `json:"score"`
	Level   int        `json:"level"`
}

func (g *Game) Info() Info {
	tiles := g.terrain.Tiles()
	grid := make([][]int, len(tiles))
	for x, col := range tiles {
		grid[x] = make([]int, len(col))
		for y, t := range col {
			grid[x][y] = int(t)
		}
	}
	return Info{
		Size:    g.terrain.Size(),
		Map:     grid,
		FPS:     g.cfg.TickRateHz,
		Timeout: g.cfg.Timeout,
		Lives:   g.cfg.Lives,
		Score:   g.score,
		Level:   g.level,
	}
}
