package game

import (
	"bytes"
	"log"
	"testing"

	"tunnelrun.ai/internal/sim/catalogs"
	"tunnelrun.ai/internal/sim/kernel/model"
	"tunnelrun.ai/internal/sim/tuning"
)

// fakeTerrain is an open grid with optional dirt cells that block non-traversing steps.
type fakeTerrain struct {
	level       int
	size        model.Size
	spawn       model.Point
	enemySpawns []model.Point
	rockSeeds   []model.Point
	dirt        map[model.Point]bool
}

func (t *fakeTerrain) Size() model.Size           { return t.size }
func (t *fakeTerrain) Level() int                 { return t.level }
func (t *fakeTerrain) VerTiles() int              { return t.size.H }
func (t *fakeTerrain) PlayerSpawn() model.Point   { return t.spawn }
func (t *fakeTerrain) EnemySpawns() []model.Point { return append([]model.Point(nil), t.enemySpawns...) }
func (t *fakeTerrain) RockSeeds() []model.Point   { return append([]model.Point(nil), t.rockSeeds...) }

func (t *fakeTerrain) IsPassage(p model.Point) bool {
	return t.size.In(p) && !t.dirt[p]
}

func (t *fakeTerrain) Dig(p model.Point) { delete(t.dirt, p) }

func (t *fakeTerrain) Step(pos model.Point, d model.Direction, traverse bool) model.Point {
	if !d.Valid() {
		return pos
	}
	np := pos.Add(d)
	if !t.size.In(np) {
		return pos
	}
	if t.dirt[np] && !traverse {
		return pos
	}
	return np
}

func (t *fakeTerrain) Tiles() [][]model.Tile {
	out := make([][]model.Tile, t.size.W)
	for x := range out {
		out[x] = make([]model.Tile, t.size.H)
		for y := range out[x] {
			if t.dirt[model.Point{X: x, Y: y}] {
				out[x][y] = model.TileDirt
			}
		}
	}
	return out
}

type fakePlayer struct {
	pos   model.Point
	dir   model.Direction
	lives int
	alive bool
	moves int
}

func (p *fakePlayer) Pos() model.Point           { return p.pos }
func (p *fakePlayer) Direction() model.Direction { return p.dir }
func (p *fakePlayer) Lives() int                 { return p.lives }
func (p *fakePlayer) Alive() bool                { return p.alive }

func (p *fakePlayer) Move(t model.Terrain, d model.Direction, enemies []model.Enemy, rocks []model.Rock) {
	p.moves++
	if !d.Valid() {
		return
	}
	p.dir = d
	p.pos = t.Step(p.pos, d, true)
}

func (p *fakePlayer) Kill() {
	p.lives--
	if p.lives <= 0 {
		p.lives = 0
		p.alive = false
	}
}

func (p *fakePlayer) Respawn(at model.Point) { p.pos = at }

type fakeEnemy struct {
	id     string
	kind   model.EnemyKind
	spawn  model.Point
	pos    model.Point
	alive  bool
	exited bool
	cause  model.KillCause
	diedAt model.Point
	moves  int

	onMove  func(e *fakeEnemy, p model.Player)
	scoring catalogs.ScoringCatalog
}

func (e *fakeEnemy) ID() string                 { return e.id }
func (e *fakeEnemy) Kind() model.EnemyKind      { return e.kind }
func (e *fakeEnemy) Pos() model.Point           { return e.pos }
func (e *fakeEnemy) Direction() model.Direction { return model.DirWest }
func (e *fakeEnemy) Alive() bool                { return e.alive }
func (e *fakeEnemy) Exited() bool               { return e.exited }
func (e *fakeEnemy) Cause() model.KillCause     { return e.cause }
func (e *fakeEnemy) Respawn()                   { e.pos = e.spawn }

func (e *fakeEnemy) Move(t model.Terrain, p model.Player, enemies []model.Enemy, rocks []model.Rock) {
	e.moves++
	if e.onMove != nil {
		e.onMove(e, p)
	}
}

func (e *fakeEnemy) Kill(cause model.KillCause) {
	if !e.alive {
		return
	}
	e.alive = false
	e.cause = cause
	e.diedAt = e.pos
}

func (e *fakeEnemy) Points(verTiles int) int {
	if e.alive {
		return 0
	}
	return e.scoring.Points(e.kind, e.scoring.Tier(e.diedAt.Y, verTiles))
}

type fakeRock struct {
	id    string
	pos   model.Point
	alive bool

	onMove func(r *fakeRock, enemies []model.Enemy)
}

func (r *fakeRock) ID() string       { return r.id }
func (r *fakeRock) Pos() model.Point { return r.pos }
func (r *fakeRock) Alive() bool      { return r.alive }

func (r *fakeRock) Move(t model.Terrain, p model.Player, enemies []model.Enemy, rocks []model.Rock) {
	if r.onMove != nil {
		r.onMove(r, enemies)
	}
}

// harness builds a Game on fakes. Created collaborators are recorded so tests can
// script them after Start.
type harness struct {
	t       *testing.T
	g       *Game
	logs    *bytes.Buffer
	levels  map[int]*fakeTerrain
	player  *fakePlayer
	enemies map[string]*fakeEnemy
	rocks   map[string]*fakeRock
}

const testLevelsYAML = `
levels:
  - level: 1
    enemies: [Pooka, Fygar]
  - level: 2
    enemies: [Fygar, Pooka]
scoring:
  Pooka: [500, 400, 300, 200]
  Fygar: [1000, 800, 600, 400]
`

func openTerrain(level int, spawns, rocks []model.Point) *fakeTerrain {
	return &fakeTerrain{
		level:       level,
		size:        model.Size{W: 10, H: 10},
		spawn:       model.Point{X: 0, Y: 0},
		enemySpawns: spawns,
		rockSeeds:   rocks,
		dirt:        map[model.Point]bool{},
	}
}

func newHarness(t *testing.T, tu tuning.Tuning, levelsYAML string, levels map[int]*fakeTerrain) *harness {
	t.Helper()
	cats, err := catalogs.Parse([]byte(levelsYAML))
	if err != nil {
		t.Fatalf("catalogs: %v", err)
	}
	h := &harness{
		t:       t,
		logs:    &bytes.Buffer{},
		levels:  levels,
		enemies: map[string]*fakeEnemy{},
		rocks:   map[string]*fakeRock{},
	}
	deps := Deps{
		NewTerrain: func(level int) model.Terrain {
			ft, ok := h.levels[level]
			if !ok {
				t.Fatalf("no fake terrain for level %d", level)
			}
			return ft
		},
		NewPlayer: func(spawn model.Point, lives int) model.Player {
			h.player = &fakePlayer{pos: spawn, dir: model.DirEast, lives: lives, alive: lives > 0}
			return h.player
		},
		NewEnemy: func(kind model.EnemyKind, id string, spawn model.Point) model.Enemy {
			e := &fakeEnemy{id: id, kind: kind, spawn: spawn, pos: spawn, alive: true, scoring: cats.Scoring}
			h.enemies[id] = e
			return e
		},
		NewRock: func(id string, at model.Point) model.Rock {
			r := &fakeRock{id: id, pos: at, alive: true}
			h.rocks[id] = r
			return r
		},
	}
	g, err := New(Config{
		Tuning:   tu,
		Catalogs: cats,
		Logger:   log.New(h.logs, "", 0),
		Deps:     deps,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.g = g
	return h
}

func (h *harness) start() {
	h.t.Helper()
	if err := h.g.Start("tester"); err != nil {
		h.t.Fatalf("Start: %v", err)
	}
}

func (h *harness) tick(key string) Snapshot {
	h.t.Helper()
	h.g.Keypress(key)
	s, ok := h.g.Step()
	if !ok {
		h.t.Fatalf("Step returned no snapshot (state=%s)", h.g.State())
	}
	return s
}

func testTuning() tuning.Tuning {
	tu := tuning.Defaults()
	tu.MapSize = [2]int{10, 10}
	tu.LogEverySteps = 0
	return tu
}
