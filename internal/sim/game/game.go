package game

import (
	"errors"
	"fmt"
	"io"
	"log"

	"tunnelrun.ai/internal/sim/catalogs"
	"tunnelrun.ai/internal/sim/characters"
	"tunnelrun.ai/internal/sim/kernel/model"
	"tunnelrun.ai/internal/sim/terrain"
	"tunnelrun.ai/internal/sim/tuning"
)

// ErrNotRunning is returned by operations that need a match in progress.
var ErrNotRunning = errors.New("match not running")

type State int

const (
	StateNotStarted State = iota
	StateRunning
	StateGameOver
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateRunning:
		return "running"
	case StateGameOver:
		return "game_over"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Outcome is why a match ended.
type Outcome string

const (
	OutcomeNone    Outcome = ""
	OutcomeWon     Outcome = "won"
	OutcomeLost    Outcome = "lost"
	OutcomeTimeout Outcome = "timeout"
	OutcomeStopped Outcome = "stopped"
	OutcomeQuit    Outcome = "quit"
)

// Deps creates the collaborators a match is played with.
type Deps struct {
	NewTerrain func(level int) model.Terrain
	NewPlayer  func(spawn model.Point, lives int) model.Player
	NewEnemy   func(kind model.EnemyKind, id string, spawn model.Point) model.Enemy
	NewRock    func(id string, at model.Point) model.Rock
}

// DefaultDeps wires the built-in terrain generator and characters.
func DefaultDeps(tu tuning.Tuning, cats *catalogs.Catalogs) Deps {
	size := model.Size{W: tu.MapSize[0], H: tu.MapSize[1]}
	return Deps{
		NewTerrain: func(level int) model.Terrain {
			return terrain.New(terrain.Config{Level: level, Size: size, Seed: tu.Seed})
		},
		NewPlayer: func(spawn model.Point, lives int) model.Player {
			return characters.NewDigDug(spawn, lives)
		},
		NewEnemy: func(kind model.EnemyKind, id string, spawn model.Point) model.Enemy {
			return characters.NewEnemy(kind, id, spawn, cats.Scoring)
		},
		NewRock: func(id string, at model.Point) model.Rock {
			return characters.NewRock(id, at)
		},
	}
}

type Config struct {
	Tuning   tuning.Tuning
	Catalogs *catalogs.Catalogs
	Logger   *log.Logger

	// Deps fields left nil fall back to DefaultDeps.
	Deps Deps
}

// Game is the authoritative match state. Apart from Keypress it must only be
// used from a single goroutine.
type Game struct {
	cfg    tuning.Tuning
	levels catalogs.LevelCatalog
	deps   Deps
	logger *log.Logger

	state   State
	outcome Outcome
	name    string
	level   int
	step    int
	total   int
	score   int

	terrain model.Terrain
	player  model.Player
	enemies []model.Enemy
	rocks   []model.Rock
	rope    Rope

	input    InputSlot
	lastKey  string
	credited map[string]bool

	nextEnemyNum uint64
	nextRockNum  uint64
}

func New(cfg Config) (*Game, error) {
	if err := cfg.Tuning.Validate(); err != nil {
		return nil, err
	}
	cats := cfg.Catalogs
	if cats == nil {
		cats = catalogs.Defaults()
	}
	if !cats.Levels.Has(cfg.Tuning.InitialLevel) {
		return nil, fmt.Errorf("initial level %d: %w", cfg.Tuning.InitialLevel, catalogs.ErrUnknownLevel)
	}
	deps := cfg.Deps
	def := DefaultDeps(cfg.Tuning, cats)
	if deps.NewTerrain == nil {
		deps.NewTerrain = def.NewTerrain
	}
	if deps.NewPlayer == nil {
		deps.NewPlayer = def.NewPlayer
	}
	if deps.NewEnemy == nil {
		deps.NewEnemy = def.NewEnemy
	}
	if deps.NewRock == nil {
		deps.NewRock = def.NewRock
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}

	g := &Game{
		cfg:      cfg.Tuning,
		levels:   cats.Levels,
		deps:     deps,
		logger:   logger,
		level:    cfg.Tuning.InitialLevel,
		score:    cfg.Tuning.InitialScore,
		rope:     NewRope(cfg.Tuning.MaxRopeLen),
		credited: map[string]bool{},
	}
	g.terrain = deps.NewTerrain(g.level)
	return g, nil
}

func (g *Game) State() State     { return g.state }
func (g *Game) Outcome() Outcome { return g.outcome }
func (g *Game) Running() bool    { return g.state == StateRunning }
func (g *Game) Score() int       { return g.score }
func (g *Game) Level() int       { return g.level }
func (g *Game) CurrentStep() int { return g.step }
func (g *Game) Player() string   { return g.name }
func (g *Game) Rope() Rope       { return g.rope }

// LastKey is the key consumed by the most recent tick.
func (g *Game) LastKey() string { return g.lastKey }

// TotalSteps is the number of steps played across finished levels, plus the
// current level once the match has stopped.
func (g *Game) TotalSteps() int { return g.total }

func (g *Game) Lives() int {
	if g.player == nil {
		return 0
	}
	return g.player.Lives()
}

// Keypress buffers a key for the next tick. Safe to call from any goroutine.
func (g *Game) Keypress(key string) { g.input.Put(key) }

// Start begins a fresh match for the named player.
func (g *Game) Start(name string) error {
	g.logger.Printf("reset world & start game for %q", name)
	g.name = name
	g.outcome = OutcomeNone
	g.score = g.cfg.InitialScore
	g.step = 0
	g.total = 0
	g.nextEnemyNum = 0
	g.nextRockNum = 0
	g.player = g.deps.NewPlayer(g.terrain.PlayerSpawn(), g.cfg.Lives)
	if err := g.nextLevel(g.cfg.InitialLevel); err != nil {
		return err
	}
	g.state = StateRunning
	return nil
}

// Stop ends the match and folds the current step count into the total.
func (g *Game) Stop() { g.end(OutcomeStopped) }

// Quit ends the match with no bookkeeping.
func (g *Game) Quit() {
	g.logger.Printf("quit")
	if g.state != StateGameOver {
		g.outcome = OutcomeQuit
	}
	g.state = StateGameOver
}

// end is Stop with a reason. Only the first call of a match counts.
func (g *Game) end(o Outcome) {
	if g.state == StateGameOver {
		return
	}
	g.logger.Printf("GAME OVER (%s)", o)
	g.total += g.step
	g.outcome = o
	g.state = StateGameOver
}

// Step advances the match by one tick. It returns false, with no snapshot,
// while no match is running.
func (g *Game) Step() (Snapshot, bool) {
	if g.state != StateRunning {
		g.logger.Printf("waiting for player")
		return Snapshot{}, false
	}

	g.step++
	if g.step == g.cfg.Timeout {
		g.logger.Printf("timeout after %d steps", g.step)
		g.end(OutcomeTimeout)
	}

	g.lastKey = g.input.Take()
	g.applyInput(g.lastKey)

	for _, e := range g.enemies {
		if e.Alive() {
			e.Move(g.terrain, g.player, g.enemies, g.rocks)
		}
	}
	for _, r := range g.rocks {
		r.Move(g.terrain, g.player, g.enemies, g.rocks)
	}
	g.rocks = liveRocks(g.rocks)

	for _, e := range g.enemies {
		g.credit(e)
	}
	g.enemies = liveEnemies(g.enemies)

	g.resolveCollisions()
	g.enemies = liveEnemies(g.enemies)

	if g.state == StateRunning && len(g.enemies) == 0 {
		g.levelCleared()
	}

	if g.cfg.LogEverySteps > 0 && g.step%g.cfg.LogEverySteps == 0 {
		g.logger.Printf("[%d] SCORE %d - LIVES %d", g.step, g.score, g.Lives())
	}
	return g.snapshot(), true
}

func (g *Game) applyInput(key string) {
	if key == "" {
		g.player.Move(g.terrain, model.DirNone, g.enemies, g.rocks)
		return
	}
	if IsTrigger(key) {
		g.rope = g.rope.Shoot(g.terrain, g.player.Pos(), g.player.Direction())
		if _, hit := g.rope.Hit(g.enemies); hit {
			g.rope = NewRope(g.cfg.MaxRopeLen)
		}
		return
	}
	dir, ok := KeyDirection(key)
	if !ok {
		g.logger.Printf("invalid key <%s> pressed. valid keys: w,a,s,d A B", key)
		return
	}
	// Any movement lets go of the rope.
	g.rope = NewRope(g.cfg.MaxRopeLen)
	g.player.Move(g.terrain, dir, g.enemies, g.rocks)
}

func liveEnemies(in []model.Enemy) []model.Enemy {
	out := in[:0:0]
	for _, e := range in {
		if e.Alive() && !e.Exited() {
			out = append(out, e)
		}
	}
	return out
}

func liveRocks(in []model.Rock) []model.Rock {
	out := in[:0:0]
	for _, r := range in {
		if r.Alive() {
			out = append(out, r)
		}
	}
	return out
}

func (g *Game) newEnemyID() string {
	g.nextEnemyNum++
	return fmt.Sprintf("E%06d", g.nextEnemyNum)
}

func (g *Game) newRockID() string {
	g.nextRockNum++
	return fmt.Sprintf("R%06d", g.nextRockNum)
}
