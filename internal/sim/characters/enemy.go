package characters

import (
	"tunnelrun.ai/internal/sim/catalogs"
	"tunnelrun.ai/internal/sim/kernel/model"
)

// Exit is where the last surviving enemy escapes to.
var Exit = model.Point{X: 0, Y: 0}

const (
	pookaMoveEvery = 2
	fygarMoveEvery = 3

	// Pookas ghost through one dirt cell on every Nth move.
	pookaGhostEvery = 8
)

// Enemy is a Pooka or a Fygar. Both chase the digger along passages; a Pooka
// occasionally ghosts through dirt, a Fygar prefers to close the horizontal gap
// first. When it is the last one standing it runs for the exit.
type Enemy struct {
	id    string
	kind  model.EnemyKind
	spawn model.Point
	pos   model.Point
	dir   model.Direction

	alive  bool
	exited bool
	cause  model.KillCause
	diedAt model.Point

	ticks   int
	moves   int
	scoring catalogs.ScoringCatalog
}

func NewEnemy(kind model.EnemyKind, id string, spawn model.Point, scoring catalogs.ScoringCatalog) *Enemy {
	return &Enemy{
		id:      id,
		kind:    kind,
		spawn:   spawn,
		pos:     spawn,
		dir:     model.DirWest,
		alive:   true,
		scoring: scoring,
	}
}

func (e *Enemy) ID() string                 { return e.id }
func (e *Enemy) Kind() model.EnemyKind      { return e.kind }
func (e *Enemy) Pos() model.Point           { return e.pos }
func (e *Enemy) Direction() model.Direction { return e.dir }
func (e *Enemy) Alive() bool                { return e.alive }
func (e *Enemy) Exited() bool               { return e.exited }
func (e *Enemy) Cause() model.KillCause     { return e.cause }

func (e *Enemy) Kill(cause model.KillCause) {
	if !e.alive {
		return
	}
	e.alive = false
	e.cause = cause
	e.diedAt = e.pos
}

func (e *Enemy) Respawn() {
	e.pos = e.spawn
	e.dir = model.DirWest
}

// Points is the depth-tier value of the kill, zero while alive.
func (e *Enemy) Points(verTiles int) int {
	if e.alive {
		return 0
	}
	return e.scoring.Points(e.kind, e.scoring.Tier(e.diedAt.Y, verTiles))
}

func (e *Enemy) Move(t model.Terrain, p model.Player, enemies []model.Enemy, rocks []model.Rock) {
	if !e.alive || e.exited {
		return
	}
	e.ticks++
	every := fygarMoveEvery
	if e.kind == model.KindPooka {
		every = pookaMoveEvery
	}
	if e.ticks%every != 0 {
		return
	}
	e.moves++

	target := p.Pos()
	traverse := e.kind == model.KindPooka && e.moves%pookaGhostEvery == 0
	if lastStanding(enemies, e) {
		target = Exit
		traverse = true
	}

	for _, d := range e.preferred(target) {
		np := t.Step(e.pos, d, traverse)
		if np == e.pos || rockAt(rocks, np) || enemyAt(enemies, np, e) {
			continue
		}
		e.pos = np
		e.dir = d
		break
	}
	if e.pos == Exit && target == Exit {
		e.exited = true
	}
}

// preferred orders the four directions: the ones closing the gap to target first
// (Fygar tries the horizontal axis first), then keep heading, then the rest.
func (e *Enemy) preferred(target model.Point) []model.Direction {
	dx, dy := target.X-e.pos.X, target.Y-e.pos.Y
	var h, v model.Direction = model.DirNone, model.DirNone
	if dx > 0 {
		h = model.DirEast
	} else if dx < 0 {
		h = model.DirWest
	}
	if dy > 0 {
		v = model.DirSouth
	} else if dy < 0 {
		v = model.DirNorth
	}
	first := []model.Direction{v, h}
	if e.kind == model.KindFygar || absInt(dx) > absInt(dy) {
		first = []model.Direction{h, v}
	}

	out := make([]model.Direction, 0, 6)
	add := func(d model.Direction) {
		if !d.Valid() {
			return
		}
		for _, x := range out {
			if x == d {
				return
			}
		}
		out = append(out, d)
	}
	for _, d := range first {
		add(d)
	}
	add(e.dir)
	for _, d := range model.Directions {
		if d != e.dir.Opposite() {
			add(d)
		}
	}
	add(e.dir.Opposite())
	return out
}

func lastStanding(enemies []model.Enemy, self model.Enemy) bool {
	for _, o := range enemies {
		if o != self && o.Alive() && !o.Exited() {
			return false
		}
	}
	return true
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
