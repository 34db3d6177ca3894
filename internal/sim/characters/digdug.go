package characters

import "tunnelrun.ai/internal/sim/kernel/model"

// DigDug is the player character. It digs through dirt as it moves and cannot
// enter stone or a cell holding a rock.
type DigDug struct {
	pos   model.Point
	dir   model.Direction
	lives int
	alive bool
}

func NewDigDug(spawn model.Point, lives int) *DigDug {
	return &DigDug{pos: spawn, dir: model.DirEast, lives: lives, alive: lives > 0}
}

func (d *DigDug) Pos() model.Point           { return d.pos }
func (d *DigDug) Direction() model.Direction { return d.dir }
func (d *DigDug) Lives() int                 { return d.lives }
func (d *DigDug) Alive() bool                { return d.alive }

func (d *DigDug) Move(t model.Terrain, dir model.Direction, enemies []model.Enemy, rocks []model.Rock) {
	if !d.alive || !dir.Valid() {
		return
	}
	d.dir = dir
	np := t.Step(d.pos, dir, true)
	if np == d.pos || rockAt(rocks, np) {
		return
	}
	t.Dig(np)
	d.pos = np
}

func (d *DigDug) Kill() {
	if d.lives > 0 {
		d.lives--
	}
	if d.lives == 0 {
		d.alive = false
	}
}

func (d *DigDug) Respawn(at model.Point) {
	d.pos = at
	d.dir = model.DirEast
	d.alive = d.lives > 0
}

func rockAt(rocks []model.Rock, p model.Point) bool {
	for _, r := range rocks {
		if r.Alive() && r.Pos() == p {
			return true
		}
	}
	return false
}

func enemyAt(enemies []model.Enemy, p model.Point, self model.Enemy) bool {
	for _, e := range enemies {
		if e == self || !e.Alive() || e.Exited() {
			continue
		}
		if e.Pos() == p {
			return true
		}
	}
	return false
}
