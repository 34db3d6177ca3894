package game

import "tunnelrun.ai/internal/sim/kernel/model"

// Rope is the digger's weapon. It is a value: every transition returns a new
// Rope and a reset is always a fresh empty one.
type Rope struct {
	maxLen int
	dir    model.Direction
	cells  []model.Point
}

func NewRope(maxLen int) Rope { return Rope{maxLen: maxLen, dir: model.DirNone} }

func (r Rope) Empty() bool { return len(r.cells) == 0 }
func (r Rope) Len() int    { return len(r.cells) }

// Direction is the locked direction, DirNone while idle.
func (r Rope) Direction() model.Direction { return r.dir }

// Cells returns a copy of the rope cells, origin side first.
func (r Rope) Cells() []model.Point { return append([]model.Point(nil), r.cells...) }

func (r Rope) reset() Rope { return NewRope(r.maxLen) }

// Shoot extends the rope by one cell from its tip (or from origin while idle).
// A direction change, a self-intersection or overreaching the max length all
// reset it instead.
func (r Rope) Shoot(t model.Terrain, origin model.Point, dir model.Direction) Rope {
	if !dir.Valid() {
		return r.reset()
	}
	if !r.Empty() && r.dir != dir {
		return r.reset()
	}
	from := origin
	if !r.Empty() {
		from = r.cells[len(r.cells)-1]
	}
	next := t.Step(from, dir, false)
	if model.Contains(r.cells, next) {
		return r.reset()
	}
	cells := make([]model.Point, len(r.cells), len(r.cells)+1)
	copy(cells, r.cells)
	cells = append(cells, next)
	if len(cells) > r.maxLen {
		return r.reset()
	}
	return Rope{maxLen: r.maxLen, dir: dir, cells: cells}
}

// Hit kills the first live enemy, in collection order, standing on the rope.
// At most one enemy is killed per call.
func (r Rope) Hit(enemies []model.Enemy) (model.Enemy, bool) {
	if r.Empty() {
		return nil, false
	}
	for _, e := range enemies {
		if !e.Alive() || e.Exited() {
			continue
		}
		if model.Contains(r.cells, e.Pos()) {
			e.Kill(model.CauseRope)
			return e, true
		}
	}
	return nil, false
}
