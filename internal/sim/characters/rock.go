package characters

import "tunnelrun.ai/internal/sim/kernel/model"

// rockWobbleTicks is how long a rock shakes once its support is gone before it drops.
const rockWobbleTicks = 3

// Rock rests in dirt until the cell below it is dug out, wobbles, then falls one
// cell per tick. It crushes any enemy it lands on and breaks when it stops.
type Rock struct {
	id     string
	pos    model.Point
	alive  bool
	wobble int
	fell   int
}

func NewRock(id string, pos model.Point) *Rock {
	return &Rock{id: id, pos: pos, alive: true}
}

func (r *Rock) ID() string       { return r.id }
func (r *Rock) Pos() model.Point { return r.pos }
func (r *Rock) Alive() bool      { return r.alive }
func (r *Rock) Falling() bool    { return r.fell > 0 }

func (r *Rock) Move(t model.Terrain, p model.Player, enemies []model.Enemy, rocks []model.Rock) {
	if !r.alive {
		return
	}
	below := r.pos.Add(model.DirSouth)
	free := t.IsPassage(below) && !r.rockBelow(rocks, below)

	if !free {
		if r.fell > 0 {
			r.alive = false
		}
		r.wobble = 0
		return
	}
	if r.fell == 0 {
		// Hold while the digger is right underneath; drop once it steps away.
		if p != nil && p.Pos() == below {
			return
		}
		r.wobble++
		if r.wobble < rockWobbleTicks {
			return
		}
	}

	t.Dig(r.pos)
	r.pos = below
	r.fell++
	for _, e := range enemies {
		if e.Alive() && !e.Exited() && e.Pos() == r.pos {
			e.Kill(model.CauseRock)
		}
	}
}

func (r *Rock) rockBelow(rocks []model.Rock, below model.Point) bool {
	for _, o := range rocks {
		if o != model.Rock(r) && o.Alive() && o.Pos() == below {
			return true
		}
	}
	return false
}
