package game

import "tunnelrun.ai/internal/sim/kernel/model"

// credit scores an enemy death exactly once.
func (g *Game) credit(e model.Enemy) {
	if e.Alive() || g.credited[e.ID()] {
		return
	}
	g.credited[e.ID()] = true
	pts := g.killPoints(e)
	g.score += pts
	g.logger.Printf("%s %s killed by %s: +%d", e.Kind(), e.ID(), e.Cause(), pts)
}

// killPoints: rock kills are a flat bonus, anything else is worth the enemy's depth tier.
func (g *Game) killPoints(e model.Enemy) int {
	if e.Cause() == model.CauseRock {
		return g.cfg.RockKillPoints
	}
	pts := e.Points(g.terrain.VerTiles())
	if pts < 0 {
		return 0
	}
	return pts
}

// resolveCollisions applies position-equality collisions in collection order.
// The first collision applied to an entity this pass wins.
func (g *Game) resolveCollisions() {
	handled := make(map[string]bool)

	playerHit := !g.player.Alive()
	for _, e := range g.enemies {
		if playerHit {
			break
		}
		if !e.Alive() || e.Pos() != g.player.Pos() {
			continue
		}
		g.killPlayer()
		e.Respawn()
		handled[e.ID()] = true
		playerHit = true
	}
	for _, r := range g.rocks {
		if playerHit {
			break
		}
		if r.Alive() && r.Pos() == g.player.Pos() {
			g.killPlayer()
			playerHit = true
		}
	}

	for _, r := range g.rocks {
		if !r.Alive() {
			continue
		}
		for _, e := range g.enemies {
			if handled[e.ID()] || !e.Alive() || e.Pos() != r.Pos() {
				continue
			}
			e.Kill(model.CauseRock)
			handled[e.ID()] = true
			g.credit(e)
		}
	}
}
