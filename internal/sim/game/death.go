package game

import "tunnelrun.ai/internal/sim/kernel/model"

// killPlayer takes one life. With lives left the digger goes back to spawn and
// any enemy camping within the vital radius is sent home too; otherwise the
// match is over.
func (g *Game) killPlayer() {
	g.player.Kill()
	g.logger.Printf("Dig Dug has died on step %d", g.step)
	if g.player.Lives() <= 0 {
		g.end(OutcomeLost)
		return
	}
	spawn := g.terrain.PlayerSpawn()
	g.player.Respawn(spawn)
	for _, e := range g.enemies {
		if e.Alive() && model.Dist(e.Pos(), spawn) < g.cfg.VitalRadius {
			e.Respawn()
		}
	}
}
