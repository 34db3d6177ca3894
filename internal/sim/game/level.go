package game

// nextLevel rebuilds terrain, enemies and rocks for level n. Lives and score carry over.
func (g *Game) nextLevel(n int) error {
	kinds, err := g.levels.Composition(n)
	if err != nil {
		return err
	}
	g.logger.Printf("NEXT LEVEL %d", n)
	g.level = n
	g.terrain = g.deps.NewTerrain(n)
	g.player.Respawn(g.terrain.PlayerSpawn())
	g.total += g.step
	g.step = 0
	g.input.Clear()
	g.rope = NewRope(g.cfg.MaxRopeLen)
	g.credited = map[string]bool{}

	spawns := g.terrain.EnemySpawns()
	g.enemies = g.enemies[:0:0]
	for i, kind := range kinds {
		// Spawn slots beyond the terrain's are dropped.
		if i >= len(spawns) {
			break
		}
		g.enemies = append(g.enemies, g.deps.NewEnemy(kind, g.newEnemyID(), spawns[i]))
	}
	g.rocks = g.rocks[:0:0]
	for _, p := range g.terrain.RockSeeds() {
		g.rocks = append(g.rocks, g.deps.NewRock(g.newRockID(), p))
	}
	return nil
}

// levelCleared advances to the next level, or wins the match after the last one.
func (g *Game) levelCleared() {
	next := g.level + 1
	if !g.levels.Has(next) {
		g.logger.Printf("all %d levels cleared, %s wins with %d points", g.level, g.name, g.score)
		g.end(OutcomeWon)
		return
	}
	if err := g.nextLevel(next); err != nil {
		g.logger.Printf("next level: %v", err)
		g.end(OutcomeStopped)
	}
}
