package terrain

import (
	"tunnelrun.ai/internal/sim/kernel/model"
)

type Config struct {
	Level int
	Size  model.Size
	Seed  int64
}

// Map is the default terrain: a dirt field under a passage surface row, with
// pre-dug enemy tunnels, rocks resting in dirt and a sprinkling of stone.
// Tiles are indexed [x][y].
type Map struct {
	level int
	size  model.Size
	tiles [][]model.Tile

	playerSpawn model.Point
	enemySpawns []model.Point
	rocks       []model.Point
}

const (
	tunnelHalfLen = 2
	minSpawnGap   = 6
	maxAttempts   = 64
)

// New generates the map for cfg.Level.
func New(cfg Config) *Map {
	w, h := cfg.Size.W, cfg.Size.H
	m := &Map{
		level: cfg.Level,
		size:  cfg.Size,
		tiles: make([][]model.Tile, w),
	}
	for x := 0; x < w; x++ {
		m.tiles[x] = make([]model.Tile, h)
		for y := 1; y < h; y++ {
			m.tiles[x][y] = model.TileDirt
		}
	}
	m.playerSpawn = model.Point{X: w / 2, Y: 0}

	m.carveTunnels(cfg.Seed, enemySlots(cfg.Level))
	m.placeRocks(cfg.Seed, 2+cfg.Level)
	m.sprinkleStone(cfg.Seed)
	return m
}

// FromTiles builds a map from an explicit grid, for tools and tests.
func FromTiles(level int, tiles [][]model.Tile, player model.Point, enemies, rocks []model.Point) *Map {
	w := len(tiles)
	h := 0
	if w > 0 {
		h = len(tiles[0])
	}
	cp := make([][]model.Tile, w)
	for x := range tiles {
		cp[x] = append([]model.Tile(nil), tiles[x]...)
	}
	return &Map{
		level:       level,
		size:        model.Size{W: w, H: h},
		tiles:       cp,
		playerSpawn: player,
		enemySpawns: append([]model.Point(nil), enemies...),
		rocks:       append([]model.Point(nil), rocks...),
	}
}

func enemySlots(level int) int {
	n := 3 + 2*(level-1)
	if n < 3 {
		n = 3
	}
	if n > 12 {
		n = 12
	}
	return n
}

func (m *Map) carveTunnels(seed int64, n int) {
	w, h := m.size.W, m.size.H
	for i := 0; i < n; i++ {
		for a := 0; a < maxAttempts; a++ {
			hh := hash3(seed, m.level*saltTunnel, i, a)
			p := model.Point{
				X: pick(hh, tunnelHalfLen+1, w-tunnelHalfLen-2),
				Y: pick(hh>>20, 3, h-2),
			}
			if model.Manhattan(p, m.playerSpawn) < minSpawnGap || model.Contains(m.enemySpawns, p) {
				continue
			}
			vertical := hash3(seed, m.level, i, saltFlip)%3 == 0
			for d := -tunnelHalfLen; d <= tunnelHalfLen; d++ {
				q := model.Point{X: p.X + d, Y: p.Y}
				if vertical {
					q = model.Point{X: p.X, Y: p.Y + d}
				}
				if m.size.In(q) && q.Y > 0 {
					m.tiles[q.X][q.Y] = model.TilePassage
				}
			}
			m.enemySpawns = append(m.enemySpawns, p)
			break
		}
	}
}

func (m *Map) placeRocks(seed int64, n int) {
	w, h := m.size.W, m.size.H
	for i := 0; i < n; i++ {
		for a := 0; a < maxAttempts; a++ {
			hh := hash3(seed, m.level*saltRock, i, a)
			p := model.Point{X: pick(hh, 1, w-2), Y: pick(hh>>20, 2, h-3)}
			below := model.Point{X: p.X, Y: p.Y + 1}
			if m.tiles[p.X][p.Y] != model.TileDirt || m.tiles[below.X][below.Y] != model.TileDirt {
				continue
			}
			if model.Contains(m.rocks, p) || model.Contains(m.rocks, below) || model.Contains(m.rocks, model.Point{X: p.X, Y: p.Y - 1}) {
				continue
			}
			if p.X == m.playerSpawn.X {
				continue
			}
			m.rocks = append(m.rocks, p)
			break
		}
	}
}

func (m *Map) sprinkleStone(seed int64) {
	for x := 0; x < m.size.W; x++ {
		for y := 2; y < m.size.H; y++ {
			if m.tiles[x][y] != model.TileDirt {
				continue
			}
			p := model.Point{X: x, Y: y}
			if model.Contains(m.rocks, p) || model.Contains(m.rocks, model.Point{X: x, Y: y - 1}) {
				continue
			}
			if hash3(seed, m.level*saltStone, x, y)%100 < 2 {
				m.tiles[x][y] = model.TileStone
			}
		}
	}
}

func (m *Map) Size() model.Size { return m.size }
func (m *Map) Level() int       { return m.level }
func (m *Map) VerTiles() int    { return m.size.H }

func (m *Map) PlayerSpawn() model.Point { return m.playerSpawn }

func (m *Map) EnemySpawns() []model.Point {
	return append([]model.Point(nil), m.enemySpawns...)
}

func (m *Map) RockSeeds() []model.Point {
	return append([]model.Point(nil), m.rocks...)
}

func (m *Map) Tile(p model.Point) model.Tile {
	if !m.size.In(p) {
		return model.TileStone
	}
	return m.tiles[p.X][p.Y]
}

func (m *Map) IsPassage(p model.Point) bool {
	return m.size.In(p) && m.tiles[p.X][p.Y] == model.TilePassage
}

// Step moves pos one cell in d. Stone and the map edge always block; dirt blocks
// unless traverse is set.
func (m *Map) Step(pos model.Point, d model.Direction, traverse bool) model.Point {
	np := pos.Add(d)
	if np == pos || !m.size.In(np) {
		return pos
	}
	switch m.tiles[np.X][np.Y] {
	case model.TilePassage:
		return np
	case model.TileDirt:
		if traverse {
			return np
		}
	}
	return pos
}

// Dig turns dirt into passage. Stone is not diggable.
func (m *Map) Dig(p model.Point) {
	if m.size.In(p) && m.tiles[p.X][p.Y] == model.TileDirt {
		m.tiles[p.X][p.Y] = model.TilePassage
	}
}

// Tiles returns a copy of the grid.
func (m *Map) Tiles() [][]model.Tile {
	out := make([][]model.Tile, len(m.tiles))
	for x := range m.tiles {
		out[x] = append([]model.Tile(nil), m.tiles[x]...)
	}
	return out
}
