package model

// Tile is one terrain cell.
type Tile uint8

const (
	TilePassage Tile = 0
	TileDirt    Tile = 1
	TileStone   Tile = 2
)

// Size is the terrain extent in cells.
type Size struct {
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

func (s Size) MarshalJSON() ([]byte, error) { return Point{X: s.W, Y: s.H}.MarshalJSON() }

func (s *Size) UnmarshalJSON(b []byte) error {
	var p Point
	if err := p.UnmarshalJSON(b); err != nil {
		return err
	}
	s.W, s.H = p.X, p.Y
	return nil
}

func (s Size) In(p Point) bool { return p.X >= 0 && p.Y >= 0 && p.X < s.W && p.Y < s.H }

// Terrain is the level map consumed by the match core and the movement collaborators.
// Implementations are regenerated wholesale on every level transition.
type Terrain interface {
	Size() Size
	Level() int
	// VerTiles is the number of rows used to bucket kill depth into score tiers.
	VerTiles() int
	PlayerSpawn() Point
	EnemySpawns() []Point
	RockSeeds() []Point
	// Step moves pos one cell in d. With traverse=false the move is refused (pos is
	// returned unchanged) unless the destination is an in-bounds passage.
	Step(pos Point, d Direction, traverse bool) Point
	IsPassage(p Point) bool
	Dig(p Point)
	Tiles() [][]Tile
}

type EnemyKind string

const (
	KindPooka EnemyKind = "Pooka"
	KindFygar EnemyKind = "Fygar"
)

func (k EnemyKind) Valid() bool { return k == KindPooka || k == KindFygar }

// KillCause records what killed an enemy. Rock kills score a flat bonus.
type KillCause int

const (
	CauseNone KillCause = iota
	CauseRope
	CauseRock
)

func (c KillCause) String() string {
	switch c {
	case CauseRope:
		return "rope"
	case CauseRock:
		return "rock"
	default:
		return "none"
	}
}

// Player is the digger. Move may dig terrain; it never mutates siblings directly.
type Player interface {
	Pos() Point
	Direction() Direction
	Lives() int
	Alive() bool
	Move(t Terrain, d Direction, enemies []Enemy, rocks []Rock)
	// Kill removes exactly one life.
	Kill()
	Respawn(at Point)
}

// Enemy moves by itself each tick. Deaths are flagged on the enemy, never scored by it.
type Enemy interface {
	ID() string
	Kind() EnemyKind
	Pos() Point
	Direction() Direction
	Alive() bool
	Exited() bool
	Move(t Terrain, p Player, enemies []Enemy, rocks []Rock)
	Kill(cause KillCause)
	Cause() KillCause
	Respawn()
	// Points is the tiered value of the kill. Only meaningful after death.
	Points(verTiles int) int
}

// Rock falls under its own physics and may crush enemies (Kill(CauseRock)).
type Rock interface {
	ID() string
	Pos() Point
	Alive() bool
	Move(t Terrain, p Player, enemies []Enemy, rocks []Rock)
}
