package catalogs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"tunnelrun.ai/internal/sim/kernel/model"
)

// ErrUnknownLevel is returned by lookups for a level missing from the level table.
var ErrUnknownLevel = errors.New("unknown level")

type Catalogs struct {
	Levels  LevelCatalog
	Scoring ScoringCatalog
	Digest  string
}

type LevelCatalog struct {
	byLevel map[int][]model.EnemyKind
	max     int
}

// ScoringCatalog holds depth-tier point tables per enemy kind. Index 0 is the
// shallowest tier.
type ScoringCatalog struct {
	Tiers  int
	byKind map[model.EnemyKind][]int
}

type fileV1 struct {
	Levels  []levelDef       `yaml:"levels"`
	Scoring map[string][]int `yaml:"scoring"`
}

type levelDef struct {
	Level   int      `yaml:"level"`
	Enemies []string `yaml:"enemies"`
}

// Load reads <configDir>/levels.yaml.
func Load(configDir string) (*Catalogs, error) {
	path := filepath.Join(configDir, "levels.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("levels.yaml: %w", err)
	}
	return c, nil
}

// Parse decodes and validates a level table document.
func Parse(raw []byte) (*Catalogs, error) {
	var f fileV1
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	c, err := build(f)
	if err != nil {
		return nil, err
	}
	c.Digest = sha256Hex(raw)
	return c, nil
}

// Defaults is the stock arcade table: three levels of Fygars and Pookas.
func Defaults() *Catalogs {
	f := fileV1{
		Levels: []levelDef{
			{Level: 1, Enemies: []string{"Fygar", "Fygar", "Pooka"}},
			{Level: 2, Enemies: []string{"Fygar", "Fygar", "Fygar", "Pooka", "Pooka"}},
			{Level: 3, Enemies: []string{"Fygar", "Fygar", "Fygar", "Fygar", "Fygar", "Pooka", "Pooka"}},
		},
		Scoring: map[string][]int{
			"Pooka": {500, 400, 300, 200},
			"Fygar": {1000, 800, 600, 400},
		},
	}
	c, err := build(f)
	if err != nil {
		panic(err)
	}
	c.Digest = sha256Hex([]byte("builtin"))
	return c
}

func build(f fileV1) (*Catalogs, error) {
	c := &Catalogs{
		Levels:  LevelCatalog{byLevel: map[int][]model.EnemyKind{}},
		Scoring: ScoringCatalog{byKind: map[model.EnemyKind][]int{}},
	}

	names := make([]string, 0, len(f.Scoring))
	for k := range f.Scoring {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, name := range names {
		kind := model.EnemyKind(name)
		if !kind.Valid() {
			return nil, fmt.Errorf("scoring: unknown enemy kind %q", name)
		}
		table := f.Scoring[name]
		if len(table) == 0 {
			return nil, fmt.Errorf("scoring: %s has no tiers", name)
		}
		if c.Scoring.Tiers != 0 && len(table) != c.Scoring.Tiers {
			return nil, fmt.Errorf("scoring: %s has %d tiers, want %d", name, len(table), c.Scoring.Tiers)
		}
		for i, v := range table {
			if v < 0 {
				return nil, fmt.Errorf("scoring: %s tier %d is negative", name, i)
			}
			if i > 0 && v > table[i-1] {
				return nil, fmt.Errorf("scoring: %s tiers must not increase with depth", name)
			}
		}
		c.Scoring.Tiers = len(table)
		c.Scoring.byKind[kind] = append([]int(nil), table...)
	}

	if len(f.Levels) == 0 {
		return nil, fmt.Errorf("no levels defined")
	}
	for _, l := range f.Levels {
		if l.Level <= 0 {
			return nil, fmt.Errorf("level %d: levels start at 1", l.Level)
		}
		if _, dup := c.Levels.byLevel[l.Level]; dup {
			return nil, fmt.Errorf("level %d: defined twice", l.Level)
		}
		if len(l.Enemies) == 0 {
			return nil, fmt.Errorf("level %d: no enemies", l.Level)
		}
		kinds := make([]model.EnemyKind, 0, len(l.Enemies))
		for _, e := range l.Enemies {
			kind := model.EnemyKind(e)
			if !kind.Valid() {
				return nil, fmt.Errorf("level %d: unknown enemy kind %q", l.Level, e)
			}
			if _, ok := c.Scoring.byKind[kind]; !ok {
				return nil, fmt.Errorf("level %d: no scoring table for %s", l.Level, e)
			}
			kinds = append(kinds, kind)
		}
		c.Levels.byLevel[l.Level] = kinds
		if l.Level > c.Levels.max {
			c.Levels.max = l.Level
		}
	}
	for n := 1; n <= c.Levels.max; n++ {
		if _, ok := c.Levels.byLevel[n]; !ok {
			return nil, fmt.Errorf("level %d: missing (levels must be contiguous)", n)
		}
	}
	return c, nil
}

// Composition returns a copy of the ordered enemy kinds for a level.
func (l LevelCatalog) Composition(level int) ([]model.EnemyKind, error) {
	kinds, ok := l.byLevel[level]
	if !ok {
		return nil, fmt.Errorf("level %d: %w", level, ErrUnknownLevel)
	}
	return append([]model.EnemyKind(nil), kinds...), nil
}

func (l LevelCatalog) Has(level int) bool {
	_, ok := l.byLevel[level]
	return ok
}

// Last is the highest defined level; clearing it wins the match.
func (l LevelCatalog) Last() int { return l.max }

// Points returns the value of a kill in the given tier. Tiers outside the table clamp.
func (s ScoringCatalog) Points(kind model.EnemyKind, tier int) int {
	table := s.byKind[kind]
	if len(table) == 0 {
		return 0
	}
	if tier < 0 {
		tier = 0
	}
	if tier >= len(table) {
		tier = len(table) - 1
	}
	return table[tier]
}

// Tier buckets a row into [0, Tiers) given the terrain's vertical tile count.
func (s ScoringCatalog) Tier(y, verTiles int) int {
	if s.Tiers <= 1 || verTiles <= 0 {
		return 0
	}
	if y < 0 {
		y = 0
	}
	t := y * s.Tiers / verTiles
	if t >= s.Tiers {
		t = s.Tiers - 1
	}
	return t
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
