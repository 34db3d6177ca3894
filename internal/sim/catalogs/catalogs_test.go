package catalogs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tunnelrun.ai/internal/sim/kernel/model"
)

const sample = `
levels:
  - level: 1
    enemies: [Fygar, Pooka]
  - level: 2
    enemies: [Pooka, Pooka, Fygar]
scoring:
  Pooka: [200, 100]
  Fygar: [400, 200]
`

func TestParseAndLookup(t *testing.T) {
	c, err := Parse([]byte(sample))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	got, err := c.Levels.Composition(2)
	if err != nil {
		t.Fatalf("Composition: %v", err)
	}
	want := []model.EnemyKind{model.KindPooka, model.KindPooka, model.KindFygar}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
	if c.Levels.Last() != 2 || !c.Levels.Has(1) || c.Levels.Has(3) {
		t.Fatalf("level bounds wrong: last=%d", c.Levels.Last())
	}
	if c.Digest == "" {
		t.Fatalf("expected digest")
	}
}

func TestCompositionIsACopy(t *testing.T) {
	c := Defaults()
	a, _ := c.Levels.Composition(1)
	a[0] = model.KindPooka
	b, _ := c.Levels.Composition(1)
	if b[0] != model.KindFygar {
		t.Fatalf("composition table was mutated through a returned slice")
	}
}

func TestUnknownLevel(t *testing.T) {
	_, err := Defaults().Levels.Composition(9)
	if !errors.Is(err, ErrUnknownLevel) {
		t.Fatalf("expected ErrUnknownLevel, got %v", err)
	}
}

func TestParseRejects(t *testing.T) {
	cases := map[string]string{
		"gap":         "levels:\n  - {level: 1, enemies: [Pooka]}\n  - {level: 3, enemies: [Pooka]}\nscoring: {Pooka: [1]}\n",
		"bad kind":    "levels:\n  - {level: 1, enemies: [Dragon]}\nscoring: {Pooka: [1]}\n",
		"no scoring":  "levels:\n  - {level: 1, enemies: [Fygar]}\nscoring: {Pooka: [1]}\n",
		"increasing":  "levels:\n  - {level: 1, enemies: [Pooka]}\nscoring: {Pooka: [1, 5]}\n",
		"tier count":  "levels:\n  - {level: 1, enemies: [Pooka]}\nscoring: {Pooka: [2, 1], Fygar: [1]}\n",
		"empty level": "levels:\n  - {level: 1, enemies: []}\nscoring: {Pooka: [1]}\n",
		"no levels":   "scoring: {Pooka: [1]}\n",
	}
	for name, raw := range cases {
		if _, err := Parse([]byte(raw)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestTierBucketsShallowFirst(t *testing.T) {
	s := Defaults().Scoring
	if s.Tiers != 4 {
		t.Fatalf("tiers=%d want 4", s.Tiers)
	}
	if got := s.Tier(0, 24); got != 0 {
		t.Fatalf("surface tier=%d want 0", got)
	}
	if got := s.Tier(23, 24); got != 3 {
		t.Fatalf("bottom tier=%d want 3", got)
	}
	if got := s.Tier(99, 24); got != 3 {
		t.Fatalf("below bottom should clamp, got %d", got)
	}
	top := s.Points(model.KindPooka, s.Tier(1, 24))
	bottom := s.Points(model.KindPooka, s.Tier(22, 24))
	if top <= bottom {
		t.Fatalf("top tier %d should beat bottom tier %d", top, bottom)
	}
}

func TestLoadFromDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "levels.yaml"), []byte(sample), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(dir); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "levels.yaml"), []byte("levels: 7\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := Load(dir)
	if err == nil || !strings.HasPrefix(err.Error(), "levels.yaml:") {
		t.Fatalf("expected wrapped parse error, got %v", err)
	}
}
