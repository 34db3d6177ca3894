package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version" json:"protocol_version"`

	TickRateHz   int     `yaml:"tick_rate_hz" json:"tick_rate_hz"`
	Timeout      int     `yaml:"timeout" json:"timeout"`
	Lives        int     `yaml:"lives" json:"lives"`
	InitialScore int     `yaml:"initial_score" json:"initial_score"`
	InitialLevel int     `yaml:"initial_level" json:"initial_level"`
	MapSize      [2]int  `yaml:"map_size" json:"map_size"`
	Seed         int64   `yaml:"seed" json:"seed"`
	MaxRopeLen   int     `yaml:"max_rope_len" json:"max_rope_len"`
	VitalRadius  float64 `yaml:"vital_radius" json:"vital_radius"`

	// RockKillPoints is the flat bonus for any enemy crushed by a rock.
	RockKillPoints int `yaml:"rock_kill_points" json:"rock_kill_points"`

	SnapshotEveryTicks int `yaml:"snapshot_every_ticks" json:"snapshot_every_ticks"`
	LogEverySteps      int `yaml:"log_every_steps" json:"log_every_steps"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         10,
		Timeout:            3000,
		Lives:              3,
		InitialScore:       0,
		InitialLevel:       1,
		MapSize:            [2]int{48, 24},
		Seed:               1337,
		MaxRopeLen:         3,
		VitalRadius:        4,
		RockKillPoints:     1000,
		SnapshotEveryTicks: 500,
		LogEverySteps:      100,
	}
}

// Load reads a tuning file on top of Defaults, so a partial file only overrides what it names.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be > 0 (got %d)", t.TickRateHz)
	case t.Timeout <= 0:
		return fmt.Errorf("timeout must be > 0 (got %d)", t.Timeout)
	case t.Lives <= 0:
		return fmt.Errorf("lives must be > 0 (got %d)", t.Lives)
	case t.InitialScore < 0:
		return fmt.Errorf("initial_score must be >= 0 (got %d)", t.InitialScore)
	case t.InitialLevel <= 0:
		return fmt.Errorf("initial_level must be >= 1 (got %d)", t.InitialLevel)
	case t.MapSize[0] < 8 || t.MapSize[1] < 8:
		return fmt.Errorf("map_size must be at least 8x8 (got %dx%d)", t.MapSize[0], t.MapSize[1])
	case t.MaxRopeLen <= 0 || t.MaxRopeLen > 3:
		return fmt.Errorf("max_rope_len must be in 1..3 (got %d)", t.MaxRopeLen)
	case t.VitalRadius < 0:
		return fmt.Errorf("vital_radius must be >= 0 (got %v)", t.VitalRadius)
	case t.RockKillPoints < 0:
		return fmt.Errorf("rock_kill_points must be >= 0 (got %d)", t.RockKillPoints)
	case t.SnapshotEveryTicks < 0:
		return fmt.Errorf("snapshot_every_ticks must be >= 0 (got %d)", t.SnapshotEveryTicks)
	}
	return nil
}
