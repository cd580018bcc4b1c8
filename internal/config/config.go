// YAML config loader with CUE validation and env overrides
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Arena describes the simulated battle space.
type Arena struct {
	Name    string  `yaml:"name" envconfig:"NAME"`
	WidthM  float64 `yaml:"width_m" envconfig:"WIDTH_M"`
	HeightM float64 `yaml:"height_m" envconfig:"HEIGHT_M"`
}

// Ability configures one ability in a loadout.
type Ability struct {
	ID         string  `yaml:"id"`
	Class      string  `yaml:"class"`
	RangeM     float64 `yaml:"range_m"`
	CooldownMs int     `yaml:"cooldown_ms"`
}

// Loadout is a squad's disruption kit: the primary ability plus ordered
// backups.
type Loadout struct {
	Primary Ability   `yaml:"primary"`
	Backups []Ability `yaml:"backups"`
}

// Squad defines one team of bots sharing a loadout.
type Squad struct {
	Name    string  `yaml:"name"`
	Bots    int     `yaml:"bots"`
	Loadout Loadout `yaml:"loadout"`
}

// Hostiles tunes the hostile cast generator.
type Hostiles struct {
	Casters           int `yaml:"casters" envconfig:"CASTERS"`
	CastIntervalMs    int `yaml:"cast_interval_ms" envconfig:"CAST_INTERVAL_MS"`
	CastDurationMinMs int `yaml:"cast_duration_min_ms"`
	CastDurationMaxMs int `yaml:"cast_duration_max_ms"`
	CriticalWeight    int `yaml:"critical_weight"`
	HighWeight        int `yaml:"high_weight"`
	NormalWeight      int `yaml:"normal_weight"`
}

// Weights tunes planner candidate scoring.
type Weights struct {
	Rotation float64 `yaml:"rotation"`
	Distance float64 `yaml:"distance"`
	Backup   float64 `yaml:"backup"`
}

// Coordination tunes the coordinator and directive execution.
type Coordination struct {
	RotationWindowMs     int     `yaml:"rotation_window_ms" envconfig:"ROTATION_WINDOW_MS"`
	HistorySize          int     `yaml:"history_size"`
	Weights              Weights `yaml:"weights"`
	DrainTimeoutMs       int     `yaml:"drain_timeout_ms"`
	DirectiveLatencyMs   int     `yaml:"directive_latency_ms"`
	InterruptSuccessRate float64 `yaml:"interrupt_success_rate"`
}

// SimulationConfig is the root configuration.
type SimulationConfig struct {
	Arena        Arena        `yaml:"arena"`
	Squads       []Squad      `yaml:"squads"`
	Hostiles     Hostiles     `yaml:"hostiles"`
	Coordination Coordination `yaml:"coordination"`
	Encounter    string       `yaml:"encounter" envconfig:"ENCOUNTER"`
	ChaosRate    float64      `yaml:"chaos_rate"`
	LogLevel     string       `yaml:"log_level" envconfig:"LOG_LEVEL"`
}

// RotationWindow returns the rotation recency window as a duration.
func (c Coordination) RotationWindow() time.Duration {
	return time.Duration(c.RotationWindowMs) * time.Millisecond
}

// DrainTimeout returns the shutdown drain bound as a duration.
func (c Coordination) DrainTimeout() time.Duration {
	return time.Duration(c.DrainTimeoutMs) * time.Millisecond
}

// Load reads a YAML config, validates it against the CUE schema and applies
// BOTOPS_* environment overrides.
func Load(configPath, cueSchemaPath string) (*SimulationConfig, error) {
	if err := ValidateWithCue(configPath, cueSchemaPath); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var cfg SimulationConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if err := applyEnv(&cfg); err != nil {
		return nil, err
	}
	if len(cfg.Squads) == 0 {
		return nil, fmt.Errorf("config %s: no squads defined", configPath)
	}
	return &cfg, nil
}

// applyEnv overrides config groups from the environment, prefix BOTOPS.
func applyEnv(cfg *SimulationConfig) error {
	if err := envconfig.Process("BOTOPS_ARENA", &cfg.Arena); err != nil {
		return err
	}
	if err := envconfig.Process("BOTOPS_HOSTILES", &cfg.Hostiles); err != nil {
		return err
	}
	if err := envconfig.Process("BOTOPS_COORDINATION", &cfg.Coordination); err != nil {
		return err
	}
	if v := os.Getenv("BOTOPS_ENCOUNTER"); v != "" {
		cfg.Encounter = v
	}
	if v := os.Getenv("BOTOPS_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}
