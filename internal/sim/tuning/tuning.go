package tuning

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	TickRateHz          int    `yaml:"tick_rate_hz"`
	MaxTicks            uint64 `yaml:"max_ticks"`
	ScriptStepTimeoutMs int    `yaml:"script_step_timeout_ms"`
	ScriptCacheSize     int    `yaml:"script_cache_size"`

	TickLog TickLog `yaml:"tick_log"`
	IndexDB IndexDB `yaml:"index_db"`
}

type TickLog struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
}

type IndexDB struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	// EveryTicks records one tick digest row per N ticks.
	EveryTicks int `yaml:"every_ticks"`
}

func (t Tuning) StepTimeout() time.Duration {
	return time.Duration(t.ScriptStepTimeoutMs) * time.Millisecond
}

func Defaults() Tuning {
	return Tuning{
		TickRateHz:          10,
		ScriptStepTimeoutMs: 50,
		ScriptCacheSize:     64,
		TickLog:             TickLog{Enabled: true, Dir: "ticks"},
		IndexDB:             IndexDB{Enabled: true, Path: "index.sqlite", EveryTicks: 1},
	}
}

// Load reads run.yaml over the defaults. An empty path yields the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("run.yaml: %w", err)
	}
	t.Normalize()
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("run.yaml: %w", err)
	}
	return t, nil
}

func (t *Tuning) Normalize() {
	if t.IndexDB.EveryTicks <= 0 {
		t.IndexDB.EveryTicks = 1
	}
	t.TickLog.Dir = strings.TrimSpace(t.TickLog.Dir)
	t.IndexDB.Path = strings.TrimSpace(t.IndexDB.Path)
}

// Validate rejects settings the host cannot run with. A tick rate of zero
// means run as fast as possible.
func (t Tuning) Validate() error {
	if t.TickRateHz < 0 {
		return fmt.Errorf("tick_rate_hz must be >= 0")
	}
	if t.ScriptStepTimeoutMs < 0 {
		return fmt.Errorf("script_step_timeout_ms must be >= 0")
	}
	if t.ScriptCacheSize <= 0 {
		return fmt.Errorf("script_cache_size must be > 0")
	}
	if t.TickLog.Enabled && t.TickLog.Dir == "" {
		return fmt.Errorf("tick_log.dir must not be empty when enabled")
	}
	if t.IndexDB.Enabled && t.IndexDB.Path == "" {
		return fmt.Errorf("index_db.path must not be empty when enabled")
	}
	return nil
}
