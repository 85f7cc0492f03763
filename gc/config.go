package gc

import (
	"fmt"
	"io"

	"github.com/pelletier/go-toml/v2"
)

// tomlConfig mirrors Config's shape for decoding; kept separate so
// Config itself (the type used throughout the collector) carries no
// encoding-tag clutter.
type tomlConfig struct {
	StepMul uint32 `toml:"stepmul"`
	Pause   uint32 `toml:"pause"`
}

// LoadConfig decodes the collector's two tunables from TOML, e.g.:
//
//	stepmul = 200
//	pause   = 200
//
// Zero-valued fields fall back to DefaultConfig's values, so a config
// file only needs to mention the tunable it wants to override.
func LoadConfig(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("gc: reading config: %w", err)
	}
	var tc tomlConfig
	if err := toml.Unmarshal(data, &tc); err != nil {
		return Config{}, fmt.Errorf("gc: decoding config: %w", err)
	}
	cfg := DefaultConfig()
	if tc.StepMul != 0 {
		cfg.StepMul = tc.StepMul
	}
	if tc.Pause != 0 {
		cfg.Pause = tc.Pause
	}
	return cfg, nil
}
