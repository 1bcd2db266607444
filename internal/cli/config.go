package cli

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/roach88/chipflow/internal/engine"
	"github.com/roach88/chipflow/internal/ir"
)

// Config holds defaults read from a chipflow.toml file. Command-line flags
// always take precedence.
//
//	db = "./runs.db"
//	format = "json"
//	max_firings = 5000
//	watch = [17, 61]
type Config struct {
	Database   string
	Format     string
	MaxFirings int
	Watch      *ir.WatchPair
}

type fileConfig struct {
	Database   string  `toml:"db"`
	Format     string  `toml:"format"`
	MaxFirings int     `toml:"max_firings"`
	Watch      []int64 `toml:"watch"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Format:     "text",
		MaxFirings: engine.DefaultMaxFirings,
	}
}

// LoadConfig reads a TOML config file. Keys missing from the file keep their defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("db") {
		cfg.Database = strings.TrimSpace(raw.Database)
	}

	if meta.IsDefined("format") {
		format := strings.TrimSpace(raw.Format)
		if !isValidFormat(format) {
			return Config{}, fmt.Errorf("load config: invalid format %q: must be one of %v", format, ValidFormats)
		}
		cfg.Format = format
	}

	if meta.IsDefined("max_firings") {
		cfg.MaxFirings = raw.MaxFirings
	}

	if meta.IsDefined("watch") {
		if len(raw.Watch) != 2 {
			return Config{}, fmt.Errorf("load config: watch must hold exactly 2 values, got %d", len(raw.Watch))
		}
		if raw.Watch[0] < 0 || raw.Watch[1] < 0 {
			return Config{}, fmt.Errorf("load config: watch values must be non-negative, got %v", raw.Watch)
		}
		w := ir.NewWatchPair(ir.Value(raw.Watch[0]), ir.Value(raw.Watch[1]))
		cfg.Watch = &w
	}

	return cfg, nil
}
