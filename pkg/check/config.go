package check

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// ConfigFileName is the name FindConfig looks for.
const ConfigFileName = "letcheck.toml"

// Config represents a letcheck.toml configuration file.
type Config struct {
	Check  CheckConfig  `toml:"check"`
	Output OutputConfig `toml:"output"`
}

// CheckConfig tunes the checker itself.
type CheckConfig struct {
	// MaxErrors stops scheduling further top-level declarations once this
	// many diagnostics have been reported. Zero means no limit.
	MaxErrors int `toml:"max_errors"`

	// Parallelism bounds the number of declarations checked at once. Zero
	// means one per available CPU.
	Parallelism int `toml:"parallelism"`

	// Suggestions enables "did you mean" hints on unresolved names.
	Suggestions bool `toml:"suggestions"`

	// Monomorphic disables let-polymorphism: every let-bound name keeps the
	// single type it was solved at, shared by all of its uses.
	Monomorphic bool `toml:"monomorphic"`
}

// OutputConfig controls how the CLI prints results.
type OutputConfig struct {
	// Format is "text", "json" or "yaml".
	Format string `toml:"format"`
	// Color is "auto", "always" or "never".
	Color string `toml:"color"`
}

var (
	formats = []string{"text", "json", "yaml"}
	colors  = []string{"auto", "always", "never"}
)

// DefaultConfig is the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Check: CheckConfig{
			Suggestions: true,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  "auto",
		},
	}
}

// LoadConfig loads a letcheck.toml file from the given path. Keys missing
// from the file keep their defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()
	md, err := toml.DecodeFile(path, config)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, errors.Errorf("%s: unknown key %q", path, undecoded[0].String())
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, path)
	}
	return config, nil
}

// FindConfig searches for letcheck.toml starting from dir and walking up to
// parent directories, stopping at a .git boundary. Returns ("", nil, nil)
// if none is found.
func FindConfig(dir string) (string, *Config, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, err
	}
	for {
		path := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(path); err == nil {
			config, err := LoadConfig(path)
			if err != nil {
				return "", nil, err
			}
			return path, config, nil
		}

		if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
			return "", nil, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, nil
		}
		dir = parent
	}
}

// Validate rejects values outside their documented range.
func (c *Config) Validate() error {
	if c.Check.MaxErrors < 0 {
		return errors.Errorf("check.max_errors must not be negative, got %d", c.Check.MaxErrors)
	}
	if c.Check.Parallelism < 0 {
		return errors.Errorf("check.parallelism must not be negative, got %d", c.Check.Parallelism)
	}
	if !slices.Contains(formats, c.Output.Format) {
		return errors.Errorf("output.format must be one of %v, got %q", formats, c.Output.Format)
	}
	if !slices.Contains(colors, c.Output.Color) {
		return errors.Errorf("output.color must be one of %v, got %q", colors, c.Output.Color)
	}
	return nil
}
