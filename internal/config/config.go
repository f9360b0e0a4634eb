// Package config loads command-line configuration from defaults, an
// optional YAML file, COLTAB_ environment variables and flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/roach88/coltab/internal/planner"
	"github.com/roach88/coltab/internal/sqlitevtab"
)

// Defaults.
const (
	DefaultCatalog = "catalog"
	DefaultOutput  = "table"
	EnvPrefix      = "COLTAB_"
)

// ConfigNames are the file names searched for in the working directory
// when no config file is given.
var ConfigNames = []string{"coltab.yaml", "coltab.yml"}

// ValidOutputs lists the accepted output formats.
var ValidOutputs = []string{"table", "text", "json"}

// Config holds all command-line configuration.
type Config struct {
	// Catalog is the directory of table definitions.
	Catalog string `koanf:"catalog"`

	// Database is the store file used by definitions that name none.
	Database string `koanf:"database"`

	// Driver names the SQLite binding, see sqlitevtab.Bindings.
	Driver string `koanf:"driver"`

	Output  string         `koanf:"output"`
	Verbose bool           `koanf:"verbose"`
	Planner planner.Config `koanf:"planner"`

	// File is the config file that was read, if any.
	File string `koanf:"-"`
}

// flagKeys maps flag names to config keys where they differ.
var flagKeys = map[string]string{
	"format":          "output",
	"cache-threshold": "planner.cache_threshold",
}

func defaults() map[string]any {
	p := planner.DefaultConfig()
	return map[string]any{
		"catalog":                            DefaultCatalog,
		"database":                           "",
		"driver":                             sqlitevtab.DefaultBinding,
		"output":                             DefaultOutput,
		"verbose":                            false,
		"planner.fixed_cost":                 p.FixedCost,
		"planner.per_row_cost":               p.PerRowCost,
		"planner.filter_row_cost":            p.FilterRowCost,
		"planner.single_row_cost":            p.SingleRowCost,
		"planner.equality_selectivity_floor": p.EqualitySelectivityFloor,
		"planner.range_selectivity":          p.RangeSelectivity,
		"planner.other_selectivity":          p.OtherSelectivity,
		"planner.sort_cost_factor":           p.SortCostFactor,
		"planner.unbound_argument_cost":      p.UnboundArgumentCost,
		"planner.cache_threshold":            p.CacheThreshold,
	}
}

// findConfigFile returns the config file to read.
// Priority: explicit path > coltab.yaml > coltab.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range ConfigNames {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load builds the configuration.
// Precedence (highest to lowest): flags > env vars > config file > defaults
//
// Relative paths from the config file resolve against the file's
// directory; paths from flags and env vars are kept as given.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	var fromFile *koanf.Koanf
	if used != "" {
		if _, err := os.Stat(used); err != nil {
			return nil, fmt.Errorf("config file %s: %w", used, err)
		}
		fromFile = koanf.New(".")
		if err := fromFile.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
		if err := k.Merge(fromFile); err != nil {
			return nil, fmt.Errorf("error merging config file %s: %w", used, err)
		}
	}

	// 3. Environment: COLTAB_PLANNER__CACHE_THRESHOLD -> planner.cache_threshold
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}
	fromEnv := func(key string) bool {
		_, ok := os.LookupEnv(EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "__")))
		return ok
	}

	// 4. Flags, only those explicitly set
	changed := make(map[string]bool)
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed {
				return "", nil
			}
			key, ok := flagKeys[f.Name]
			if !ok {
				key = strings.ReplaceAll(f.Name, "-", "_")
			}
			changed[key] = true
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Unmarshal
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	// 6. Resolve file-relative paths
	if fromFile != nil {
		base := filepath.Dir(used)
		for key, dst := range map[string]*string{"catalog": &cfg.Catalog, "database": &cfg.Database} {
			if fromFile.Exists(key) && !changed[key] && !fromEnv(key) {
				*dst = resolvePathRelativeTo(*dst, base)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the output format, the driver and planner constants.
func (c *Config) Validate() error {
	valid := false
	for _, o := range ValidOutputs {
		if c.Output == o {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("invalid output %q: must be one of %v", c.Output, ValidOutputs)
	}
	if _, ok := sqlitevtab.Lookup(c.Driver); !ok {
		return fmt.Errorf("invalid driver %q: this build has %v", c.Driver, sqlitevtab.Bindings())
	}
	if err := c.Planner.Validate(); err != nil {
		return fmt.Errorf("invalid planner configuration: %w", err)
	}
	return nil
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
