package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"mdl2obj/internal/mdl"
	"mdl2obj/internal/obj"
)

// DefaultOutputDir is used when neither the config file nor flags name one.
const DefaultOutputDir = "extracted_lod_data"

// DefaultPrecision is the number of decimals written when none is configured.
const DefaultPrecision = obj.DefaultPrecision

// Config holds conversion settings. It is consumed by the CLI and the
// convert/batch layers only; the decoder sees nothing but Limits.
type Config struct {
	OutputDir  string `yaml:"output_dir"`
	LODs       []int  `yaml:"lods"` // empty = all
	SkipBinary bool   `yaml:"skip_binary"`
	Verbose    bool   `yaml:"verbose"`
	LogFormat  string `yaml:"log_format"`
	Workers    int    `yaml:"workers"`
	Precision  *int   `yaml:"precision"` // nil = DefaultPrecision

	Preview Preview `yaml:"preview"`
	Limits  Limits  `yaml:"limits"`
}

// Preview holds thumbnail settings.
type Preview struct {
	Enabled     bool   `yaml:"enabled"`
	Format      string `yaml:"format"` // webp or tga
	Size        int    `yaml:"size"`
	Supersample int    `yaml:"supersample"`
}

// Limits mirrors mdl.Limits for the config file.
type Limits struct {
	MaxLODs       int `yaml:"max_lods"`
	MaxArity      int `yaml:"max_arity"`
	MaxStreamSize int `yaml:"max_stream_size"`
}

// Decoder returns the limits in the form the decoder expects.
func (l Limits) Decoder() mdl.Limits {
	return mdl.Limits{
		MaxLODs:       l.MaxLODs,
		MaxArity:      l.MaxArity,
		MaxStreamSize: l.MaxStreamSize,
	}
}

// Load reads a YAML config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the per-user config location, or "" if unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "mdl2obj", "config.yaml")
}

// Flags holds CLI flag values that override config file settings.
// Zero values leave the config untouched.
type Flags struct {
	OutputDir  string
	LODs       []int
	SkipBinary bool
	Verbose    bool
	LogFormat  string
	Workers    int
	Precision  *int
	Preview    bool
	Format     string
	Size       int
}

// Resolve applies flag overrides and fills remaining fields with defaults.
func (c *Config) Resolve(flags Flags) {
	// CLI flags override config file
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if len(flags.LODs) > 0 {
		c.LODs = flags.LODs
	}
	if flags.SkipBinary {
		c.SkipBinary = true
	}
	if flags.Verbose {
		c.Verbose = true
	}
	if flags.LogFormat != "" {
		c.LogFormat = flags.LogFormat
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Precision != nil {
		p := *flags.Precision
		c.Precision = &p
	}
	if flags.Preview {
		c.Preview.Enabled = true
	}
	if flags.Format != "" {
		c.Preview.Format = flags.Format
	}
	if flags.Size > 0 {
		c.Preview.Size = flags.Size
	}

	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Precision == nil {
		p := DefaultPrecision
		c.Precision = &p
	}
	c.Preview.Format = strings.ToLower(c.Preview.Format)
	if c.Preview.Format == "" {
		c.Preview.Format = "webp"
	}
	if c.Preview.Size <= 0 {
		c.Preview.Size = 256
	}
	if c.Preview.Supersample <= 0 {
		c.Preview.Supersample = 2
	}
	if c.Limits.MaxLODs <= 0 {
		c.Limits.MaxLODs = mdl.DefaultLimits.MaxLODs
	}
	if c.Limits.MaxArity <= 0 {
		c.Limits.MaxArity = mdl.DefaultLimits.MaxArity
	}
	if c.Limits.MaxStreamSize <= 0 {
		c.Limits.MaxStreamSize = mdl.DefaultLimits.MaxStreamSize
	}
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	switch c.Preview.Format {
	case "webp", "tga":
	default:
		return fmt.Errorf("config: unknown preview format %q (want webp or tga)", c.Preview.Format)
	}
	for _, l := range c.LODs {
		if l < 0 || l >= c.Limits.MaxLODs {
			return fmt.Errorf("config: LOD index %d outside 0..%d", l, c.Limits.MaxLODs-1)
		}
	}
	return nil
}

// ParseLODs parses a comma separated LOD list such as "0,2" or "0-3".
// Every index must be below maxLODs, since no file may hold more LODs
// than that. The result is sorted and free of duplicates; "" yields nil.
func ParseLODs(s string, maxLODs int) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	set := map[int]struct{}{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("config: bad LOD %q", part)
		}
		b := a
		if isRange {
			b, err = strconv.Atoi(strings.TrimSpace(hi))
			if err != nil || b < a {
				return nil, fmt.Errorf("config: bad LOD range %q", part)
			}
		}
		if a < 0 || b >= maxLODs {
			return nil, fmt.Errorf("config: LOD %q outside 0..%d", part, maxLODs-1)
		}
		for i := a; i <= b; i++ {
			set[i] = struct{}{}
		}
	}

	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out, nil
}
