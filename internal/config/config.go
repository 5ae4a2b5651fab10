// Package config handles converter configuration loading and management.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"go.uber.org/multierr"

	"github.com/Faultbox/cryconv/pkg/material"
)

// Config holds all converter settings.
type Config struct {
	Convert ConvertConfig `yaml:"convert"`
	Data    DataConfig    `yaml:"data"`
	Logging LoggingConfig `yaml:"logging"`
}

// ConvertConfig holds conversion settings.
type ConvertConfig struct {
	SkipLODs       bool   `yaml:"skip_lods"`
	SkipAnimations bool   `yaml:"skip_animations"`
	Binary         bool   `yaml:"binary"`      // write .glb instead of .gltf
	TextureExt     string `yaml:"texture_ext"` // e.g. ".png"; empty keeps .dds
	OutputDir      string `yaml:"output_dir"`
	Workers        int    `yaml:"workers"`
}

// DataConfig holds game data locations.
type DataConfig struct {
	Roots             []string `yaml:"roots"` // Extracted data directories
	Paks              []string `yaml:"paks"`  // .pak archives, searched after roots
	MaterialFallbacks []string `yaml:"material_fallbacks"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	Format  string `yaml:"format"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Convert: ConvertConfig{
			SkipLODs:       true,
			SkipAnimations: false,
			Binary:         false,
			OutputDir:      "out",
			Workers:        runtime.NumCPU(),
		},
		Data: DataConfig{
			Roots:             []string{"."},
			MaterialFallbacks: []string{string(material.FallbackMtlNameChunk), string(material.FallbackClosestName)},
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
			Format:  "console",
		},
	}
}

// Strategies returns the configured material fallbacks in order.
func (c *Config) Strategies() ([]material.Strategy, error) {
	out := make([]material.Strategy, 0, len(c.Data.MaterialFallbacks))
	for _, s := range c.Data.MaterialFallbacks {
		st, err := material.ParseStrategy(s)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var err error
	if c.Convert.Workers < 1 {
		err = multierr.Append(err, fmt.Errorf("convert.workers must be at least 1, got %d", c.Convert.Workers))
	}
	if ext := c.Convert.TextureExt; ext != "" && !strings.HasPrefix(ext, ".") {
		err = multierr.Append(err, fmt.Errorf("convert.texture_ext %q must start with a dot", ext))
	}
	if len(c.Data.Roots) == 0 && len(c.Data.Paks) == 0 {
		err = multierr.Append(err, fmt.Errorf("data: no roots or paks configured"))
	}
	for _, s := range c.Data.MaterialFallbacks {
		if _, perr := material.ParseStrategy(s); perr != nil {
			err = multierr.Append(err, fmt.Errorf("data.material_fallbacks: %w", perr))
		}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "", "console", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("logging.format %q must be console or json", c.Logging.Format))
	}
	return err
}
