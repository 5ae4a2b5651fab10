package config

import (
	"flag"
	"strings"
)

// Flags holds the command-line overrides shared by every subcommand.
type Flags struct {
	Config    *string
	Debug     *bool
	Workers   *int
	Binary    *bool
	KeepLODs  *bool
	SkipAnims *bool
	Out       *string
	Data      *stringList
	Paks      *stringList
}

// stringList is a repeatable, comma-separated flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// RegisterFlags defines the shared flags on fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{
		Config:    fs.String("config", "", "Path to config file"),
		Debug:     fs.Bool("debug", false, "Enable debug logging"),
		Workers:   fs.Int("workers", 0, "Parallel conversions (0 = config value)"),
		Binary:    fs.Bool("glb", false, "Write binary .glb output"),
		KeepLODs:  fs.Bool("keep-lods", false, "Keep $lodN nodes"),
		SkipAnims: fs.Bool("skip-anims", false, "Do not load animations"),
		Out:       fs.String("out", "", "Output directory"),
		Data:      new(stringList),
		Paks:      new(stringList),
	}
	fs.Var(f.Data, "data", "Data root directory (repeatable)")
	fs.Var(f.Paks, "pak", "Pak archive (repeatable)")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	if f == nil {
		return ""
	}
	return *f.Config
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config, f *Flags) {
	if f == nil {
		return
	}
	if *f.Debug {
		cfg.Logging.Level = "debug"
	}
	if *f.Workers > 0 {
		cfg.Convert.Workers = *f.Workers
	}
	if *f.Binary {
		cfg.Convert.Binary = true
	}
	if *f.KeepLODs {
		cfg.Convert.SkipLODs = false
	}
	if *f.SkipAnims {
		cfg.Convert.SkipAnimations = true
	}
	if *f.Out != "" {
		cfg.Convert.OutputDir = *f.Out
	}
	if len(*f.Data) > 0 {
		cfg.Data.Roots = append([]string(nil), *f.Data...)
	}
	if len(*f.Paks) > 0 {
		cfg.Data.Paks = append([]string(nil), *f.Paks...)
	}
}
