package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/cryconv/internal/assets"
	"github.com/Faultbox/cryconv/internal/config"
	"github.com/Faultbox/cryconv/internal/logger"
	"github.com/Faultbox/cryconv/pkg/cgf"
	"github.com/Faultbox/cryconv/pkg/material"
)

// cacheBytes bounds the file cache shared by all jobs of one run.
const cacheBytes = 512 << 20

// env holds the resources shared by the data-reading commands.
type env struct {
	cfg       *config.Config
	src       *assets.Manager
	files     localFirst // src behind a local filesystem lookup
	materials *material.Resolver
	registry  *cgf.Registry
}

// localFirst reads names that exist on the local filesystem directly and
// everything else from the data sources, so files named on the command
// line need not live under a data root.
type localFirst struct {
	*assets.Manager
}

func (l localFirst) ReadFile(name string) ([]byte, error) {
	data, err := os.ReadFile(name)
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return l.Manager.ReadFile(name)
}

// newEnv loads config, initializes logging and opens data sources.
func newEnv(flags *config.Flags) (*env, error) {
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logOpts := logger.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Console: true}
	if cfg.Logging.LogFile != "" {
		logOpts.File = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	if err := logger.InitWithOptions(logOpts); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	e := &env{cfg: cfg, src: assets.NewManager(cacheBytes), registry: cgf.DefaultRegistry()}
	e.files = localFirst{e.src}
	for _, root := range cfg.Data.Roots {
		e.src.AddDir(root)
	}
	for _, name := range cfg.Data.Paks {
		a, err := e.src.AddArchive(name)
		if err != nil {
			e.Close()
			return nil, err
		}
		logger.Debug("pak opened", zap.String("path", name), zap.Int("files", len(a.Files())))
	}

	strategies, err := cfg.Strategies()
	if err != nil {
		e.Close()
		return nil, err
	}
	e.materials = material.NewResolver(e.files, strategies, logger.Log)
	return e, nil
}

// Close releases pak archives and flushes the logger.
func (e *env) Close() error {
	hits, misses := e.src.CacheStats()
	logger.Debug("file cache", zap.Int("hits", hits), zap.Int("misses", misses))
	err := e.src.Close()
	logger.Sync()
	return err
}

// decode reads and decodes one chunk file.
func (e *env) decode(name string) (*cgf.File, error) {
	data, err := e.files.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return cgf.Decode(data, cgf.Options{Registry: e.registry, Logger: logger.Log, Name: name})
}

// parseArgs registers the shared flags, parses args and opens an env.
func parseArgs(fs *flag.FlagSet, args []string) (*env, error) {
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return newEnv(flags)
}
