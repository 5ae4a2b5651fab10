package material

import (
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	"go.uber.org/zap"

	"github.com/Faultbox/cryconv/pkg/encoding"
)

// FileSource reads files by archive-relative path.
type FileSource interface {
	ReadFile(name string) ([]byte, error)
}

// Lister is implemented by sources that can enumerate a directory.
type Lister interface {
	List(dir string) ([]string, error)
}

// Strategy names a best-effort fallback used when a model has no
// explicit material path, or that path cannot be loaded.
type Strategy string

const (
	// FallbackMtlNameChunk loads the material named by the model's
	// MtlName chunks, relative to the model directory.
	FallbackMtlNameChunk Strategy = "mtlname"
	// FallbackClosestName picks the .mtl file in the model directory whose
	// name has the smallest edit distance to the model name.
	FallbackClosestName Strategy = "closest"
)

// DefaultStrategies is the fallback order used when none is configured.
var DefaultStrategies = []Strategy{FallbackMtlNameChunk, FallbackClosestName}

// ParseStrategy validates a configured strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(strings.ToLower(strings.TrimSpace(s))); st {
	case FallbackMtlNameChunk, FallbackClosestName:
		return st, nil
	}
	return "", fmt.Errorf("unknown material fallback %q", s)
}

// Request describes the material lookup for one model.
type Request struct {
	MaterialPath string
	ModelPath    string
	// MtlNames are the names recorded in the model's MtlName chunks.
	MtlNames []string
}

// Result is a resolved material and how it was found.
type Result struct {
	Material *Material
	Path     string
	// Strategy is empty when the explicit material path was used.
	Strategy Strategy
}

// Resolver loads and caches .mtl files. It is safe for concurrent use.
type Resolver struct {
	src        FileSource
	strategies []Strategy
	log        *zap.Logger

	mu    sync.Mutex
	cache map[string]*Material
}

// NewResolver returns a resolver reading from src. A nil strategies
// slice uses DefaultStrategies; an empty one disables fallbacks.
func NewResolver(src FileSource, strategies []Strategy, log *zap.Logger) *Resolver {
	if strategies == nil {
		strategies = DefaultStrategies
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{
		src:        src,
		strategies: strategies,
		log:        log,
		cache:      make(map[string]*Material),
	}
}

// Load reads and parses one .mtl file. The extension is optional.
func (r *Resolver) Load(p string) (*Material, error) {
	p = mtlPath(p)

	r.mu.Lock()
	if m, ok := r.cache[p]; ok {
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()

	data, err := r.src.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotFound, p, err)
	}
	m, err := Parse(data, strings.TrimSuffix(path.Base(p), ".mtl"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", p, err)
	}

	r.mu.Lock()
	r.cache[p] = m
	r.mu.Unlock()
	return m, nil
}

// Resolve loads req.MaterialPath, falling back to the configured
// strategies in order when it is empty or unreadable.
func (r *Resolver) Resolve(req Request) (Result, error) {
	if req.MaterialPath != "" {
		m, err := r.Load(req.MaterialPath)
		if err == nil {
			return Result{Material: m, Path: mtlPath(req.MaterialPath)}, nil
		}
		r.log.Warn("material path not loadable, trying fallbacks",
			zap.String("material", req.MaterialPath),
			zap.String("model", req.ModelPath),
			zap.Error(err))
	}

	for _, st := range r.strategies {
		var candidates []string
		switch st {
		case FallbackMtlNameChunk:
			candidates = r.mtlNameCandidates(req)
		case FallbackClosestName:
			if c, ok := r.closestName(req.ModelPath); ok {
				candidates = []string{c}
			}
		}
		for _, c := range candidates {
			m, err := r.Load(c)
			if err != nil {
				continue
			}
			r.log.Debug("material resolved by fallback",
				zap.String("model", req.ModelPath),
				zap.String("strategy", string(st)),
				zap.String("material", c))
			return Result{Material: m, Path: mtlPath(c), Strategy: st}, nil
		}
	}
	return Result{}, fmt.Errorf("%w for %s", ErrNotFound, req.ModelPath)
}

func (r *Resolver) mtlNameCandidates(req Request) []string {
	dir := path.Dir(encoding.NormalizePath(req.ModelPath))
	var out []string
	for _, name := range req.MtlNames {
		name = encoding.NormalizePath(name)
		if name == "" {
			continue
		}
		if strings.Contains(name, "/") {
			out = append(out, name)
		}
		out = append(out, path.Join(dir, path.Base(name)))
	}
	return out
}

// closestName returns the .mtl file next to the model with the smallest
// edit distance to the model's base name.
func (r *Resolver) closestName(modelPath string) (string, bool) {
	lister, ok := r.src.(Lister)
	if !ok {
		return "", false
	}
	model := encoding.NormalizePath(modelPath)
	dir := path.Dir(model)
	files, err := lister.List(dir)
	if err != nil {
		r.log.Debug("list failed", zap.String("dir", dir), zap.Error(err))
		return "", false
	}

	base := strings.TrimSuffix(path.Base(model), path.Ext(model))
	best, bestDist := "", -1
	for _, f := range files {
		f = encoding.NormalizePath(f)
		if path.Ext(f) != ".mtl" {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), ".mtl")
		d := levenshtein.ComputeDistance(base, name)
		if bestDist < 0 || d < bestDist || (d == bestDist && f < best) {
			best, bestDist = f, d
		}
	}
	if bestDist < 0 {
		return "", false
	}
	if !strings.Contains(best, "/") && dir != "." {
		best = path.Join(dir, best)
	}
	return best, true
}

func mtlPath(p string) string {
	p = encoding.NormalizePath(p)
	if path.Ext(p) != ".mtl" {
		p += ".mtl"
	}
	return p
}
