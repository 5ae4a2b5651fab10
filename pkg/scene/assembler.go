package scene

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/cryconv/pkg/cgf"
	"github.com/Faultbox/cryconv/pkg/encoding"
	"github.com/Faultbox/cryconv/pkg/material"
	xmath "github.com/Faultbox/cryconv/pkg/math"
)

// Instance places one model in the output scene.
type Instance struct {
	// Name labels the instance node. Defaults to the model file name.
	Name         string
	ModelPath    string
	MaterialPath string
	// Transform places the model in source axes. The zero matrix is
	// treated as identity.
	Transform      mgl32.Mat4
	IgnoreGeometry bool
	IgnoreSkin     bool
	AnimationPaths []string
}

// Options configures an Assembler.
type Options struct {
	Registry  *cgf.Registry
	Logger    *zap.Logger
	Materials *material.Resolver // nil leaves primitives without material
	KeepLODs  bool
}

// Stats counts assembler activity.
type Stats struct {
	Instances int
	Decoded   int
	Reused    int
}

// Assembler builds one Graph from many instances. Identical
// (model, material) pairs are decoded once and shared. Add may be
// called from several goroutines; calls are serialized.
type Assembler struct {
	src  Source
	opts Options
	log  *zap.Logger

	mu        sync.Mutex
	graph     Graph
	protos    map[uint64]*prototype
	materials map[string]int
	warnings  []cgf.Warning
	stats     Stats
}

// prototype is a decoded model sub-graph with indices relative to itself.
// Mesh and material indices are absolute and shared by every instance.
type prototype struct {
	name  string
	nodes []Node
	roots []int
	skins []Skin
	clips []Animation
}

// NewAssembler returns an assembler reading models from src.
func NewAssembler(src Source, opts Options) *Assembler {
	if opts.Registry == nil {
		opts.Registry = cgf.DefaultRegistry()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Assembler{
		src:       src,
		opts:      opts,
		log:       opts.Logger,
		protos:    make(map[uint64]*prototype),
		materials: make(map[string]int),
	}
}

// Add decodes inst (or reuses an identical earlier one) and places it
// under a new root node, whose index is returned.
func (a *Assembler) Add(ctx context.Context, inst Instance) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	data, err := a.src.ReadFile(inst.ModelPath)
	if err != nil {
		return -1, fmt.Errorf("read model %s: %w", inst.ModelPath, err)
	}
	key := dedupKey(data, inst)

	a.mu.Lock()
	defer a.mu.Unlock()

	p, ok := a.protos[key]
	if ok {
		a.stats.Reused++
	} else {
		p, err = a.build(inst, data)
		if err != nil {
			return -1, err
		}
		a.protos[key] = p
		a.stats.Decoded++
	}
	a.stats.Instances++
	return a.instantiate(p, inst), nil
}

// Graph returns the assembled scene. The graph is owned by the
// assembler; callers must not call Add while using it.
func (a *Assembler) Graph() *Graph {
	a.mu.Lock()
	defer a.mu.Unlock()
	return &a.graph
}

// Warnings returns every degraded feature recorded so far.
func (a *Assembler) Warnings() []cgf.Warning {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]cgf.Warning(nil), a.warnings...)
}

// Stats returns instance and dedup counters.
func (a *Assembler) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stats
}

// dedupKey hashes the model bytes with everything else that shapes the
// decoded sub-graph.
func dedupKey(data []byte, inst Instance) uint64 {
	d := xxhash.New()
	_, _ = d.Write(data)
	_, _ = d.WriteString("\x00" + encoding.NormalizePath(inst.MaterialPath))
	_, _ = d.WriteString(fmt.Sprintf("\x00%t%t", inst.IgnoreGeometry, inst.IgnoreSkin))
	anims := make([]string, len(inst.AnimationPaths))
	for i, p := range inst.AnimationPaths {
		anims[i] = encoding.NormalizePath(p)
	}
	sort.Strings(anims)
	for _, p := range anims {
		_, _ = d.WriteString("\x00" + p)
	}
	return d.Sum64()
}

func (a *Assembler) warn(file string, w cgf.Warning) {
	a.warnings = append(a.warnings, w)
	a.log.Warn("feature degraded",
		zap.String("file", file),
		zap.Stringer("kind", w.Kind),
		zap.Int32("id", w.ChunkID),
		zap.String("reason", w.Message))
}

func (a *Assembler) warnf(file string, kind cgf.ErrorKind, format string, args ...any) {
	a.warn(file, cgf.Warning{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// build decodes one model and its animations into a prototype.
func (a *Assembler) build(inst Instance, data []byte) (*prototype, error) {
	file := inst.ModelPath
	f, err := cgf.Decode(data, cgf.Options{Registry: a.opts.Registry, Logger: a.log, Name: file})
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", file, err)
	}
	a.warnings = append(a.warnings, f.Warnings...)

	b := &protoBuilder{
		a:        a,
		f:        f,
		file:     file,
		inst:     inst,
		p:        &prototype{name: baseName(file)},
		meshes:   make(map[int32]int),
		joints:   make(map[uint32]int),
		skinOf:   make(map[int]bool),
		material: a.resolveMaterial(f, inst),
	}
	if !inst.IgnoreSkin {
		b.addSkeleton()
	}
	if nodes := nodeEntries(f); len(nodes) > 0 {
		b.addNodes(nodes)
	} else {
		b.addBareMeshes()
	}
	for _, anim := range inst.AnimationPaths {
		b.addAnimation(anim)
	}
	return b.p, nil
}

// instantiate copies p into the graph under a new instance node.
func (a *Assembler) instantiate(p *prototype, inst Instance) int {
	g := &a.graph
	base := len(g.Nodes)
	skinBase := len(g.Skins)

	for _, n := range p.nodes {
		n.Children = offset(n.Children, base)
		if n.Skin >= 0 {
			n.Skin += skinBase
		}
		g.Nodes = append(g.Nodes, n)
	}
	for _, s := range p.skins {
		s.Joints = offset(s.Joints, base)
		s.Skeleton += base
		g.Skins = append(g.Skins, s)
	}
	for _, clip := range p.clips {
		out := Animation{Name: clip.Name, Channels: make([]Channel, len(clip.Channels))}
		for i, ch := range clip.Channels {
			ch.Node += base
			out.Channels[i] = ch
		}
		g.Animations = append(g.Animations, out)
	}

	name := inst.Name
	if name == "" {
		name = baseName(inst.ModelPath)
	}
	m := inst.Transform
	if m == (mgl32.Mat4{}) {
		m = mgl32.Ident4()
	}
	root := NewNode(name, xmath.SwapMat4(m))
	root.Children = offset(p.roots, base)
	idx := g.addNode(root)
	g.Roots = append(g.Roots, idx)
	return idx
}

func offset(idx []int, base int) []int {
	if idx == nil {
		return nil
	}
	out := make([]int, len(idx))
	for i, v := range idx {
		out[i] = v + base
	}
	return out
}

// resolveMaterial looks up the model's material file, if a resolver is set.
func (a *Assembler) resolveMaterial(f *cgf.File, inst Instance) *resolvedMaterial {
	if a.opts.Materials == nil {
		return nil
	}
	req := material.Request{MaterialPath: inst.MaterialPath, ModelPath: inst.ModelPath}
	for _, m := range cgf.All[*cgf.MtlName](f) {
		if m.Name != "" {
			req.MtlNames = append(req.MtlNames, m.Name)
		}
	}
	res, err := a.opts.Materials.Resolve(req)
	if err != nil {
		a.warnf(inst.ModelPath, cgf.KindMissingReference, "no material: %v", err)
		return nil
	}
	if res.Strategy != "" {
		a.log.Info("material chosen by fallback",
			zap.String("file", inst.ModelPath),
			zap.String("strategy", string(res.Strategy)),
			zap.String("material", res.Path))
	}
	return &resolvedMaterial{path: res.Path, m: res.Material}
}

type resolvedMaterial struct {
	path string
	m    *material.Material
}

// materialIndex returns the graph material for sub-material id, adding
// it on first use.
func (a *Assembler) materialIndex(file string, rm *resolvedMaterial, id int32) int {
	if rm == nil {
		return -1
	}
	sub, ok := rm.m.Sub(int(id))
	if !ok {
		a.warnf(file, cgf.KindMissingReference, "material %s has no sub-material %d", rm.path, id)
		return -1
	}
	key := rm.path
	if len(rm.m.SubMaterials) > 0 {
		key += "#" + strconv.Itoa(int(id))
	}
	if idx, ok := a.materials[key]; ok {
		return idx
	}
	flat := *sub
	flat.SubMaterials = nil
	a.graph.Materials = append(a.graph.Materials, flat)
	idx := len(a.graph.Materials) - 1
	a.materials[key] = idx
	return idx
}

type nodeEntry struct {
	id   int32
	node *cgf.Node
}

func nodeEntries(f *cgf.File) []nodeEntry {
	var out []nodeEntry
	for _, e := range f.Header.Entries {
		if n, ok := cgf.Get[*cgf.Node](f, e.ID); ok {
			out = append(out, nodeEntry{id: e.ID, node: n})
		}
	}
	return out
}

// IsLOD reports whether name carries a level of detail suffix beyond
// LOD 0: "$lodN" or "_lodN" with N >= 1, as in "$lod1" or "body_LOD2".
func IsLOD(name string) bool {
	s := strings.ToLower(strings.TrimSpace(name))
	i := strings.LastIndex(s, "lod")
	if i < 1 || (s[i-1] != '$' && s[i-1] != '_') {
		return false
	}
	digits := s[i+len("lod"):]
	if digits == "" || strings.Trim(digits, "0123456789") != "" {
		return false
	}
	n, err := strconv.Atoi(digits)
	return err == nil && n >= 1
}

func baseName(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	b := path.Base(p)
	return strings.TrimSuffix(b, path.Ext(b))
}
