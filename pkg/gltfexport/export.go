// Package gltfexport writes an assembled scene graph as a glTF 2.0
// document.
package gltfexport

import (
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"

	"github.com/Faultbox/cryconv/pkg/material"
	xmath "github.com/Faultbox/cryconv/pkg/math"
	"github.com/Faultbox/cryconv/pkg/scene"
)

// Options configures the exporter.
type Options struct {
	// TextureExt replaces the extension of texture URIs (".png" for
	// textures converted from .dds). Empty keeps the original path.
	TextureExt string
	Logger     *zap.Logger
}

type exporter struct {
	g    *scene.Graph
	doc  *gltf.Document
	opts Options
	log  *zap.Logger

	meshes   []*int // graph mesh -> document mesh
	textures map[string]int
}

// Build converts g into a glTF document with a single scene whose roots
// are g.Roots. All binary data lives in buffer 0.
func Build(g *scene.Graph, opts Options) (*gltf.Document, error) {
	if err := validate(g); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	e := &exporter{
		g:        g,
		doc:      gltf.NewDocument(),
		opts:     opts,
		log:      opts.Logger,
		textures: make(map[string]int),
	}
	e.doc.Asset.Generator = "cryconv"

	e.writeMaterials()
	e.writeMeshes()
	e.writeNodes()
	e.writeSkins()
	e.writeAnimations()
	e.doc.Scenes[0].Nodes = append([]int(nil), g.Roots...)
	return e.doc, nil
}

// validate checks every cross reference in g.
func validate(g *scene.Graph) error {
	inRange := func(i, n int) bool { return i >= 0 && i < n }
	for _, r := range g.Roots {
		if !inRange(r, len(g.Nodes)) {
			return fmt.Errorf("root %d out of range", r)
		}
	}
	for i, n := range g.Nodes {
		if n.Mesh >= 0 && !inRange(n.Mesh, len(g.Meshes)) {
			return fmt.Errorf("node %d: mesh %d out of range", i, n.Mesh)
		}
		if n.Skin >= 0 && !inRange(n.Skin, len(g.Skins)) {
			return fmt.Errorf("node %d: skin %d out of range", i, n.Skin)
		}
		for _, c := range n.Children {
			if !inRange(c, len(g.Nodes)) {
				return fmt.Errorf("node %d: child %d out of range", i, c)
			}
		}
	}
	for i, m := range g.Meshes {
		for j, p := range m.Primitives {
			if p.Material >= len(g.Materials) {
				return fmt.Errorf("mesh %d primitive %d: material %d out of range", i, j, p.Material)
			}
			for _, idx := range p.Indices {
				if int(idx) >= len(p.Positions) {
					return fmt.Errorf("mesh %d primitive %d: index %d past %d vertices", i, j, idx, len(p.Positions))
				}
			}
		}
	}
	for i, s := range g.Skins {
		if len(s.InverseBindMatrices) != len(s.Joints) {
			return fmt.Errorf("skin %d: %d inverse bind matrices for %d joints", i, len(s.InverseBindMatrices), len(s.Joints))
		}
		for _, j := range s.Joints {
			if !inRange(j, len(g.Nodes)) {
				return fmt.Errorf("skin %d: joint %d out of range", i, j)
			}
		}
	}
	for i, a := range g.Animations {
		for _, ch := range a.Channels {
			if !inRange(ch.Node, len(g.Nodes)) {
				return fmt.Errorf("animation %d: node %d out of range", i, ch.Node)
			}
		}
	}
	return nil
}

func (e *exporter) writeMaterials() {
	for _, m := range e.g.Materials {
		e.doc.Materials = append(e.doc.Materials, e.material(m))
	}
}

func (e *exporter) material(m material.Material) *gltf.Material {
	base := [4]float64{float64(m.Diffuse[0]), float64(m.Diffuse[1]), float64(m.Diffuse[2]), float64(m.Opacity)}
	metallic, roughness := 0.0, 1.0
	if m.Shininess > 0 {
		roughness = 1 - math.Min(float64(m.Shininess)/255, 1)
	}
	out := &gltf.Material{
		Name: m.Name,
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor: &base,
			MetallicFactor:  &metallic,
			RoughnessFactor: &roughness,
		},
		EmissiveFactor: [3]float64{float64(m.Emissive[0]), float64(m.Emissive[1]), float64(m.Emissive[2])},
		AlphaMode:      gltf.AlphaOpaque,
	}
	if m.Opacity < 1 {
		out.AlphaMode = gltf.AlphaBlend
	}
	if tex := m.Texture(material.MapDiffuse); tex != "" {
		out.PBRMetallicRoughness.BaseColorTexture = &gltf.TextureInfo{Index: e.texture(tex)}
	}
	if tex := m.Texture(material.MapBumpmap); tex != "" {
		out.NormalTexture = &gltf.NormalTexture{Index: gltf.Index(e.texture(tex))}
	}
	return out
}

// texture returns the texture for an image URI, adding it once.
func (e *exporter) texture(p string) int {
	uri := p
	if e.opts.TextureExt != "" {
		uri = strings.TrimSuffix(p, path.Ext(p)) + e.opts.TextureExt
	}
	if idx, ok := e.textures[uri]; ok {
		return idx
	}
	e.doc.Images = append(e.doc.Images, &gltf.Image{Name: path.Base(uri), URI: uri})
	e.doc.Textures = append(e.doc.Textures, &gltf.Texture{Source: gltf.Index(len(e.doc.Images) - 1)})
	idx := len(e.doc.Textures) - 1
	e.textures[uri] = idx
	return idx
}

func (e *exporter) writeMeshes() {
	e.meshes = make([]*int, len(e.g.Meshes))
	for i, m := range e.g.Meshes {
		out := &gltf.Mesh{Name: m.Name}
		for _, p := range m.Primitives {
			if len(p.Positions) == 0 {
				continue
			}
			out.Primitives = append(out.Primitives, e.primitive(p))
		}
		if len(out.Primitives) == 0 {
			e.log.Debug("mesh without drawable primitives omitted", zap.String("mesh", m.Name))
			continue
		}
		e.doc.Meshes = append(e.doc.Meshes, out)
		e.meshes[i] = gltf.Index(len(e.doc.Meshes) - 1)
	}
}

func (e *exporter) primitive(p scene.Primitive) *gltf.Primitive {
	doc := e.doc
	attrs := map[string]int{
		gltf.POSITION: modeler.WritePosition(doc, p.Positions),
	}
	if len(p.Normals) == len(p.Positions) {
		attrs[gltf.NORMAL] = modeler.WriteNormal(doc, p.Normals)
	}
	if len(p.Tangents) == len(p.Positions) && len(p.Normals) == len(p.Positions) {
		attrs[gltf.TANGENT] = modeler.WriteTangent(doc, p.Tangents)
	}
	if len(p.TexCoords) == len(p.Positions) {
		attrs[gltf.TEXCOORD_0] = modeler.WriteTextureCoord(doc, p.TexCoords)
	}
	if len(p.Colors) == len(p.Positions) {
		attrs[gltf.COLOR_0] = modeler.WriteColor(doc, p.Colors)
	}
	if len(p.Joints) == len(p.Positions) && len(p.Weights) == len(p.Positions) {
		attrs[gltf.JOINTS_0] = modeler.WriteJoints(doc, p.Joints)
		attrs[gltf.WEIGHTS_0] = modeler.WriteWeights(doc, p.Weights)
	}
	out := &gltf.Primitive{Attributes: attrs, Mode: gltf.PrimitiveTriangles}
	if len(p.Indices) > 0 {
		out.Indices = gltf.Index(modeler.WriteIndices(doc, indices(p.Indices, len(p.Positions))))
	}
	if p.Material >= 0 {
		out.Material = gltf.Index(p.Material)
	}
	return out
}

// indices narrows the index buffer to 16 bits when every vertex fits.
func indices(idx []uint32, vertices int) any {
	if vertices > math.MaxUint16 {
		return idx
	}
	out := make([]uint16, len(idx))
	for i, v := range idx {
		out[i] = uint16(v)
	}
	return out
}

func (e *exporter) writeNodes() {
	for _, n := range e.g.Nodes {
		out := &gltf.Node{Name: n.Name, Children: append([]int(nil), n.Children...)}
		if n.Mesh >= 0 {
			out.Mesh = e.meshes[n.Mesh]
			if n.Skin >= 0 && out.Mesh != nil {
				out.Skin = gltf.Index(n.Skin)
			}
		}
		if t, r, s, ok := xmath.Decompose(n.Matrix); ok {
			out.Translation = [3]float64{float64(t[0]), float64(t[1]), float64(t[2])}
			out.Rotation = [4]float64{float64(r[0]), float64(r[1]), float64(r[2]), float64(r[3])}
			out.Scale = [3]float64{float64(s[0]), float64(s[1]), float64(s[2])}
		} else {
			out.Matrix = matrix(n.Matrix)
		}
		e.doc.Nodes = append(e.doc.Nodes, out)
	}
}

func matrix(m mgl32.Mat4) [16]float64 {
	var out [16]float64
	for i, v := range m {
		out[i] = float64(v)
	}
	return out
}

func (e *exporter) writeSkins() {
	for _, s := range e.g.Skins {
		ibm := make([][4][4]float32, len(s.InverseBindMatrices))
		for i, m := range s.InverseBindMatrices {
			for c := 0; c < 4; c++ {
				ibm[i][c] = m.Col(c)
			}
		}
		out := &gltf.Skin{
			Name:   s.Name,
			Joints: append([]int(nil), s.Joints...),
		}
		if len(ibm) > 0 {
			out.InverseBindMatrices = gltf.Index(modeler.WriteAccessor(e.doc, gltf.TargetNone, ibm))
		}
		if s.Skeleton >= 0 && s.Skeleton < len(e.g.Nodes) {
			out.Skeleton = gltf.Index(s.Skeleton)
		}
		e.doc.Skins = append(e.doc.Skins, out)
	}
}

func (e *exporter) writeAnimations() {
	for _, a := range e.g.Animations {
		out := &gltf.Animation{Name: a.Name}
		for _, ch := range a.Channels {
			if len(ch.Times) == 0 {
				continue
			}
			var output int
			var target gltf.TRSProperty
			switch ch.Path {
			case scene.PathRotation:
				if len(ch.Rotations) != len(ch.Times) {
					continue
				}
				output, target = modeler.WriteAccessor(e.doc, gltf.TargetNone, ch.Rotations), gltf.TRSRotation
			case scene.PathTranslation:
				if len(ch.Translations) != len(ch.Times) {
					continue
				}
				output, target = modeler.WriteAccessor(e.doc, gltf.TargetNone, ch.Translations), gltf.TRSTranslation
			default:
				continue
			}
			out.Samplers = append(out.Samplers, &gltf.AnimationSampler{
				Input:         e.timeAccessor(ch.Times),
				Interpolation: gltf.InterpolationLinear,
				Output:        output,
			})
			out.Channels = append(out.Channels, &gltf.AnimationChannel{
				Sampler: len(out.Samplers) - 1,
				Target:  gltf.AnimationChannelTarget{Node: gltf.Index(ch.Node), Path: target},
			})
		}
		if len(out.Channels) == 0 {
			e.log.Debug("animation without channels omitted", zap.String("animation", a.Name))
			continue
		}
		e.doc.Animations = append(e.doc.Animations, out)
	}
}

// timeAccessor writes sampler input times with the min/max glTF requires.
func (e *exporter) timeAccessor(times []float32) int {
	idx := modeler.WriteAccessor(e.doc, gltf.TargetNone, times)
	lo, hi := times[0], times[0]
	for _, t := range times {
		lo, hi = min(lo, t), max(hi, t)
	}
	acc := e.doc.Accessors[idx]
	acc.Min = []float64{float64(lo)}
	acc.Max = []float64{float64(hi)}
	return idx
}

// Write encodes doc to w as JSON with embedded buffers, or as GLB.
func Write(w io.Writer, doc *gltf.Document, binary bool) error {
	if !binary {
		embedBuffers(doc)
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = binary
	if !binary {
		enc.SetJSONIndent("", "  ")
	}
	return enc.Encode(doc)
}

// Save writes doc to name. A .glb extension selects the binary container.
func Save(doc *gltf.Document, name string) error {
	binary := strings.EqualFold(filepath.Ext(name), ".glb")
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(name)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := Write(f, doc, binary); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return f.Close()
}

func embedBuffers(doc *gltf.Document) {
	for _, b := range doc.Buffers {
		if b.URI == "" {
			b.EmbeddedResource()
		}
	}
}
