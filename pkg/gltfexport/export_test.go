package gltfexport

import (
	"bytes"
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/cryconv/internal/cgftest"
	"github.com/Faultbox/cryconv/pkg/material"
	"github.com/Faultbox/cryconv/pkg/scene"
)

type memSource map[string][]byte

func (m memSource) ReadFile(name string) ([]byte, error) {
	if data, ok := m[name]; ok {
		return data, nil
	}
	return nil, scene.ErrFileNotFound
}

func triangleGraph() *scene.Graph {
	g := &scene.Graph{
		Meshes: []scene.Mesh{{
			Name: "tri",
			Primitives: []scene.Primitive{{
				Indices:   []uint32{0, 1, 2},
				Positions: [][3]float32{{0, 0, 0}, {2, 0, 0}, {0, 3, -1}},
				Normals:   [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
				TexCoords: [][2]float32{{0, 0}, {1, 0}, {0, 1}},
				Material:  0,
			}},
		}},
		Materials: []material.Material{{
			Name:     "stone",
			Diffuse:  [3]float32{1, 0.5, 0.25},
			Opacity:  0.5,
			Textures: map[string]string{material.MapDiffuse: "textures/stone.dds"},
		}},
	}
	node := scene.NewNode("tri", mgl32.Translate3D(1, 2, 3))
	node.Mesh = 0
	g.Nodes = append(g.Nodes, node)
	g.Roots = []int{0}
	return g
}

func roundTrip(t *testing.T, doc *gltf.Document) *gltf.Document {
	t.Helper()
	var b bytes.Buffer
	if err := Write(&b, doc, true); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	out := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(b.Bytes())).Decode(out); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return out
}

var identity = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

func near(a, b float64) bool {
	return math.Abs(a-b) < 1e-4
}

func TestBuildTriangle(t *testing.T) {
	doc, err := Build(triangleGraph(), Options{TextureExt: ".png"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	doc = roundTrip(t, doc)

	if len(doc.Meshes) != 1 || len(doc.Meshes[0].Primitives) != 1 {
		t.Fatalf("meshes = %d, want one primitive", len(doc.Meshes))
	}
	prim := doc.Meshes[0].Primitives[0]
	posAcc := doc.Accessors[prim.Attributes[gltf.POSITION]]
	if posAcc.Count != 3 {
		t.Errorf("position count = %d, want 3", posAcc.Count)
	}
	if len(posAcc.Min) != 3 || posAcc.Min[2] != -1 || posAcc.Max[0] != 2 || posAcc.Max[1] != 3 {
		t.Errorf("position bounds = %v..%v", posAcc.Min, posAcc.Max)
	}
	positions, err := modeler.ReadPosition(doc, posAcc, nil)
	if err != nil {
		t.Fatalf("ReadPosition() error = %v", err)
	}
	if positions[2] != [3]float32{0, 3, -1} {
		t.Errorf("position[2] = %v", positions[2])
	}
	if _, ok := prim.Attributes[gltf.NORMAL]; !ok {
		t.Error("missing NORMAL")
	}
	if _, ok := prim.Attributes[gltf.TEXCOORD_0]; !ok {
		t.Error("missing TEXCOORD_0")
	}
	if _, ok := prim.Attributes[gltf.JOINTS_0]; ok {
		t.Error("unskinned primitive has JOINTS_0")
	}
	idx, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
	if err != nil || len(idx) != 3 || idx[2] != 2 {
		t.Errorf("indices = %v, %v", idx, err)
	}

	if prim.Material == nil || *prim.Material != 0 {
		t.Fatal("primitive material not set")
	}
	mat := doc.Materials[0]
	if mat.Name != "stone" || mat.AlphaMode != gltf.AlphaBlend {
		t.Errorf("material = %q alpha %v", mat.Name, mat.AlphaMode)
	}
	if c := mat.PBRMetallicRoughness.BaseColorFactor; c == nil || !near(c[1], 0.5) || !near(c[3], 0.5) {
		t.Errorf("base color = %v", c)
	}
	if len(doc.Images) != 1 || doc.Images[0].URI != "textures/stone.png" {
		t.Errorf("images = %+v, want textures/stone.png", doc.Images)
	}

	node := doc.Nodes[0]
	if node.Mesh == nil || *node.Mesh != 0 {
		t.Error("node mesh not set")
	}
	if node.Translation != [3]float64{1, 2, 3} {
		t.Errorf("translation = %v", node.Translation)
	}
	if len(doc.Scenes) != 1 || len(doc.Scenes[0].Nodes) != 1 {
		t.Errorf("scene roots = %+v", doc.Scenes)
	}
}

func TestBuildInvalidGraph(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(g *scene.Graph)
	}{
		{"root", func(g *scene.Graph) { g.Roots = []int{5} }},
		{"mesh", func(g *scene.Graph) { g.Nodes[0].Mesh = 3 }},
		{"child", func(g *scene.Graph) { g.Nodes[0].Children = []int{9} }},
		{"material", func(g *scene.Graph) { g.Meshes[0].Primitives[0].Material = 4 }},
		{"index", func(g *scene.Graph) { g.Meshes[0].Primitives[0].Indices = []uint32{0, 1, 7} }},
		{"skin", func(g *scene.Graph) { g.Nodes[0].Skin = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := triangleGraph()
			tt.mutate(g)
			if _, err := Build(g, Options{}); err == nil {
				t.Error("Build() succeeded on an inconsistent graph")
			}
		})
	}
}

func TestNodeTransforms(t *testing.T) {
	shear := mgl32.Ident4()
	shear.Set(0, 1, 1)
	rot := mgl32.HomogRotate3DY(mgl32.DegToRad(90))
	trs := mgl32.Translate3D(1, 2, 3).Mul4(rot).Mul4(mgl32.Scale3D(2, 2, 2))

	g := triangleGraph()
	g.Nodes[0].Matrix = trs
	sheared := scene.NewNode("sheared", shear)
	g.Nodes = append(g.Nodes, sheared)
	g.Roots = append(g.Roots, 1)

	doc, err := Build(g, Options{})
	if err != nil {
		t.Fatal(err)
	}

	n := doc.Nodes[0]
	if n.Translation != [3]float64{1, 2, 3} {
		t.Errorf("translation = %v", n.Translation)
	}
	if s := n.Scale; !near(s[0], 2) || !near(s[1], 2) || !near(s[2], 2) {
		t.Errorf("scale = %v", s)
	}
	if r := n.Rotation; !near(math.Abs(r[1]), math.Sqrt2/2) || !near(math.Abs(r[3]), math.Sqrt2/2) {
		t.Errorf("rotation = %v, want quarter turn about y", r)
	}
	if n.Matrix != [16]float64{} && n.Matrix != identity {
		t.Errorf("TRS node also wrote matrix %v", n.Matrix)
	}

	m := doc.Nodes[1].Matrix
	if m[4] != 1 {
		t.Errorf("sheared node matrix = %v, want shear kept", m)
	}
}

func assembled(t *testing.T) *scene.Graph {
	t.Helper()
	src := memSource{
		"char.chr": cgftest.Character(),
		"wave.caf": cgftest.Animation(100, 101),
		"quad.cgf": cgftest.Quad(),
	}
	a := scene.NewAssembler(src, scene.Options{})
	for _, inst := range []scene.Instance{
		{ModelPath: "char.chr", AnimationPaths: []string{"wave.caf"}},
		{ModelPath: "quad.cgf"},
	} {
		if _, err := a.Add(context.Background(), inst); err != nil {
			t.Fatalf("Add(%s) error = %v", inst.ModelPath, err)
		}
	}
	return a.Graph()
}

func TestBuildSkinnedAnimated(t *testing.T) {
	g := assembled(t)
	doc, err := Build(g, Options{})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	doc = roundTrip(t, doc)

	if len(doc.Skins) != 1 {
		t.Fatalf("skins = %d, want 1", len(doc.Skins))
	}
	skin := doc.Skins[0]
	if len(skin.Joints) != 2 || skin.InverseBindMatrices == nil {
		t.Fatalf("skin = %+v", skin)
	}
	ibm := doc.Accessors[*skin.InverseBindMatrices]
	if ibm.Count != 2 || ibm.Type != gltf.AccessorMat4 {
		t.Errorf("ibm accessor = %d x %v", ibm.Count, ibm.Type)
	}

	var skinned *gltf.Primitive
	for _, n := range doc.Nodes {
		if n.Skin != nil && n.Mesh != nil {
			skinned = doc.Meshes[*n.Mesh].Primitives[0]
		}
	}
	if skinned == nil {
		t.Fatal("no skinned mesh node")
	}
	for _, attr := range []string{gltf.JOINTS_0, gltf.WEIGHTS_0} {
		if _, ok := skinned.Attributes[attr]; !ok {
			t.Errorf("skinned primitive missing %s", attr)
		}
	}

	if len(doc.Animations) != 1 {
		t.Fatalf("animations = %d, want 1", len(doc.Animations))
	}
	anim := doc.Animations[0]
	if anim.Name != "wave" || len(anim.Channels) != 4 || len(anim.Samplers) != 4 {
		t.Fatalf("animation %q: %d channels, %d samplers", anim.Name, len(anim.Channels), len(anim.Samplers))
	}
	for _, ch := range anim.Channels {
		node := doc.Nodes[*ch.Target.Node]
		if node.Matrix != [16]float64{} && node.Matrix != identity {
			t.Errorf("animated node %q uses a matrix", node.Name)
		}
		in := doc.Accessors[anim.Samplers[ch.Sampler].Input]
		if len(in.Min) != 1 || in.Min[0] != 0 || !near(in.Max[0], 1) {
			t.Errorf("sampler input bounds = %v..%v, want 0..1", in.Min, in.Max)
		}
	}

	if len(doc.Scenes[0].Nodes) != 2 {
		t.Errorf("scene roots = %v, want one per instance", doc.Scenes[0].Nodes)
	}
}

func TestSave(t *testing.T) {
	doc, err := Build(triangleGraph(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	dir := t.TempDir()
	for _, name := range []string{"out/tri.gltf", "out/tri.glb"} {
		p := filepath.Join(dir, name)
		if err := Save(doc, p); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
		got, err := gltf.Open(p)
		if err != nil {
			t.Fatalf("Open(%s) error = %v", name, err)
		}
		if len(got.Meshes) != 1 || len(got.Nodes) != 1 {
			t.Errorf("%s: %d meshes, %d nodes", name, len(got.Meshes), len(got.Nodes))
		}
	}
}
