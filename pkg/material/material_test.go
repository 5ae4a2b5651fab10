package material

import (
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"testing"

	"github.com/Faultbox/cryconv/pkg/encoding"
)

const crateMtl = `<Material MtlFlags="524544">
 <SubMaterials>
  <Material Name="wood" MtlFlags="524416" Shader="Illum" Diffuse="0.5,0.25,1" Specular="0.1,0.1,0.1" Opacity="1" Shininess="10">
   <Textures>
    <Texture Map="Diffuse" File="Objects\Props\crate_diff.tif"/>
    <Texture Map="Bumpmap" File="objects/props/crate_ddn.tif"/>
   </Textures>
  </Material>
  <Material Name="metal" Shader="Metal" Opacity="0.5"/>
 </SubMaterials>
</Material>`

// memSource is an in-memory file tree keyed by normalized path.
type memSource map[string]string

func (s memSource) ReadFile(name string) ([]byte, error) {
	data, ok := s[encoding.NormalizePath(name)]
	if !ok {
		return nil, fmt.Errorf("%s: not found", name)
	}
	return []byte(data), nil
}

func (s memSource) List(dir string) ([]string, error) {
	var out []string
	for p := range s {
		if path.Dir(p) == dir {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out, nil
}

// readOnly hides the Lister implementation.
type readOnly struct{ src memSource }

func (s readOnly) ReadFile(name string) ([]byte, error) { return s.src.ReadFile(name) }

func TestParse(t *testing.T) {
	m, err := Parse([]byte(crateMtl), "crate")
	if err != nil {
		t.Fatal(err)
	}
	if m.Name != "crate" {
		t.Errorf("name = %q", m.Name)
	}
	if len(m.SubMaterials) != 2 {
		t.Fatalf("got %d sub-materials, want 2", len(m.SubMaterials))
	}
	wood := m.SubMaterials[0]
	if wood.Shader != "Illum" || wood.Diffuse != [3]float32{0.5, 0.25, 1} || wood.Shininess != 10 {
		t.Errorf("wood = %+v", wood)
	}
	if got := wood.Texture("diffuse"); got != "objects/props/crate_diff.tif" {
		t.Errorf("diffuse texture = %q", got)
	}
	metal := m.SubMaterials[1]
	if metal.Opacity != 0.5 || metal.Diffuse != [3]float32{1, 1, 1} {
		t.Errorf("metal defaults = %+v", metal)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("<Material"), "x"); !errors.Is(err, ErrInvalidMaterial) {
		t.Errorf("got %v, want ErrInvalidMaterial", err)
	}
}

func TestMaterial_Sub(t *testing.T) {
	m, _ := Parse([]byte(crateMtl), "crate")
	tests := []struct {
		id     int
		want   string
		wantOK bool
	}{
		{0, "wood", true},
		{1, "metal", true},
		{2, "", false},
		{-1, "", false},
	}
	for _, tt := range tests {
		sub, ok := m.Sub(tt.id)
		if ok != tt.wantOK || (ok && sub.Name != tt.want) {
			t.Errorf("Sub(%d) = %v, %v", tt.id, sub, ok)
		}
	}

	single := &Material{Name: "single"}
	if sub, ok := single.Sub(3); !ok || sub != single {
		t.Error("material without sub-materials should return itself")
	}
}

func TestResolver_Resolve(t *testing.T) {
	src := memSource{
		"objects/props/crate.mtl":         crateMtl,
		"objects/props/crate_damaged.mtl": `<Material Name="damaged" Shader="Illum"/>`,
		"objects/props/barrel_red.mtl":    `<Material Name="barrel" Shader="Illum"/>`,
		"objects/props/crate.cgf":         "",
		"objects/props/barrel.cgf":        "",
	}

	tests := []struct {
		name         string
		src          FileSource
		strategies   []Strategy
		req          Request
		wantPath     string
		wantStrategy Strategy
		wantErr      bool
	}{
		{
			name:     "explicit path",
			src:      src,
			req:      Request{MaterialPath: "Objects\\Props\\crate_damaged", ModelPath: "objects/props/crate.cgf"},
			wantPath: "objects/props/crate_damaged.mtl",
		},
		{
			name:         "mtlname chunk",
			src:          src,
			req:          Request{ModelPath: "objects/props/crate.cgf", MtlNames: []string{"Crate"}},
			wantPath:     "objects/props/crate.mtl",
			wantStrategy: FallbackMtlNameChunk,
		},
		{
			name:         "bad explicit path falls back",
			src:          src,
			req:          Request{MaterialPath: "missing.mtl", ModelPath: "objects/props/crate.cgf", MtlNames: []string{"crate"}},
			wantPath:     "objects/props/crate.mtl",
			wantStrategy: FallbackMtlNameChunk,
		},
		{
			name:         "closest name",
			src:          src,
			req:          Request{ModelPath: "objects/props/barrel.cgf"},
			wantPath:     "objects/props/barrel_red.mtl",
			wantStrategy: FallbackClosestName,
		},
		{
			name:    "closest needs a lister",
			src:     readOnly{src},
			req:     Request{ModelPath: "objects/props/barrel.cgf"},
			wantErr: true,
		},
		{
			name:       "fallbacks disabled",
			src:        src,
			strategies: []Strategy{},
			req:        Request{ModelPath: "objects/props/crate.cgf", MtlNames: []string{"crate"}},
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver(tt.src, tt.strategies, nil)
			res, err := r.Resolve(tt.req)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Errorf("got %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if res.Path != tt.wantPath || res.Strategy != tt.wantStrategy {
				t.Errorf("got %s via %q, want %s via %q", res.Path, res.Strategy, tt.wantPath, tt.wantStrategy)
			}
		})
	}
}

func TestResolver_LoadCaches(t *testing.T) {
	src := memSource{"a.mtl": `<Material Name="a"/>`}
	r := NewResolver(src, nil, nil)
	m1, err := r.Load("A")
	if err != nil {
		t.Fatal(err)
	}
	delete(src, "a.mtl")
	m2, err := r.Load("a.mtl")
	if err != nil {
		t.Fatal(err)
	}
	if m1 != m2 {
		t.Error("second load should come from the cache")
	}
}

func TestParseStrategy(t *testing.T) {
	for _, s := range []string{"mtlname", " Closest "} {
		if _, err := ParseStrategy(s); err != nil {
			t.Errorf("ParseStrategy(%q): %v", s, err)
		}
	}
	if _, err := ParseStrategy("guess"); err == nil || !strings.Contains(err.Error(), "guess") {
		t.Errorf("unexpected result for unknown strategy: %v", err)
	}
}
