package batch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/qmuntal/gltf"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/cryconv/internal/cgftest"
	"github.com/Faultbox/cryconv/pkg/scene"
)

func writeData(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for name, data := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestParseManifest(t *testing.T) {
	const src = `
jobs:
  - model: objects/props/Barrel.cgf
  - name: camp
    instances:
      - model: objects/tent.cgf
      - model: objects/props/barrel.cgf
        position: [3, 1, 0]
        rotation: [0, 0, 0.7071068, 0.7071068]
        scale: [2, 2, 2]
        ignore_skin: true
        animations: [anims/idle.caf]
`
	m, err := ParseManifest(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ParseManifest() error = %v", err)
	}
	if len(m.Jobs) != 2 {
		t.Fatalf("jobs = %d, want 2", len(m.Jobs))
	}
	if m.Jobs[0].Name != "Barrel" {
		t.Errorf("default name = %q, want Barrel", m.Jobs[0].Name)
	}

	insts := m.Jobs[1].SceneInstances(false)
	if len(insts) != 2 {
		t.Fatalf("instances = %d, want 2", len(insts))
	}
	b := insts[1]
	if !b.IgnoreSkin || b.IgnoreGeometry {
		t.Errorf("flags = %v/%v", b.IgnoreGeometry, b.IgnoreSkin)
	}
	if len(b.AnimationPaths) != 1 {
		t.Errorf("animations = %v", b.AnimationPaths)
	}
	// x axis rotated onto y and scaled by 2, then translated.
	p := b.Transform.Mul4x1([4]float32{1, 0, 0, 1})
	want := [4]float32{3, 3, 0, 1}
	for i := range want {
		if d := p[i] - want[i]; d > 1e-4 || d < -1e-4 {
			t.Fatalf("transformed point = %v, want %v", p, want)
		}
	}

	if got := m.Jobs[1].SceneInstances(true)[1].AnimationPaths; got != nil {
		t.Errorf("skip animations kept %v", got)
	}
}

func TestParseManifestInvalid(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"empty", "", "no jobs"},
		{"unknown field", "jobs:\n  - model: a.cgf\n    colour: red\n", "colour"},
		{"no model", "jobs:\n  - name: x\n", "no model"},
		{"blank instance", "jobs:\n  - name: x\n    instances:\n      - position: [1, 2, 3]\n", "instance 0: no model"},
		{"both forms", "jobs:\n  - model: a.cgf\n    instances:\n      - model: b.cgf\n", "exclusive"},
		{"duplicate", "jobs:\n  - model: a/x.cgf\n  - model: b/X.cgf\n", "already used"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseManifest(strings.NewReader(tt.src))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadManifest(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.yaml")
	if err := os.WriteFile(path, []byte("jobs:\n  - model: quad.cgf\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() error = %v", err)
	}
	if m.Jobs[0].Name != "quad" {
		t.Errorf("name = %q", m.Jobs[0].Name)
	}

	if _, err := LoadManifest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing manifest")
	}
}

func TestRun(t *testing.T) {
	root := writeData(t, map[string][]byte{
		"objects/quad.cgf":   cgftest.Quad(),
		"objects/broken.cgf": []byte("not a chunk file"),
	})
	out := t.TempDir()
	jobs := []Job{
		{Name: "one", Model: "objects/quad.cgf"},
		{Name: "broken", Model: "objects/broken.cgf"},
		{Name: "missing", Model: "objects/missing.cgf"},
		{Name: "pair", Instances: []Placement{
			{Model: "objects/quad.cgf"},
			{Model: "objects/quad.cgf", Position: [3]float32{2, 0, 0}},
		}},
	}
	results, err := Run(context.Background(), Config{
		Source:    scene.DirSource{Root: root},
		OutputDir: out,
		Binary:    true,
		Workers:   3,
	}, jobs)
	if err == nil {
		t.Fatal("Run() error = nil, want failures")
	}
	if got := Failed(results); got != 2 {
		t.Errorf("Failed() = %d, want 2", got)
	}
	for _, name := range []string{"broken", "missing"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("error %q does not mention %s", err, name)
		}
	}

	byName := make(map[string]Result)
	for _, r := range results {
		byName[r.Job] = r
	}
	if r := byName["one"]; !r.Success || r.Output != filepath.Join(out, "one.glb") {
		t.Errorf("one = %+v", r)
	}
	pair := byName["pair"]
	if !pair.Success {
		t.Fatalf("pair failed: %s", pair.Error)
	}
	if pair.Stats.Instances != 2 || pair.Stats.Decoded != 1 || pair.Stats.Reused != 1 {
		t.Errorf("pair stats = %+v", pair.Stats)
	}

	doc, err := gltf.Open(pair.Output)
	if err != nil {
		t.Fatalf("gltf.Open() error = %v", err)
	}
	if len(doc.Scenes) != 1 || len(doc.Scenes[0].Nodes) != 2 {
		t.Errorf("scene roots = %+v", doc.Scenes)
	}
	if len(doc.Meshes) != 1 {
		t.Errorf("meshes = %d, want 1 shared mesh", len(doc.Meshes))
	}

	if _, err := os.Stat(filepath.Join(out, "broken.glb")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("failed job left output: %v", err)
	}
}

func TestRunCancelled(t *testing.T) {
	root := writeData(t, map[string][]byte{"quad.cgf": cgftest.Quad()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	jobs := []Job{{Name: "a", Model: "quad.cgf"}, {Name: "b", Model: "quad.cgf"}}
	results, err := Run(ctx, Config{Source: scene.DirSource{Root: root}, OutputDir: t.TempDir()}, jobs)
	if err == nil {
		t.Fatal("Run() error = nil")
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for _, r := range results {
		if r.Success {
			t.Errorf("%s succeeded after cancel", r.Job)
		}
		if r.Job == "" {
			t.Error("result without job name")
		}
	}
}

func TestConvertGLTF(t *testing.T) {
	root := writeData(t, map[string][]byte{"quad.cgf": cgftest.Quad()})
	out := filepath.Join(t.TempDir(), "nested")
	r := Convert(context.Background(), Config{Source: scene.DirSource{Root: root}, OutputDir: out},
		Job{Name: "q", Model: "quad.cgf"})
	if !r.Success {
		t.Fatalf("Convert() failed: %s", r.Error)
	}
	if filepath.Ext(r.Output) != ".gltf" {
		t.Errorf("output = %s", r.Output)
	}
	data, err := os.ReadFile(r.Output)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("data:application/octet-stream;base64,")) {
		t.Error("buffers not embedded in .gltf output")
	}
}

func TestWriteReport(t *testing.T) {
	results := []Result{
		{Job: "a", Output: "out/a.glb", Success: true, Stats: scene.Stats{Instances: 2, Decoded: 1, Reused: 1}},
		{Job: "b", Error: "boom", Warnings: 3},
	}
	var buf bytes.Buffer
	if err := WriteReport(&buf, results); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}
	var got []ReportEntry
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("report is not YAML: %v", err)
	}
	if len(got) != 2 || got[0].Reused != 1 || got[1].Error != "boom" || got[1].Warnings != 3 {
		t.Errorf("report = %+v", got)
	}
}
