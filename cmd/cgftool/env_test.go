package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/cryconv/internal/assets"
	"github.com/Faultbox/cryconv/internal/batch"
	"github.com/Faultbox/cryconv/internal/cgftest"
	"github.com/Faultbox/cryconv/pkg/scene"
)

func TestLocalFirst(t *testing.T) {
	dataRoot := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dataRoot, "objects"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dataRoot, "objects", "barrel.cgf"), []byte("data root"), 0o644); err != nil {
		t.Fatal(err)
	}
	local := filepath.Join(t.TempDir(), "loose.cgf")
	if err := os.WriteFile(local, []byte("local"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := assets.NewManager(0)
	m.AddDir(dataRoot)
	src := localFirst{m}

	tests := []struct {
		name string
		path string
		want string
	}{
		{"local file outside data roots", local, "local"},
		{"data root path", "Objects/Barrel.cgf", "data root"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := src.ReadFile(tt.path)
			if err != nil {
				t.Fatalf("ReadFile(%q) error = %v", tt.path, err)
			}
			if string(data) != tt.want {
				t.Errorf("ReadFile(%q) = %q, want %q", tt.path, data, tt.want)
			}
		})
	}

	if _, err := src.ReadFile("objects/missing.cgf"); !errors.Is(err, scene.ErrFileNotFound) {
		t.Errorf("missing file: got %v, want ErrFileNotFound", err)
	}
}

func TestConvertLocalModel(t *testing.T) {
	local := filepath.Join(t.TempDir(), "quad.cgf")
	if err := os.WriteFile(local, cgftest.Quad(), 0o644); err != nil {
		t.Fatal(err)
	}
	out := t.TempDir()

	res := batch.Convert(context.Background(), batch.Config{
		Source:    localFirst{assets.NewManager(0)},
		OutputDir: out,
	}, batch.Job{Name: "quad", Model: local})
	if !res.Success {
		t.Fatalf("Convert() failed: %s", res.Error)
	}
	if _, err := os.Stat(filepath.Join(out, "quad.gltf")); err != nil {
		t.Errorf("output missing: %v", err)
	}
}
