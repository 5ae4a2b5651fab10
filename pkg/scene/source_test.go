package scene

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func writeFile(t *testing.T, root, name, content string) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestDirSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Objects/Props/Barrel.cgf", "barrel")
	writeFile(t, root, "Objects/Props/barrel.mtl", "mtl")
	d := DirSource{Root: root}

	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"Objects/Props/Barrel.cgf", "barrel", false},
		{"objects/props/barrel.CGF", "barrel", false},
		{`objects\props\barrel.cgf`, "barrel", false},
		{"/objects/props/barrel.mtl", "mtl", false},
		{"objects/props/crate.cgf", "", true},
		{"nowhere/barrel.cgf", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := d.ReadFile(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrFileNotFound) {
					t.Errorf("ReadFile() error = %v, want ErrFileNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ReadFile() error = %v", err)
			}
			if string(data) != tt.want {
				t.Errorf("ReadFile() = %q, want %q", data, tt.want)
			}
		})
	}

	files, err := d.List("OBJECTS/props")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	sort.Strings(files)
	want := []string{"OBJECTS/props/Barrel.cgf", "OBJECTS/props/barrel.mtl"}
	if len(files) != 2 || files[0] != want[0] || files[1] != want[1] {
		t.Errorf("List() = %v, want %v", files, want)
	}
}

func TestMultiSource(t *testing.T) {
	first, second := t.TempDir(), t.TempDir()
	writeFile(t, first, "a.cgf", "first")
	writeFile(t, second, "a.cgf", "second")
	writeFile(t, second, "b.cgf", "only second")
	m := MultiSource{DirSource{Root: first}, DirSource{Root: second}}

	if data, err := m.ReadFile("a.cgf"); err != nil || string(data) != "first" {
		t.Errorf("ReadFile(a) = %q, %v, want first source", data, err)
	}
	if data, err := m.ReadFile("B.cgf"); err != nil || string(data) != "only second" {
		t.Errorf("ReadFile(b) = %q, %v", data, err)
	}
	if _, err := m.ReadFile("c.cgf"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("ReadFile(c) error = %v, want ErrFileNotFound", err)
	}
	if _, err := (MultiSource{}).ReadFile("a.cgf"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("empty ReadFile error = %v, want ErrFileNotFound", err)
	}

	files, err := m.List("")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	sort.Strings(files)
	if len(files) != 2 || files[0] != "a.cgf" || files[1] != "b.cgf" {
		t.Errorf("List() = %v, want merged [a.cgf b.cgf]", files)
	}
}
