package scene

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrFileNotFound is returned by sources for missing files.
var ErrFileNotFound = errors.New("file not found")

// Source reads game files by archive-relative, slash-separated path.
type Source interface {
	ReadFile(name string) ([]byte, error)
}

// Lister is implemented by sources that can enumerate a directory. It
// returns the slash-separated paths of the files directly inside dir.
type Lister interface {
	List(dir string) ([]string, error)
}

// DirSource reads files below a directory. Lookups fall back to a
// case-insensitive match, as game data paths are case-insensitive.
type DirSource struct {
	Root string
}

// ReadFile implements Source.
func (d DirSource) ReadFile(name string) ([]byte, error) {
	p, err := d.resolve(cleanPath(name))
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// List implements Lister.
func (d DirSource) List(dir string) ([]string, error) {
	dir = cleanPath(dir)
	p, err := d.resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, path.Join(dir, e.Name()))
	}
	return out, nil
}

// resolve maps a clean slash path to an existing file system path.
func (d DirSource) resolve(name string) (string, error) {
	exact := filepath.Join(d.Root, filepath.FromSlash(name))
	if _, err := os.Stat(exact); err == nil {
		return exact, nil
	}

	cur := d.Root
	if name == "" {
		return cur, nil
	}
	for _, part := range strings.Split(name, "/") {
		entries, err := os.ReadDir(cur)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		found := ""
		for _, e := range entries {
			if strings.EqualFold(e.Name(), part) {
				found = e.Name()
				break
			}
		}
		if found == "" {
			return "", fmt.Errorf("%w: %s", ErrFileNotFound, name)
		}
		cur = filepath.Join(cur, found)
	}
	return cur, nil
}

// MultiSource searches several sources in order.
type MultiSource []Source

// ReadFile implements Source. The first source holding name wins.
func (m MultiSource) ReadFile(name string) ([]byte, error) {
	var firstErr error
	for _, s := range m {
		data, err := s.ReadFile(name)
		if err == nil {
			return data, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return nil, firstErr
}

// List implements Lister, merging the listings of every source.
func (m MultiSource) List(dir string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	listed := false
	for _, s := range m {
		l, ok := s.(Lister)
		if !ok {
			continue
		}
		files, err := l.List(dir)
		if err != nil {
			continue
		}
		listed = true
		for _, f := range files {
			key := strings.ToLower(f)
			if !seen[key] {
				seen[key] = true
				out = append(out, f)
			}
		}
	}
	if !listed {
		return nil, fmt.Errorf("%w: %s", fs.ErrNotExist, dir)
	}
	return out, nil
}

func cleanPath(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Clean("/" + name)
	return strings.TrimPrefix(name, "/")
}
