// Package pak provides reading functionality for CryEngine .pak archives.
package pak

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/Faultbox/cryconv/pkg/encoding"
)

// ErrNotFound is returned for paths the archive does not hold.
var ErrNotFound = errors.New("file not found in archive")

// Archive represents an opened .pak archive. It is safe for concurrent
// reads.
type Archive struct {
	file     io.Closer
	zr       *zip.Reader
	fileList map[string]*Entry
	dirs     map[string][]string
}

// Entry represents a file entry in the archive.
type Entry struct {
	Name             string // as stored
	CompressedSize   uint64
	UncompressedSize uint64
	Method           uint16
	file             *zip.File
}

// Open opens a .pak archive for reading.
func Open(name string) (*Archive, error) {
	file, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("opening file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}
	archive, err := NewReader(file, info.Size())
	if err != nil {
		file.Close()
		return nil, err
	}
	archive.file = file
	return archive, nil
}

// NewReader reads an archive of the given size from r.
func NewReader(r io.ReaderAt, size int64) (*Archive, error) {
	zr, err := zip.NewReader(r, size)
	if errors.Is(err, zip.ErrInsecurePath) && zr != nil {
		// Packs store backslash paths; names are never joined onto disk.
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading file table: %w", err)
	}
	archive := &Archive{
		zr:       zr,
		fileList: make(map[string]*Entry, len(zr.File)),
		dirs:     make(map[string][]string),
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := normalizePath(f.Name)
		if _, dup := archive.fileList[name]; dup {
			continue
		}
		archive.fileList[name] = &Entry{
			Name:             f.Name,
			CompressedSize:   f.CompressedSize64,
			UncompressedSize: f.UncompressedSize64,
			Method:           f.Method,
			file:             f,
		}
		dir := path.Dir(name)
		if dir == "." {
			dir = ""
		}
		archive.dirs[dir] = append(archive.dirs[dir], name)
	}
	return archive, nil
}

// Close closes the archive.
func (a *Archive) Close() error {
	if a.file != nil {
		return a.file.Close()
	}
	return nil
}

// Files returns all file paths in the archive, normalized and sorted.
func (a *Archive) Files() []string {
	result := make([]string, 0, len(a.fileList))
	for p := range a.fileList {
		result = append(result, p)
	}
	sort.Strings(result)
	return result
}

// List returns the files directly inside dir.
func (a *Archive) List(dir string) ([]string, error) {
	files, ok := a.dirs[normalizePath(dir)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/", ErrNotFound, dir)
	}
	out := append([]string(nil), files...)
	sort.Strings(out)
	return out, nil
}

// Contains checks if a file exists.
func (a *Archive) Contains(name string) bool {
	_, ok := a.fileList[normalizePath(name)]
	return ok
}

// Stat returns the entry for name.
func (a *Archive) Stat(name string) (*Entry, bool) {
	e, ok := a.fileList[normalizePath(name)]
	return e, ok
}

// ReadFile reads a file from the archive.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	entry, ok := a.fileList[normalizePath(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if entry.file.Flags&0x1 != 0 {
		return nil, fmt.Errorf("%s: encrypted files not supported", name)
	}

	rc, err := entry.file.Open()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	defer rc.Close()

	result, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return result, nil
}

func normalizePath(p string) string {
	p = strings.Trim(encoding.NormalizePath(p), "/")
	if p == "." {
		return ""
	}
	return strings.TrimPrefix(p, "./")
}
