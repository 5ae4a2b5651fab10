package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Faultbox/cryconv/internal/config"
	"github.com/Faultbox/cryconv/pkg/cgf"
)

func cmdInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	e, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: cgftool info <file>")
		os.Exit(1)
	}
	name := fs.Arg(0)

	f, err := e.decode(name)
	if err != nil {
		return err
	}
	h := f.Header

	fmt.Printf("File:      %s\n", name)
	fmt.Printf("Signature: %q\n", strings.TrimRight(h.Signature, "\x00"))
	fmt.Printf("Version:   0x%X\n", h.Version)
	if h.FileType != 0 {
		fmt.Printf("Type:      %s\n", h.FileType)
	}
	fmt.Printf("Chunks:    %d (%d decoded)\n", len(h.Entries), len(f.Chunks))
	fmt.Println()

	// Count by chunk type
	type typeStat struct {
		typ   cgf.ChunkType
		count int
	}
	counts := make(map[cgf.ChunkType]int)
	for _, entry := range h.Entries {
		counts[entry.Type]++
	}
	var stats []typeStat
	for t, n := range counts {
		stats = append(stats, typeStat{t, n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].count != stats[j].count {
			return stats[i].count > stats[j].count
		}
		return stats[i].typ < stats[j].typ
	})
	fmt.Println("Chunks by type:")
	for _, s := range stats {
		fmt.Printf("  %-24s %d\n", s.typ, s.count)
	}

	nodes := cgf.All[*cgf.Node](f)
	meshes := cgf.All[*cgf.Mesh](f)
	var verts, indices int32
	for _, m := range meshes {
		verts += m.NumVertices
		indices += m.NumIndices
	}
	fmt.Println()
	fmt.Printf("Nodes:       %d\n", len(nodes))
	fmt.Printf("Meshes:      %d (%d vertices, %d triangles)\n", len(meshes), verts, indices/3)
	if cb, ok := cgf.First[*cgf.CompiledBones](f); ok {
		fmt.Printf("Bones:       %d\n", len(cb.Bones))
	}
	if tracks := cgf.Tracks(f); len(tracks) > 0 {
		tb := cgf.FileTimeBase(f)
		var end float32
		for _, t := range tracks {
			end = max(end, last(t.RotationTimes), last(t.PositionTimes))
		}
		fmt.Printf("Controllers: %d (%.3fs", len(tracks), end)
		if fps := tb.FrameRate(); fps > 0 {
			fmt.Printf(" at %.1f fps", fps)
		}
		fmt.Println(")")
	}
	for _, m := range cgf.All[*cgf.MtlName](f) {
		fmt.Printf("Material:    %s\n", m.Name)
	}

	if len(f.Warnings) > 0 {
		fmt.Println()
		fmt.Printf("Warnings (%d):\n", len(f.Warnings))
		for _, w := range f.Warnings {
			fmt.Printf("  %s\n", w)
		}
	}
	return nil
}

func last(v []float32) float32 {
	if len(v) == 0 {
		return 0
	}
	return v[len(v)-1]
}

func cmdChunks(args []string) error {
	fs := flag.NewFlagSet("chunks", flag.ExitOnError)
	typeFilter := fs.String("type", "", "Only show chunks whose type name contains this")
	e, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: cgftool chunks [-type name] <file>")
		os.Exit(1)
	}

	f, err := e.decode(fs.Arg(0))
	if err != nil {
		return err
	}

	filter := strings.ToLower(*typeFilter)
	fmt.Printf("%6s  %-24s %7s %10s %10s  %s\n", "ID", "TYPE", "VERSION", "OFFSET", "SIZE", "DECODED")
	for _, entry := range f.Header.Entries {
		typ := entry.Type.String()
		if filter != "" && !strings.Contains(strings.ToLower(typ), filter) {
			continue
		}
		_, decoded := f.Chunks[entry.ID]
		fmt.Printf("%6d  %-24s %#7x %10d %10d  %v\n", entry.ID, typ, entry.Version, entry.Offset, entry.Size, decoded)
	}
	return nil
}

func cmdSkeleton(args []string) error {
	fs := flag.NewFlagSet("skeleton", flag.ExitOnError)
	showMatrix := fs.Bool("m", false, "Print bind translations")
	e, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: cgftool skeleton [-m] <file.chr>")
		os.Exit(1)
	}

	f, err := e.decode(fs.Arg(0))
	if err != nil {
		return err
	}
	cb, ok := cgf.First[*cgf.CompiledBones](f)
	if !ok {
		return fmt.Errorf("%s: no compiled bones chunk", fs.Arg(0))
	}
	skel, err := cgf.NewSkeleton(cb)
	if err != nil {
		return err
	}

	children := skel.Children()
	var walk func(i, depth int)
	walk = func(i, depth int) {
		b := skel.Bones[i]
		fmt.Printf("%s%s [%d] ctrl=0x%08X", strings.Repeat("  ", depth), b.Name, i, b.ControllerID)
		if *showMatrix {
			t := skel.BindMatrix(i).Col(3)
			fmt.Printf(" at (%.3f, %.3f, %.3f)", t[0], t[1], t[2])
		}
		fmt.Println()
		for _, c := range children[i] {
			walk(c, depth+1)
		}
	}
	for _, r := range skel.Roots() {
		walk(r, 0)
	}
	fmt.Fprintf(os.Stderr, "\n(%d bones)\n", skel.Len())
	return nil
}

func cmdConfig(args []string) error {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	write := fs.String("write", "", "Save the effective config to this file (\"user\" = user config dir)")
	e, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()

	switch *write {
	case "":
		return e.cfg.Write(os.Stdout)
	case "user":
		if err := e.cfg.Save(); err != nil {
			return err
		}
		fmt.Printf("Saved: %s\n", filepath.Join(config.ConfigDir(), "config.yaml"))
	default:
		if err := e.cfg.SaveTo(*write); err != nil {
			return err
		}
		fmt.Printf("Saved: %s\n", *write)
	}
	return nil
}
