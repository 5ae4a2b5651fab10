package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/cryconv/pkg/pak"
)

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N files (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: cgftool list <file.pak> [pattern]")
		os.Exit(1)
	}

	archive, err := pak.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, f := range archive.Files() {
		if pattern != "" && !matchPattern(pattern, f) {
			continue
		}
		fmt.Println(f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
	return nil
}

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: cgftool extract <file.pak> <path> [output_dir]")
		os.Exit(1)
	}

	filePath := fs.Arg(1)
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = fs.Arg(2)
	}

	archive, err := pak.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer archive.Close()

	// Patterns keep the archive layout under outputDir.
	if strings.Contains(filePath, "*") {
		pattern := strings.ToLower(filePath)
		count := 0
		for _, f := range archive.Files() {
			if !matchPattern(pattern, f) {
				continue
			}
			if err := extractFile(archive, f, filepath.Join(outputDir, filepath.FromSlash(f))); err != nil {
				fmt.Fprintf(os.Stderr, "Error extracting %s: %v\n", f, err)
				continue
			}
			count++
		}
		fmt.Printf("Extracted %d files to %s\n", count, outputDir)
		return nil
	}

	if !archive.Contains(filePath) {
		return fmt.Errorf("file not found: %s", filePath)
	}
	outputPath := filepath.Join(outputDir, filepath.Base(filepath.FromSlash(strings.ReplaceAll(filePath, "\\", "/"))))
	if err := extractFile(archive, filePath, outputPath); err != nil {
		return err
	}
	fmt.Printf("Extracted: %s\n", outputPath)
	return nil
}

func extractFile(archive *pak.Archive, name, outputPath string) error {
	data, err := archive.ReadFile(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(outputPath, data, 0o644)
}

// matchPattern matches a lowercase glob against the base name, or a
// plain substring against the full path.
func matchPattern(pattern, name string) bool {
	lower := strings.ToLower(name)
	if matched, _ := filepath.Match(pattern, filepath.Base(lower)); matched {
		return true
	}
	return strings.Contains(lower, pattern)
}
