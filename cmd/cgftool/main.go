// cgftool is a CLI utility for inspecting CryEngine chunk files and
// converting them to glTF.
package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "info":
		err = cmdInfo(args)
	case "chunks":
		err = cmdChunks(args)
	case "skeleton", "bones":
		err = cmdSkeleton(args)
	case "convert", "c":
		err = cmdConvert(args)
	case "batch":
		err = cmdBatch(args)
	case "config":
		err = cmdConfig(args)
	case "list", "ls":
		err = cmdList(args)
	case "extract", "x":
		err = cmdExtract(args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`cgftool - CryEngine CGF/CHR/CAF converter

Usage:
  cgftool <command> [options]

Commands:
  info <file>                         Show header, chunk summary and warnings
  chunks <file>                       Dump the chunk table
  skeleton <file.chr>                 Print the bone hierarchy
  convert [options] <model>...        Convert models to .gltf/.glb
  batch [options] <jobs.yaml>         Convert every job in a manifest
  config [-write file]                Print or save the effective config
  list <file.pak> [pattern]           List files in a pak archive
  extract <file.pak> <path> [output]  Extract file(s) from a pak archive

Shared options:
  -config <file>   Config file (default ./cryconv.yaml)
  -data <dir>      Data root, repeatable
  -pak <file>      Pak archive, repeatable
  -out <dir>       Output directory
  -glb             Write binary glTF
  -keep-lods       Keep $lodN nodes
  -skip-anims      Do not load animations
  -workers <n>     Parallel conversions
  -debug           Debug logging

Examples:
  cgftool info objects/props/barrel.cgf
  cgftool convert -data ./Game -glb objects/props/barrel.cgf
  cgftool convert -mtl objects/characters/hero.mtl -anim anims/idle.caf objects/characters/hero.chr
  cgftool batch -pak Objects.pak -report report.yaml jobs.yaml`)
}
