package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/Faultbox/cryconv/internal/batch"
	"github.com/Faultbox/cryconv/internal/logger"
)

// animList is a repeatable -anim flag.
type animList []string

func (a *animList) String() string     { return strings.Join(*a, ",") }
func (a *animList) Set(v string) error { *a = append(*a, v); return nil }

func cmdConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	mtl := fs.String("mtl", "", "Material file for every model")
	name := fs.String("name", "", "Output name (combines all models into one document)")
	var anims animList
	fs.Var(&anims, "anim", "Animation file (repeatable)")
	e, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: cgftool convert [options] <model>...")
		os.Exit(1)
	}

	var jobs []batch.Job
	if *name != "" {
		job := batch.Job{Name: *name}
		for _, m := range fs.Args() {
			job.Instances = append(job.Instances, batch.Placement{Model: m, Material: *mtl, Animations: anims})
		}
		jobs = append(jobs, job)
	} else {
		for _, m := range fs.Args() {
			jobs = append(jobs, batch.Job{Model: m, Material: *mtl, Animations: anims})
		}
	}
	m := &batch.Manifest{Jobs: jobs}
	if err := m.Validate(); err != nil {
		return err
	}
	return e.run(m.Jobs, "")
}

func cmdBatch(args []string) error {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	report := fs.String("report", "", "Write a YAML report of every job")
	e, err := parseArgs(fs, args)
	if err != nil {
		return err
	}
	defer e.Close()

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: cgftool batch [-report file] <jobs.yaml>")
		os.Exit(1)
	}

	m, err := batch.LoadManifest(fs.Arg(0))
	if err != nil {
		return err
	}
	return e.run(m.Jobs, *report)
}

// run converts jobs and prints a summary. Interrupts cancel the
// remaining jobs.
func (e *env) run(jobs []batch.Job, reportPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := e.cfg.Convert
	results, err := batch.Run(ctx, batch.Config{
		Source:         e.files,
		Registry:       e.registry,
		Materials:      e.materials,
		OutputDir:      c.OutputDir,
		Binary:         c.Binary,
		KeepLODs:       !c.SkipLODs,
		SkipAnimations: c.SkipAnimations,
		TextureExt:     c.TextureExt,
		Workers:        c.Workers,
		Logger:         logger.Log,
		Progress:       2 * time.Second,
	}, jobs)

	for _, r := range results {
		if r.Success {
			fmt.Printf("%s -> %s (%d instances, %d warnings)\n", r.Job, r.Output, r.Stats.Instances, r.Warnings)
		}
	}

	if reportPath != "" {
		f, ferr := os.Create(reportPath)
		if ferr != nil {
			return ferr
		}
		if werr := batch.WriteReport(f, results); werr != nil {
			f.Close()
			return werr
		}
		if cerr := f.Close(); cerr != nil {
			return cerr
		}
	}

	if failed := batch.Failed(results); failed > 0 {
		fmt.Fprintf(os.Stderr, "\n%d of %d jobs failed\n", failed, len(results))
		return err
	}
	return nil
}
