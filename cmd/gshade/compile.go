package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
	"github.com/soypat/gshade/glcache"
	"github.com/soypat/gshade/glprog"
	"github.com/soypat/gshade/gshadeaux"
	"github.com/urfave/cli"
)

// Compile builds the render and pick variants of the scene through a program
// cache and prints what each linked program exposes.
func Compile(ctx *cli.Context) error {
	cfg, err := loadScene(ctx)
	if err != nil {
		return err
	}
	s, _, err := sceneState(cfg, "")
	if err != nil {
		return err
	}
	programmer, err := cfg.Programmer()
	if err != nil {
		return err
	}

	var dev glprog.Device
	if ctx.Bool("gpu") {
		_, term, err := gshadeaux.StartWindow(64, 64, "gshade compile")
		if err != nil {
			return err
		}
		defer term()
		dev, err = glprog.NewGLDevice()
		if err != nil {
			return err
		}
	} else {
		headless := glprog.NewHeadless()
		if ctx.Bool("trace") {
			headless.SetTrace(os.Stdout)
		}
		dev = headless
	}

	cache := glcache.New(dev, cfg.Budget(), glcache.Config{})
	defer cache.Reset()

	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mode", "Fingerprint", "Handle", "Uniforms", "Status"})
	var failed bool
	for _, mode := range []gshade.Mode{gshade.ModeRender, gshade.ModePick} {
		fp := s.Fingerprint(mode)
		shape := s.Shape(mode)
		prog, err := cache.GetOrCreate(fp, func() (glbuild.Source, error) {
			return programmer.Compose(shape)
		})
		if err != nil {
			failed = true
			status := err.Error()
			var cerr *glprog.CompileError
			if errors.As(err, &cerr) {
				status = cerr.Stage.String() + " stage failed"
				fmt.Fprintln(os.Stderr, cerr.Annotated())
			}
			table.Append([]string{mode.String(), string(fp), "-", "-", status})
			continue
		}
		table.Append([]string{
			mode.String(),
			string(fp),
			fmt.Sprintf("%d", prog.Handle()),
			fmt.Sprintf("%d", len(prog.Uniforms())),
			"ok",
		})
	}
	stats := cache.Stats()
	table.SetFooter([]string{"", "", "", "COMPILED", fmt.Sprintf("%d/%d", stats.Misses-stats.Failures, stats.Misses)})
	table.Render()
	fmt.Print(buf.String())
	if failed {
		return errors.New("one or more variants failed to compile")
	}
	return nil
}
