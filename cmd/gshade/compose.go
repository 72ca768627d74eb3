package main

import (
	"fmt"
	"os"

	"github.com/soypat/gshade"
	"github.com/soypat/gshade/glbuild"
	"github.com/soypat/gshade/gshadeaux"
	"github.com/urfave/cli"
)

// Compose prints the sources of the scene's variant.
func Compose(ctx *cli.Context) error {
	cfg, err := loadScene(ctx)
	if err != nil {
		return err
	}
	s, mode, err := sceneState(cfg, ctx.String("mode"))
	if err != nil {
		return err
	}
	prog, err := cfg.Programmer()
	if err != nil {
		return err
	}
	src, err := prog.Compose(s.Shape(mode))
	if err != nil {
		return err
	}
	vert, frag := src.Vertex, src.Fragment
	if ctx.Bool("annotate") {
		vert = glbuild.AppendAnnotated(nil, vert)
		frag = glbuild.AppendAnnotated(nil, frag)
	}
	out := make([]byte, 0, len(vert)+len(frag)+256)
	out = append(out, "// vertex "...)
	out = append(out, string(s.Fingerprint(mode))...)
	out = append(out, '\n')
	out = append(out, vert...)
	out = append(out, "\n// fragment\n"...)
	out = append(out, frag...)
	out = append(out, "\n// uniforms:"...)
	for _, u := range src.Uniforms {
		out = append(out, ' ')
		out = u.AppendName(out)
	}
	out = append(out, "\n// attributes:"...)
	for _, a := range src.Attributes {
		out = append(out, ' ')
		out = a.AppendName(out)
	}
	out = append(out, '\n')
	_, err = os.Stdout.Write(out)
	return err
}

// sceneState applies the configured scene to a fresh state. override, if
// not empty, replaces the configured traversal mode.
func sceneState(cfg gshadeaux.Config, override string) (*gshade.State, gshade.Mode, error) {
	s := gshade.NewState()
	if err := cfg.Scene.Apply(s); err != nil {
		return nil, 0, fmt.Errorf("scene: %w", err)
	}
	sc := cfg.Scene
	if override != "" {
		sc.Mode = override
	}
	mode, err := sc.TraversalMode()
	if err != nil {
		return nil, 0, err
	}
	logger.Infof("scene has %d lights and %d texture layers", s.NumLights(), s.NumTextureLayers())
	return s, mode, nil
}
