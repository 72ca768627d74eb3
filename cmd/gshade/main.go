package main

import (
	"os"

	"github.com/urfave/cli"
)

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "gshade"
	app.Usage = "inspect the shader variants generated for a scene configuration"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	modeFlag := cli.StringFlag{
		Name:  "mode, m",
		Usage: "traversal mode, render or pick. Defaults to the scene's mode",
	}
	app.Commands = []cli.Command{
		{
			Name:  "compose",
			Usage: "print the GLSL sources composed for a scene",
			Description: `
Load a TOML scene configuration, derive the structural shape of the shading
state and print the vertex and fragment sources generated for it, followed by
the uniforms and attributes they declare.`,
			ArgsUsage: "[scene.toml]",
			Flags: []cli.Flag{
				modeFlag,
				cli.BoolFlag{
					Name:  "annotate, a",
					Usage: "prefix source lines with line numbers",
				},
			},
			Action: Compose,
		},
		{
			Name:      "fingerprint",
			Usage:     "print the render and pick fingerprints of a scene",
			ArgsUsage: "[scene.toml]",
			Action:    PrintFingerprints,
		},
		{
			Name:  "compile",
			Usage: "compile and link the variants of a scene",
			Description: `
Compile the render and pick variants of a scene through the program cache.
Without --gpu sources are checked by a headless device that parses their
declarations. With --gpu a hidden OpenGL context is created and the driver
compiles them; failures are reported with line numbered sources.`,
			ArgsUsage: "[scene.toml]",
			Flags: []cli.Flag{
				cli.BoolFlag{
					Name:  "gpu",
					Usage: "compile on the OpenGL driver instead of the headless device",
				},
				cli.BoolFlag{
					Name:  "trace",
					Usage: "print every headless device call",
				},
			},
			Action: Compile,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}
