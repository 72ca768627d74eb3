package main

import (
	"github.com/soypat/gshade/gshadeaux"
	"github.com/soypat/gshade/log"
	"github.com/urfave/cli"
)

var logger = log.New("gshade")

// setupLogging applies the configured level and lets -v and -vv override it.
func setupLogging(ctx *cli.Context, cfg gshadeaux.Config) error {
	if err := cfg.ApplyLogging(); err != nil {
		return err
	}
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}
	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
	return nil
}

// loadScene reads the scene configuration named by the first argument. With
// no argument the default configuration is used.
func loadScene(ctx *cli.Context) (gshadeaux.Config, error) {
	var cfg gshadeaux.Config
	if ctx.NArg() > 0 {
		var err error
		cfg, err = gshadeaux.LoadFile(ctx.Args().First())
		if err != nil {
			return cfg, err
		}
	}
	return cfg, setupLogging(ctx, cfg)
}
