package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/soypat/gshade"
	"github.com/urfave/cli"
)

// PrintFingerprints prints a table of the scene's fingerprints per mode.
func PrintFingerprints(ctx *cli.Context) error {
	cfg, err := loadScene(ctx)
	if err != nil {
		return err
	}
	s, _, err := sceneState(cfg, "")
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Mode", "Fingerprint", "Hash"})
	for _, mode := range []gshade.Mode{gshade.ModeRender, gshade.ModePick} {
		fp := s.Fingerprint(mode)
		table.Append([]string{
			mode.String(),
			string(fp),
			fmt.Sprintf("%016x", fp.Hash()),
		})
	}
	table.Render()
	return nil
}
