package main

import (
	"os"

	"github.com/okian/rally/internal/adapters/export"
	"github.com/urfave/cli/v2"
)

func exportCommand() *cli.Command {
	return &cli.Command{
		Name:  "export-xlsx",
		Usage: "write the ladder and win/loss table to a workbook",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Value: "ladder.xlsx", Usage: "output file"},
		},
		Action: withService(func(c *cli.Context, e *env) error {
			ladder, err := e.svc.Ladder(c.Context)
			if err != nil {
				return err
			}
			table, err := e.svc.WinLossTable(c.Context)
			if err != nil {
				return err
			}
			b, err := export.LadderWorkbook(ladder, table)
			if err != nil {
				return err
			}
			return writeFile(e, c.String("out"), b)
		}),
	}
}

func chartCommand() *cli.Command {
	return &cli.Command{
		Name:      "chart",
		Usage:     "render a player's rating history as PNG",
		ArgsUsage: "PLAYER",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "output file, defaults to <name>.png"},
		},
		Action: withService(func(c *cli.Context, e *env) error {
			a, err := args(c, 1)
			if err != nil {
				return err
			}
			p, err := e.player(c.Context, a[0])
			if err != nil {
				return err
			}
			points, err := e.svc.RatingHistory(c.Context, p.ID)
			if err != nil {
				return err
			}
			b, err := export.RatingChart(p.Name, points)
			if err != nil {
				return err
			}
			out := c.String("out")
			if out == "" {
				out = p.Name + ".png"
			}
			return writeFile(e, out, b)
		}),
	}
}

func writeFile(e *env, path string, b []byte) error {
	if err := os.WriteFile(path, b, 0o644); err != nil { //nolint:gosec // user-chosen export path
		return err
	}
	e.out.line("wrote %s (%d bytes)", path, len(b))
	return nil
}
