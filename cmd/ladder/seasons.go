package main

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"
)

func seasonCommand() *cli.Command {
	return &cli.Command{
		Name:  "season",
		Usage: "inspect and switch seasons",
		Subcommands: []*cli.Command{
			{
				Name:  "current",
				Usage: "print the season new matches are tagged with",
				Action: withService(func(c *cli.Context, e *env) error {
					s, err := e.svc.CurrentSeason(c.Context)
					if err != nil {
						return err
					}
					return e.out.emit(map[string]int{"season": s}, []string{"SEASON"}, func() [][]string {
						return [][]string{{strconv.Itoa(s)}}
					})
				}),
			},
			{
				Name:      "set",
				Usage:     "switch the current season",
				ArgsUsage: "N",
				Action: withService(func(c *cli.Context, e *env) error {
					n, err := seasonArg(c)
					if err != nil {
						return err
					}
					if err := e.svc.SetCurrentSeason(c.Context, n); err != nil {
						return err
					}
					e.out.line("current season is %d", n)
					return nil
				}),
			},
			{
				Name:  "list",
				Usage: "list seasons with matches",
				Action: withService(func(c *cli.Context, e *env) error {
					s, err := e.svc.Seasons(c.Context)
					if err != nil {
						return err
					}
					return e.out.emit(s, []string{"SEASON", ""}, func() [][]string {
						rows := make([][]string, 0, len(s.Available))
						for _, n := range s.Available {
							mark := ""
							if n == s.Current {
								mark = "current"
							}
							rows = append(rows, []string{strconv.Itoa(n), mark})
						}
						return rows
					})
				}),
			},
			{
				Name:      "ladder",
				Usage:     "ladder computed from one season's matches only",
				ArgsUsage: "N",
				Action: withService(func(c *cli.Context, e *env) error {
					n, err := seasonArg(c)
					if err != nil {
						return err
					}
					entries, err := e.svc.SeasonLadder(c.Context, n)
					if err != nil {
						return err
					}
					return e.out.emit(entries, ladderHeader, func() [][]string { return ladderRows(entries) })
				}),
			},
		},
	}
}

func seasonArg(c *cli.Context) (int, error) {
	a, err := args(c, 1)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(a[0])
	if err != nil {
		return 0, fmt.Errorf("season: %w", err)
	}
	return n, nil
}
