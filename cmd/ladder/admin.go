package main

import (
	"errors"

	"github.com/urfave/cli/v2"
)

const confirmPhrase = "DELETE"

var errNotConfirmed = errors.New("refusing to clear data without --confirm " + confirmPhrase)

func recomputeCommand() *cli.Command {
	return &cli.Command{
		Name:  "recompute",
		Usage: "replay every match from default ratings",
		Action: withService(func(c *cli.Context, e *env) error {
			if err := e.svc.Recompute(c.Context); err != nil {
				return err
			}
			e.out.line("ratings recomputed")
			return nil
		}),
	}
}

func verifyCommand() *cli.Command {
	return &cli.Command{
		Name:  "verify",
		Usage: "check stored ratings against a fresh replay",
		Action: withService(func(c *cli.Context, e *env) error {
			if err := e.svc.Verify(c.Context); err != nil {
				return err
			}
			e.out.line("ok")
			return nil
		}),
	}
}

func clearCommand() *cli.Command {
	return &cli.Command{
		Name:  "clear-all-data",
		Usage: "delete every player, match and snapshot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "confirm", Usage: "must be " + confirmPhrase},
		},
		Action: withService(func(c *cli.Context, e *env) error {
			if c.String("confirm") != confirmPhrase {
				return errNotConfirmed
			}
			if err := e.svc.ClearAll(c.Context); err != nil {
				return err
			}
			e.out.line("all data cleared")
			return nil
		}),
	}
}
