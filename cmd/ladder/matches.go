package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/okian/rally/internal/domain/ledger"
	"github.com/urfave/cli/v2"
)

func recordMatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "record-match",
		Usage:     "record a decided match",
		ArgsUsage: "PLAYER1 PLAYER2 SCORE1 SCORE2",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "at", Usage: `when it was played, RFC3339 or e.g. "yesterday 6pm"`},
			&cli.StringFlag{Name: "key", Usage: "idempotency key"},
		},
		Action: withService(func(c *cli.Context, e *env) error {
			a, err := args(c, 4)
			if err != nil {
				return err
			}
			p1, err := e.player(c.Context, a[0])
			if err != nil {
				return err
			}
			p2, err := e.player(c.Context, a[1])
			if err != nil {
				return err
			}
			s1, err := strconv.Atoi(a[2])
			if err != nil {
				return fmt.Errorf("score1: %w", err)
			}
			s2, err := strconv.Atoi(a[3])
			if err != nil {
				return fmt.Errorf("score2: %w", err)
			}
			req := ledger.RecordRequest{Player1ID: p1.ID, Player2ID: p2.ID, Score1: s1, Score2: s2}
			if at := c.String("at"); at != "" {
				t, err := parseTime(at, time.Now())
				if err != nil {
					return err
				}
				t = t.UTC()
				req.PlayedAt = &t
			}

			m, replayed, err := e.svc.RecordMatch(c.Context, req, c.String("key"))
			if err != nil {
				return err
			}
			if e.out.json {
				return e.out.emit(m, nil, nil)
			}
			suffix := ""
			if replayed {
				suffix = " (already recorded)"
			}
			winner, loser := p1, p2
			if m.WinnerID() == p2.ID {
				winner, loser = p2, p1
			}
			e.out.line("match %d: %s beat %s %d-%d%s", m.ID, winner.Name, loser.Name, max(s1, s2), min(s1, s2), suffix)
			return nil
		}),
	}
}

func deleteMatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete-match",
		Usage:     "delete a match and replay the ratings",
		ArgsUsage: "MATCH_ID",
		Action: withService(func(c *cli.Context, e *env) error {
			a, err := args(c, 1)
			if err != nil {
				return err
			}
			mid, err := strconv.ParseInt(a[0], 10, 64)
			if err != nil {
				return fmt.Errorf("match id: %w", err)
			}
			if err := e.svc.DeleteMatch(c.Context, mid); err != nil {
				return err
			}
			e.out.line("deleted match %d", mid)
			return nil
		}),
	}
}
