package main

import (
	"strconv"
	"strings"

	"github.com/okian/rally/internal/domain/types"
	"github.com/urfave/cli/v2"
)

func addPlayerCommand() *cli.Command {
	return &cli.Command{
		Name:      "add-player",
		Usage:     "register a player at the default rating",
		ArgsUsage: "NAME",
		Action: withService(func(c *cli.Context, e *env) error {
			a, err := args(c, 1)
			if err != nil {
				return err
			}
			p, err := e.svc.RegisterPlayer(c.Context, a[0])
			if err != nil {
				return err
			}
			return e.out.emit(p, []string{"ID", "NAME", "MU", "SIGMA"}, func() [][]string {
				return [][]string{{id(p.ID), p.Name, f2(p.Mu), f2(p.Sigma)}}
			})
		}),
	}
}

func removePlayerCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove-player",
		Usage:     "delete a player and every match they played",
		ArgsUsage: "PLAYER",
		Action: withService(func(c *cli.Context, e *env) error {
			a, err := args(c, 1)
			if err != nil {
				return err
			}
			p, err := e.player(c.Context, a[0])
			if err != nil {
				return err
			}
			if err := e.svc.RemovePlayer(c.Context, p.ID); err != nil {
				return err
			}
			e.out.line("removed %s", p.Name)
			return nil
		}),
	}
}

func playerStatsCommand() *cli.Command {
	return &cli.Command{
		Name:      "player-stats",
		Usage:     "show a player's record, form, nemesis and victim",
		ArgsUsage: "PLAYER",
		Action: withService(func(c *cli.Context, e *env) error {
			a, err := args(c, 1)
			if err != nil {
				return err
			}
			p, err := e.player(c.Context, a[0])
			if err != nil {
				return err
			}
			st, err := e.svc.PlayerStats(c.Context, p.ID)
			if err != nil {
				return err
			}
			return e.out.emit(st, []string{"FIELD", "VALUE"}, func() [][]string {
				rows := [][]string{
					{"name", st.Name},
					{"mu", f2(st.Mu)},
					{"sigma", f2(st.Sigma)},
					{"skill", f2(st.Conservative)},
					{"peak mu", f2(st.PeakMu)},
					{"record", strconv.Itoa(st.Wins) + "-" + strconv.Itoa(st.Losses)},
					{"win rate", pct(st.WinPct)},
					{"form", strings.Join(st.Form, " ")},
				}
				if st.Nemesis != nil {
					rows = append(rows, []string{"nemesis", opponent(st.Nemesis)})
				}
				if st.Victim != nil {
					rows = append(rows, []string{"victim", opponent(st.Victim)})
				}
				return rows
			})
		}),
	}
}

func ratingHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "rating-history",
		Usage:     "list a player's rating after each match",
		ArgsUsage: "PLAYER",
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
			return e.out.emit(points, []string{"#", "MATCH", "PLAYED", "MU", "SIGMA"}, func() [][]string {
				rows := make([][]string, 0, len(points))
				for _, pt := range points {
					match, played := "", ""
					if pt.PlayedAt != nil {
						match, played = id(pt.MatchID), pt.PlayedAt.Format("2006-01-02 15:04")
					}
					rows = append(rows, []string{strconv.Itoa(pt.Seq), match, played, f2(pt.Mu), f2(pt.Sigma)})
				}
				return rows
			})
		}),
	}
}

func matchHistoryCommand() *cli.Command {
	return &cli.Command{
		Name:      "match-history",
		Usage:     "list matches newest first, for one player or overall",
		ArgsUsage: "[PLAYER]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Usage: "number of recent matches when no player is given"},
		},
		Action: withService(func(c *cli.Context, e *env) error {
			var (
				history []types.HistoryEntry
				err     error
			)
			switch c.NArg() {
			case 0:
				history, err = e.svc.RecentMatches(c.Context, c.Int("limit"))
			case 1:
				p, perr := e.player(c.Context, c.Args().First())
				if perr != nil {
					return perr
				}
				history, err = e.svc.MatchHistory(c.Context, p.ID)
			default:
				_, err = args(c, 1)
			}
			if err != nil {
				return err
			}
			return e.out.emit(history, []string{"ID", "PLAYED", "SEASON", "MATCH", "SCORE", "RESULT"}, func() [][]string {
				rows := make([][]string, 0, len(history))
				for _, h := range history {
					rows = append(rows, []string{
						id(h.MatchID),
						h.PlayedAt.Format("2006-01-02 15:04"),
						strconv.Itoa(h.Season),
						h.Player1Name + " v " + h.Player2Name,
						strconv.Itoa(h.Score1) + "-" + strconv.Itoa(h.Score2),
						h.Result,
					})
				}
				return rows
			})
		}),
	}
}

func opponent(o *types.OpponentSummary) string {
	return o.Label + " (" + pct(o.WinRate*100) + " over " + strconv.Itoa(o.Matches) + ")"
}

func id(v int64) string { return strconv.FormatInt(v, 10) }

func itoa(v int) string { return strconv.Itoa(v) }
