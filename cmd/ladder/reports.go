package main

import (
	"strconv"
	"strings"
	"time"

	"github.com/okian/rally/internal/domain/types"
	"github.com/urfave/cli/v2"
)

func ladderCommand() *cli.Command {
	return &cli.Command{
		Name:  "ladder",
		Usage: "rank players by mu - 3 sigma",
		Action: withService(func(c *cli.Context, e *env) error {
			entries, err := e.svc.Ladder(c.Context)
			if err != nil {
				return err
			}
			return e.out.emit(entries, ladderHeader, func() [][]string { return ladderRows(entries) })
		}),
	}
}

var ladderHeader = []string{"#", "PLAYER", "SKILL", "MU", "SIGMA", "LAST"}

func ladderRows(entries []types.LadderEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, l := range entries {
		rows = append(rows, []string{strconv.Itoa(l.Rank), l.Name, f2(l.Conservative), f2(l.Mu), f2(l.Sigma), arrow(l.Delta)})
	}
	return rows
}

func headToHeadCommand() *cli.Command {
	return &cli.Command{
		Name:      "h2h",
		Usage:     "show the record between two players",
		ArgsUsage: "PLAYER1 PLAYER2",
		Action: withService(func(c *cli.Context, e *env) error {
			a, err := args(c, 2)
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
			h, err := e.svc.HeadToHead(c.Context, p1.ID, p2.ID)
			if err != nil {
				return err
			}
			if e.out.json {
				return e.out.emit(h, nil, nil)
			}
			e.out.line("%s %d - %d %s (%d played)", h.Player1Name, h.Player1Wins, h.Player2Wins, h.Player2Name, h.Matches)
			return nil
		}),
	}
}

func winLossCommand() *cli.Command {
	return &cli.Command{
		Name:  "wlt",
		Usage: "win/loss table ordered by win rate",
		Action: withService(func(c *cli.Context, e *env) error {
			table, err := e.svc.WinLossTable(c.Context)
			if err != nil {
				return err
			}
			return e.out.emit(table, []string{"PLAYER", "P", "W", "L", "WIN%", "FORM"}, func() [][]string {
				rows := make([][]string, 0, len(table))
				for _, t := range table {
					rows = append(rows, []string{t.Name, strconv.Itoa(t.Played), strconv.Itoa(t.Wins), strconv.Itoa(t.Losses), pct(t.WinPct), strings.Join(t.Form, "")})
				}
				return rows
			})
		}),
	}
}

func predictCommand() *cli.Command {
	return &cli.Command{
		Name:      "predict",
		Usage:     "estimate the chance that PLAYER1 beats PLAYER2",
		ArgsUsage: "PLAYER1 PLAYER2",
		Action: withService(func(c *cli.Context, e *env) error {
			a, err := args(c, 2)
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
			pr, err := e.svc.Predict(c.Context, p1.ID, p2.ID)
			if err != nil {
				return err
			}
			return e.out.emit(pr, []string{"MODEL", "P(" + p1.Name + " wins)"}, func() [][]string {
				return [][]string{
					{"skill", pct(pr.ModelSkill * 100)},
					{"historical", pct(pr.ModelHistorical * 100)},
					{"blended", pct(pr.Blended * 100)},
				}
			})
		}),
	}
}

func weeklyCommand() *cli.Command {
	return &cli.Command{
		Name:  "weekly",
		Usage: "weekly highlights, the current Sunday-Saturday week by default",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "start", Usage: "window start"},
			&cli.StringFlag{Name: "end", Usage: "window end"},
			&cli.StringFlag{Name: "since", Usage: `window from this time until now, e.g. "last monday"`},
		},
		Action: withService(func(c *cli.Context, e *env) error {
			now := time.Now()
			var start, end time.Time
			var err error
			switch {
			case c.IsSet("since"):
				if start, err = parseTime(c.String("since"), now); err != nil {
					return err
				}
				end = now
			default:
				if s := c.String("start"); s != "" {
					if start, err = parseTime(s, now); err != nil {
						return err
					}
				}
				if s := c.String("end"); s != "" {
					if end, err = parseTime(s, now); err != nil {
						return err
					}
				}
			}
			w, err := e.svc.WeeklySummary(c.Context, start, end)
			if err != nil {
				return err
			}
			return e.out.emit(w, []string{"HIGHLIGHT", "VALUE"}, func() [][]string { return weeklyRows(w) })
		}),
	}
}

func weeklyRows(w types.WeeklySummary) [][]string {
	rows := [][]string{
		{"window", w.Start.Format("2006-01-02") + " .. " + w.End.Format("2006-01-02")},
		{"matches", strconv.Itoa(w.Matches)},
		{"players", strconv.Itoa(w.Players)},
	}
	if d := w.BiggestClimber; d != nil {
		rows = append(rows, []string{"biggest climber", d.Name + " +" + f2(d.Change)})
	}
	if d := w.BiggestFaller; d != nil {
		rows = append(rows, []string{"biggest faller", d.Name + " " + f2(d.Change)})
	}
	if r := w.BestWinRate; r != nil {
		rows = append(rows, []string{"best win rate", r.Name + " " + pct(r.WinPct)})
	}
	if r := w.WorstWinRate; r != nil {
		rows = append(rows, []string{"worst win rate", r.Name + " " + pct(r.WinPct)})
	}
	if p := w.TopPairing; p != nil {
		rows = append(rows, []string{"top pairing", p.Player1Name + " v " + p.Player2Name + " (" + strconv.Itoa(p.Matches) + ")"})
	}
	return rows
}
