package main

import (
	"github.com/okian/rally/internal/loadtest"
	"github.com/okian/rally/pkg/logger"
	"github.com/urfave/cli/v2"
)

func loadtestCommand() *cli.Command {
	def := loadtest.DefaultConfig()
	return &cli.Command{
		Name:  "loadtest",
		Usage: "submit matches concurrently to a running server and verify the standings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: def.BaseURL},
			&cli.IntFlag{Name: "players", Value: def.Players},
			&cli.IntFlag{Name: "matches", Value: def.Matches},
			&cli.IntFlag{Name: "workers", Value: def.Workers},
			&cli.Float64Flag{Name: "retry-ratio", Value: def.RetryRatio, Usage: "fraction of matches resent with the same Idempotency-Key"},
			&cli.Int64Flag{Name: "seed", Value: def.Seed},
			&cli.DurationFlag{Name: "timeout", Value: def.Timeout},
		},
		Action: func(c *cli.Context) error {
			cfg := def
			cfg.BaseURL = c.String("url")
			cfg.Players = c.Int("players")
			cfg.Matches = c.Int("matches")
			cfg.Workers = c.Int("workers")
			cfg.RetryRatio = c.Float64("retry-ratio")
			cfg.Seed = c.Int64("seed")
			cfg.Timeout = c.Duration("timeout")
			cfg.Verbose = c.Bool("verbose")

			if err := logger.InitWith(logger.WithWriter(c.App.ErrWriter)); err != nil {
				return err
			}
			if cfg.Verbose {
				_ = logger.SetLevelString("debug")
			}
			stats, err := loadtest.Run(c.Context, cfg, logger.Get())
			if err != nil {
				return err
			}
			p := printer{w: c.App.Writer, json: c.Bool("json")}
			return p.emit(stats, []string{"STAT", "VALUE"}, func() [][]string {
				return [][]string{
					{"players", itoa(stats.PlayersRegistered)},
					{"recorded", itoa(stats.MatchesRecorded)},
					{"replays", itoa(stats.Replays)},
					{"rate limited", itoa(stats.RateLimited)},
					{"failed", itoa(stats.Failed)},
					{"duration", stats.Duration.String()},
					{"matches/s", f2(stats.MatchesPerSecond())},
				}
			})
		},
	}
}
