package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/okian/rally/internal/adapters/repository"
	"github.com/okian/rally/internal/domain/ledger"
	"github.com/okian/rally/internal/domain/model"
	"github.com/urfave/cli/v2"
)

const nameAttempts = 20

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "fill the ladder with fake players and matches",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "players", Value: 8},
			&cli.IntFlag{Name: "matches", Value: 40},
			&cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed, same seed gives the same data"},
		},
		Action: withService(func(c *cli.Context, e *env) error {
			nPlayers, nMatches := c.Int("players"), c.Int("matches")
			if nPlayers < 2 {
				return errors.New("seed: need at least 2 players")
			}
			faker := gofakeit.New(uint64(c.Int64("seed"))) //nolint:gosec // seed is a user flag

			players := make([]model.Player, 0, nPlayers)
			for len(players) < nPlayers {
				p, err := seedPlayer(c, e, faker)
				if err != nil {
					return err
				}
				players = append(players, p)
			}

			at := time.Now().UTC().Add(-time.Duration(nMatches) * time.Hour).Truncate(time.Second)
			for i := 0; i < nMatches; i++ {
				a := faker.IntN(len(players))
				b := faker.IntN(len(players) - 1)
				if b >= a {
					b++
				}
				win := 11 + faker.IntN(3)
				lose := faker.IntN(win - 1)
				s1, s2 := win, lose
				if faker.Bool() {
					s1, s2 = lose, win
				}
				at = at.Add(time.Duration(30+faker.IntN(60)) * time.Minute)
				playedAt := at
				if _, _, err := e.svc.RecordMatch(c.Context, ledger.RecordRequest{
					Player1ID: players[a].ID, Player2ID: players[b].ID,
					Score1: s1, Score2: s2, PlayedAt: &playedAt,
				}, ""); err != nil {
					return fmt.Errorf("seed match %d: %w", i+1, err)
				}
			}
			e.out.line("seeded %d players and %d matches", nPlayers, nMatches)
			return nil
		}),
	}
}

// seedPlayer registers a random name, retrying when it is already taken.
func seedPlayer(c *cli.Context, e *env, faker *gofakeit.Faker) (model.Player, error) {
	var lastErr error
	for range nameAttempts {
		p, err := e.svc.RegisterPlayer(c.Context, faker.FirstName()+" "+faker.LastName()[:1])
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return model.Player{}, err
		}
		lastErr = err
	}
	return model.Player{}, fmt.Errorf("seed: no free player name: %w", lastErr)
}
