package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/okian/rally/internal/adapters/repository"
	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/config"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/logger"
	"github.com/urfave/cli/v2"
)

// env is what every command action receives.
type env struct {
	svc *service.Service
	out printer
}

type actionFunc func(c *cli.Context, e *env) error

// withService opens the store and starts a service for the duration of fn.
func withService(fn actionFunc) cli.ActionFunc {
	return func(c *cli.Context) error {
		ctx := c.Context
		cfg, err := config.Load(ctx)
		if err != nil {
			return err
		}
		if c.IsSet("driver") {
			cfg.DBDriver = c.String("driver")
		}
		if c.IsSet("dsn") {
			cfg.DBDSN = c.String("dsn")
		}

		log := logger.Nop()
		if c.Bool("verbose") {
			if err := logger.InitWith(logger.WithWriter(c.App.ErrWriter)); err != nil {
				return err
			}
			_ = logger.SetLevelString("debug")
			log = logger.Get()
		}

		store, err := repository.Open(ctx, cfg.DBDriver, cfg.DBDSN, repository.WithLogger(log.Named("store")))
		if err != nil {
			return err
		}
		defer store.Close()

		svc := service.New(store,
			service.WithLogger(log),
			service.WithQueueSize(cfg.WriterQueueSize),
			service.WithHistoryLimits(cfg.DefaultHistoryLimit, cfg.MaxHistoryLimit),
			service.WithDefaultSeason(cfg.DefaultSeason),
		)
		if err := svc.Start(ctx); err != nil {
			return err
		}
		defer svc.Stop(context.WithoutCancel(ctx))

		return fn(c, &env{svc: svc, out: printer{w: c.App.Writer, json: c.Bool("json")}})
	}
}

// player resolves a numeric id or a case-insensitive name.
func (e *env) player(ctx context.Context, arg string) (model.Player, error) {
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		return e.svc.Player(ctx, id)
	}
	players, err := e.svc.Players(ctx)
	if err != nil {
		return model.Player{}, err
	}
	for _, p := range players {
		if strings.EqualFold(p.Name, arg) {
			return p, nil
		}
	}
	return model.Player{}, fmt.Errorf("no player named %q", arg)
}

// args checks the positional argument count.
func args(c *cli.Context, n int) ([]string, error) {
	if c.NArg() != n {
		return nil, fmt.Errorf("%s: expected %d argument(s), got %d (usage: %s %s)",
			c.Command.Name, n, c.NArg(), c.Command.Name, c.Command.ArgsUsage)
	}
	return c.Args().Slice(), nil
}
