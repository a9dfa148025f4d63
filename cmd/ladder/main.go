// Command ladder administers and reports on the rally ladder from a shell.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "ladder:", err)
		os.Exit(1)
	}
}

func newApp(out, errOut io.Writer) *cli.App {
	return &cli.App{
		Name:      "ladder",
		Usage:     "table-tennis skill ladder",
		Writer:    out,
		ErrWriter: errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "driver", Usage: "storage driver: sqlite or postgres", EnvVars: []string{"RALLY_DB_DRIVER"}},
			&cli.StringFlag{Name: "dsn", Usage: "database file or connection URL", EnvVars: []string{"RALLY_DB_DSN"}},
			&cli.BoolFlag{Name: "json", Usage: "print JSON instead of tables"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log to stderr"},
		},
		Commands: []*cli.Command{
			addPlayerCommand(),
			removePlayerCommand(),
			recordMatchCommand(),
			deleteMatchCommand(),
			ladderCommand(),
			headToHeadCommand(),
			winLossCommand(),
			matchHistoryCommand(),
			playerStatsCommand(),
			ratingHistoryCommand(),
			predictCommand(),
			weeklyCommand(),
			seasonCommand(),
			recomputeCommand(),
			verifyCommand(),
			clearCommand(),
			exportCommand(),
			chartCommand(),
			seedCommand(),
			loadtestCommand(),
		},
	}
}
