package main

import (
	appcli "budgetwise/internal/cli"
	"budgetwise/internal/config"
	"budgetwise/internal/log"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// session carries what every command needs once flags are parsed.
type session struct {
	cfg    *config.Config
	logger *log.Logger
}

func main() {
	s := &session{}

	app := &cli.App{
		Name:  "budgetctl",
		Usage: "inspect bills and portfolio from the terminal",
		Before: func(c *cli.Context) error {
			s.cfg, s.logger = appcli.MustLoad(log.ComponentCLI)
			if backend := c.String("backend"); backend != "" {
				s.cfg.DataBackend = backend
			}
			return nil
		},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "backend",
				Usage: "override DATA_BACKEND (rest, sqlite, memory)",
			},
		},
		Commands: []*cli.Command{
			calendarCommand(s),
			billsCommand(s),
			portfolioCommand(s),
			exportCommand(s),
			syncCommand(s),
			authCommand(s),
		},
	}

	ctx, stop := appcli.SignalContext()
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
