package main

import (
	"budgetwise/internal/adapters"
	"budgetwise/internal/backend"
	appcli "budgetwise/internal/cli"
	"budgetwise/internal/core"
	"budgetwise/internal/export"
	"budgetwise/internal/restapi"
	"budgetwise/internal/services"
	"budgetwise/internal/storage"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func (s *session) open(ctx context.Context) (*backend.BackendResult, error) {
	return appcli.CreateBackend(ctx, s.cfg, s.logger)
}

// calendar loads the bill list once; commands are one-shot so there is no
// refresh policy to follow.
func (s *session) calendar(ctx context.Context) (*services.BillCalendar, func(), error) {
	res, err := s.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	cal := services.NewBillCalendar(res.Backend, res.Backend, nil)
	if err := cal.Refresh(ctx); err != nil {
		_ = res.Close()
		return nil, nil, fmt.Errorf("load bills: %w", err)
	}
	return cal, func() { _ = res.Close() }, nil
}

func dateFlag(c *cli.Context) (core.Date, error) {
	raw := c.String("date")
	if raw == "" {
		return core.Today(), nil
	}
	return core.ParseDate(raw)
}

func calendarCommand(s *session) *cli.Command {
	dateOpt := &cli.StringFlag{Name: "date", Usage: "day as YYYY-MM-DD (default today)"}
	return &cli.Command{
		Name:  "calendar",
		Usage: "bill calendar views",
		Subcommands: []*cli.Command{
			{
				Name:  "day",
				Usage: "bills due on a day",
				Flags: []cli.Flag{dateOpt},
				Action: func(c *cli.Context) error {
					day, err := dateFlag(c)
					if err != nil {
						return err
					}
					cal, done, err := s.calendar(c.Context)
					if err != nil {
						return err
					}
					defer done()
					return printOccurrences(c.App.Writer, cal.Day(day))
				},
			},
			{
				Name:  "month",
				Usage: "bills of the month containing a day",
				Flags: []cli.Flag{dateOpt},
				Action: func(c *cli.Context) error {
					day, err := dateFlag(c)
					if err != nil {
						return err
					}
					cal, done, err := s.calendar(c.Context)
					if err != nil {
						return err
					}
					defer done()
					return printMonth(c.App.Writer, cal.Month(day))
				},
			},
			{
				Name:  "year",
				Usage: "bills of a year grouped by month",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Usage: "calendar year (default current)"},
				},
				Action: func(c *cli.Context) error {
					year := c.Int("year")
					if year == 0 {
						year = core.Today().Year()
					}
					cal, done, err := s.calendar(c.Context)
					if err != nil {
						return err
					}
					defer done()
					return printYear(c.App.Writer, cal.Year(year))
				},
			},
		},
	}
}

func billsCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "bills",
		Usage: "bill listings",
		Subcommands: []*cli.Command{
			{
				Name:  "upcoming",
				Usage: "bills due in the next days",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "days", Value: 7, Usage: "look-ahead window"},
				},
				Action: func(c *cli.Context) error {
					days := c.Int("days")
					if days < 1 || days > 366 {
						return fmt.Errorf("days must be between 1 and 366")
					}
					cal, done, err := s.calendar(c.Context)
					if err != nil {
						return err
					}
					defer done()
					return printUpcoming(c.App.Writer, cal.Upcoming(core.Today(), days))
				},
			},
		},
	}
}

func (s *session) portfolio(ctx context.Context, sim *services.Simulator) (*services.PortfolioService, func(), error) {
	res, err := s.open(ctx)
	if err != nil {
		return nil, nil, err
	}
	svc := services.NewPortfolioService(res.Backend, res.Backend, res.Backend, sim)
	if err := svc.Load(ctx); err != nil {
		_ = res.Close()
		return nil, nil, fmt.Errorf("load portfolio: %w", err)
	}
	return svc, func() {
		_ = svc.Close()
		_ = res.Close()
	}, nil
}

func portfolioCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "portfolio",
		Usage: "portfolio views",
		Subcommands: []*cli.Command{
			{
				Name:  "summary",
				Usage: "holdings and aggregate metrics",
				Action: func(c *cli.Context) error {
					svc, done, err := s.portfolio(c.Context, services.NewSimulator())
					if err != nil {
						return err
					}
					defer done()
					return printPortfolio(c.App.Writer, svc.View())
				},
			},
			{
				Name:  "simulate",
				Usage: "run the market simulation for a number of ticks",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "ticks", Value: 10, Usage: "number of price steps"},
				},
				Action: func(c *cli.Context) error {
					ticks := c.Int("ticks")
					if ticks < 1 {
						return fmt.Errorf("ticks must be positive")
					}
					// ticks are driven by hand below
					sim := services.NewSimulator(services.WithInterval(24 * time.Hour))
					_, done, err := s.portfolio(c.Context, sim)
					if err != nil {
						return err
					}
					defer done()

					sim.Start(c.Context)
					snap := sim.Snapshot()
					for i := 0; i < ticks; i++ {
						next, ok := sim.Tick()
						if !ok {
							break
						}
						snap = next
					}
					sim.Stop()
					return printPortfolio(c.App.Writer, snap)
				},
			},
		},
	}
}

func exportCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "write reports",
		Subcommands: []*cli.Command{
			{
				Name:  "xlsx",
				Usage: "write the yearly report as an Excel workbook",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "year", Usage: "report year (default current)"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "output file (default budgetwise-<year>.xlsx)"},
				},
				Action: func(c *cli.Context) error {
					year := c.Int("year")
					if year == 0 {
						year = core.Today().Year()
					}
					path := c.String("out")
					if path == "" {
						path = fmt.Sprintf("budgetwise-%d.xlsx", year)
					}

					res, err := s.open(c.Context)
					if err != nil {
						return err
					}
					defer res.Close()
					cal := services.NewBillCalendar(res.Backend, res.Backend, nil)
					portfolio := services.NewPortfolioService(res.Backend, res.Backend, res.Backend, services.NewSimulator())
					defer portfolio.Close()

					f, err := os.Create(path)
					if err != nil {
						return err
					}
					if err := export.NewService(cal, portfolio, export.NewXLSXWriter(f)).Export(c.Context, year); err != nil {
						_ = f.Close()
						return err
					}
					if err := f.Close(); err != nil {
						return err
					}
					fmt.Fprintf(c.App.Writer, "wrote %s\n", path)
					return nil
				},
			},
		},
	}
}

func syncCommand(s *session) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "copy bills and investments from the REST API into the SQLite mirror",
		Action: func(c *cli.Context) error {
			if s.cfg.APIBaseURL == "" {
				return errors.New("API_BASE_URL is required for sync")
			}
			src := restapi.NewClient(s.cfg.APIBaseURL, s.cfg.APITimeout,
				restapi.WithToken(s.cfg.APIToken),
				restapi.WithRateLimit(s.cfg.APIRateLimit))

			repo, err := storage.NewSQLiteRepository(s.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			mirror := adapters.NewSQLiteAdapter(repo)
			defer mirror.Close()

			result, err := mirror.SyncFrom(c.Context, src)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "synced %d bills and %d investments into %s\n",
				result.Bills, result.Investments, s.cfg.SQLiteDBPath)
			return printIssues(c.App.ErrWriter, result.Issues)
		},
	}
}
