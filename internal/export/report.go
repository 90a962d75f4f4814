// Package export turns the bill year view and the portfolio into tabular
// reports and writes them to spreadsheet destinations.
package export

import (
	"budgetwise/internal/core"
	"budgetwise/internal/services"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
)

const (
	BillsSheet     = "Bills"
	PortfolioSheet = "Portfolio"
	SummarySheet   = "Summary"
)

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// Table is one sheet of a report. The first row is the header.
type Table struct {
	Name string
	Rows [][]any
}

// Report is the full export for one year.
type Report struct {
	Year        int
	GeneratedAt time.Time
	Tables      []Table
}

// Table returns the named table, if present.
func (r Report) Table(name string) (Table, bool) {
	return lo.Find(r.Tables, func(t Table) bool { return t.Name == name })
}

// Writer writes a report to a destination.
type Writer interface {
	Write(ctx context.Context, report Report) error
}

// YearSource provides the bill year view.
type YearSource interface {
	Refresh(ctx context.Context) error
	Year(year int) services.YearView
}

// PortfolioSource provides the fetched portfolio. Simulated prices are
// never exported.
type PortfolioSource interface {
	Load(ctx context.Context) error
	Baseline() services.SimulationSnapshot
}

// BuildReport lays out the year view and portfolio snapshot as tables.
func BuildReport(year services.YearView, portfolio services.SimulationSnapshot, now time.Time) Report {
	return Report{
		Year:        year.Year,
		GeneratedAt: now,
		Tables: []Table{
			billsTable(year),
			portfolioTable(portfolio.Investments),
			summaryTable(year, portfolio.Summary),
		},
	}
}

// Columns: Month | Date | Bill | Category | Recurrence | Amount | Projected
func billsTable(view services.YearView) Table {
	rows := [][]any{{"Month", "Date", "Bill", "Category", "Recurrence", "Amount", "Projected"}}
	for _, bucket := range view.Months {
		for _, e := range bucket.Entries {
			rows = append(rows, []any{
				monthNames[bucket.Month],
				e.Date.String(),
				e.Bill.Name,
				e.Bill.Category,
				string(e.Bill.Recurrence),
				e.Bill.Amount.InexactFloat64(),
				e.Projected,
			})
		}
	}
	return Table{Name: BillsSheet, Rows: rows}
}

// Columns: Name | Symbol | Type | Quantity | Buy Price | Current Price | Invested | Value | P/L | P/L %
func portfolioTable(investments []core.Investment) Table {
	rows := [][]any{{"Name", "Symbol", "Type", "Quantity", "Buy Price", "Current Price", "Invested", "Value", "P/L", "P/L %"}}
	for _, inv := range investments {
		rows = append(rows, []any{
			inv.Name,
			inv.Symbol,
			string(inv.Type),
			inv.Quantity,
			inv.BuyPrice,
			inv.CurrentPrice,
			inv.TotalInvested,
			inv.CurrentValue,
			inv.ProfitLoss,
			inv.ProfitLossPercent,
		})
	}
	return Table{Name: PortfolioSheet, Rows: rows}
}

func summaryTable(view services.YearView, s core.PortfolioSummary) Table {
	rows := [][]any{{"Metric", "Value"}}
	for _, bucket := range view.Months {
		rows = append(rows, []any{fmt.Sprintf("Bills %s", monthNames[bucket.Month]), bucket.Total.InexactFloat64()})
	}
	rows = append(rows,
		[]any{"Bills total", view.Total.InexactFloat64()},
		[]any{"Total invested", s.TotalInvested},
		[]any{"Current value", s.CurrentValue},
		[]any{"Profit/loss", s.TotalProfitLoss},
		[]any{"Profit/loss %", s.TotalProfitLossPercent},
		[]any{"Holdings", s.TotalInvestments},
		[]any{"Profitable", s.ProfitableInvestments},
		[]any{"Losing", s.LosingInvestments},
	)
	for _, t := range core.InvestmentTypes() {
		if share, ok := s.AssetAllocation[t]; ok {
			rows = append(rows, []any{fmt.Sprintf("Allocation %s", t), share})
		}
	}
	return Table{Name: SummarySheet, Rows: rows}
}

// Service gathers fresh data and hands the report to a Writer.
type Service struct {
	bills     YearSource
	portfolio PortfolioSource
	writer    Writer
	now       func() time.Time
}

func NewService(bills YearSource, portfolio PortfolioSource, writer Writer) *Service {
	return &Service{bills: bills, portfolio: portfolio, writer: writer, now: time.Now}
}

// Build refreshes both sources and returns the report without writing it.
// A failed refresh keeps the last loaded data.
func (s *Service) Build(ctx context.Context, year int) Report {
	if err := s.bills.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Bill refresh failed, exporting last known bills", "error", err)
	}
	if s.portfolio == nil {
		return BuildReport(s.bills.Year(year), services.SimulationSnapshot{Summary: services.RecomputeSummary(nil)}, s.now())
	}
	if err := s.portfolio.Load(ctx); err != nil {
		slog.WarnContext(ctx, "Portfolio load failed, exporting last known holdings", "error", err)
	}
	return BuildReport(s.bills.Year(year), s.portfolio.Baseline(), s.now())
}

// Export builds the report for year and writes it.
func (s *Service) Export(ctx context.Context, year int) error {
	if s.writer == nil {
		return fmt.Errorf("export %d: no writer configured", year)
	}
	report := s.Build(ctx, year)
	if err := s.writer.Write(ctx, report); err != nil {
		return fmt.Errorf("export %d: %w", year, err)
	}
	slog.InfoContext(ctx, "Report exported",
		"year", year,
		"tables", len(report.Tables))
	return nil
}
