package main

import (
	"budgetwise/internal/core"
	"budgetwise/internal/services"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/samber/lo"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func marker(projected bool) string {
	if projected {
		return "projected"
	}
	return "due"
}

func printOccurrences(w io.Writer, occs []services.Occurrence) error {
	if len(occs) == 0 {
		_, err := fmt.Fprintln(w, "no bills")
		return err
	}
	tw := table(w)
	fmt.Fprintln(tw, "DATE\tBILL\tCATEGORY\tRECURRENCE\tAMOUNT\t")
	for _, o := range occs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			o.Date, o.Bill.Name, o.Bill.Category, o.Bill.Recurrence,
			core.FormatAmount(o.Bill.Amount), marker(o.Projected))
	}
	return tw.Flush()
}

func printMonth(w io.Writer, view services.MonthView) error {
	fmt.Fprintf(w, "%s %d\n", time.Month(view.Month), view.Year)
	var occs []services.Occurrence
	for _, cell := range view.Cells {
		if cell.InMonth {
			occs = append(occs, cell.Bills...)
		}
	}
	if err := printOccurrences(w, occs); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "total %s\n", core.FormatAmount(view.Total))
	return err
}

func printYear(w io.Writer, view services.YearView) error {
	tw := table(w)
	fmt.Fprintf(tw, "%d\tBILLS\tTOTAL\t\n", view.Year)
	for _, m := range view.Months {
		fmt.Fprintf(tw, "%s\t%d\t%s\t\n", time.Month(m.Month+1), len(m.Entries), core.FormatAmount(m.Total))
	}
	fmt.Fprintf(tw, "Year\t\t%s\t\n", core.FormatAmount(view.Total))
	return tw.Flush()
}

func printUpcoming(w io.Writer, upcoming []services.UpcomingBill) error {
	if len(upcoming) == 0 {
		_, err := fmt.Fprintln(w, "nothing due")
		return err
	}
	tw := table(w)
	fmt.Fprintln(tw, "IN\tDATE\tBILL\tAMOUNT\t")
	for _, u := range upcoming {
		when := fmt.Sprintf("%dd", u.DaysUntilDue)
		if u.DaysUntilDue == 0 {
			when = "today"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t\n", when, u.Date, u.Bill.Name, core.FormatAmount(u.Bill.Amount))
	}
	return tw.Flush()
}

func printPortfolio(w io.Writer, snap services.SimulationSnapshot) error {
	tw := table(w)
	fmt.Fprintln(tw, "NAME\tTYPE\tQTY\tPRICE\tVALUE\tP/L\tP/L %\t")
	for _, inv := range snap.Investments {
		fmt.Fprintf(tw, "%s\t%s\t%g\t%.2f\t%.2f\t%.2f\t%.2f%%\t%s\n",
			inv.Name, inv.Type, inv.Quantity, inv.CurrentPrice,
			inv.CurrentValue, inv.ProfitLoss, inv.ProfitLossPercent, inv.Trend)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	s := snap.Summary
	fmt.Fprintf(w, "\ninvested %.2f  value %.2f  p/l %.2f (%.2f%%)  %d up / %d down\n",
		s.TotalInvested, s.CurrentValue, s.TotalProfitLoss, s.TotalProfitLossPercent,
		s.ProfitableInvestments, s.LosingInvestments)
	if snap.Running || snap.Ticks > 0 {
		fmt.Fprintf(w, "simulated ticks: %d\n", snap.Ticks)
	}

	types := lo.Keys(s.AssetAllocation)
	slices.Sort(types)
	for _, t := range types {
		fmt.Fprintf(w, "  %-12s %6.2f%%\n", t, s.AssetAllocation[t])
	}
	return nil
}

func printIssues(w io.Writer, issues []core.IntegrityIssue) error {
	for _, issue := range issues {
		if _, err := fmt.Fprintf(w, "skipped %s %d: %s %s\n", issue.Kind, issue.ID, issue.Field, issue.Reason); err != nil {
			return err
		}
	}
	return nil
}
