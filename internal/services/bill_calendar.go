package services

import (
	"budgetwise/internal/cache"
	"budgetwise/internal/core"
	"budgetwise/internal/ports"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// BillEventPublisher announces state changes of bills to other processes.
type BillEventPublisher interface {
	PublishBillPaid(ctx context.Context, bill core.Bill) error
}

// MonthCell is one square of the month grid.
type MonthCell struct {
	Date    core.Date    `json:"date"`
	InMonth bool         `json:"inMonth"`
	Bills   []Occurrence `json:"bills"`
}

type MonthView struct {
	Year  int             `json:"year"`
	Month int             `json:"month"`
	Cells []MonthCell     `json:"cells"`
	Total decimal.Decimal `json:"total"`
}

type YearView struct {
	Year   int             `json:"year"`
	Months []MonthBucket   `json:"months"`
	Total  decimal.Decimal `json:"total"`
}

// UpcomingBill is an occurrence within the look-ahead window.
type UpcomingBill struct {
	Occurrence
	DaysUntilDue int `json:"daysUntilDue"`
}

// BillCalendar keeps the last fetched bill list and answers calendar
// queries from it. A failed refresh leaves the previous list in place.
type BillCalendar struct {
	source    ports.BillReader
	payer     ports.BillPayer
	publisher BillEventPublisher
	years     *cache.LRU[yearKey, YearView]

	mu        sync.RWMutex
	version   uint64
	bills     []core.Bill
	issues    []core.IntegrityIssue
	fetchedAt time.Time
}

// NewBillCalendar wires the calendar. payer and publisher may be nil.
func NewBillCalendar(source ports.BillReader, payer ports.BillPayer, publisher BillEventPublisher) *BillCalendar {
	return &BillCalendar{
		source:    source,
		payer:     payer,
		publisher: publisher,
		years:     cache.NewLRU[yearKey, YearView](8, 10*time.Minute),
	}
}

// yearKey ties a cached year view to the bill list it was built from.
type yearKey struct {
	version uint64
	year    int
}

// YearCache exposes the year view cache for registration with a cleanup manager.
func (c *BillCalendar) YearCache() cache.Cleaner {
	return c.years
}

// Refresh fetches bills once. Malformed records are dropped and logged.
func (c *BillCalendar) Refresh(ctx context.Context) error {
	if c.source == nil {
		return errors.New("calendar has no bill source")
	}
	bills, issues, err := c.source.ListBills(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to fetch bills, keeping previous list", "error", err)
		return fmt.Errorf("list bills: %w", err)
	}
	bills, skipped := SanitizeBills(bills)
	issues = append(issues, skipped...)
	for _, issue := range issues {
		slog.WarnContext(ctx, "Skipping malformed bill",
			"bill_id", issue.ID,
			"field", issue.Field,
			"reason", issue.Reason)
	}

	c.mu.Lock()
	c.version++
	c.bills = bills
	c.issues = issues
	c.fetchedAt = time.Now()
	c.mu.Unlock()
	c.years.Purge()

	slog.InfoContext(ctx, "Bills refreshed", "count", len(bills), "skipped", len(issues))
	return nil
}

// Bills returns a copy of the current list.
func (c *BillCalendar) Bills() []core.Bill {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.bills)
}

func (c *BillCalendar) Issues() []core.IntegrityIssue {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.issues)
}

func (c *BillCalendar) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetchedAt
}

// Day lists the bills on a date in source order.
func (c *BillCalendar) Day(day core.Date) []Occurrence {
	return BillsOnDate(c.Bills(), day)
}

// Month builds the Sunday-start grid for the month containing day.
func (c *BillCalendar) Month(day core.Date) MonthView {
	bills := c.Bills()
	view := MonthView{Year: day.Year(), Month: day.Month(), Total: decimal.Zero}
	for _, d := range MonthGrid(day) {
		cell := MonthCell{
			Date:    d,
			InMonth: d.Month() == day.Month(),
			Bills:   BillsOnDate(bills, d),
		}
		if cell.Bills == nil {
			cell.Bills = []Occurrence{}
		}
		if cell.InMonth {
			for _, occ := range cell.Bills {
				view.Total = view.Total.Add(occ.Bill.Amount)
			}
		}
		view.Cells = append(view.Cells, cell)
	}
	return view
}

// Year returns the twelve month buckets for year, cached until the next refresh.
func (c *BillCalendar) Year(year int) YearView {
	c.mu.RLock()
	version, bills := c.version, slices.Clone(c.bills)
	c.mu.RUnlock()

	return c.years.GetOrCompute(yearKey{version: version, year: year}, func() YearView {
		view := YearView{Year: year, Months: YearBuckets(bills, year), Total: decimal.Zero}
		for _, m := range view.Months {
			view.Total = view.Total.Add(m.Total)
		}
		return view
	})
}

// Upcoming lists occurrences from today through today+days, ordered by day.
// Projected days before a bill's NextDueDate belong to periods already paid
// and are left out.
func (c *BillCalendar) Upcoming(from core.Date, days int) []UpcomingBill {
	if days < 0 {
		days = 0
	}
	bills := c.Bills()
	out := []UpcomingBill{}
	for i := 0; i <= days; i++ {
		for _, occ := range BillsOnDate(bills, from.AddDays(i)) {
			if next := occ.Bill.NextDueDate; !next.IsEmpty() && occ.Date.BeforeDay(next) {
				continue
			}
			out = append(out, UpcomingBill{Occurrence: occ, DaysUntilDue: i})
		}
	}
	return out
}

// MarkPaid records a payment through the backend, refreshes the list and
// announces the change. Publishing failures are logged, not returned.
func (c *BillCalendar) MarkPaid(ctx context.Context, id int64) (core.Bill, error) {
	if c.payer == nil {
		return core.Bill{}, errors.New("backend does not accept payments")
	}
	bill, err := c.payer.PayBill(ctx, id)
	if err != nil {
		return core.Bill{}, fmt.Errorf("pay bill %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Bill marked as paid",
		"bill_id", bill.ID,
		"next_due_date", bill.NextDueDate.String())

	if err := c.Refresh(ctx); err != nil {
		slog.WarnContext(ctx, "Refresh after payment failed", "bill_id", id, "error", err)
	}

	if c.publisher != nil {
		if err := c.publisher.PublishBillPaid(ctx, bill); err != nil {
			slog.ErrorContext(ctx, "Failed to publish bill paid event", "bill_id", bill.ID, "error", err)
		}
	}
	return bill, nil
}
