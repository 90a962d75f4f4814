package services

import (
	"budgetwise/internal/core"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Presence tells whether a bill shows up on a day and whether that
// appearance is a projection rather than the backend's next due date.
type Presence struct {
	Present   bool
	Projected bool
}

// Occurrence is a bill placed on a calendar day.
type Occurrence struct {
	Bill      core.Bill `json:"bill"`
	Date      core.Date `json:"date"`
	Projected bool      `json:"projected"`
}

// MonthBucket collects the occurrences of one month of a year view.
// Month is zero based (0 = January).
type MonthBucket struct {
	Month   int             `json:"month"`
	Entries []Occurrence    `json:"entries"`
	Total   decimal.Decimal `json:"total"`
}

// IsDueOn decides whether bill appears on day.
//
// A NextDueDate on the same day always wins and is not projected. Days
// before the anchor never match. Otherwise the recurrence rule decides and
// any match is projected. Bills without an anchor never appear.
func IsDueOn(bill core.Bill, day core.Date) Presence {
	if bill.DueDate.IsZero() {
		return Presence{}
	}
	if !bill.NextDueDate.IsZero() && bill.NextDueDate.SameDay(day) {
		return Presence{Present: true}
	}
	if day.BeforeDay(bill.DueDate) {
		return Presence{}
	}
	rule, err := GetProjectionRule(bill.Recurrence)
	if err != nil {
		return Presence{}
	}
	if rule.Matches(bill.DueDate, day) {
		return Presence{Present: true, Projected: projectedFlag(bill, day)}
	}
	return Presence{}
}

func projectedFlag(bill core.Bill, day core.Date) bool {
	if bill.NextDueDate.IsZero() {
		return true
	}
	return !bill.NextDueDate.SameDay(day)
}

// BillsOnDate returns the bills present on day in source order.
func BillsOnDate(bills []core.Bill, day core.Date) []Occurrence {
	var out []Occurrence
	for _, b := range bills {
		if p := IsDueOn(b, day); p.Present {
			out = append(out, Occurrence{Bill: b, Date: day, Projected: p.Projected})
		}
	}
	return out
}

// MonthGrid returns the full Sunday-start weeks that cover the month
// containing day. The result length is always a multiple of 7.
func MonthGrid(day core.Date) []core.Date {
	first := core.NewDate(day.Year(), day.Month(), 1)
	last := core.NewDate(day.Year(), day.Month(), core.DaysIn(day.Year(), day.Month()))

	start := first.AddDays(-int(first.Weekday() - time.Sunday))
	end := last.AddDays(int(time.Saturday - last.Weekday()))

	var grid []core.Date
	for d := start; !end.BeforeDay(d); d = d.AddDays(1) {
		grid = append(grid, d)
	}
	return grid
}

// YearBuckets projects every bill over year and groups the occurrences by
// month. Each (bill, day) pair appears at most once; entries are ordered by
// day and then by source order.
func YearBuckets(bills []core.Bill, year int) []MonthBucket {
	buckets := make([]MonthBucket, 12)
	for m := range buckets {
		buckets[m] = MonthBucket{Month: m, Entries: []Occurrence{}, Total: decimal.Zero}
	}

	type key struct {
		id   int64
		yday int
	}
	seen := make(map[key]struct{})

	for _, b := range bills {
		for _, occ := range matchesInYear(b, year) {
			k := key{id: b.ID, yday: occ.Date.YearDay()}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			m := occ.Date.Month() - 1
			buckets[m].Entries = append(buckets[m].Entries, occ)
		}
	}

	for m := range buckets {
		entries := buckets[m].Entries
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].Date.BeforeDay(entries[j].Date)
		})
		total := decimal.Zero
		for _, e := range entries {
			total = total.Add(e.Bill.Amount)
		}
		buckets[m].Total = total
	}
	return buckets
}

// matchesInYear walks every day of year once for a single bill.
func matchesInYear(bill core.Bill, year int) []Occurrence {
	if bill.DueDate.IsZero() {
		return nil
	}
	var out []Occurrence
	end := core.NewDate(year, 12, 31)
	for d := core.NewDate(year, 1, 1); !end.BeforeDay(d); d = d.AddDays(1) {
		if p := IsDueOn(bill, d); p.Present {
			out = append(out, Occurrence{Bill: bill, Date: d, Projected: p.Projected})
		}
	}
	return out
}

// SanitizeBills drops bills the projector cannot place and reports them.
func SanitizeBills(bills []core.Bill) ([]core.Bill, []core.IntegrityIssue) {
	clean := make([]core.Bill, 0, len(bills))
	var issues []core.IntegrityIssue
	for _, b := range bills {
		if b.DueDate.IsZero() {
			issues = append(issues, core.IntegrityIssue{
				Kind:   core.IssueKindBill,
				ID:     b.ID,
				Field:  "dueDate",
				Reason: "missing due date",
			})
			continue
		}
		clean = append(clean, b)
	}
	return clean, issues
}
