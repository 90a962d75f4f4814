package services

import (
	"budgetwise/internal/core"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestIsDueOn_MonthlyAnchorDays(t *testing.T) {
	for d := 1; d <= 28; d++ {
		b := bill(1, core.Monthly, core.NewDate(2024, 1, d), "10")
		for day := core.NewDate(2024, 1, 1); day.Year() < 2026; day = day.AddDays(1) {
			got := IsDueOn(b, day)
			want := day.Day() == d && !day.BeforeDay(b.DueDate)
			if got.Present != want {
				t.Fatalf("anchor %d on %s: present=%v, want %v", d, day, got.Present, want)
			}
			if got.Present && !got.Projected {
				t.Fatalf("anchor %d on %s: rule match must be projected", d, day)
			}
		}
	}
}

func TestIsDueOn_NeverBeforeAnchor(t *testing.T) {
	anchor := core.NewDate(2025, 6, 15)
	for _, r := range []core.Recurrence{core.Weekly, core.Monthly, core.Quarterly, core.Yearly, core.OneTime} {
		b := bill(1, r, anchor, "10")
		for day := anchor.AddDays(-400); day.BeforeDay(anchor); day = day.AddDays(1) {
			if IsDueOn(b, day).Present {
				t.Fatalf("%s bill present on %s before anchor %s", r, day, anchor)
			}
		}
	}
}

func TestIsDueOn_NextDueDateOverride(t *testing.T) {
	b := bill(1, core.Monthly, core.NewDate(2024, 3, 1), "10")
	b.NextDueDate = core.NewDate(2024, 4, 1)

	tests := []struct {
		name string
		day  core.Date
		want Presence
	}{
		{name: "actual next due date", day: core.NewDate(2024, 4, 1), want: Presence{Present: true, Projected: false}},
		{name: "projected by anchor day", day: core.NewDate(2024, 5, 1), want: Presence{Present: true, Projected: true}},
		{name: "other day", day: core.NewDate(2024, 5, 2), want: Presence{}},
		{name: "anchor day itself", day: core.NewDate(2024, 3, 1), want: Presence{Present: true, Projected: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDueOn(b, tt.day); got != tt.want {
				t.Errorf("IsDueOn(%s) = %+v, want %+v", tt.day, got, tt.want)
			}
		})
	}
}

func TestIsDueOn_NextDueDateBeforeAnchorStillWins(t *testing.T) {
	b := bill(1, core.OneTime, core.NewDate(2025, 6, 1), "10")
	b.NextDueDate = core.NewDate(2025, 5, 20)
	if got := IsDueOn(b, core.NewDate(2025, 5, 20)); got != (Presence{Present: true}) {
		t.Fatalf("expected actual presence, got %+v", got)
	}
}

func TestIsDueOn_QuarterlyAndOneTimeOnlyViaNextDueDate(t *testing.T) {
	for _, r := range []core.Recurrence{core.Quarterly, core.OneTime} {
		b := bill(1, r, core.NewDate(2025, 1, 10), "10")
		b.NextDueDate = core.NewDate(2025, 4, 10)
		hits := 0
		for day := core.NewDate(2025, 1, 1); day.Year() == 2025; day = day.AddDays(1) {
			if IsDueOn(b, day).Present {
				hits++
				if !day.SameDay(b.NextDueDate) {
					t.Fatalf("%s bill present on %s", r, day)
				}
			}
		}
		if hits != 1 {
			t.Fatalf("%s bill: expected exactly one hit, got %d", r, hits)
		}
	}
}

func TestIsDueOn_YearlyAndWeekly(t *testing.T) {
	yearly := bill(1, core.Yearly, core.NewDate(2023, 4, 15), "10")
	if !IsDueOn(yearly, core.NewDate(2025, 4, 15)).Present {
		t.Fatal("yearly bill should recur on anniversary")
	}
	if IsDueOn(yearly, core.NewDate(2025, 5, 15)).Present {
		t.Fatal("yearly bill should not match other months")
	}

	weekly := bill(2, core.Weekly, core.NewDate(2025, 3, 3), "10")
	if got := IsDueOn(weekly, core.NewDate(2025, 3, 17)); !got.Present || !got.Projected {
		t.Fatalf("weekly bill should be projected two weeks later, got %+v", got)
	}
	if IsDueOn(weekly, core.NewDate(2025, 3, 18)).Present {
		t.Fatal("weekly bill should not match other weekdays")
	}
}

func TestIsDueOn_MissingAnchor(t *testing.T) {
	b := core.Bill{ID: 9, Recurrence: core.Monthly, NextDueDate: core.NewDate(2025, 1, 1)}
	if IsDueOn(b, core.NewDate(2025, 1, 1)).Present {
		t.Fatal("bill without anchor must never be present")
	}
}

func TestBillsOnDate_SourceOrder(t *testing.T) {
	bills := []core.Bill{
		bill(3, core.Monthly, core.NewDate(2025, 1, 5), "30"),
		bill(1, core.Weekly, core.NewDate(2025, 1, 5), "10"),
		bill(2, core.Monthly, core.NewDate(2025, 1, 6), "20"),
		bill(4, core.Yearly, core.NewDate(2024, 2, 5), "40"),
	}
	got := BillsOnDate(bills, core.NewDate(2025, 2, 5)) // Wednesday, Jan 5 was a Sunday
	if len(got) != 2 || got[0].Bill.ID != 3 || got[1].Bill.ID != 4 {
		t.Fatalf("unexpected occurrences %+v", got)
	}
}

func TestMonthGrid(t *testing.T) {
	tests := []struct {
		name  string
		day   core.Date
		first core.Date
		last  core.Date
	}{
		// March 2025 starts on Saturday and ends on Monday.
		{name: "march 2025", day: core.NewDate(2025, 3, 14), first: core.NewDate(2025, 2, 23), last: core.NewDate(2025, 4, 5)},
		// February 2026 starts on Sunday and ends on Saturday.
		{name: "february 2026", day: core.NewDate(2026, 2, 1), first: core.NewDate(2026, 2, 1), last: core.NewDate(2026, 2, 28)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			grid := MonthGrid(tt.day)
			if len(grid)%7 != 0 {
				t.Fatalf("grid length %d is not a multiple of 7", len(grid))
			}
			if !grid[0].SameDay(tt.first) || !grid[len(grid)-1].SameDay(tt.last) {
				t.Fatalf("grid spans %s..%s, want %s..%s", grid[0], grid[len(grid)-1], tt.first, tt.last)
			}
			if grid[0].Weekday() != time.Sunday {
				t.Fatalf("grid must start on Sunday, got %s", grid[0].Weekday())
			}
			for i := 1; i < len(grid); i++ {
				if !grid[i-1].AddDays(1).SameDay(grid[i]) {
					t.Fatalf("grid not contiguous at %d", i)
				}
			}
		})
	}
}

func TestYearBuckets_ThirtyFirstAnchorSkipsFebruary(t *testing.T) {
	b := bill(1, core.Monthly, core.NewDate(2024, 1, 31), "100")
	buckets := YearBuckets([]core.Bill{b}, 2024)

	if len(buckets[1].Entries) != 0 {
		t.Fatalf("expected no February entries, got %+v", buckets[1].Entries)
	}
	months31 := 0
	for m, bucket := range buckets {
		if core.DaysIn(2024, m+1) == 31 {
			months31++
			if len(bucket.Entries) != 1 {
				t.Fatalf("month %d: expected 1 entry, got %d", m, len(bucket.Entries))
			}
		} else if len(bucket.Entries) != 0 {
			t.Fatalf("month %d: expected no entries, got %d", m, len(bucket.Entries))
		}
	}
	if months31 != 7 {
		t.Fatalf("expected 7 long months, got %d", months31)
	}
}

func TestYearBuckets_TotalsAndOrdering(t *testing.T) {
	bills := []core.Bill{
		bill(1, core.Monthly, core.NewDate(2025, 1, 20), "100.10"),
		bill(2, core.Weekly, core.NewDate(2025, 1, 6), "5"), // Mondays
		bill(1, core.Monthly, core.NewDate(2025, 1, 20), "100.10"),
	}
	buckets := YearBuckets(bills, 2025)

	jan := buckets[0]
	// Mondays in January 2025 from the 6th: 6, 13, 20, 27.
	if len(jan.Entries) != 5 {
		t.Fatalf("expected 5 January entries, got %d", len(jan.Entries))
	}
	if want := decimal.RequireFromString("120.10"); !jan.Total.Equal(want) {
		t.Fatalf("expected January total %s, got %s", want, jan.Total)
	}
	for i := 1; i < len(jan.Entries); i++ {
		if jan.Entries[i].Date.BeforeDay(jan.Entries[i-1].Date) {
			t.Fatalf("entries not ordered by day: %+v", jan.Entries)
		}
	}
	// On the 20th the monthly bill comes first in source order.
	for i, e := range jan.Entries {
		if e.Date.Day() == 20 {
			if e.Bill.ID != 1 || jan.Entries[i+1].Bill.ID != 2 {
				t.Fatalf("same-day entries not in source order: %+v", jan.Entries)
			}
			break
		}
	}
	for m, bucket := range buckets {
		if bucket.Month != m {
			t.Fatalf("bucket %d labelled %d", m, bucket.Month)
		}
	}
}

func TestSanitizeBills(t *testing.T) {
	bills := []core.Bill{
		bill(1, core.Monthly, core.NewDate(2025, 1, 1), "1"),
		{ID: 2, Name: "broken", Recurrence: core.Monthly},
	}
	clean, issues := SanitizeBills(bills)
	if len(clean) != 1 || clean[0].ID != 1 {
		t.Fatalf("unexpected clean list %+v", clean)
	}
	if len(issues) != 1 || issues[0].ID != 2 || issues[0].Field != "dueDate" {
		t.Fatalf("unexpected issues %+v", issues)
	}
}
