package memory

import (
	"budgetwise/internal/core"
	"budgetwise/internal/ports"
	"budgetwise/internal/services"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Store is an in-process backend for demos and tests. It applies the same
// payment and price transitions as the remote API.
type Store struct {
	mu          sync.Mutex
	bills       []core.Bill
	investments []core.Investment
	issues      []core.IntegrityIssue
}

func New(bills []core.Bill, investments []core.Investment) *Store {
	return &Store{
		bills:       append([]core.Bill(nil), bills...),
		investments: append([]core.Investment(nil), investments...),
	}
}

type billSeed struct {
	Bills []core.BillRecord `yaml:"bills"`
}

type investmentSeed struct {
	Investments []core.InvestmentRecord `yaml:"investments"`
}

// NewFromFiles seeds the store from bills.yaml and investments.yaml in base.
// A missing file falls back to the demo data; a malformed one is an error.
func NewFromFiles(base string) (*Store, error) {
	s := &Store{}

	var bs billSeed
	found, err := readYAML(filepath.Join(base, "bills.yaml"), &bs)
	if err != nil {
		return nil, err
	}
	if found {
		var issues []core.IntegrityIssue
		s.bills, issues = core.DecodeBills(bs.Bills)
		s.issues = append(s.issues, issues...)
	} else {
		s.bills = DemoBills()
	}

	var is investmentSeed
	found, err = readYAML(filepath.Join(base, "investments.yaml"), &is)
	if err != nil {
		return nil, err
	}
	if found {
		var issues []core.IntegrityIssue
		s.investments, issues = core.DecodeInvestments(is.Investments)
		s.issues = append(s.issues, issues...)
	} else {
		s.investments = DemoInvestments()
	}

	for _, issue := range s.issues {
		slog.Warn("Skipping malformed seed record", "kind", issue.Kind, "id", issue.ID, "field", issue.Field, "reason", issue.Reason)
	}
	return s, nil
}

func readYAML(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

func (s *Store) ListBills(_ context.Context) ([]core.Bill, []core.IntegrityIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var issues []core.IntegrityIssue
	for _, issue := range s.issues {
		if issue.Kind == core.IssueKindBill {
			issues = append(issues, issue)
		}
	}
	return append([]core.Bill(nil), s.bills...), issues, nil
}

func (s *Store) PayBill(_ context.Context, id int64) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.bills {
		if b.ID == id {
			s.bills[i] = b.Paid()
			return s.bills[i], nil
		}
	}
	return core.Bill{}, fmt.Errorf("bill %d: %w", id, ports.ErrNotFound)
}

func (s *Store) ListInvestments(_ context.Context) ([]core.Investment, []core.IntegrityIssue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var issues []core.IntegrityIssue
	for _, issue := range s.issues {
		if issue.Kind == core.IssueKindInvestment {
			issues = append(issues, issue)
		}
	}
	return services.DeriveAll(s.investments), issues, nil
}

// GetSummary computes what the remote API would report for the stored holdings.
func (s *Store) GetSummary(_ context.Context) (core.PortfolioSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return services.RecomputeSummary(s.investments), nil
}

func (s *Store) UpdatePrice(_ context.Context, id int64, price float64) (core.Investment, error) {
	if !core.IsFinite(price) || price < 0 {
		return core.Investment{}, core.ErrInvalidPrice
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, inv := range s.investments {
		if inv.ID == id {
			inv.CurrentPrice = price
			s.investments[i] = inv
			return services.Derive(inv), nil
		}
	}
	return core.Investment{}, fmt.Errorf("investment %d: %w", id, ports.ErrNotFound)
}

// DemoBills is the seed used when no bills.yaml exists.
func DemoBills() []core.Bill {
	return []core.Bill{
		{ID: 1, Name: "Rent", Amount: decimal.NewFromInt(950), Category: "housing", Recurrence: core.Monthly,
			DueDate: core.NewDate(2025, 1, 1), Status: core.StatusPending, AutoReminder: true},
		{ID: 2, Name: "Electricity", Amount: decimal.RequireFromString("64.30"), Category: "utilities", Recurrence: core.Monthly,
			DueDate: core.NewDate(2025, 1, 15), Status: core.StatusPending, AutoReminder: true},
		{ID: 3, Name: "Gym", Amount: decimal.RequireFromString("12.50"), Category: "health", Recurrence: core.Weekly,
			DueDate: core.NewDate(2025, 1, 6), Status: core.StatusPending},
		{ID: 4, Name: "Car insurance", Amount: decimal.RequireFromString("410.00"), Category: "transport", Recurrence: core.Quarterly,
			DueDate: core.NewDate(2025, 2, 10), NextDueDate: core.NewDate(2025, 5, 10), Status: core.StatusPending},
		{ID: 5, Name: "Domain renewal", Amount: decimal.RequireFromString("18.99"), Category: "subscriptions", Recurrence: core.Yearly,
			DueDate: core.NewDate(2024, 9, 30), Status: core.StatusPending},
	}
}

// DemoInvestments is the seed used when no investments.yaml exists.
func DemoInvestments() []core.Investment {
	return services.DeriveAll([]core.Investment{
		{ID: 1, Name: "Apple", Symbol: "AAPL", Type: core.Stock, Quantity: 10, BuyPrice: 150, CurrentPrice: 178.2, TotalInvested: 1500},
		{ID: 2, Name: "Bitcoin", Symbol: "BTC", Type: core.Crypto, Quantity: 0.05, BuyPrice: 42000, CurrentPrice: 39500, TotalInvested: 2100},
		{ID: 3, Name: "World index fund", Symbol: "VWCE", Type: core.MutualFund, Quantity: 20, BuyPrice: 98.4, CurrentPrice: 104.1, TotalInvested: 1968},
		{ID: 4, Name: "Gold", Symbol: "XAU", Type: core.Gold, Quantity: 1, BuyPrice: 1900, CurrentPrice: 1900, TotalInvested: 1900},
	})
}
