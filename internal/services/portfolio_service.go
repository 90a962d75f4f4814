package services

import (
	"budgetwise/internal/core"
	"budgetwise/internal/ports"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// PortfolioService owns the displayed portfolio: the server baseline, the
// simulator that may be mutating it, and the manual price update path.
type PortfolioService struct {
	investments ports.InvestmentReader
	summaries   ports.SummaryReader
	prices      ports.PriceWriter
	sim         *Simulator

	// simCtx bounds the simulator goroutine; cancelled by Close.
	simCtx    context.Context
	simCancel context.CancelFunc

	mu     sync.Mutex
	issues []core.IntegrityIssue
	loaded bool
}

// NewPortfolioService wires the service. prices may be nil for read-only backends.
func NewPortfolioService(investments ports.InvestmentReader, summaries ports.SummaryReader, prices ports.PriceWriter, sim *Simulator) *PortfolioService {
	if sim == nil {
		sim = NewSimulator()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &PortfolioService{
		investments: investments,
		summaries:   summaries,
		prices:      prices,
		sim:         sim,
		simCtx:      ctx,
		simCancel:   cancel,
	}
}

// Load fetches holdings and the server summary concurrently. If either
// fetch fails nothing is replaced.
func (s *PortfolioService) Load(ctx context.Context) error {
	var (
		holdings []core.Investment
		issues   []core.IntegrityIssue
		summary  core.PortfolioSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		holdings, issues, err = s.investments.ListInvestments(gctx)
		if err != nil {
			return fmt.Errorf("list investments: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		summary, err = s.summaries.GetSummary(gctx)
		if err != nil {
			return fmt.Errorf("get summary: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Failed to load portfolio, keeping previous state", "error", err)
		return err
	}

	for _, issue := range issues {
		slog.WarnContext(ctx, "Skipping malformed investment",
			"investment_id", issue.ID,
			"field", issue.Field,
			"reason", issue.Reason)
	}

	s.sim.SetBaseline(holdings, &summary)

	s.mu.Lock()
	s.issues = issues
	s.loaded = true
	s.mu.Unlock()

	slog.InfoContext(ctx, "Portfolio loaded",
		"holdings", len(holdings),
		"skipped", len(issues),
		"current_value", summary.CurrentValue)
	return nil
}

// View returns what should be displayed right now.
func (s *PortfolioService) View() SimulationSnapshot {
	return s.sim.Snapshot()
}

// Baseline returns the fetched holdings without simulated prices.
func (s *PortfolioService) Baseline() SimulationSnapshot {
	return s.sim.Baseline()
}

func (s *PortfolioService) Issues() []core.IntegrityIssue {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.issues)
}

func (s *PortfolioService) Loaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loaded
}

// SetSimulation toggles live-market mode. Enabling when running or
// disabling when stopped changes nothing.
func (s *PortfolioService) SetSimulation(enabled bool) SimulationSnapshot {
	if enabled {
		s.sim.Start(s.simCtx)
		return s.sim.Snapshot()
	}
	return s.sim.Stop()
}

// UpdatePrice persists a manual price and reloads the baseline.
func (s *PortfolioService) UpdatePrice(ctx context.Context, id int64, price float64) (core.Investment, error) {
	if s.prices == nil {
		return core.Investment{}, errors.New("backend does not accept price updates")
	}
	if !core.IsFinite(price) || price < 0 {
		return core.Investment{}, core.ErrInvalidPrice
	}
	inv, err := s.prices.UpdatePrice(ctx, id, price)
	if err != nil {
		return core.Investment{}, fmt.Errorf("update price for %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Investment price updated", "investment_id", id, "price", price)

	if err := s.Load(ctx); err != nil {
		slog.WarnContext(ctx, "Reload after price update failed", "investment_id", id, "error", err)
	}
	return Derive(inv), nil
}

// Close stops any running simulation.
func (s *PortfolioService) Close() error {
	s.sim.Stop()
	s.simCancel()
	return nil
}
