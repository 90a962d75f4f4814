package services

import (
	"budgetwise/internal/core"

	"github.com/samber/lo"
)

// Trend labels set on simulated holdings.
const (
	TrendUp   = "up"
	TrendDown = "down"
)

// Derive fills the per-holding derived fields from quantity, prices and
// TotalInvested. A non-finite current price falls back to the buy price.
func Derive(inv core.Investment) core.Investment {
	if !core.IsFinite(inv.CurrentPrice) {
		inv.CurrentPrice = inv.BuyPrice
	}
	inv.CurrentValue = inv.Quantity * inv.CurrentPrice
	inv.ProfitLoss = inv.CurrentValue - inv.TotalInvested
	inv.ProfitLossPercent = 0
	if inv.TotalInvested > 0 {
		inv.ProfitLossPercent = inv.ProfitLoss / inv.TotalInvested * 100
	}
	return inv
}

// RecomputeSummary aggregates holdings in one full pass. It is pure and
// idempotent: the same input always yields the same summary.
func RecomputeSummary(investments []core.Investment) core.PortfolioSummary {
	derived := DeriveAll(investments)

	summary := core.PortfolioSummary{
		TotalInvested:    lo.SumBy(derived, func(inv core.Investment) float64 { return inv.TotalInvested }),
		CurrentValue:     lo.SumBy(derived, func(inv core.Investment) float64 { return inv.CurrentValue }),
		TotalInvestments: len(derived),
		AssetAllocation:  map[core.InvestmentType]float64{},
		ProfitableInvestments: lo.CountBy(derived, func(inv core.Investment) bool {
			return inv.ProfitLoss > 0
		}),
		LosingInvestments: lo.CountBy(derived, func(inv core.Investment) bool {
			return inv.ProfitLoss < 0
		}),
	}
	summary.TotalProfitLoss = summary.CurrentValue - summary.TotalInvested
	if summary.TotalInvested > 0 {
		summary.TotalProfitLossPercent = summary.TotalProfitLoss / summary.TotalInvested * 100
	}

	if summary.CurrentValue > 0 {
		byType := lo.GroupBy(derived, func(inv core.Investment) core.InvestmentType { return inv.Type })
		for t, group := range byType {
			value := lo.SumBy(group, func(inv core.Investment) float64 { return inv.CurrentValue })
			summary.AssetAllocation[t] = value / summary.CurrentValue * 100
		}
	}
	return summary
}

// DeriveAll applies Derive to a copy of investments.
func DeriveAll(investments []core.Investment) []core.Investment {
	return lo.Map(investments, func(inv core.Investment, _ int) core.Investment {
		return Derive(inv)
	})
}
