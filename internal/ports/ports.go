package ports

import (
	"budgetwise/internal/core"
	"context"
	"errors"
)

// ErrNotFound is returned when a bill or holding id does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	// BillReader lists every bill known to the backend. Records that could
	// not be interpreted are skipped and reported as issues.
	BillReader interface {
		ListBills(ctx context.Context) ([]core.Bill, []core.IntegrityIssue, error)
	}

	// BillPayer records a payment; the backend advances NextDueDate.
	BillPayer interface {
		PayBill(ctx context.Context, id int64) (core.Bill, error)
	}

	InvestmentReader interface {
		ListInvestments(ctx context.Context) ([]core.Investment, []core.IntegrityIssue, error)
	}

	// SummaryReader returns the backend's own portfolio summary, used as the
	// displayed summary until a local recompute happens.
	SummaryReader interface {
		GetSummary(ctx context.Context) (core.PortfolioSummary, error)
	}

	// PriceWriter persists a manual price update for a holding.
	PriceWriter interface {
		UpdatePrice(ctx context.Context, id int64, price float64) (core.Investment, error)
	}

	// Backend is the full set of operations a data source must provide.
	Backend interface {
		BillReader
		BillPayer
		InvestmentReader
		SummaryReader
		PriceWriter
	}
)
