package services

import (
	"budgetwise/internal/core"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var errBackendDown = errors.New("backend down")

type fakeBackend struct {
	mu          sync.Mutex
	bills       []core.Bill
	issues      []core.IntegrityIssue
	investments []core.Investment
	summary     core.PortfolioSummary
	failBills   bool
	failInv     bool
	failSummary bool
	paid        []int64
	prices      map[int64]float64
}

func (f *fakeBackend) ListBills(ctx context.Context) ([]core.Bill, []core.IntegrityIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failBills {
		return nil, nil, errBackendDown
	}
	return append([]core.Bill(nil), f.bills...), f.issues, nil
}

func (f *fakeBackend) PayBill(ctx context.Context, id int64) (core.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.bills {
		if b.ID == id {
			b = b.Paid()
			f.bills[i] = b
			f.paid = append(f.paid, id)
			return b, nil
		}
	}
	return core.Bill{}, errors.New("not found")
}

func (f *fakeBackend) ListInvestments(ctx context.Context) ([]core.Investment, []core.IntegrityIssue, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failInv {
		return nil, nil, errBackendDown
	}
	return append([]core.Investment(nil), f.investments...), nil, nil
}

func (f *fakeBackend) GetSummary(ctx context.Context) (core.PortfolioSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSummary {
		return core.PortfolioSummary{}, errBackendDown
	}
	return f.summary, nil
}

func (f *fakeBackend) UpdatePrice(ctx context.Context, id int64, price float64) (core.Investment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, inv := range f.investments {
		if inv.ID == id {
			inv.CurrentPrice = price
			f.investments[i] = inv
			if f.prices == nil {
				f.prices = map[int64]float64{}
			}
			f.prices[id] = price
			return inv, nil
		}
	}
	return core.Investment{}, errors.New("not found")
}

type fakePublisher struct {
	mu   sync.Mutex
	paid []int64
}

func (p *fakePublisher) PublishBillPaid(ctx context.Context, bill core.Bill) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.paid = append(p.paid, bill.ID)
	return nil
}

// manualTicker lets tests fire ticks explicitly.
type manualTicker struct {
	ch      chan time.Time
	stopped chan struct{}
	once    sync.Once
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time), stopped: make(chan struct{})}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.once.Do(func() { close(m.stopped) }) }

func bill(id int64, recurrence core.Recurrence, due core.Date, amount string) core.Bill {
	return core.Bill{
		ID:         id,
		Name:       "bill",
		Amount:     decimal.RequireFromString(amount),
		Recurrence: recurrence,
		DueDate:    due,
		Status:     core.StatusPending,
	}
}

func holding(id int64, t core.InvestmentType, qty, buy, current float64) core.Investment {
	return core.Investment{
		ID:            id,
		Name:          "holding",
		Type:          t,
		Quantity:      qty,
		BuyPrice:      buy,
		CurrentPrice:  current,
		TotalInvested: qty * buy,
	}
}
