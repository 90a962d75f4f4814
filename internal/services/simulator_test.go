package services

import (
	"budgetwise/internal/core"
	"context"
	"math"
	"math/rand/v2"
	"reflect"
	"testing"
	"time"
)

func newTestSimulator(random func() float64, ticker *manualTicker) *Simulator {
	return NewSimulator(
		WithRandom(random),
		WithTicker(func(time.Duration) Ticker { return ticker }),
	)
}

func sampleHoldings() []core.Investment {
	return []core.Investment{
		holding(1, core.Stock, 10, 100, 120),
		holding(2, core.Crypto, 0.5, 30000, 28000),
		holding(3, core.Gold, 2, 1800, 1900),
	}
}

func TestSimulator_TickStepsAreBounded(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	sim := newTestSimulator(r.Float64, newManualTicker())
	sim.SetBaseline(sampleHoldings(), nil)
	sim.Start(context.Background())
	defer sim.Stop()

	prev := sim.Snapshot().Investments
	for n := 0; n < 500; n++ {
		snap, ok := sim.Tick()
		if !ok {
			t.Fatal("tick ignored while running")
		}
		for i, inv := range snap.Investments {
			ratio := inv.CurrentPrice / prev[i].CurrentPrice
			if ratio < 0.985 || ratio > 1.015 {
				t.Fatalf("tick %d holding %d: step ratio %v out of bounds", n, inv.ID, ratio)
			}
			wantTrend := TrendDown
			if ratio > 1 {
				wantTrend = TrendUp
			}
			if inv.Trend != wantTrend {
				t.Fatalf("tick %d holding %d: trend %q for ratio %v", n, inv.ID, inv.Trend, ratio)
			}
			if inv.CurrentValue != inv.Quantity*inv.CurrentPrice {
				t.Fatalf("derived value not recomputed for holding %d", inv.ID)
			}
		}
		if !reflect.DeepEqual(snap.Summary, RecomputeSummary(snap.Investments)) {
			t.Fatalf("tick %d: summary not recomputed over the full set", n)
		}
		prev = snap.Investments
	}
}

func TestSimulator_Compounds(t *testing.T) {
	// 0.75 maps to +0.75% every tick.
	sim := newTestSimulator(func() float64 { return 0.75 }, newManualTicker())
	sim.SetBaseline([]core.Investment{holding(1, core.Stock, 1, 100, 100)}, nil)
	sim.Start(context.Background())
	defer sim.Stop()

	sim.Tick()
	snap, _ := sim.Tick()
	want := 100 * 1.0075 * 1.0075
	if got := snap.Investments[0].CurrentPrice; math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected compounded price %v, got %v", want, got)
	}
	if snap.Ticks != 2 {
		t.Fatalf("expected 2 ticks, got %d", snap.Ticks)
	}
}

func TestSimulator_StopRestoresBaseline(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 7))
	sim := newTestSimulator(r.Float64, newManualTicker())
	serverSummary := core.PortfolioSummary{CurrentValue: 42, AssetAllocation: map[core.InvestmentType]float64{}}
	sim.SetBaseline(sampleHoldings(), &serverSummary)
	before := sim.Snapshot()
	if before.Summary.CurrentValue != 42 {
		t.Fatalf("server summary should be displayed before simulation, got %+v", before.Summary)
	}

	sim.Start(context.Background())
	for i := 0; i < 25; i++ {
		sim.Tick()
	}
	after := sim.Stop()

	if after.Running {
		t.Fatal("expected stopped state")
	}
	if !reflect.DeepEqual(after.Investments, before.Investments) {
		t.Fatalf("baseline not restored:\n got %+v\nwant %+v", after.Investments, before.Investments)
	}
	if !reflect.DeepEqual(after.Summary, RecomputeSummary(before.Investments)) {
		t.Fatalf("summary not recomputed from baseline: %+v", after.Summary)
	}
}

func TestSimulator_TogglesAreIdempotent(t *testing.T) {
	ticker := newManualTicker()
	starts := 0
	sim := NewSimulator(WithTicker(func(time.Duration) Ticker {
		starts++
		return ticker
	}))
	sim.SetBaseline(sampleHoldings(), nil)

	stopped := sim.Stop()
	if stopped.Running {
		t.Fatal("stop while stopped must be a no-op")
	}
	if _, ok := sim.Tick(); ok {
		t.Fatal("tick while stopped must be ignored")
	}

	if !sim.Start(context.Background()) {
		t.Fatal("first start should succeed")
	}
	if sim.Start(context.Background()) {
		t.Fatal("second start should be a no-op")
	}
	if starts != 1 {
		t.Fatalf("expected one ticker, got %d", starts)
	}
	sim.Stop()

	select {
	case <-ticker.stopped:
	default:
		t.Fatal("ticker not released on stop")
	}
}

func TestSimulator_TickerDrivesTicks(t *testing.T) {
	ticker := newManualTicker()
	ticked := make(chan SimulationSnapshot, 4)
	sim := NewSimulator(
		WithRandom(func() float64 { return 0 }),
		WithTicker(func(time.Duration) Ticker { return ticker }),
		WithTickHook(func(s SimulationSnapshot) { ticked <- s }),
	)
	sim.SetBaseline(sampleHoldings(), nil)
	sim.Start(context.Background())

	ticker.ch <- time.Now()
	select {
	case snap := <-ticked:
		if snap.Ticks != 1 || snap.Investments[0].Trend != TrendDown {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatal("tick not delivered")
	}
	sim.Stop()
}

func TestSimulator_ContextCancelReleases(t *testing.T) {
	ticker := newManualTicker()
	sim := newTestSimulator(func() float64 { return 1 }, ticker)
	sim.SetBaseline(sampleHoldings(), nil)
	baseline := sim.Snapshot().Investments

	ctx, cancel := context.WithCancel(context.Background())
	sim.Start(ctx)
	sim.Tick()
	cancel()

	select {
	case <-ticker.stopped:
	case <-time.After(time.Second):
		t.Fatal("ticker not released after context cancellation")
	}
	deadline := time.Now().Add(time.Second)
	for sim.State() != SimulationStopped {
		if time.Now().After(deadline) {
			t.Fatal("simulator still running after teardown")
		}
		time.Sleep(time.Millisecond)
	}
	if got := sim.Snapshot().Investments; !reflect.DeepEqual(got, baseline) {
		t.Fatalf("baseline not restored after teardown")
	}
}

func TestSimulator_BaselineUpdateWhileRunning(t *testing.T) {
	sim := newTestSimulator(func() float64 { return 1 }, newManualTicker())
	sim.SetBaseline(sampleHoldings(), nil)
	sim.Start(context.Background())
	sim.Tick()

	fresh := []core.Investment{holding(9, core.Bond, 1, 50, 55)}
	sim.SetBaseline(fresh, nil)
	if got := sim.Snapshot().Investments; len(got) != 3 {
		t.Fatalf("running simulation should keep simulated holdings, got %d", len(got))
	}
	after := sim.Stop()
	if len(after.Investments) != 1 || after.Investments[0].ID != 9 {
		t.Fatalf("stop should restore the latest baseline, got %+v", after.Investments)
	}
}

func TestSimulator_StaleRunCannotTick(t *testing.T) {
	sim := newTestSimulator(func() float64 { return 1 }, newManualTicker())
	sim.SetBaseline(sampleHoldings(), nil)

	sim.Start(context.Background())
	sim.mu.Lock()
	oldRun := sim.done
	sim.mu.Unlock()
	sim.Stop()

	sim.Start(context.Background())
	defer sim.Stop()

	if _, ok := sim.tick(oldRun); ok {
		t.Fatal("a tick from a finished run must not reach the new run")
	}
	if snap := sim.Snapshot(); snap.Ticks != 0 {
		t.Fatalf("expected a fresh run with no ticks, got %d", snap.Ticks)
	}
}

func TestSimulator_BaselineIgnoresSimulatedPrices(t *testing.T) {
	sim := newTestSimulator(func() float64 { return 1 }, newManualTicker())
	serverSummary := core.PortfolioSummary{CurrentValue: 42, AssetAllocation: map[core.InvestmentType]float64{}}
	sim.SetBaseline(sampleHoldings(), &serverSummary)
	before := sim.Snapshot()

	sim.Start(context.Background())
	defer sim.Stop()
	sim.Tick()

	base := sim.Baseline()
	if !base.Running {
		t.Fatal("baseline should report the running state")
	}
	if !reflect.DeepEqual(base.Investments, before.Investments) {
		t.Fatalf("baseline holds simulated prices: %+v", base.Investments)
	}
	if base.Summary.CurrentValue != 42 {
		t.Fatalf("expected fetched summary, got %+v", base.Summary)
	}
	if reflect.DeepEqual(sim.Snapshot().Investments, base.Investments) {
		t.Fatal("displayed view should be simulated")
	}
}
