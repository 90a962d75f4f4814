package services

import (
	"budgetwise/internal/core"
	"context"
	"log/slog"
	"maps"
	"math/rand/v2"
	"slices"
	"sync"
	"time"
)

const (
	// SimulationInterval is the fixed tick period of the market simulation.
	SimulationInterval = 3 * time.Second
	// maxStepPercent bounds a single tick's price change in both directions.
	maxStepPercent = 1.5
)

type SimulationState int

const (
	SimulationStopped SimulationState = iota
	SimulationRunning
)

func (s SimulationState) String() string {
	if s == SimulationRunning {
		return "running"
	}
	return "stopped"
}

// Ticker abstracts time.Ticker so tests can drive ticks by hand.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// SimulationSnapshot is a consistent copy of the displayed portfolio.
type SimulationSnapshot struct {
	Running     bool                  `json:"running"`
	Ticks       int                   `json:"ticks"`
	Investments []core.Investment     `json:"investments"`
	Summary     core.PortfolioSummary `json:"summary"`
}

type SimulatorOption func(*Simulator)

// WithRandom replaces the uniform [0,1) source used for price steps.
func WithRandom(random func() float64) SimulatorOption {
	return func(s *Simulator) { s.random = random }
}

// WithTicker replaces the ticker factory.
func WithTicker(factory func(time.Duration) Ticker) SimulatorOption {
	return func(s *Simulator) { s.newTicker = factory }
}

func WithInterval(d time.Duration) SimulatorOption {
	return func(s *Simulator) { s.interval = d }
}

// WithTickHook registers a callback invoked after every applied tick.
func WithTickHook(fn func(SimulationSnapshot)) SimulatorOption {
	return func(s *Simulator) { s.onTick = fn }
}

// Simulator runs a bounded random walk over holding prices. It owns the
// displayed holdings and summary; the baseline is kept untouched so that
// stopping restores it exactly. It never writes to a backend.
type Simulator struct {
	mu       sync.Mutex
	state    SimulationState
	baseline []core.Investment
	// baseSummary is the summary fetched with the baseline, or one
	// computed from it when none was given.
	baseSummary core.PortfolioSummary
	current     []core.Investment
	summary     core.PortfolioSummary
	ticks       int

	random    func() float64
	newTicker func(time.Duration) Ticker
	interval  time.Duration
	onTick    func(SimulationSnapshot)

	cancel context.CancelFunc
	done   chan struct{}
}

func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		random:    rand.Float64,
		newTicker: newTimeTicker,
		interval:  SimulationInterval,
		baseline:  []core.Investment{},
		current:   []core.Investment{},
		summary:   RecomputeSummary(nil),
	}
	s.baseSummary = s.summary
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetBaseline installs freshly fetched holdings. When the simulation is
// stopped they become the displayed state, with summary used as-is when
// given. While running only the restore target changes.
func (s *Simulator) SetBaseline(investments []core.Investment, summary *core.PortfolioSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.baseline = DeriveAll(investments)
	if summary != nil {
		s.baseSummary = cloneSummary(*summary)
	} else {
		s.baseSummary = RecomputeSummary(s.baseline)
	}
	if s.state == SimulationRunning {
		return
	}
	s.current = slices.Clone(s.baseline)
	s.summary = cloneSummary(s.baseSummary)
}

// Baseline returns the last fetched holdings and summary, never simulated
// prices, whatever the state.
func (s *Simulator) Baseline() SimulationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SimulationSnapshot{
		Running:     s.state == SimulationRunning,
		Investments: slices.Clone(s.baseline),
		Summary:     cloneSummary(s.baseSummary),
	}
}

func (s *Simulator) State() SimulationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start moves STOPPED to RUNNING and schedules ticks until Stop is called or
// ctx is cancelled. It returns false when already running.
func (s *Simulator) Start(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SimulationRunning {
		return false
	}
	s.state = SimulationRunning
	s.ticks = 0
	s.current = slices.Clone(s.baseline)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	s.cancel, s.done = cancel, done

	go s.run(runCtx, s.newTicker(s.interval), done)

	slog.InfoContext(ctx, "Market simulation started",
		"holdings", len(s.current),
		"interval", s.interval.String())
	return true
}

// Stop cancels the ticker, restores the baseline and recomputes the
// summary from it. It is a no-op when stopped.
func (s *Simulator) Stop() SimulationSnapshot {
	s.mu.Lock()
	if s.state != SimulationRunning {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	cancel, done := s.cancel, s.done
	s.restoreLocked()
	snap := s.snapshotLocked()
	cancel()
	s.mu.Unlock()

	<-done

	slog.Info("Market simulation stopped", "holdings", len(snap.Investments))
	return snap
}

// Tick applies one simulation step: every price is multiplied by
// 1 + u/100 with u uniform in [-1.5, 1.5), and the summary is recomputed
// over all holdings. It returns false without changes when stopped.
func (s *Simulator) Tick() (SimulationSnapshot, bool) {
	return s.tick(nil)
}

// tick steps the simulation. A non-nil run identifies the ticker goroutine
// that fired; a goroutine whose run already ended changes nothing, even
// if a new run has started since.
func (s *Simulator) tick(run chan struct{}) (SimulationSnapshot, bool) {
	s.mu.Lock()
	if s.state != SimulationRunning || (run != nil && s.done != run) {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, false
	}
	for i := range s.current {
		change := s.random()*2*maxStepPercent - maxStepPercent
		inv := s.current[i]
		inv.CurrentPrice *= 1 + change/100
		inv.Trend = TrendDown
		if change > 0 {
			inv.Trend = TrendUp
		}
		s.current[i] = Derive(inv)
	}
	s.summary = RecomputeSummary(s.current)
	s.ticks++
	snap := s.snapshotLocked()
	hook := s.onTick
	s.mu.Unlock()

	if hook != nil {
		hook(snap)
	}
	return snap, true
}

func (s *Simulator) Snapshot() SimulationSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Simulator) run(ctx context.Context, ticker Ticker, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.release(done)
			return
		case <-ticker.C():
			s.tick(done)
		}
	}
}

// release handles teardown through context cancellation. Stop clears
// s.done first, so this only acts when the owning context went away.
func (s *Simulator) release(done chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done != done {
		return
	}
	s.restoreLocked()
}

func (s *Simulator) restoreLocked() {
	s.state = SimulationStopped
	s.cancel, s.done = nil, nil
	s.current = slices.Clone(s.baseline)
	s.summary = RecomputeSummary(s.current)
}

func (s *Simulator) snapshotLocked() SimulationSnapshot {
	return SimulationSnapshot{
		Running:     s.state == SimulationRunning,
		Ticks:       s.ticks,
		Investments: slices.Clone(s.current),
		Summary:     cloneSummary(s.summary),
	}
}

func cloneSummary(in core.PortfolioSummary) core.PortfolioSummary {
	in.AssetAllocation = maps.Clone(in.AssetAllocation)
	if in.AssetAllocation == nil {
		in.AssetAllocation = map[core.InvestmentType]float64{}
	}
	return in
}
