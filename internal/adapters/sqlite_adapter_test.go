package adapters

import (
	"budgetwise/internal/core"
	"budgetwise/internal/memory"
	"budgetwise/internal/storage"
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newAdapter(t *testing.T) *SQLiteAdapter {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "mirror.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a := NewSQLiteAdapter(repo)
	t.Cleanup(func() { a.Close() })
	return a
}

type failingMirror struct{ *memory.Store }

func (failingMirror) ListInvestments(context.Context) ([]core.Investment, []core.IntegrityIssue, error) {
	return nil, nil, errors.New("upstream down")
}

func TestSQLiteAdapter_SyncFrom(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()
	src := memory.New(memory.DemoBills(), memory.DemoInvestments())

	res, err := a.SyncFrom(ctx, src)
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if res.Bills != len(memory.DemoBills()) || res.Investments != len(memory.DemoInvestments()) {
		t.Fatalf("unexpected result %+v", res)
	}

	bills, _, err := a.ListBills(ctx)
	if err != nil || len(bills) != res.Bills {
		t.Fatalf("mirror bills: %d %v", len(bills), err)
	}

	local, _ := a.GetSummary(ctx)
	remote, _ := src.GetSummary(ctx)
	if local.TotalInvested != remote.TotalInvested || local.TotalInvestments != remote.TotalInvestments {
		t.Fatalf("summary mismatch: local %+v remote %+v", local, remote)
	}
}

func TestSQLiteAdapter_SyncFailureLeavesMirror(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()
	if _, err := a.SyncFrom(ctx, memory.New(memory.DemoBills(), memory.DemoInvestments())); err != nil {
		t.Fatalf("seed: %v", err)
	}

	broken := failingMirror{memory.New(nil, nil)}
	if _, err := a.SyncFrom(ctx, broken); err == nil {
		t.Fatal("expected sync error")
	}
	bills, _, _ := a.ListBills(ctx)
	if len(bills) != len(memory.DemoBills()) {
		t.Fatalf("mirror should be untouched, got %d bills", len(bills))
	}
}

func TestSQLiteAdapter_UpdatePriceDerives(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()
	if _, err := a.SyncFrom(ctx, memory.New(nil, memory.DemoInvestments())); err != nil {
		t.Fatalf("seed: %v", err)
	}
	inv, err := a.UpdatePrice(ctx, 1, 200)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if inv.CurrentValue != 2000 || inv.ProfitLoss != 500 {
		t.Fatalf("derived fields missing: %+v", inv)
	}
}
