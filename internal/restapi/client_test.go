package restapi

import (
	"budgetwise/internal/core"
	"budgetwise/internal/ports"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/", time.Second, WithToken("secret"))
}

func TestClient_ListBills(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/bills" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("missing bearer token, got %q", got)
		}
		w.Write([]byte(`[
			{"id":1,"name":"Rent","amount":950.5,"recurrence":"MONTHLY","dueDate":"2025-01-31","nextDueDate":"2025-03-31T00:00:00","status":"PENDING","autoReminder":true},
			{"id":2,"name":"Broken","amount":12,"recurrence":"MONTHLY","dueDate":"31/01/2025"},
			{"id":3,"name":"Gym","amount":"12.50","recurrence":"weekly","dueDate":"2025-01-06"}
		]`))
	})

	bills, issues, err := c.ListBills(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bills) != 2 || bills[0].ID != 1 || bills[1].ID != 3 {
		t.Fatalf("unexpected bills %+v", bills)
	}
	if !bills[0].NextDueDate.SameDay(core.NewDate(2025, 3, 31)) {
		t.Fatalf("timestamp next due date not parsed: %s", bills[0].NextDueDate)
	}
	if len(issues) != 1 || issues[0].ID != 2 || issues[0].Field != "dueDate" {
		t.Fatalf("unexpected issues %+v", issues)
	}
}

func TestClient_StatusErrors(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		notFound bool
	}{
		{name: "not found", code: http.StatusNotFound, notFound: true},
		{name: "server error", code: http.StatusInternalServerError},
		{name: "unauthorized", code: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.code)
			})
			_, err := c.PayBill(context.Background(), 9)
			var se *StatusError
			if !errors.As(err, &se) || se.Code != tt.code {
				t.Fatalf("expected StatusError %d, got %v", tt.code, err)
			}
			if errors.Is(err, ports.ErrNotFound) != tt.notFound {
				t.Fatalf("ErrNotFound mapping wrong for %d", tt.code)
			}
		})
	}
}

func TestClient_UpdatePrice(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/investments/4/price" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.URL.Query().Get("currentPrice"); got != "101.25" {
			t.Errorf("currentPrice = %q", got)
		}
		w.Write([]byte(`{"id":4,"name":"ACME","type":"STOCK","quantity":2,"buyPrice":90,"currentPrice":101.25}`))
	})

	inv, err := c.UpdatePrice(context.Background(), 4, 101.25)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if inv.CurrentPrice != 101.25 || inv.TotalInvested != 180 {
		t.Fatalf("unexpected holding %+v", inv)
	}
}

func TestClient_GetSummaryAndInvestments(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/investments/summary":
			w.Write([]byte(`{"totalInvested":100,"currentValue":110,"totalInvestments":1}`))
		case "/api/investments":
			w.Write([]byte(`[{"id":1,"name":"ACME","type":"STOCK","quantity":1,"buyPrice":100,"currentPrice":null},{"id":2,"name":"X","type":"SHARES","quantity":1,"buyPrice":1}]`))
		default:
			http.NotFound(w, r)
		}
	})

	s, err := c.GetSummary(context.Background())
	if err != nil || s.CurrentValue != 110 || s.AssetAllocation == nil {
		t.Fatalf("summary: %+v %v", s, err)
	}
	inv, issues, err := c.ListInvestments(context.Background())
	if err != nil || len(inv) != 1 || len(issues) != 1 || issues[0].Field != "type" {
		t.Fatalf("investments: %+v %+v %v", inv, issues, err)
	}
	if inv[0].CurrentPrice != 100 {
		t.Fatalf("null price should default to buy price, got %v", inv[0].CurrentPrice)
	}
}

func TestClient_RateLimitHonoursContext(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(`[]`)) })
	WithRateLimit(0.01)(c)

	if _, _, err := c.ListBills(context.Background()); err != nil {
		t.Fatalf("first call should use the burst: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, _, err := c.ListBills(ctx); err == nil {
		t.Fatal("second call should fail waiting for the limiter")
	}
}
