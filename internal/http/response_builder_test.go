package http

import (
	"budgetwise/internal/core"
	"budgetwise/internal/ports"
	"budgetwise/internal/restapi"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestJSONResponseBuilder(t *testing.T) {
	rr := httptest.NewRecorder()
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("X-Test", "1").
		Body(map[string]int{"n": 1}).
		Write(rr)

	if rr.Code != http.StatusCreated || rr.Header().Get("X-Test") != "1" {
		t.Fatalf("unexpected response %d %v", rr.Code, rr.Header())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type %q", ct)
	}
	var body map[string]int
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil || body["n"] != 1 {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestBackendError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "not found", err: fmt.Errorf("pay bill 3: %w", ports.ErrNotFound), want: http.StatusNotFound},
		{name: "remote 404", err: &restapi.StatusError{Method: "POST", Path: "/bills/3/pay", Code: 404}, want: http.StatusNotFound},
		{name: "remote 500", err: &restapi.StatusError{Method: "GET", Path: "/bills", Code: 500}, want: http.StatusBadGateway},
		{name: "invalid price", err: core.ErrInvalidPrice, want: http.StatusBadRequest},
		{name: "network", err: errors.New("dial tcp: connection refused"), want: http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			BackendError(tt.err).Write(rr)
			if rr.Code != tt.want {
				t.Fatalf("status=%d want %d", rr.Code, tt.want)
			}
		})
	}
}
