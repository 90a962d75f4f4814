package log

import (
	"context"
	"log/slog"
	"net/http"
)

// Middleware makes logger available to handlers through FromContext.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(ContextWithLogger(r.Context(), logger)))
		})
	}
}

// StructuredLogger writes the fixed-shape event lines: request start and
// end, and the state changes made through the API.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent(), r.Referer()).
		WithClientIP(clientIP)

	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs at WARN for 4xx and ERROR for 5xx.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogBillPaid(ctx context.Context, id int64, name, amount, nextDue string) {
	fields := NewFields().
		WithBill(id, name, amount, nextDue).
		WithOperation(OpPay)

	sl.logger.WithComponent(ComponentBills).InfoContext(ctx, "Bill paid", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogSimulationToggled(ctx context.Context, running bool, holdings int) {
	fields := NewFields().WithOperation(OpSimulate)
	fields[FieldSimulation] = running
	fields[FieldHoldings] = holdings

	sl.logger.WithComponent(ComponentPortfolio).InfoContext(ctx, "Market simulation toggled", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogPriceUpdated(ctx context.Context, id int64, price float64) {
	fields := NewFields().
		WithInvestment(id, price).
		WithOperation(OpUpdate)

	sl.logger.WithComponent(ComponentPortfolio).InfoContext(ctx, "Investment price updated", fields.ToSlice()...)
}
