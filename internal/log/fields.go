package log

import (
	"maps"
	"slices"
)

// Common field names for structured logging
const (
	FieldComponent    = "component"
	FieldRequestID    = "request_id"
	FieldClientIP     = "client_ip"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldQuery        = "query"
	FieldStatusCode   = "status_code"
	FieldDuration     = "duration_ms"
	FieldUserAgent    = "user_agent"
	FieldReferer      = "referer"
	FieldSuccess      = "success"
	FieldError        = "error"
	FieldOperation    = "operation"
	FieldYear         = "year"
	FieldBillID       = "bill_id"
	FieldBillName     = "bill_name"
	FieldAmount       = "amount"
	FieldNextDueDate  = "next_due_date"
	FieldInvestmentID = "investment_id"
	FieldPrice        = "price"
	FieldSimulation   = "simulation"
	FieldHoldings     = "holdings"
)

const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentBills     = "bills"
	ComponentPortfolio = "portfolio"
	ComponentWorker    = "worker"
	ComponentExport    = "export"
	ComponentSecurity  = "security"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentScheduler = "scheduler"
	ComponentCLI       = "cli"
)

const (
	OpPay      = "pay"
	OpSimulate = "simulate"
	OpUpdate   = "update"
)

// LogFields builds the attribute list of an event line.
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithClientIP(ip string) LogFields {
	if ip != "" {
		f[FieldClientIP] = ip
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithBill adds bill fields; nextDue is omitted when empty.
func (f LogFields) WithBill(id int64, name, amount, nextDue string) LogFields {
	f[FieldBillID] = id
	f[FieldBillName] = name
	f[FieldAmount] = amount
	if nextDue != "" {
		f[FieldNextDueDate] = nextDue
	}
	return f
}

func (f LogFields) WithInvestment(id int64, price float64) LogFields {
	f[FieldInvestmentID] = id
	f[FieldPrice] = price
	return f
}

// WithHTTPRequest adds request fields, skipping empty optional ones.
func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	for key, value := range map[string]string{FieldQuery: query, FieldUserAgent: userAgent, FieldReferer: referer} {
		if value != "" {
			f[key] = value
		}
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice flattens the fields in key order so lines are stable.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for _, k := range slices.Sorted(maps.Keys(f)) {
		slice = append(slice, k, f[k])
	}
	return slice
}
