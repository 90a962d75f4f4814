package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BillRecord is the loosely typed shape of a bill as delivered by the REST
// backend or a seed file. Conversion to Bill is where malformed data is
// caught.
type BillRecord struct {
	ID           int64       `json:"id" yaml:"id"`
	Name         string      `json:"name" yaml:"name"`
	Amount       json.Number `json:"amount" yaml:"amount"`
	Category     string      `json:"category" yaml:"category"`
	Recurrence   string      `json:"recurrence" yaml:"recurrence"`
	DueDate      string      `json:"dueDate" yaml:"due_date"`
	NextDueDate  string      `json:"nextDueDate" yaml:"next_due_date"`
	Status       string      `json:"status" yaml:"status"`
	AutoReminder bool        `json:"autoReminder" yaml:"auto_reminder"`
	Notes        string      `json:"notes" yaml:"notes"`
}

// InvestmentRecord mirrors BillRecord for holdings. Absent prices are nil.
type InvestmentRecord struct {
	ID            int64    `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Symbol        string   `json:"symbol" yaml:"symbol"`
	Type          string   `json:"type" yaml:"type"`
	Quantity      float64  `json:"quantity" yaml:"quantity"`
	BuyPrice      float64  `json:"buyPrice" yaml:"buy_price"`
	CurrentPrice  *float64 `json:"currentPrice" yaml:"current_price"`
	TotalInvested *float64 `json:"totalInvested" yaml:"total_invested"`
	PurchaseDate  string   `json:"purchaseDate" yaml:"purchase_date"`
	Notes         string   `json:"notes" yaml:"notes"`
}

// FieldError names the field that made a record unusable.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string { return fmt.Sprintf("%s: %v", e.Field, e.Err) }
func (e *FieldError) Unwrap() error { return e.Err }

func (r BillRecord) Bill() (Bill, error) {
	if r.ID <= 0 {
		return Bill{}, &FieldError{Field: "id", Err: ErrInvalidID}
	}
	due, err := ParseDate(r.DueDate)
	if err != nil {
		return Bill{}, &FieldError{Field: "dueDate", Err: err}
	}
	var next Date
	if strings.TrimSpace(r.NextDueDate) != "" {
		if next, err = ParseDate(r.NextDueDate); err != nil {
			return Bill{}, &FieldError{Field: "nextDueDate", Err: err}
		}
	}
	amount, err := ParseAmount(r.Amount.String())
	if err != nil {
		return Bill{}, &FieldError{Field: "amount", Err: err}
	}
	status := BillStatus(strings.ToUpper(strings.TrimSpace(r.Status)))
	if status == "" {
		status = StatusPending
	}
	b := Bill{
		ID:           r.ID,
		Name:         strings.TrimSpace(r.Name),
		Amount:       amount,
		Category:     r.Category,
		Recurrence:   Recurrence(strings.ToUpper(strings.TrimSpace(r.Recurrence))),
		DueDate:      due,
		NextDueDate:  next,
		Status:       status,
		AutoReminder: r.AutoReminder,
		Notes:        r.Notes,
	}
	if !b.Status.IsValid() {
		return Bill{}, &FieldError{Field: "status", Err: fmt.Errorf("unknown status %q", r.Status)}
	}
	if err := b.Validate(); err != nil {
		return Bill{}, &FieldError{Field: billField(err), Err: err}
	}
	return b, nil
}

// Record converts back to the wire shape, used by the local stores.
func (b Bill) Record() BillRecord {
	return BillRecord{
		ID:           b.ID,
		Name:         b.Name,
		Amount:       json.Number(b.Amount.String()),
		Category:     b.Category,
		Recurrence:   string(b.Recurrence),
		DueDate:      b.DueDate.String(),
		NextDueDate:  b.NextDueDate.String(),
		Status:       string(b.Status),
		AutoReminder: b.AutoReminder,
		Notes:        b.Notes,
	}
}

func (r InvestmentRecord) Investment() (Investment, error) {
	inv := Investment{
		ID:       r.ID,
		Name:     strings.TrimSpace(r.Name),
		Symbol:   r.Symbol,
		Type:     InvestmentType(strings.ToUpper(strings.TrimSpace(r.Type))),
		Quantity: r.Quantity,
		BuyPrice: r.BuyPrice,
		Notes:    r.Notes,
	}
	if strings.TrimSpace(r.PurchaseDate) != "" {
		d, err := ParseDate(r.PurchaseDate)
		if err != nil {
			return Investment{}, &FieldError{Field: "purchaseDate", Err: err}
		}
		inv.PurchaseDate = d
	}
	if err := inv.Validate(); err != nil {
		return Investment{}, &FieldError{Field: investmentField(err), Err: err}
	}
	inv.CurrentPrice = inv.BuyPrice
	if r.CurrentPrice != nil && isFinite(*r.CurrentPrice) && *r.CurrentPrice >= 0 {
		inv.CurrentPrice = *r.CurrentPrice
	}
	inv.TotalInvested = inv.Quantity * inv.BuyPrice
	if r.TotalInvested != nil && isFinite(*r.TotalInvested) {
		inv.TotalInvested = *r.TotalInvested
	}
	return inv, nil
}

func (i Investment) Record() InvestmentRecord {
	price, invested := i.CurrentPrice, i.TotalInvested
	return InvestmentRecord{
		ID:            i.ID,
		Name:          i.Name,
		Symbol:        i.Symbol,
		Type:          string(i.Type),
		Quantity:      i.Quantity,
		BuyPrice:      i.BuyPrice,
		CurrentPrice:  &price,
		TotalInvested: &invested,
		PurchaseDate:  i.PurchaseDate.String(),
		Notes:         i.Notes,
	}
}

// DecodeBills converts records, skipping and reporting the malformed ones.
// Source order is preserved.
func DecodeBills(records []BillRecord) ([]Bill, []IntegrityIssue) {
	bills := make([]Bill, 0, len(records))
	var issues []IntegrityIssue
	seen := make(map[int64]struct{}, len(records))
	for _, r := range records {
		b, err := r.Bill()
		if err == nil {
			if _, dup := seen[b.ID]; dup {
				err = &FieldError{Field: "id", Err: ErrDuplicateID}
			}
		}
		if err != nil {
			issues = append(issues, issueFor(IssueKindBill, r.ID, err))
			continue
		}
		seen[b.ID] = struct{}{}
		bills = append(bills, b)
	}
	return bills, issues
}

func DecodeInvestments(records []InvestmentRecord) ([]Investment, []IntegrityIssue) {
	out := make([]Investment, 0, len(records))
	var issues []IntegrityIssue
	for _, r := range records {
		inv, err := r.Investment()
		if err != nil {
			issues = append(issues, issueFor(IssueKindInvestment, r.ID, err))
			continue
		}
		out = append(out, inv)
	}
	return out, issues
}

func issueFor(kind string, id int64, err error) IntegrityIssue {
	issue := IntegrityIssue{Kind: kind, ID: id, Reason: err.Error()}
	if fe, ok := err.(*FieldError); ok {
		issue.Field = fe.Field
		issue.Reason = fe.Err.Error()
	}
	return issue
}

func billField(err error) string {
	switch err {
	case ErrEmptyName:
		return "name"
	case ErrInvalidAmount:
		return "amount"
	case ErrUnknownRecurrence:
		return "recurrence"
	case ErrInvalidDate:
		return "dueDate"
	}
	return ""
}

func investmentField(err error) string {
	switch err {
	case ErrEmptyName:
		return "name"
	case ErrUnknownType:
		return "type"
	case ErrInvalidQuantity:
		return "quantity"
	case ErrInvalidPrice:
		return "buyPrice"
	}
	return ""
}
