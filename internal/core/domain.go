package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	Weekly    Recurrence = "WEEKLY"
	Monthly   Recurrence = "MONTHLY"
	Quarterly Recurrence = "QUARTERLY"
	Yearly    Recurrence = "YEARLY"
	OneTime   Recurrence = "ONE_TIME"
)

const (
	StatusPending BillStatus = "PENDING"
	StatusPaid    BillStatus = "PAID"
	StatusOverdue BillStatus = "OVERDUE"
)

const (
	Stock      InvestmentType = "STOCK"
	Crypto     InvestmentType = "CRYPTO"
	MutualFund InvestmentType = "MUTUAL_FUND"
	Bond       InvestmentType = "BOND"
	RealEstate InvestmentType = "REAL_ESTATE"
	Gold       InvestmentType = "GOLD"
	Other      InvestmentType = "OTHER"
)

type (
	Recurrence     string
	BillStatus     string
	InvestmentType string

	// Bill is a recurring obligation. DueDate is the recurrence anchor and
	// never changes; NextDueDate is the backend's pointer to the next actual
	// due day and may be zero.
	Bill struct {
		ID           int64           `json:"id"`
		Name         string          `json:"name"`
		Amount       decimal.Decimal `json:"amount"`
		Category     string          `json:"category,omitempty"`
		Recurrence   Recurrence      `json:"recurrence"`
		DueDate      Date            `json:"dueDate"`
		NextDueDate  Date            `json:"nextDueDate"`
		Status       BillStatus      `json:"status"`
		AutoReminder bool            `json:"autoReminder"`
		Notes        string          `json:"notes,omitempty"`
	}

	Investment struct {
		ID                int64          `json:"id"`
		Name              string         `json:"name"`
		Symbol            string         `json:"symbol,omitempty"`
		Type              InvestmentType `json:"type"`
		Quantity          float64        `json:"quantity"`
		BuyPrice          float64        `json:"buyPrice"`
		CurrentPrice      float64        `json:"currentPrice"`
		TotalInvested     float64        `json:"totalInvested"`
		CurrentValue      float64        `json:"currentValue"`
		ProfitLoss        float64        `json:"profitLoss"`
		ProfitLossPercent float64        `json:"profitLossPercent"`
		Trend             string         `json:"trend,omitempty"`
		PurchaseDate      Date           `json:"purchaseDate"`
		Notes             string         `json:"notes,omitempty"`
	}
)

var (
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidPrice      = errors.New("invalid price")
	ErrEmptyName         = errors.New("empty name")
	ErrUnknownRecurrence = errors.New("unknown recurrence")
	ErrUnknownType       = errors.New("unknown investment type")
	ErrInvalidID         = errors.New("id must be positive")
	ErrDuplicateID       = errors.New("duplicate id")
)

func (r Recurrence) IsValid() bool {
	switch r {
	case Weekly, Monthly, Quarterly, Yearly, OneTime:
		return true
	}
	return false
}

func (s BillStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusOverdue:
		return true
	}
	return false
}

func (t InvestmentType) IsValid() bool {
	switch t {
	case Stock, Crypto, MutualFund, Bond, RealEstate, Gold, Other:
		return true
	}
	return false
}

// InvestmentTypes lists every investment type in display order.
func InvestmentTypes() []InvestmentType {
	return []InvestmentType{Stock, Crypto, MutualFund, Bond, RealEstate, Gold, Other}
}

// Advance returns the due date that follows d for this recurrence. Month
// based steps clamp to the last day of the target month.
func (r Recurrence) Advance(d Date) Date {
	switch r {
	case Weekly:
		return d.AddDays(7)
	case Monthly:
		return d.AddMonthsClamped(1)
	case Quarterly:
		return d.AddMonthsClamped(3)
	case Yearly:
		return d.AddMonthsClamped(12)
	}
	return d
}

// Paid returns the bill after a payment: one-off bills become PAID, recurring
// bills move to their next due date and stay PENDING.
func (b Bill) Paid() Bill {
	if b.Recurrence == OneTime {
		b.Status = StatusPaid
		return b
	}
	base := b.NextDueDate
	if base.IsZero() {
		base = b.DueDate
	}
	b.NextDueDate = b.Recurrence.Advance(base)
	b.Status = StatusPending
	return b
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrEmptyName
	}
	if b.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if !b.Recurrence.IsValid() {
		return ErrUnknownRecurrence
	}
	if b.DueDate.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (i Investment) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return ErrEmptyName
	}
	if !i.Type.IsValid() {
		return ErrUnknownType
	}
	if !(i.Quantity > 0) || !isFinite(i.Quantity) {
		return ErrInvalidQuantity
	}
	if i.BuyPrice < 0 || !isFinite(i.BuyPrice) {
		return ErrInvalidPrice
	}
	return nil
}
