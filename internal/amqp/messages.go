package amqp

import (
	"budgetwise/internal/core"
	"encoding/json"
	"time"
)

// Message types, also used as routing keys.
const (
	TypeBillReminder = "bill.reminder"
	TypeBillPaid     = "bill.paid"
)

// BillReminderMessage announces an upcoming bill occurrence. It carries
// everything the notifier needs, so consumers never call back into the API.
type BillReminderMessage struct {
	BillID       int64     `json:"billId"`
	Name         string    `json:"name"`
	Amount       string    `json:"amount"`
	Category     string    `json:"category,omitempty"`
	DueDate      string    `json:"dueDate"`
	DaysUntilDue int       `json:"daysUntilDue"`
	Timestamp    time.Time `json:"timestamp"`
}

// NewBillReminderMessage builds a reminder for one occurrence of bill.
func NewBillReminderMessage(bill core.Bill, due core.Date, daysUntilDue int) *BillReminderMessage {
	return &BillReminderMessage{
		BillID:       bill.ID,
		Name:         bill.Name,
		Amount:       core.FormatAmount(bill.Amount),
		Category:     bill.Category,
		DueDate:      due.String(),
		DaysUntilDue: daysUntilDue,
		Timestamp:    time.Now(),
	}
}

func (m *BillReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillReminderMessageFromJSON(data []byte) (*BillReminderMessage, error) {
	var msg BillReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BillPaidMessage is emitted after a payment was recorded.
type BillPaidMessage struct {
	BillID      int64     `json:"billId"`
	Name        string    `json:"name"`
	Amount      string    `json:"amount"`
	Status      string    `json:"status"`
	NextDueDate string    `json:"nextDueDate,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewBillPaidMessage(bill core.Bill) *BillPaidMessage {
	return &BillPaidMessage{
		BillID:      bill.ID,
		Name:        bill.Name,
		Amount:      core.FormatAmount(bill.Amount),
		Status:      string(bill.Status),
		NextDueDate: bill.NextDueDate.String(),
		Timestamp:   time.Now(),
	}
}

func (m *BillPaidMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BillPaidMessageFromJSON(data []byte) (*BillPaidMessage, error) {
	var msg BillPaidMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
