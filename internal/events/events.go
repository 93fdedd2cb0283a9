package events

import (
	"encoding/json"
	"sync"
	"time"

	"paras/internal/models"
)

const (
	EventLoanCreated   = "loan_created"
	EventLoanApproved  = "loan_approved"
	EventLoanRejected  = "loan_rejected"
	EventLoanCancelled = "loan_cancelled"
)

// ForAction maps a confirmed transition to its event type.
func ForAction(action models.LoanAction) string {
	switch action {
	case models.ActionApprove:
		return EventLoanApproved
	case models.ActionReject:
		return EventLoanRejected
	case models.ActionCancel:
		return EventLoanCancelled
	default:
		return ""
	}
}

// LoanEventPayload is the loan snapshot handed to event consumers.
type LoanEventPayload struct {
	LoanID        string            `json:"loan_id"`
	RoomCode      string            `json:"room_code"`
	RoomName      string            `json:"room_name"`
	RequesterName string            `json:"requester_name"`
	NRP           string            `json:"nrp"`
	StartTime     models.CivilTime  `json:"start_time"`
	EndTime       models.CivilTime  `json:"end_time"`
	Status        models.LoanStatus `json:"status"`
	ChangedBy     string            `json:"changed_by,omitempty"`
	Comment       string            `json:"comment,omitempty"`
}

// PayloadFromLoan snapshots the fields consumers care about.
func PayloadFromLoan(loan *models.Loan, changedBy, comment string) LoanEventPayload {
	return LoanEventPayload{
		LoanID:        loan.ID,
		RoomCode:      loan.RoomCode,
		RoomName:      loan.RoomName,
		RequesterName: loan.RequesterName,
		NRP:           loan.NRP,
		StartTime:     loan.StartTime,
		EndTime:       loan.EndTime,
		Status:        loan.Status,
		ChangedBy:     changedBy,
		Comment:       comment,
	}
}

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for an event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every loan event type.
func (b *EventBus) SubscribeAll(handler EventHandler) {
	for _, t := range []string{EventLoanCreated, EventLoanApproved, EventLoanRejected, EventLoanCancelled} {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers synchronously; handlers decide their own
// concurrency model and their errors never propagate to the publisher.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
