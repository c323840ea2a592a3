// Package notify delivers ledger events to the log and to RabbitMQ.
package notify

import (
	"encoding/json"
	"time"

	"github.com/Veraticus/purse/internal/model"
	"github.com/Veraticus/purse/internal/service"
)

// EventMessage is the JSON body published for every ledger event.
type EventMessage struct {
	Timestamp  time.Time         `json:"timestamp"`
	Transfer   *TransferMessage  `json:"transfer,omitempty"`
	Type       string            `json:"type"`
	Username   string            `json:"username"`
	Advisories []AdvisoryMessage `json:"advisories,omitempty"`
}

// AdvisoryMessage is the wire form of model.Advisory.
type AdvisoryMessage struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Category string `json:"category,omitempty"`
	Message  string `json:"message"`
}

// TransferMessage is the wire form of model.TransferRecord. Amounts are
// strings so no precision is lost.
type TransferMessage struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Target      string `json:"target"`
	Amount      string `json:"amount"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

// NewEventMessage converts a ledger event.
func NewEventMessage(event service.Event) *EventMessage {
	msg := &EventMessage{
		Type:      string(event.Type),
		Username:  event.Username,
		Timestamp: event.Timestamp,
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now()
	}
	for _, a := range event.Advisories {
		msg.Advisories = append(msg.Advisories, AdvisoryMessage{
			Code:     string(a.Code),
			Severity: string(a.Severity),
			Category: a.Category,
			Message:  a.Message,
		})
	}
	if r := event.Transfer; r != nil {
		msg.Transfer = &TransferMessage{
			ID:          r.ID,
			Source:      r.Source,
			Target:      r.Target,
			Amount:      model.FormatAmount(r.Amount),
			Description: r.Description,
			CreatedAt:   model.FormatTimestamp(r.CreatedAt),
		}
	}
	return msg
}

// ToJSON converts the message to JSON bytes.
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON parses a published message.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
