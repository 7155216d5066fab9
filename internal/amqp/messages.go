package amqp

import (
	"encoding/json"
	"time"

	"pocketpilot/internal/core"
)

// BudgetAlertMessage is the wire form of a budget breach. Amounts travel as
// decimal strings so no precision is lost in transit.
type BudgetAlertMessage struct {
	Category  string    `json:"category"`
	Predicted string    `json:"predicted"`
	Budget    string    `json:"budget"`
	Timestamp time.Time `json:"timestamp"`
}

// NewBudgetAlertMessage builds a message from a computed alert.
func NewBudgetAlertMessage(alert core.Alert) *BudgetAlertMessage {
	return &BudgetAlertMessage{
		Category:  alert.Category,
		Predicted: alert.Predicted.String(),
		Budget:    alert.Budget.String(),
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetAlertMessageFromJSON creates a message from JSON bytes
func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
