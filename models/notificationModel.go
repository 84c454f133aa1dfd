package models

import "time"

type EventType string

const (
	EventNewOrder     EventType = "new-order"
	EventStatusUpdate EventType = "order-status-update"
)

// OrderEvent is pushed to realtime listeners. Delivery is best effort.
type OrderEvent struct {
	ID            string      `json:"id"`
	Type          EventType   `json:"type"`
	OrderID       string      `json:"orderId"`
	OrderNumber   string      `json:"orderNumber"`
	Status        OrderStatus `json:"status"`
	EstimatedTime int         `json:"estimatedTime"`
	OccurredAt    time.Time   `json:"occurredAt"`
}

// Message is the websocket envelope.
type Message struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}
