package services

import (
	"log"
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys of marketplace events.
const (
	EventRequestCreated = "request.created"
	EventOfferCreated   = "offer.created"
	EventOfferAccepted  = "offer.accepted"
)

// EventPublisher publishes marketplace events to the broker.
type EventPublisher interface {
	PublishEvent(routingKey string, payload any) error
}

// RequestCreatedEvent is published when a buyer posts a request.
type RequestCreatedEvent struct {
	RequestID  string    `json:"requestId"`
	UserID     string    `json:"userId"`
	CategoryID string    `json:"categoryId"`
	City       *string   `json:"city,omitempty"`
	Volume     *string   `json:"volume,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// OfferEvent is published when an offer is created or accepted.
type OfferEvent struct {
	OfferID   string          `json:"offerId"`
	RequestID string          `json:"requestId"`
	CompanyID string          `json:"companyId"`
	Price     decimal.Decimal `json:"price"`
	Status    string          `json:"status"`
}

// publish sends an event; failures are logged and never fail the operation
// that produced the event.
func publish(p EventPublisher, routingKey string, payload any) {
	if p == nil {
		log.Printf("Event publisher is not initialized. Skipping %s event.", routingKey)
		return
	}
	if err := p.PublishEvent(routingKey, payload); err != nil {
		log.Printf("Warning: Failed to publish %s event: %v", routingKey, err)
	}
}
