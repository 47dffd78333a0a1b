package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"supplymarket/internal/repositories"
)

// NotificationService consumes marketplace events and works out who should
// hear about them.
type NotificationService struct {
	store   *repositories.Store
	timeout time.Duration
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(store *repositories.Store) *NotificationService {
	return &NotificationService{store: store, timeout: 10 * time.Second}
}

// Bindings lists the routing keys HandleEvent understands.
func (s *NotificationService) Bindings() []string {
	return []string{EventRequestCreated, EventOfferCreated, EventOfferAccepted}
}

// HandleEvent processes one message. A returned error means the message is
// malformed or could not be processed and should not be redelivered.
func (s *NotificationService) HandleEvent(routingKey string, body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	switch routingKey {
	case EventRequestCreated:
		var event RequestCreatedEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("failed to unmarshal %s event: %w", routingKey, err)
		}
		_, err := s.NotifySuppliers(ctx, event)
		return err
	case EventOfferCreated, EventOfferAccepted:
		var event OfferEvent
		if err := json.Unmarshal(body, &event); err != nil {
			return fmt.Errorf("failed to unmarshal %s event: %w", routingKey, err)
		}
		return s.notifyBuyer(ctx, routingKey, event)
	default:
		log.Printf("Ignoring event with unknown routing key %s", routingKey)
		return nil
	}
}

// NotifySuppliers returns how many verified companies in the request's
// category, and its city's region when known, receive the new request.
func (s *NotificationService) NotifySuppliers(ctx context.Context, event RequestCreatedEvent) (int64, error) {
	where := repositories.WhereAll(
		repositories.Eq("categoryId", event.CategoryID),
		repositories.Eq("verified", true),
	)
	if event.City != nil {
		region, err := s.store.Regions.GetByName(ctx, *event.City)
		switch {
		case err == nil:
			where.Filters = append(where.Filters, repositories.Eq("regionId", region.ID))
		case !repositories.IsNotFound(err):
			return 0, err
		}
	}
	n, err := s.store.Companies.Count(ctx, where)
	if err != nil {
		return 0, fmt.Errorf("failed to count recipients: %w", err)
	}
	log.Printf("Request %s: notifying %d verified suppliers", event.RequestID, n)
	return n, nil
}

func (s *NotificationService) notifyBuyer(ctx context.Context, routingKey string, event OfferEvent) error {
	request, err := s.store.Requests.FindUnique(ctx, "id", event.RequestID)
	if err != nil {
		if repositories.IsNotFound(err) {
			log.Printf("Request %s for %s event no longer exists", event.RequestID, routingKey)
			return nil
		}
		return err
	}
	log.Printf("Offer %s (%s, price %s): notifying buyer %s", event.OfferID, routingKey, event.Price.String(), request.UserID)
	return nil
}
