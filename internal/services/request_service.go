package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"supplymarket/internal/models"
	"supplymarket/internal/repositories"
)

// RequestInput is the payload for posting a purchase request.
type RequestInput struct {
	Query          string     `json:"query" validate:"required,min=3,max=2000"`
	CategoryID     string     `json:"categoryId" validate:"omitempty,uuid"`
	DeliveryNeeded *bool      `json:"deliveryNeeded"`
	Address        *string    `json:"address" validate:"omitempty,max=500"`
	Deadline       *time.Time `json:"deadline"`
}

// RequestService handles business logic related to purchase requests.
type RequestService struct {
	store     *repositories.Store
	publisher EventPublisher
	now       func() time.Time
}

// NewRequestService creates a new RequestService. publisher may be nil.
func NewRequestService(store *repositories.Store, publisher EventPublisher) *RequestService {
	return &RequestService{store: store, publisher: publisher, now: time.Now}
}

// CreateRequest parses the buyer's query, stores the request as open and
// announces it to suppliers.
func (s *RequestService) CreateRequest(ctx context.Context, actor Actor, in RequestInput) (*models.Request, error) {
	if actor.Role == models.RoleSupplier {
		return nil, fmt.Errorf("%w: suppliers cannot post requests", ErrForbidden)
	}
	if in.Deadline != nil && !in.Deadline.After(s.now()) {
		return nil, fmt.Errorf("%w: deadline must be in the future", ErrInvalidInput)
	}

	categories, err := s.store.Categories.FindMany(ctx, repositories.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to load categories: %w", err)
	}
	regions, err := s.store.Regions.FindMany(ctx, repositories.Query{})
	if err != nil {
		return nil, fmt.Errorf("failed to load regions: %w", err)
	}
	parsed := ParseRequest(in.Query, categories, regions)

	request := &models.Request{
		Query:          strings.TrimSpace(in.Query),
		ParsedVolume:   parsed.Volume,
		ParsedCity:     parsed.City,
		DeliveryNeeded: parsed.DeliveryNeeded,
		Address:        in.Address,
		Status:         models.RequestOpen,
		UserID:         actor.UserID,
	}
	if in.DeliveryNeeded != nil {
		request.DeliveryNeeded = *in.DeliveryNeeded
	}
	if in.Deadline != nil {
		deadline := in.Deadline.UTC()
		request.Deadline = &deadline
	}
	if parsed.Category != nil {
		name := parsed.Category.Name
		request.ParsedCategory = &name
	}

	switch {
	case in.CategoryID != "":
		if _, err := s.store.Categories.FindUnique(ctx, "id", in.CategoryID); err != nil {
			if repositories.IsNotFound(err) {
				return nil, fmt.Errorf("%w: category %s does not exist", ErrInvalidInput, in.CategoryID)
			}
			return nil, err
		}
		request.CategoryID = in.CategoryID
	case parsed.Category != nil:
		request.CategoryID = parsed.Category.ID
	default:
		return nil, fmt.Errorf("%w: could not determine a category, pass categoryId", ErrInvalidInput)
	}

	if err := s.store.Requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	publish(s.publisher, EventRequestCreated, RequestCreatedEvent{
		RequestID:  request.ID,
		UserID:     request.UserID,
		CategoryID: request.CategoryID,
		City:       request.ParsedCity,
		Volume:     request.ParsedVolume,
		CreatedAt:  request.CreatedAt,
	})
	return request, nil
}

// Relations a supplier browsing requests may not load: competing offers and
// the buyer's account.
var privateRequestRelations = []string{"offers", "user"}

// GetRequest returns a request to its owner, to suppliers while it is open,
// and to admins.
func (s *RequestService) GetRequest(ctx context.Context, actor Actor, id string, include []string) (*models.Request, error) {
	request, err := s.store.Requests.FindFirst(ctx, repositories.Query{
		Where:   repositories.WhereAll(repositories.Eq("id", id)),
		Include: include,
	})
	if err != nil {
		return nil, err
	}
	switch {
	case actor.IsAdmin(), request.UserID == actor.UserID:
	case actor.Role == models.RoleSupplier && request.Status == models.RequestOpen:
		if err := guardIncludes(include, privateRequestRelations...); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: request %s is not visible to the user", ErrForbidden, id)
	}
	return request, nil
}

// ListMyRequests returns the actor's own requests matching q.
func (s *RequestService) ListMyRequests(ctx context.Context, actor Actor, q repositories.Query) ([]models.Request, error) {
	q.Where.Filters = append(q.Where.Filters, repositories.Eq("userId", actor.UserID))
	return s.store.Requests.FindMany(ctx, q)
}

// ListOpenRequests returns the open requests suppliers can answer.
func (s *RequestService) ListOpenRequests(ctx context.Context, actor Actor, q repositories.Query) ([]models.Request, error) {
	if actor.Role != models.RoleSupplier && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only suppliers can browse open requests", ErrForbidden)
	}
	if !actor.IsAdmin() {
		if err := guardIncludes(q.Include, privateRequestRelations...); err != nil {
			return nil, err
		}
	}
	q.Where.Filters = append(q.Where.Filters, repositories.Eq("status", models.RequestOpen))
	return s.store.Requests.FindMany(ctx, q)
}

// CancelRequest cancels an open request and rejects its pending offers.
func (s *RequestService) CancelRequest(ctx context.Context, actor Actor, id string) (*models.Request, error) {
	var out *models.Request
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		request, err := tx.Requests.FindUnique(ctx, "id", id)
		if err != nil {
			return err
		}
		if request.UserID != actor.UserID && !actor.IsAdmin() {
			return fmt.Errorf("%w: request %s is not owned by the user", ErrForbidden, id)
		}
		if request.Status != models.RequestOpen {
			return fmt.Errorf("%w: request is %s", ErrInvalidState, request.Status)
		}
		if _, err := tx.Offers.UpdateMany(ctx, repositories.WhereAll(
			repositories.Eq("requestId", id),
			repositories.Eq("status", models.OfferPending),
		), map[string]any{"status": models.OfferRejected}); err != nil {
			return fmt.Errorf("failed to reject pending offers: %w", err)
		}
		out, err = tx.Requests.Update(ctx, id, map[string]any{"status": models.RequestCancelled})
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
