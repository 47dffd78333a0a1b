package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"supplymarket/internal/models"
	"supplymarket/internal/repositories"

	"github.com/shopspring/decimal"
)

// OfferInput is the payload for answering a request.
type OfferInput struct {
	RequestID        string              `json:"requestId" validate:"required,uuid"`
	Price            decimal.Decimal     `json:"price"`
	PriceUnit        string              `json:"priceUnit" validate:"max=32"`
	Comment          string              `json:"comment" validate:"max=5000"`
	DeliveryIncluded bool                `json:"deliveryIncluded"`
	DeliveryPrice    decimal.NullDecimal `json:"deliveryPrice"`
	ValidUntil       time.Time           `json:"validUntil" validate:"required"`
}

// OfferService handles business logic related to offers.
type OfferService struct {
	store     *repositories.Store
	publisher EventPublisher
	now       func() time.Time
}

// NewOfferService creates a new OfferService. publisher may be nil.
func NewOfferService(store *repositories.Store, publisher EventPublisher) *OfferService {
	return &OfferService{store: store, publisher: publisher, now: time.Now}
}

// CreateOffer answers an open request on behalf of the actor's company.
func (s *OfferService) CreateOffer(ctx context.Context, actor Actor, in OfferInput) (*models.Offer, error) {
	company, err := companyOf(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if in.DeliveryPrice.Valid && in.DeliveryPrice.Decimal.IsNegative() {
		return nil, fmt.Errorf("%w: deliveryPrice must not be negative", ErrInvalidInput)
	}
	if !in.ValidUntil.After(s.now()) {
		return nil, fmt.Errorf("%w: validUntil must be in the future", ErrInvalidInput)
	}

	request, err := s.store.Requests.FindUnique(ctx, "id", in.RequestID)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestOpen {
		return nil, fmt.Errorf("%w: request is %s", ErrInvalidState, request.Status)
	}
	if request.UserID == actor.UserID {
		return nil, fmt.Errorf("%w: cannot answer your own request", ErrForbidden)
	}
	if _, err := s.store.Offers.FindForRequestAndCompany(ctx, request.ID, company.ID); err == nil {
		return nil, fmt.Errorf("%w: company already made an offer on this request", ErrConflict)
	} else if !repositories.IsNotFound(err) {
		return nil, err
	}

	offer := &models.Offer{
		Price:            in.Price,
		PriceUnit:        in.PriceUnit,
		Comment:          in.Comment,
		DeliveryIncluded: in.DeliveryIncluded,
		DeliveryPrice:    in.DeliveryPrice,
		ValidUntil:       in.ValidUntil.UTC(),
		Status:           models.OfferPending,
		RequestID:        request.ID,
		CompanyID:        company.ID,
	}
	if err := s.store.Offers.Create(ctx, offer); err != nil {
		if repositories.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: company already made an offer on this request", ErrConflict)
		}
		return nil, fmt.Errorf("failed to create offer: %w", err)
	}

	publish(s.publisher, EventOfferCreated, offerEvent(offer))
	return offer, nil
}

// AcceptOffer accepts an offer, rejects the other pending offers and closes
// the request, all in one transaction.
func (s *OfferService) AcceptOffer(ctx context.Context, actor Actor, offerID string) (*models.Offer, error) {
	var accepted *models.Offer
	err := s.store.Transaction(ctx, func(tx *repositories.Store) error {
		offer, request, err := s.loadForBuyer(ctx, tx, actor, offerID)
		if err != nil {
			return err
		}
		if request.Status != models.RequestOpen {
			return fmt.Errorf("%w: request is %s", ErrInvalidState, request.Status)
		}
		if offer.Status != models.OfferPending {
			return fmt.Errorf("%w: offer is %s", ErrInvalidState, offer.Status)
		}
		if !offer.ValidUntil.After(s.now()) {
			return fmt.Errorf("%w: offer expired at %s", ErrInvalidState, offer.ValidUntil.Format(time.RFC3339))
		}

		// Both writes repeat the status read above in their condition, so an
		// accept that lost a race on the same request matches no rows.
		n, err := tx.Requests.UpdateMany(ctx, repositories.WhereAll(
			repositories.Eq("id", request.ID),
			repositories.Eq("status", models.RequestOpen),
		), map[string]any{"status": models.RequestClosed})
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: request is no longer open", ErrInvalidState)
		}
		n, err = tx.Offers.UpdateMany(ctx, repositories.WhereAll(
			repositories.Eq("id", offer.ID),
			repositories.Eq("status", models.OfferPending),
		), map[string]any{"status": models.OfferAccepted})
		if err != nil {
			return err
		}
		if n != 1 {
			return fmt.Errorf("%w: offer is no longer pending", ErrInvalidState)
		}
		if _, err := tx.Offers.UpdateMany(ctx, repositories.WhereAll(
			repositories.Eq("requestId", request.ID),
			repositories.Eq("status", models.OfferPending),
			repositories.Filter{Field: "id", Op: repositories.OpNot, Value: offer.ID},
		), map[string]any{"status": models.OfferRejected}); err != nil {
			return fmt.Errorf("failed to reject competing offers: %w", err)
		}
		accepted, err = tx.Offers.FindUnique(ctx, "id", offer.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(s.publisher, EventOfferAccepted, offerEvent(accepted))
	return accepted, nil
}

// RejectOffer declines a pending offer on one of the actor's requests.
func (s *OfferService) RejectOffer(ctx context.Context, actor Actor, offerID string) (*models.Offer, error) {
	offer, _, err := s.loadForBuyer(ctx, s.store, actor, offerID)
	if err != nil {
		return nil, err
	}
	return s.transition(ctx, offer, models.OfferRejected)
}

// WithdrawOffer takes back a pending offer of the actor's company.
func (s *OfferService) WithdrawOffer(ctx context.Context, actor Actor, offerID string) (*models.Offer, error) {
	offer, err := s.store.Offers.FindUnique(ctx, "id", offerID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() {
		company, err := companyOf(ctx, s.store, actor)
		if err != nil {
			return nil, err
		}
		if offer.CompanyID != company.ID {
			return nil, fmt.Errorf("%w: offer %s belongs to another company", ErrForbidden, offerID)
		}
	}
	return s.transition(ctx, offer, models.OfferWithdrawn)
}

// transition moves a pending offer to status. The status is part of the
// update condition so a concurrent change is reported instead of overwritten.
func (s *OfferService) transition(ctx context.Context, offer *models.Offer, status string) (*models.Offer, error) {
	if offer.Status != models.OfferPending {
		return nil, fmt.Errorf("%w: offer is %s", ErrInvalidState, offer.Status)
	}
	n, err := s.store.Offers.UpdateMany(ctx, repositories.WhereAll(
		repositories.Eq("id", offer.ID),
		repositories.Eq("status", models.OfferPending),
	), map[string]any{"status": status})
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("%w: offer is no longer pending", ErrInvalidState)
	}
	return s.store.Offers.FindUnique(ctx, "id", offer.ID)
}

// ListOffersForRequest returns the offers on one of the actor's requests.
func (s *OfferService) ListOffersForRequest(ctx context.Context, actor Actor, requestID string, q repositories.Query) ([]models.Offer, error) {
	request, err := s.store.Requests.FindUnique(ctx, "id", requestID)
	if err != nil {
		return nil, err
	}
	if request.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: request %s is not owned by the user", ErrForbidden, requestID)
	}
	q.Where.Filters = append(q.Where.Filters, repositories.Eq("requestId", requestID))
	return s.store.Offers.FindMany(ctx, q)
}

// ListMyOffers returns the offers made by the actor's company.
func (s *OfferService) ListMyOffers(ctx context.Context, actor Actor, q repositories.Query) ([]models.Offer, error) {
	company, err := companyOf(ctx, s.store, actor)
	if err != nil {
		return nil, err
	}
	q.Where.Filters = append(q.Where.Filters, repositories.Eq("companyId", company.ID))
	return s.store.Offers.FindMany(ctx, q)
}

// OfferSummary reports the count and price range of the live offers on one
// of the actor's requests.
func (s *OfferService) OfferSummary(ctx context.Context, actor Actor, requestID string) (*repositories.AggregateResult, error) {
	request, err := s.store.Requests.FindUnique(ctx, "id", requestID)
	if err != nil {
		return nil, err
	}
	if request.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: request %s is not owned by the user", ErrForbidden, requestID)
	}
	return s.store.Offers.Aggregate(ctx, repositories.WhereAll(
		repositories.Eq("requestId", requestID),
		repositories.Filter{Field: "status", Op: repositories.OpIn, Value: []string{models.OfferPending, models.OfferAccepted}},
	), repositories.AggregateSpec{
		Count: true,
		Avg:   []string{"price"},
		Min:   []string{"price"},
		Max:   []string{"price"},
	})
}

// ExpireOffers marks pending offers whose validUntil has passed as expired.
func (s *OfferService) ExpireOffers(ctx context.Context) (int64, error) {
	n, err := s.store.Offers.UpdateMany(ctx, repositories.WhereAll(
		repositories.Eq("status", models.OfferPending),
		repositories.Filter{Field: "validUntil", Op: repositories.OpLt, Value: s.now().UTC()},
	), map[string]any{"status": models.OfferExpired})
	if err != nil {
		return 0, fmt.Errorf("failed to expire offers: %w", err)
	}
	return n, nil
}

// RunExpiry calls ExpireOffers every interval until ctx is cancelled. A
// non-positive interval disables the sweep.
func (s *OfferService) RunExpiry(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.ExpireOffers(ctx)
			if err != nil {
				log.Printf("Offer expiry failed: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("Expired %d offers", n)
			}
		}
	}
}

func (s *OfferService) loadForBuyer(ctx context.Context, store *repositories.Store, actor Actor, offerID string) (*models.Offer, *models.Request, error) {
	offer, err := store.Offers.FindUnique(ctx, "id", offerID)
	if err != nil {
		return nil, nil, err
	}
	request, err := store.Requests.FindUnique(ctx, "id", offer.RequestID)
	if err != nil {
		return nil, nil, err
	}
	if request.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, nil, fmt.Errorf("%w: request %s is not owned by the user", ErrForbidden, request.ID)
	}
	return offer, request, nil
}

func offerEvent(o *models.Offer) OfferEvent {
	return OfferEvent{
		OfferID:   o.ID,
		RequestID: o.RequestID,
		CompanyID: o.CompanyID,
		Price:     o.Price,
		Status:    o.Status,
	}
}
