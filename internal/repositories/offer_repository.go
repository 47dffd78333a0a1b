package repositories

import (
	"context"

	"supplymarket/internal/models"

	"gorm.io/gorm"
)

// OfferRepository defines the interface for offer data access.
type OfferRepository interface {
	Repository[models.Offer]
	FindForRequestAndCompany(ctx context.Context, requestID, companyID string) (*models.Offer, error)
}

// GORMOfferRepository is a GORM implementation of OfferRepository.
type GORMOfferRepository struct {
	*gormRepository[models.Offer]
}

// NewGORMOfferRepository creates a new instance of GORMOfferRepository.
func NewGORMOfferRepository(db *gorm.DB) *GORMOfferRepository {
	return &GORMOfferRepository{gormRepository: newGormRepository[models.Offer](db, OfferSchema)}
}

// FindForRequestAndCompany returns the offer a company made on a request.
func (r *GORMOfferRepository) FindForRequestAndCompany(ctx context.Context, requestID, companyID string) (*models.Offer, error) {
	return r.FindFirst(ctx, Query{Where: WhereAll(Eq("requestId", requestID), Eq("companyId", companyID))})
}
