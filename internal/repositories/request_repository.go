package repositories

import (
	"supplymarket/internal/models"

	"gorm.io/gorm"
)

// RequestRepository defines the interface for purchase request data access.
type RequestRepository interface {
	Repository[models.Request]
}

// GORMRequestRepository is a GORM implementation of RequestRepository.
type GORMRequestRepository struct {
	*gormRepository[models.Request]
}

// NewGORMRequestRepository creates a new instance of GORMRequestRepository.
func NewGORMRequestRepository(db *gorm.DB) *GORMRequestRepository {
	return &GORMRequestRepository{gormRepository: newGormRepository[models.Request](db, RequestSchema)}
}
