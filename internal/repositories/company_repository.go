package repositories

import (
	"context"

	"supplymarket/internal/models"

	"gorm.io/gorm"
)

// CompanyRepository defines the interface for company data access.
type CompanyRepository interface {
	Repository[models.Company]
	GetByOwnerID(ctx context.Context, ownerID string) (*models.Company, error)
}

// GORMCompanyRepository is a GORM implementation of CompanyRepository.
type GORMCompanyRepository struct {
	*gormRepository[models.Company]
}

// NewGORMCompanyRepository creates a new instance of GORMCompanyRepository.
func NewGORMCompanyRepository(db *gorm.DB) *GORMCompanyRepository {
	return &GORMCompanyRepository{gormRepository: newGormRepository[models.Company](db, CompanySchema)}
}

// GetByOwnerID retrieves the company owned by a user. A user owns at most one.
func (r *GORMCompanyRepository) GetByOwnerID(ctx context.Context, ownerID string) (*models.Company, error) {
	return r.FindUnique(ctx, "ownerId", ownerID)
}
