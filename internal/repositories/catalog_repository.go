package repositories

import (
	"context"

	"supplymarket/internal/models"

	"gorm.io/gorm"
)

// RegionRepository defines the interface for region data access.
type RegionRepository interface {
	Repository[models.Region]
	GetByName(ctx context.Context, name string) (*models.Region, error)
}

// CategoryRepository defines the interface for category data access.
type CategoryRepository interface {
	Repository[models.Category]
	GetByName(ctx context.Context, name string) (*models.Category, error)
}

// GORMRegionRepository is a GORM implementation of RegionRepository.
type GORMRegionRepository struct {
	*gormRepository[models.Region]
}

// NewGORMRegionRepository creates a new instance of GORMRegionRepository.
func NewGORMRegionRepository(db *gorm.DB) *GORMRegionRepository {
	return &GORMRegionRepository{gormRepository: newGormRepository[models.Region](db, RegionSchema)}
}

func (r *GORMRegionRepository) GetByName(ctx context.Context, name string) (*models.Region, error) {
	return r.FindUnique(ctx, "name", name)
}

// GORMCategoryRepository is a GORM implementation of CategoryRepository.
type GORMCategoryRepository struct {
	*gormRepository[models.Category]
}

// NewGORMCategoryRepository creates a new instance of GORMCategoryRepository.
func NewGORMCategoryRepository(db *gorm.DB) *GORMCategoryRepository {
	return &GORMCategoryRepository{gormRepository: newGormRepository[models.Category](db, CategorySchema)}
}

func (r *GORMCategoryRepository) GetByName(ctx context.Context, name string) (*models.Category, error) {
	return r.FindUnique(ctx, "name", name)
}
