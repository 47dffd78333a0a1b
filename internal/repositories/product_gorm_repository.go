package repositories

import (
	"supplymarket/internal/models"

	"gorm.io/gorm"
)

// GORMProductRepository is a GORM implementation of ProductRepository.
type GORMProductRepository struct {
	*gormRepository[models.Product]
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		gormRepository: newGormRepository[models.Product](db, ProductSchema),
	}
}
