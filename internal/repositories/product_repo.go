package repositories

import (
	"supplymarket/internal/models"
)

// ProductRepository defines the interface for product data access.
type ProductRepository interface {
	Repository[models.Product]
}
