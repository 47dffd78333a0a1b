package repositories

import (
	"context"

	"supplymarket/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Repository[models.User]
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
}
