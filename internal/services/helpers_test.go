package services_test

import (
	"testing"

	"supplymarket/internal/models"
	"supplymarket/internal/repositories"
	"supplymarket/internal/services"
	"supplymarket/internal/testutil"

	"github.com/stretchr/testify/mock"
)

// MockPublisher is a mock implementation of services.EventPublisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishEvent(routingKey string, payload any) error {
	args := m.Called(routingKey, payload)
	return args.Error(0)
}

func newStore(t *testing.T) *repositories.Store {
	t.Helper()
	return repositories.NewStore(testutil.NewTestDB(t))
}

func actorOf(u models.User) services.Actor {
	return services.Actor{UserID: u.ID, Role: u.Role}
}

var admin = services.Actor{UserID: "admin", Role: models.RoleAdmin}
