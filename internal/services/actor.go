package services

import (
	"fmt"
	"slices"

	"supplymarket/internal/models"
)

// Actor is the authenticated user an operation runs on behalf of.
type Actor struct {
	UserID string
	Role   string
}

// IsAdmin reports whether the actor has the admin role.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

func requireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return fmt.Errorf("%w: admin role required", ErrForbidden)
	}
	return nil
}

// guardIncludes fails when include names one of the private relations.
// Unknown names are left for the repository to reject.
func guardIncludes(include []string, private ...string) error {
	for _, rel := range include {
		if slices.Contains(private, rel) {
			return fmt.Errorf("%w: relation %q cannot be included", ErrForbidden, rel)
		}
	}
	return nil
}
