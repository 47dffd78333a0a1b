package models

import "time"

// User roles.
const (
	RoleBuyer    = "buyer"
	RoleSupplier = "supplier"
	RoleAdmin    = "admin"
)

// User represents an account on the marketplace.
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Phone        string    `json:"phone" gorm:"uniqueIndex;type:varchar(32);not null"`
	PasswordHash *string   `json:"-" gorm:"type:varchar(255)"` // Never serialized
	Role         string    `json:"role" gorm:"type:varchar(32);not null;default:buyer"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	Company  *Company  `json:"company,omitempty" gorm:"foreignKey:OwnerID"`
	Requests []Request `json:"requests,omitempty" gorm:"foreignKey:UserID"`
}
