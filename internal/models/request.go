package models

import "time"

// Request statuses.
const (
	RequestOpen      = "open"
	RequestClosed    = "closed"
	RequestCancelled = "cancelled"
)

// Request is a buyer's purchase request, written as free text.
type Request struct {
	ID             string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Query          string     `json:"query" gorm:"type:text;not null"`
	ParsedCategory *string    `json:"parsedCategory" gorm:"type:varchar(255)"`
	ParsedVolume   *string    `json:"parsedVolume" gorm:"type:varchar(64)"`
	ParsedCity     *string    `json:"parsedCity" gorm:"type:varchar(255)"`
	DeliveryNeeded bool       `json:"deliveryNeeded" gorm:"not null;default:false"`
	Address        *string    `json:"address" gorm:"type:varchar(500)"`
	Deadline       *time.Time `json:"deadline"`
	Status         string     `json:"status" gorm:"type:varchar(32);not null;default:open;index"`
	UserID         string     `json:"userId" gorm:"type:varchar(36);not null;index"`
	CategoryID     string     `json:"categoryId" gorm:"type:varchar(36);not null;index"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`

	User     *User     `json:"user,omitempty"`
	Category *Category `json:"category,omitempty"`
	Offers   []Offer   `json:"offers,omitempty" gorm:"foreignKey:RequestID"`
}
