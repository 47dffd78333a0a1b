package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Offer statuses.
const (
	OfferPending   = "pending"
	OfferAccepted  = "accepted"
	OfferRejected  = "rejected"
	OfferWithdrawn = "withdrawn"
	OfferExpired   = "expired"
)

// Offer is a company's answer to a request.
type Offer struct {
	ID               string              `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Price            decimal.Decimal     `json:"price" gorm:"type:numeric(14,2);not null"`
	PriceUnit        string              `json:"priceUnit" gorm:"type:varchar(32)"`
	Comment          string              `json:"comment" gorm:"type:text"`
	DeliveryIncluded bool                `json:"deliveryIncluded" gorm:"not null;default:false"`
	DeliveryPrice    decimal.NullDecimal `json:"deliveryPrice" gorm:"type:numeric(14,2)"`
	ValidUntil       time.Time           `json:"validUntil" gorm:"not null;index"`
	Status           string              `json:"status" gorm:"type:varchar(32);not null;default:pending;index"`
	RequestID        string              `json:"requestId" gorm:"type:varchar(36);not null;uniqueIndex:idx_offer_request_company"`
	CompanyID        string              `json:"companyId" gorm:"type:varchar(36);not null;uniqueIndex:idx_offer_request_company"`
	CreatedAt        time.Time           `json:"createdAt"`
	UpdatedAt        time.Time           `json:"updatedAt"`

	Request *Request `json:"request,omitempty"`
	Company *Company `json:"company,omitempty"`
}
