package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents an item in a company's catalog.
type Product struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string          `json:"name" gorm:"type:varchar(255);not null"`
	Description string          `json:"description" gorm:"type:text"`
	Unit        string          `json:"unit" gorm:"type:varchar(32)"`
	PriceFrom   decimal.Decimal `json:"priceFrom" gorm:"type:numeric(14,2);not null"`
	PriceUnit   string          `json:"priceUnit" gorm:"type:varchar(32)"`
	InStock     bool            `json:"inStock" gorm:"not null"`
	CompanyID   string          `json:"companyId" gorm:"type:varchar(36);not null;index"`
	CategoryID  string          `json:"categoryId" gorm:"type:varchar(36);not null;index"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`

	Company  *Company  `json:"company,omitempty"`
	Category *Category `json:"category,omitempty"`
}
