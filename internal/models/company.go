package models

import "time"

// Company is a supplier listed in the directory.
type Company struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Address     string    `json:"address" gorm:"type:varchar(500)"`
	Phone       string    `json:"phone" gorm:"type:varchar(32)"`
	Delivery    bool      `json:"delivery" gorm:"not null;default:false"`
	LogoURL     *string   `json:"logoUrl" gorm:"type:varchar(1024)"`
	Verified    bool      `json:"verified" gorm:"not null;default:false"`
	CategoryID  string    `json:"categoryId" gorm:"type:varchar(36);not null;index"`
	RegionID    string    `json:"regionId" gorm:"type:varchar(36);not null;index"`
	OwnerID     *string   `json:"ownerId" gorm:"type:varchar(36);uniqueIndex"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`

	Category *Category `json:"category,omitempty"`
	Region   *Region   `json:"region,omitempty"`
	Owner    *User     `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Products []Product `json:"products,omitempty" gorm:"foreignKey:CompanyID"`
	Offers   []Offer   `json:"offers,omitempty" gorm:"foreignKey:CompanyID"`
}
