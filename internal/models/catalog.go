package models

import "gorm.io/datatypes"

// Region is a geographic area companies operate in.
type Region struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string `json:"name" gorm:"uniqueIndex;type:varchar(255);not null"`
	NameLocal string `json:"nameLocal" gorm:"type:varchar(255)"`

	Companies []Company `json:"companies,omitempty" gorm:"foreignKey:RegionID"`
}

// Category groups companies, products and requests by trade.
type Category struct {
	ID        string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string                      `json:"name" gorm:"uniqueIndex;type:varchar(255);not null"`
	NameLocal string                      `json:"nameLocal" gorm:"type:varchar(255)"`
	Icon      string                      `json:"icon" gorm:"type:varchar(255)"`
	Keywords  datatypes.JSONSlice[string] `json:"keywords"`

	Companies []Company `json:"companies,omitempty" gorm:"foreignKey:CategoryID"`
	Products  []Product `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
	Requests  []Request `json:"requests,omitempty" gorm:"foreignKey:CategoryID"`
}
