package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newID(id string) string {
	if id == "" {
		return uuid.New().String()
	}
	return id
}

func (u *User) BeforeCreate(*gorm.DB) error {
	u.ID = newID(u.ID)
	return nil
}

func (r *Region) BeforeCreate(*gorm.DB) error {
	r.ID = newID(r.ID)
	return nil
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	c.ID = newID(c.ID)
	return nil
}

func (c *Company) BeforeCreate(*gorm.DB) error {
	c.ID = newID(c.ID)
	return nil
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	p.ID = newID(p.ID)
	return nil
}

func (r *Request) BeforeCreate(*gorm.DB) error {
	r.ID = newID(r.ID)
	return nil
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	o.ID = newID(o.ID)
	return nil
}
