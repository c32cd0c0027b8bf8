package models

import "gorm.io/gorm"

// Course represents a sellable course in the catalog
type Course struct {
	gorm.Model
	Title           string  `json:"title"`
	Description     string  `json:"description"`
	Category        string  `gorm:"index" json:"category"`
	InstructorID    uint    `gorm:"index" json:"instructorId"`
	Price           float64 `gorm:"default:0" json:"price"`
	DiscountPrice   float64 `gorm:"default:0" json:"discountPrice"` // 0 means no sale price
	Status          string  `gorm:"default:'DRAFT'" json:"status"`  // DRAFT, ACTIVE, INACTIVE
	IsApproved      bool    `gorm:"default:false" json:"isApproved"`
	MaxStudents     int     `gorm:"default:0" json:"maxStudents"` // 0 means uncapped
	EnrollmentCount int     `gorm:"default:0" json:"enrollmentCount"`
	AccessDuration  string  `gorm:"default:'lifetime'" json:"accessDuration"` // "lifetime" or days, e.g. "30"
	ThumbnailURL    string  `json:"thumbnail_url"`
	IsDeleted       bool    `gorm:"default:false" json:"-"`
}

// SellingPrice returns the price a buyer is charged before coupons
func (c *Course) SellingPrice() float64 {
	if c.DiscountPrice > 0 && c.DiscountPrice < c.Price {
		return c.DiscountPrice
	}
	return c.Price
}
