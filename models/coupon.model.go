package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CouponDiscountType defines how a coupon discounts the price
type CouponDiscountType string

const (
	CouponDiscountPercent CouponDiscountType = "PERCENT"
	CouponDiscountFixed   CouponDiscountType = "FIXED"
)

// Coupon is a discount code applied at checkout
type Coupon struct {
	gorm.Model
	Code          string             `gorm:"uniqueIndex;not null" json:"code"`
	DiscountType  CouponDiscountType `gorm:"type:varchar(20);not null" json:"discountType"`
	DiscountValue float64            `gorm:"not null" json:"discountValue"`
	MaxDiscount   float64            `gorm:"default:0" json:"maxDiscount"` // 0 means no cap
	MinPurchase   float64            `gorm:"default:0" json:"minPurchase"`

	// Allow-lists; empty means applicable everywhere
	ApplicableCourses    datatypes.JSON `json:"applicableCourses"`    // array of course ids
	ApplicableCategories datatypes.JSON `json:"applicableCategories"` // array of category names

	StartDate  time.Time  `json:"startDate"`
	ExpiryDate *time.Time `json:"expiryDate"`
	UsageLimit int        `gorm:"default:0" json:"usageLimit"` // 0 means unlimited
	UsedCount  int        `gorm:"default:0" json:"usedCount"`
	IsActive   bool       `gorm:"default:true" json:"isActive"`
	IsDeleted  bool       `gorm:"default:false" json:"-"`
}
