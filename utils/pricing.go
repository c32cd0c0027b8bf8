package utils

import (
	"encoding/json"
	"errors"
	"time"

	"coursemart/models"

	"gorm.io/gorm"
)

// Coupon evaluation errors surfaced to the order controller as 4xx
var (
	ErrInvalidCoupon           = errors.New("coupon is invalid, inactive or expired")
	ErrCouponMinPurchaseNotMet = errors.New("order amount is below the coupon minimum purchase")
	ErrCouponNotApplicable     = errors.New("coupon is not applicable to this course")
)

// PricingResult is the outcome of evaluating a purchase price
type PricingResult struct {
	FinalAmount float64
	Discount    float64
	Coupon      *models.Coupon
}

// EvaluatePricing computes the chargeable amount for a course, optionally
// applying a coupon. It performs no writes: coupon usage is counted at order
// commit via RedeemCoupon, never for abandoned carts.
func EvaluatePricing(db *gorm.DB, course *models.Course, couponCode string) (*PricingResult, error) {
	basePrice := course.SellingPrice()

	result := &PricingResult{FinalAmount: basePrice}
	if couponCode == "" {
		return result, nil
	}

	var coupon models.Coupon
	if err := db.Where("code = ? AND is_deleted = false", couponCode).First(&coupon).Error; err != nil {
		return nil, ErrInvalidCoupon
	}

	now := time.Now()
	if !coupon.IsActive || now.Before(coupon.StartDate) {
		return nil, ErrInvalidCoupon
	}
	if coupon.ExpiryDate != nil && now.After(*coupon.ExpiryDate) {
		return nil, ErrInvalidCoupon
	}
	if coupon.UsageLimit > 0 && coupon.UsedCount >= coupon.UsageLimit {
		return nil, ErrInvalidCoupon
	}
	if basePrice < coupon.MinPurchase {
		return nil, ErrCouponMinPurchaseNotMet
	}
	if !couponApplies(&coupon, course) {
		return nil, ErrCouponNotApplicable
	}

	discount := couponDiscount(&coupon, basePrice)
	result.Discount = discount
	result.FinalAmount = basePrice - discount
	if result.FinalAmount < 0 {
		result.FinalAmount = 0
	}
	result.Coupon = &coupon

	return result, nil
}

// RedeemCoupon increments the usage counter inside the caller's transaction.
// The usage limit is enforced in the UPDATE itself so concurrent redemptions
// cannot overshoot it.
func RedeemCoupon(tx *gorm.DB, couponID uint) error {
	res := tx.Model(&models.Coupon{}).
		Where("id = ? AND is_deleted = false AND (usage_limit = 0 OR used_count < usage_limit)", couponID).
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInvalidCoupon
	}
	return nil
}

// couponApplies checks the coupon allow-lists; an empty list allows everything
func couponApplies(coupon *models.Coupon, course *models.Course) bool {
	var courseIDs []uint
	if len(coupon.ApplicableCourses) > 0 {
		if err := json.Unmarshal(coupon.ApplicableCourses, &courseIDs); err != nil {
			return false
		}
	}
	var categories []string
	if len(coupon.ApplicableCategories) > 0 {
		if err := json.Unmarshal(coupon.ApplicableCategories, &categories); err != nil {
			return false
		}
	}

	if len(courseIDs) == 0 && len(categories) == 0 {
		return true
	}
	for _, id := range courseIDs {
		if id == course.ID {
			return true
		}
	}
	for _, category := range categories {
		if category == course.Category {
			return true
		}
	}
	return false
}

// couponDiscount resolves the discount amount: percent or fixed, never more
// than the price, capped by maxDiscount when one is set
func couponDiscount(coupon *models.Coupon, basePrice float64) float64 {
	var discount float64
	switch coupon.DiscountType {
	case models.CouponDiscountPercent:
		discount = basePrice * coupon.DiscountValue / 100
	case models.CouponDiscountFixed:
		discount = coupon.DiscountValue
	}
	if discount > basePrice {
		discount = basePrice
	}
	if coupon.MaxDiscount > 0 && discount > coupon.MaxDiscount {
		discount = coupon.MaxDiscount
	}
	return discount
}
