package utils

import (
	"errors"
	"log"
	"strconv"
	"time"

	"coursemart/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AccessExpiry resolves a course access duration into an expiry timestamp.
// "lifetime" (or anything unparseable) means no expiry.
func AccessExpiry(accessDuration string, from time.Time) *time.Time {
	if accessDuration == "" || accessDuration == "lifetime" {
		return nil
	}
	days, err := strconv.Atoi(accessDuration)
	if err != nil || days <= 0 {
		log.Printf("[ENROLLMENT] unrecognized access duration %q, granting lifetime access", accessDuration)
		return nil
	}
	expiry := from.AddDate(0, 0, days)
	return &expiry
}

// MaterializeEnrollment turns a completed order into an Enrollment + empty
// Progress pair and bumps the denormalized counters, all in one transaction.
//
// It is the single enrollment writer for every path (free orders, webhook
// reconciliation, repair sweep) and is safe to call twice for the same
// (user, course): the composite unique index on enrollments is the
// authoritative guard, and a duplicate-key insert is reported as
// alreadyEnrolled, not as an error.
func MaterializeEnrollment(db *gorm.DB, order *models.Order) (*models.Enrollment, bool, error) {
	var course models.Course
	if err := db.Where("id = ? AND is_deleted = false", order.CourseID).First(&course).Error; err != nil {
		return nil, false, err
	}

	enrollment := models.Enrollment{
		UserID:          order.UserID,
		CourseID:        order.CourseID,
		OrderID:         order.ID,
		AccessExpiresAt: AccessExpiry(course.AccessDuration, time.Now()),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&enrollment).Error; err != nil {
			return err
		}
		progress := models.Progress{
			UserID:           order.UserID,
			CourseID:         order.CourseID,
			CompletedLessons: datatypes.JSON("[]"),
		}
		if err := tx.Create(&progress).Error; err != nil {
			return err
		}

		// Advisory counters; the enrollments table stays the source of truth
		if err := tx.Model(&models.Course{}).Where("id = ?", course.ID).
			UpdateColumn("enrollment_count", gorm.Expr("enrollment_count + 1")).Error; err != nil {
			return err
		}
		if course.InstructorID != 0 {
			if err := tx.Model(&models.User{}).Where("id = ?", course.InstructorID).
				UpdateColumn("total_students", gorm.Expr("total_students + 1")).Error; err != nil {
				return err
			}
		}
		return nil
	})

	if errors.Is(err, gorm.ErrDuplicatedKey) {
		var existing models.Enrollment
		if ferr := db.Where("user_id = ? AND course_id = ? AND is_deleted = false",
			order.UserID, order.CourseID).First(&existing).Error; ferr != nil {
			return nil, true, ferr
		}
		return &existing, true, nil
	}
	if err != nil {
		return nil, false, err
	}

	return &enrollment, false, nil
}
