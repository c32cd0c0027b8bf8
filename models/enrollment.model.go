package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Enrollment is the durable grant of course access to a user. The composite
// unique index on (user_id, course_id) is the authoritative guard against
// double enrollment; every code path that creates enrollments relies on it.
type Enrollment struct {
	gorm.Model
	UserID          uint       `gorm:"not null;uniqueIndex:idx_enrollments_user_course" json:"userId"`
	CourseID        uint       `gorm:"not null;uniqueIndex:idx_enrollments_user_course" json:"courseId"`
	OrderID         uint       `gorm:"not null;index" json:"orderId"`
	AccessExpiresAt *time.Time `json:"accessExpiresAt"` // nil means lifetime access
	IsCompleted     bool       `gorm:"default:false" json:"isCompleted"`
	Progress        float64    `gorm:"default:0" json:"progress"` // Completion percentage (0-100)
	IsDeleted       bool       `gorm:"default:false" json:"-"`
}

// Progress tracks per-course lesson completion. Created empty alongside the
// enrollment; the progress-tracking flow owns it afterwards.
type Progress struct {
	gorm.Model
	UserID           uint           `gorm:"not null;uniqueIndex:idx_progresses_user_course" json:"userId"`
	CourseID         uint           `gorm:"not null;uniqueIndex:idx_progresses_user_course" json:"courseId"`
	CompletedLessons datatypes.JSON `json:"completedLessons"` // array of lesson ids
	Percentage       float64        `gorm:"default:0" json:"percentage"`
}
