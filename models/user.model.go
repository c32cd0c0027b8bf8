package models

import (
	"time"

	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ProfileImage        string     `gorm:"default:''" json:"profileImage"`
	Name                string     `gorm:"default:''" json:"name"`
	Email               string     `gorm:"unique;not null" json:"email"`
	Role                string     `gorm:"default:'USER'" json:"role"` // USER, INSTRUCTOR, ADMIN
	Password            string     `gorm:"not null" json:"-"`
	IsEmailVerified     bool       `gorm:"default:false" json:"isEmailVerified"`
	TotalStudents       uint       `gorm:"default:0" json:"totalStudents"` // Denormalized, instructors only
	LastLogin           time.Time  `gorm:"default:NULL" json:"lastLogin"`
	FailedLoginAttempts int        `gorm:"default:0" json:"-"`
	LastFailedLogin     *time.Time `json:"-"`
	IsBlocked           bool       `gorm:"default:false" json:"isBlocked"`
	IsDeleted           bool       `gorm:"default:false" json:"-"`
}
