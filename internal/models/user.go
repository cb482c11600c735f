package models

import (
	"time"

	"smartdecor/internal/domain"

	"gorm.io/gorm"
)

type User struct {
	ID            uint           `gorm:"primaryKey" json:"id"`
	Name          string         `gorm:"size:255;index" json:"name"`
	Email         string         `gorm:"uniqueIndex;size:255;not null" json:"email"`
	PasswordHash  string         `gorm:"size:255" json:"-"`
	Address       string         `gorm:"type:text" json:"address"`
	Phone         string         `gorm:"size:32" json:"phone"`
	ProfileImage  string         `gorm:"size:512" json:"profile_image"`
	Gender        string         `gorm:"size:32" json:"gender"`
	DateOfBirth   *time.Time     `json:"date_of_birth"`
	IsActive      bool           `gorm:"default:true" json:"is_active"`
	EmailVerified bool           `gorm:"default:false" json:"email_verified"`
	LastLogin     *time.Time     `json:"last_login"`
	GoogleID      *string        `gorm:"uniqueIndex;size:255" json:"-"` // nil for email signups
	IsGoogleAuth  bool           `gorm:"default:false" json:"is_google_auth"`
	Role          domain.Role    `gorm:"size:20;not null;index" json:"role"`
	OTP           *string        `gorm:"size:6" json:"-"`
	OTPExpiresAt  *time.Time     `json:"-"`
	FCMToken      string         `gorm:"size:512" json:"-"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) IsAdmin() bool { return u.Role == domain.RoleAdmin }

// OTPValid reports whether code matches the stored reset code and has not expired at t.
func (u *User) OTPValid(code string, t time.Time) bool {
	if u.OTP == nil || u.OTPExpiresAt == nil {
		return false
	}
	return *u.OTP == code && t.Before(*u.OTPExpiresAt)
}
