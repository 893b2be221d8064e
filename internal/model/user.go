package model

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleAdmin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name              string     `gorm:"size:100;not null" json:"name"`
	Email             string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password          string     `gorm:"size:100;not null" json:"-"`
	Role              UserRole   `gorm:"size:20;not null;default:'student'" json:"role"`
	ProfilePicture    string     `gorm:"size:512" json:"profilePicture"`
	ProfilePictureKey string     `gorm:"size:512" json:"-"`
	LastLogin         *time.Time `json:"lastLogin,omitempty"`
	LastSeen          *time.Time `json:"lastSeen,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// PasswordResetCode 找回密码验证码，Redis 未启用时落库
type PasswordResetCode struct {
	BaseModel
	Email     string    `gorm:"size:100;index;not null" json:"email"`
	Code      string    `gorm:"size:6;not null" json:"-"`
	ExpiresAt time.Time `gorm:"not null" json:"expiresAt"`
	Used      bool      `gorm:"not null" json:"used"`
}

func (PasswordResetCode) TableName() string {
	return "password_reset_codes"
}

func (c *PasswordResetCode) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}
